package models

import (
	"context"
	"strconv"
	"strings"

	"github.com/flowplatform/flow_backend/config"
)

type SearchResult struct {
	Id         string           `json:"id"`
	Title      string           `json:"title"`
	Alias      *string          `json:"alias"`
	Similarity float64          `json:"similarity"`
	ResultType SearchSourceType `gorm:"-" json:"result_type"`
	ResultCode int              `gorm:"column:result_type" json:"-"`
	ExtraInfo  *string          `gorm:"column:extra_info" json:"extra_info"`
}

// SearchStrategy describes how one entity contributes rows to universal
// search. Every strategy produces the same column shape so the queries can
// be UNIONed: (id, title, alias, similarity, result_type, extra_info).
type SearchStrategy struct {
	Table       string
	SourceType  SearchSourceType
	Fields      []string // searchable column expressions
	TitleExpr   string
	AliasExpr   string // empty means NULL
	ExtraExpr   string // empty means NULL
	Joins       string
	ExtraFilter string
}

func (s SearchStrategy) buildQuery(args *[]interface{}) string {
	var sb strings.Builder

	alias := "NULL"
	if s.AliasExpr != "" {
		alias = s.AliasExpr
	}
	extra := "NULL"
	if s.ExtraExpr != "" {
		extra = s.ExtraExpr
	}

	sb.WriteString("SELECT " + s.Table + ".id AS id, ")
	sb.WriteString(s.TitleExpr + " AS title, ")
	sb.WriteString(alias + " AS alias, ")

	if len(s.Fields) == 1 {
		sb.WriteString("similarity(" + s.Fields[0] + ", ?) AS similarity, ")
		*args = append(*args, searchTermPlaceholder)
	} else {
		sb.WriteString("GREATEST(")
		for i, f := range s.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("similarity(" + f + ", ?)")
			*args = append(*args, searchTermPlaceholder)
		}
		sb.WriteString(") AS similarity, ")
	}

	sb.WriteString(strconv.Itoa(s.SourceType.Code()) + " AS result_type, ")
	sb.WriteString(extra + " AS extra_info")
	sb.WriteString(" FROM " + s.Table)
	if s.Joins != "" {
		sb.WriteString(" " + s.Joins)
	}

	sb.WriteString(" WHERE (")
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString(f + " ILIKE ?")
		*args = append(*args, likeTermPlaceholder)
	}
	sb.WriteString(")")
	if s.ExtraFilter != "" {
		sb.WriteString(" AND " + s.ExtraFilter)
	}
	return sb.String()
}

// placeholder sentinels swapped for the real term when the query runs
type termKind int

const (
	searchTermPlaceholder termKind = iota
	likeTermPlaceholder
)


var searchStrategies = []SearchStrategy{
	{
		Table:      "customers",
		SourceType: SearchSourceTypeCustomer,
		Fields:     []string{"customers.name"},
		TitleExpr:  "customers.name",
		ExtraExpr:  "customers.city",
	},
	{
		Table:      "factories",
		SourceType: SearchSourceTypeFactory,
		Fields:     []string{"factories.name"},
		TitleExpr:  "factories.name",
	},
	{
		Table:      "products",
		SourceType: SearchSourceTypeProduct,
		Fields:     []string{"products.name", "products.sku"},
		TitleExpr:  "products.name",
		AliasExpr:  "products.sku",
		ExtraExpr:  "factories.name",
		Joins:      "LEFT JOIN factories ON factories.id = products.factory_id",
	},
	{
		Table:      "orders",
		SourceType: SearchSourceTypeOrder,
		Fields:     []string{"orders.order_number"},
		TitleExpr:  "orders.order_number",
		ExtraExpr:  "customers.name",
		Joins:      "LEFT JOIN customers ON customers.id = orders.sold_to_id",
	},
	{
		Table:      "quotes",
		SourceType: SearchSourceTypeQuote,
		Fields:     []string{"quotes.quote_number"},
		TitleExpr:  "quotes.quote_number",
		ExtraExpr:  "customers.name",
		Joins:      "LEFT JOIN customers ON customers.id = quotes.customer_id",
	},
	{
		Table:      "invoices",
		SourceType: SearchSourceTypeInvoice,
		Fields:     []string{"invoices.invoice_number"},
		TitleExpr:  "invoices.invoice_number",
		ExtraExpr:  "factories.name",
		Joins:      "LEFT JOIN factories ON factories.id = invoices.factory_id",
	},
	{
		Table:      "users",
		SourceType: SearchSourceTypeUser,
		Fields:     []string{"users.name", "users.email"},
		TitleExpr:  "users.name",
		AliasExpr:  "users.email",
	},
}

// UniversalSearch fans the term out to every strategy, UNIONs the results,
// and returns the top matches by trigram similarity.
func UniversalSearch(ctx context.Context, searchTerm string, limit *int) ([]*SearchResult, error) {
	term := strings.TrimSpace(searchTerm)
	if term == "" {
		return []*SearchResult{}, nil
	}

	max := resolveSearchLimit(limit)

	var sb strings.Builder
	kinds := make([]interface{}, 0, 32)
	for i, strategy := range searchStrategies {
		if i > 0 {
			sb.WriteString(" UNION ALL ")
		}
		sb.WriteString(strategy.buildQuery(&kinds))
	}
	sb.WriteString(" ORDER BY similarity DESC LIMIT ?")

	likeTerm := "%" + term + "%"
	args := make([]interface{}, 0, len(kinds)+1)
	for _, k := range kinds {
		if k == likeTermPlaceholder {
			args = append(args, likeTerm)
		} else {
			args = append(args, term)
		}
	}
	args = append(args, max)

	var results []*SearchResult
	if err := dbFrom(ctx).Raw(sb.String(), args...).Scan(&results).Error; err != nil {
		return nil, err
	}
	for _, r := range results {
		r.ResultType = SearchSourceTypeFromCode(r.ResultCode)
	}
	return results, nil
}

// resolveSearchLimit falls back to the default page size when the caller
// passes no usable limit.
func resolveSearchLimit(limit *int) int {
	if limit != nil && *limit > 0 {
		return *limit
	}
	return config.SearchLimit
}
