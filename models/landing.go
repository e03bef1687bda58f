package models

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLandingRow is the dashboard shape for the orders landing page. The
// user_ids column aggregates every owner of the row (creator, split-rate
// holders, inside reps) so RBAC reduces to array containment.
type OrderLandingRow struct {
	Id           string          `json:"id"`
	OrderNumber  string          `gorm:"column:order_number" json:"order_number"`
	OrderDate    *time.Time      `gorm:"column:order_date" json:"order_date"`
	FactoryName  *string         `gorm:"column:factory_name" json:"factory_name"`
	CustomerName *string         `gorm:"column:customer_name" json:"customer_name"`
	Status       OrderStatus     `gorm:"column:status" json:"status"`
	HeaderStatus OrderHeaderStatus `gorm:"column:header_status" json:"header_status"`
	Total        decimal.Decimal `gorm:"column:total" json:"total"`
	Commission   decimal.Decimal `gorm:"column:commission" json:"commission"`
	UserIds      pq.StringArray  `gorm:"column:user_ids;type:uuid[]" json:"user_ids"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (r OrderLandingRow) GetCursor() string { return r.CreatedAt.Format(time.RFC3339Nano) }
func (r OrderLandingRow) GetId() string     { return r.Id }

type OrderLandingEdge Edge[OrderLandingRow]
type OrderLandingConnection struct {
	Edges    []*OrderLandingEdge `json:"edges"`
	PageInfo *PageInfo           `json:"pageInfo"`
}

// GetOrderLanding pages the orders dashboard with RBAC applied against the
// aggregated user_ids column.
func GetOrderLanding(ctx context.Context, limit int, after *string) (*OrderLandingConnection, error) {
	base := dbFrom(ctx).Table("(?) AS landing", orderLandingBase(ctx))

	filtered, err := ApplyLandingRbacFilter(ctx, base, RbacResourceOrder)
	if err != nil {
		return nil, err
	}

	edges, pageInfo, err := FetchPageCompositeCursor[OrderLandingRow](filtered, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	seesCommission, err := CanSeeCommission(ctx)
	if err != nil {
		return nil, err
	}

	conn := &OrderLandingConnection{PageInfo: pageInfo}
	for i := range edges {
		e := OrderLandingEdge(edges[i])
		if !seesCommission {
			e.Node.Commission = decimal.Zero
		}
		conn.Edges = append(conn.Edges, &e)
	}
	return conn, nil
}

func orderLandingBase(ctx context.Context) *gorm.DB {
	return dbFrom(ctx).Table("orders").
		Select(`orders.id AS id,
			orders.order_number,
			orders.order_date,
			factories.name AS factory_name,
			customers.name AS customer_name,
			orders.status,
			orders.header_status,
			COALESCE(order_balances.total, 0) AS total,
			COALESCE(order_balances.commission, 0) AS commission,
			orders.created_at,
			ARRAY_REMOVE(
				ARRAY_AGG(DISTINCT orders.created_by_id) ||
				ARRAY_AGG(DISTINCT order_split_rates.user_id) ||
				ARRAY_AGG(DISTINCT order_inside_reps.user_id),
				NULL)::uuid[] AS user_ids`).
		Joins("LEFT JOIN factories ON factories.id = orders.factory_id").
		Joins("LEFT JOIN customers ON customers.id = orders.sold_to_id").
		Joins("LEFT JOIN order_balances ON order_balances.order_id = orders.id").
		Joins("LEFT JOIN order_details ON order_details.order_id = orders.id").
		Joins("LEFT JOIN order_split_rates ON order_split_rates.order_detail_id = order_details.id").
		Joins("LEFT JOIN order_inside_reps ON order_inside_reps.order_detail_id = order_details.id").
		Group(`orders.id, orders.order_number, orders.order_date, factories.name,
			customers.name, orders.status, orders.header_status,
			order_balances.total, order_balances.commission, orders.created_at`)
}

// QuoteLandingRow mirrors OrderLandingRow for the quotes dashboard.
type QuoteLandingRow struct {
	Id           string          `json:"id"`
	QuoteNumber  string          `gorm:"column:quote_number" json:"quote_number"`
	QuoteDate    *time.Time      `gorm:"column:quote_date" json:"quote_date"`
	CustomerName *string         `gorm:"column:customer_name" json:"customer_name"`
	Total        decimal.Decimal `gorm:"column:total" json:"total"`
	UserIds      pq.StringArray  `gorm:"column:user_ids;type:uuid[]" json:"user_ids"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (r QuoteLandingRow) GetCursor() string { return r.CreatedAt.Format(time.RFC3339Nano) }
func (r QuoteLandingRow) GetId() string     { return r.Id }

type QuoteLandingEdge Edge[QuoteLandingRow]
type QuoteLandingConnection struct {
	Edges    []*QuoteLandingEdge `json:"edges"`
	PageInfo *PageInfo           `json:"pageInfo"`
}

func GetQuoteLanding(ctx context.Context, limit int, after *string) (*QuoteLandingConnection, error) {
	base := dbFrom(ctx).Table("(?) AS landing", quoteLandingBase(ctx))

	filtered, err := ApplyLandingRbacFilter(ctx, base, RbacResourceQuote)
	if err != nil {
		return nil, err
	}

	edges, pageInfo, err := FetchPageCompositeCursor[QuoteLandingRow](filtered, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	conn := &QuoteLandingConnection{PageInfo: pageInfo}
	for i := range edges {
		e := QuoteLandingEdge(edges[i])
		conn.Edges = append(conn.Edges, &e)
	}
	return conn, nil
}

func quoteLandingBase(ctx context.Context) *gorm.DB {
	return dbFrom(ctx).Table("quotes").
		Select(`quotes.id AS id,
			quotes.quote_number,
			quotes.quote_date,
			customers.name AS customer_name,
			COALESCE(SUM(quote_details.quantity * quote_details.unit_price
				/ COALESCE(NULLIF(quote_details.division_factor, 0), 1)
				- quote_details.discount), 0) AS total,
			quotes.created_at,
			ARRAY_REMOVE(
				ARRAY_AGG(DISTINCT quotes.created_by_id) ||
				ARRAY_AGG(DISTINCT quote_split_rates.user_id) ||
				ARRAY_AGG(DISTINCT quote_inside_reps.user_id),
				NULL)::uuid[] AS user_ids`).
		Joins("LEFT JOIN customers ON customers.id = quotes.customer_id").
		Joins("LEFT JOIN quote_details ON quote_details.quote_id = quotes.id").
		Joins("LEFT JOIN quote_split_rates ON quote_split_rates.quote_detail_id = quote_details.id").
		Joins("LEFT JOIN quote_inside_reps ON quote_inside_reps.quote_detail_id = quote_details.id").
		Group("quotes.id, quotes.quote_number, quotes.quote_date, customers.name, quotes.created_at")
}
