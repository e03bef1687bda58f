package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// OwnershipFilter rewrites a query so it only returns rows the user owns
// under the strategy's definition of ownership.
type OwnershipFilter interface {
	ApplyOwnershipFilter(ctx context.Context, query *gorm.DB, userId string) *gorm.DB
}

// ApplyRbacFilter resolves the user's option for (resource, View) and
// rewrites the query: All passes through, Own applies the strategy, None
// returns an always-empty query.
func ApplyRbacFilter(ctx context.Context, query *gorm.DB, resource RbacResource) (*gorm.DB, error) {
	option, err := ResolveRbacOption(ctx, resource, RbacPrivilegeView)
	if err != nil {
		return nil, err
	}
	switch option {
	case RbacOptionAll:
		return query, nil
	case RbacOptionNone:
		return query.Where("1 = 0"), nil
	}

	userId := currentUserId(ctx)
	if userId == "" {
		return query.Where("1 = 0"), nil
	}
	filter := filterForResource(ctx, resource)
	if filter == nil {
		return query.Where("1 = 0"), nil
	}
	return filter.ApplyOwnershipFilter(ctx, query, userId), nil
}

// filterForResource picks the strategy for a resource. A SalesManager role
// upgrades order/quote/customer filters to their sales-team variants; a
// TerritoryManager sees every customer in the territories they manage.
func filterForResource(ctx context.Context, resource RbacResource) OwnershipFilter {
	salesManager := utils.HasRole(ctx, "SalesManager")
	switch resource {
	case RbacResourceOrder:
		if salesManager {
			return SalesTeamOrderFilter{}
		}
		return OrderOwnerFilter{}
	case RbacResourceQuote:
		if salesManager {
			return SalesTeamQuoteFilter{}
		}
		return QuoteOwnerFilter{}
	case RbacResourceCustomer:
		if utils.HasRole(ctx, "TerritoryManager") {
			return TerritoryFilter{
				TerritoryColumn: "customers.territory_id",
				CreatedByColumn: "customers.created_by_id",
			}
		}
		if salesManager {
			return SalesTeamFilter{CreatedByColumn: "customers.created_by_id"}
		}
		return MultiOwnerFilter{
			ScalarColumns: []string{"customers.created_by_id"},
			Subqueries: []ownerSubquery{{
				Column: "customers.id",
				SQL:    "SELECT customer_id FROM customer_owners WHERE user_id = ?",
			}},
		}
	case RbacResourceInvoice:
		return SplitRateFilter{
			IdColumn:        "invoices.id",
			CreatedByColumn: "invoices.created_by_id",
			SubquerySQL: `SELECT invoice_details.invoice_id FROM invoice_details
				JOIN invoice_split_rates ON invoice_split_rates.invoice_detail_id = invoice_details.id
				WHERE invoice_split_rates.user_id = ?`,
		}
	case RbacResourceCredit:
		return CreatedByFilter{Column: "credits.created_by_id"}
	case RbacResourceCheck:
		return CreatedByFilter{Column: "checks.created_by_id"}
	case RbacResourceAdjustment:
		return CreatedByFilter{Column: "adjustments.created_by_id"}
	case RbacResourceFulfillment:
		return MultiOwnerFilter{
			ScalarColumns: []string{"fulfillment_orders.created_by_id"},
			Subqueries: []ownerSubquery{{
				Column: "fulfillment_orders.id",
				SQL:    "SELECT fulfillment_order_id FROM fulfillment_assignments WHERE user_id = ?",
			}},
		}
	}
	return nil
}

// CreatedByFilter matches rows the user created.
type CreatedByFilter struct {
	Column string
}

func (f CreatedByFilter) ApplyOwnershipFilter(_ context.Context, query *gorm.DB, userId string) *gorm.DB {
	return query.Where(f.Column+" = ?", userId)
}

type ownerSubquery struct {
	Column string
	SQL    string
}

// MultiOwnerFilter ORs scalar equality columns, uuid[] containment columns,
// and membership subqueries.
type MultiOwnerFilter struct {
	ScalarColumns []string
	ArrayColumns  []string
	Subqueries    []ownerSubquery
}

func (f MultiOwnerFilter) ApplyOwnershipFilter(_ context.Context, query *gorm.DB, userId string) *gorm.DB {
	clause := ""
	args := make([]interface{}, 0, len(f.ScalarColumns)+len(f.ArrayColumns)+len(f.Subqueries))
	for _, col := range f.ScalarColumns {
		if clause != "" {
			clause += " OR "
		}
		clause += col + " = ?"
		args = append(args, userId)
	}
	for _, col := range f.ArrayColumns {
		if clause != "" {
			clause += " OR "
		}
		clause += col + " @> ARRAY[?]::uuid[]"
		args = append(args, userId)
	}
	for _, sub := range f.Subqueries {
		if clause != "" {
			clause += " OR "
		}
		clause += sub.Column + " IN (" + sub.SQL + ")"
		args = append(args, userId)
	}
	if clause == "" {
		return query.Where("1 = 0")
	}
	return query.Where(clause, args...)
}

// SplitRateFilter matches rows where the user holds a line-level split, or
// created the row when CreatedByColumn is set. SubquerySQL selects owning row
// ids for a single user id placeholder.
type SplitRateFilter struct {
	IdColumn        string
	CreatedByColumn string
	SubquerySQL     string
}

func (f SplitRateFilter) ApplyOwnershipFilter(_ context.Context, query *gorm.DB, userId string) *gorm.DB {
	if f.CreatedByColumn != "" {
		return query.Where(f.CreatedByColumn+" = ? OR "+f.IdColumn+" IN ("+f.SubquerySQL+")", userId, userId)
	}
	return query.Where(f.IdColumn+" IN ("+f.SubquerySQL+")", userId)
}

// OrderOwnerFilter matches orders the user created, holds a split on, or is
// inside rep for.
type OrderOwnerFilter struct{}

func (OrderOwnerFilter) ApplyOwnershipFilter(_ context.Context, query *gorm.DB, userId string) *gorm.DB {
	return query.Where(`orders.created_by_id = ?
		OR orders.id IN (
			SELECT order_details.order_id FROM order_details
			JOIN order_split_rates ON order_split_rates.order_detail_id = order_details.id
			WHERE order_split_rates.user_id = ?)
		OR orders.id IN (
			SELECT order_details.order_id FROM order_details
			JOIN order_inside_reps ON order_inside_reps.order_detail_id = order_details.id
			WHERE order_inside_reps.user_id = ?)`,
		userId, userId, userId)
}

type QuoteOwnerFilter struct{}

func (QuoteOwnerFilter) ApplyOwnershipFilter(_ context.Context, query *gorm.DB, userId string) *gorm.DB {
	return query.Where(`quotes.created_by_id = ?
		OR quotes.id IN (
			SELECT quote_details.quote_id FROM quote_details
			JOIN quote_split_rates ON quote_split_rates.quote_detail_id = quote_details.id
			WHERE quote_split_rates.user_id = ?)
		OR quotes.id IN (
			SELECT quote_details.quote_id FROM quote_details
			JOIN quote_inside_reps ON quote_inside_reps.quote_detail_id = quote_details.id
			WHERE quote_inside_reps.user_id = ?)`,
		userId, userId, userId)
}

// SalesTeamFilter extends created-by ownership to everyone on a team the
// user manages.
type SalesTeamFilter struct {
	CreatedByColumn string
}

func (f SalesTeamFilter) ApplyOwnershipFilter(ctx context.Context, query *gorm.DB, userId string) *gorm.DB {
	userIds, err := managedMemberUserIds(ctx, userId)
	if err != nil {
		return query.Where(f.CreatedByColumn+" = ?", userId)
	}
	return query.Where(f.CreatedByColumn+" IN ?", userIds)
}

type SalesTeamOrderFilter struct{}

func (SalesTeamOrderFilter) ApplyOwnershipFilter(ctx context.Context, query *gorm.DB, userId string) *gorm.DB {
	userIds, err := managedMemberUserIds(ctx, userId)
	if err != nil {
		return OrderOwnerFilter{}.ApplyOwnershipFilter(ctx, query, userId)
	}
	return query.Where(`orders.created_by_id IN ?
		OR orders.id IN (
			SELECT order_details.order_id FROM order_details
			JOIN order_split_rates ON order_split_rates.order_detail_id = order_details.id
			WHERE order_split_rates.user_id IN ?)
		OR orders.id IN (
			SELECT order_details.order_id FROM order_details
			JOIN order_inside_reps ON order_inside_reps.order_detail_id = order_details.id
			WHERE order_inside_reps.user_id IN ?)`,
		userIds, userIds, userIds)
}

type SalesTeamQuoteFilter struct{}

func (SalesTeamQuoteFilter) ApplyOwnershipFilter(ctx context.Context, query *gorm.DB, userId string) *gorm.DB {
	userIds, err := managedMemberUserIds(ctx, userId)
	if err != nil {
		return QuoteOwnerFilter{}.ApplyOwnershipFilter(ctx, query, userId)
	}
	return query.Where(`quotes.created_by_id IN ?
		OR quotes.id IN (
			SELECT quote_details.quote_id FROM quote_details
			JOIN quote_split_rates ON quote_split_rates.quote_detail_id = quote_details.id
			WHERE quote_split_rates.user_id IN ?)
		OR quotes.id IN (
			SELECT quote_details.quote_id FROM quote_details
			JOIN quote_inside_reps ON quote_inside_reps.quote_detail_id = quote_details.id
			WHERE quote_inside_reps.user_id IN ?)`,
		userIds, userIds, userIds)
}

// TerritoryFilter matches rows whose territory the user manages, directly or
// through two levels of children.
type TerritoryFilter struct {
	TerritoryColumn string
	CreatedByColumn string
}

func (f TerritoryFilter) ApplyOwnershipFilter(ctx context.Context, query *gorm.DB, userId string) *gorm.DB {
	territoryIds, err := territoriesManagedBy(ctx, userId)
	if err != nil || len(territoryIds) == 0 {
		if f.CreatedByColumn != "" {
			return query.Where(f.CreatedByColumn+" = ?", userId)
		}
		return query.Where("1 = 0")
	}
	if f.CreatedByColumn != "" {
		return query.Where(f.TerritoryColumn+" IN ? OR "+f.CreatedByColumn+" = ?", territoryIds, userId)
	}
	return query.Where(f.TerritoryColumn+" IN ?", territoryIds)
}

// ApplyLandingRbacFilter applies row-level RBAC to a landing query whose
// rows carry a user_ids uuid[] ownership column.
func ApplyLandingRbacFilter(ctx context.Context, query *gorm.DB, resource RbacResource) (*gorm.DB, error) {
	option, err := ResolveRbacOption(ctx, resource, RbacPrivilegeView)
	if err != nil {
		return nil, err
	}
	switch option {
	case RbacOptionAll:
		return query, nil
	case RbacOptionNone:
		return query.Where("1 = 0"), nil
	}
	userId := currentUserId(ctx)
	if userId == "" {
		return query.Where("1 = 0"), nil
	}
	return query.Where("user_ids @> ?", pq.Array([]string{userId})), nil
}
