package models

import (
	"context"
	"fmt"
	"testing"

	"github.com/flowplatform/flow_backend/utils"
)

func TestRbacOptionRank(t *testing.T) {
	if RbacOptionAll.rank() <= RbacOptionOwn.rank() {
		t.Errorf("expected All to outrank Own")
	}
	if RbacOptionOwn.rank() <= RbacOptionNone.rank() {
		t.Errorf("expected Own to outrank None")
	}
	if got := RbacOption("Bogus").rank(); got != 0 {
		t.Errorf("expected unknown option to rank 0, got %d", got)
	}
}

func TestFilterForResource(t *testing.T) {
	plain := context.Background()
	manager := utils.SetRolesInContext(context.Background(), []string{"Sales", "SalesManager"})
	territory := utils.SetRolesInContext(context.Background(), []string{"Sales", "TerritoryManager"})

	tests := []struct {
		name     string
		ctx      context.Context
		resource RbacResource
		want     string
	}{
		{"order defaults to owner filter", plain, RbacResourceOrder, "models.OrderOwnerFilter"},
		{"order upgrades for sales manager", manager, RbacResourceOrder, "models.SalesTeamOrderFilter"},
		{"quote defaults to owner filter", plain, RbacResourceQuote, "models.QuoteOwnerFilter"},
		{"quote upgrades for sales manager", manager, RbacResourceQuote, "models.SalesTeamQuoteFilter"},
		{"customer defaults to multi owner", plain, RbacResourceCustomer, "models.MultiOwnerFilter"},
		{"customer upgrades for sales manager", manager, RbacResourceCustomer, "models.SalesTeamFilter"},
		{"customer upgrades for territory manager", territory, RbacResourceCustomer, "models.TerritoryFilter"},
		{"invoice uses split rate filter", plain, RbacResourceInvoice, "models.SplitRateFilter"},
		{"credit uses created by", plain, RbacResourceCredit, "models.CreatedByFilter"},
		{"check uses created by", plain, RbacResourceCheck, "models.CreatedByFilter"},
		{"adjustment uses created by", plain, RbacResourceAdjustment, "models.CreatedByFilter"},
		{"fulfillment uses multi owner", plain, RbacResourceFulfillment, "models.MultiOwnerFilter"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filter := filterForResource(test.ctx, test.resource)
			if filter == nil {
				t.Fatalf("expected a filter, got nil")
			}
			if got := fmt.Sprintf("%T", filter); got != test.want {
				t.Errorf("expected %s, got %s", test.want, got)
			}
		})
	}
}

func TestResolveRbacOption_ShortCircuits(t *testing.T) {
	t.Run("admin gets All", func(t *testing.T) {
		ctx := utils.SetIsAdminInContext(context.Background(), true)
		option, err := ResolveRbacOption(ctx, RbacResourceOrder, RbacPrivilegeView)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if option != RbacOptionAll {
			t.Errorf("expected All, got %s", option)
		}
	})
	t.Run("skip rbac gets All", func(t *testing.T) {
		ctx := utils.SetSkipRbacInContext(context.Background(), true)
		option, err := ResolveRbacOption(ctx, RbacResourceInvoice, RbacPrivilegeUpdate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if option != RbacOptionAll {
			t.Errorf("expected All, got %s", option)
		}
	})
	t.Run("no roles gets None", func(t *testing.T) {
		option, err := ResolveRbacOption(context.Background(), RbacResourceOrder, RbacPrivilegeView)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if option != RbacOptionNone {
			t.Errorf("expected None, got %s", option)
		}
	})
}

func TestFilterForResource_UnknownResource(t *testing.T) {
	if filter := filterForResource(context.Background(), RbacResource("WIDGET")); filter != nil {
		t.Errorf("expected nil filter for unknown resource, got %T", filter)
	}
}
