package models

import "testing"

func sidebarFixture() *Sidebar {
	return &Sidebar{
		Name: "Sales Layout",
		Groups: []*SidebarGroup{
			{
				Label: "Commissions",
				Items: []*SidebarItem{
					{Label: "Orders", Route: "/orders"},
					{Label: "Checks", Route: "/checks", RequiredRole: strPtr("Accounting")},
				},
			},
			{
				Label: "Admin",
				Items: []*SidebarItem{
					{Label: "Permissions", Route: "/rbac", RequiredRole: strPtr("Admin")},
				},
			},
		},
	}
}

func TestFilterSidebarByRoles(t *testing.T) {
	t.Run("drops items the roles cannot see", func(t *testing.T) {
		sidebar := filterSidebarByRoles(sidebarFixture(), []string{"Sales"})
		if len(sidebar.Groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(sidebar.Groups))
		}
		group := sidebar.Groups[0]
		if group.Label != "Commissions" {
			t.Errorf("expected Commissions group, got %s", group.Label)
		}
		if len(group.Items) != 1 || group.Items[0].Route != "/orders" {
			t.Errorf("expected only the orders item, got %+v", group.Items)
		}
	})

	t.Run("keeps gated items for matching roles", func(t *testing.T) {
		sidebar := filterSidebarByRoles(sidebarFixture(), []string{"Sales", "Accounting", "Admin"})
		if len(sidebar.Groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(sidebar.Groups))
		}
		if len(sidebar.Groups[0].Items) != 2 {
			t.Errorf("expected both commission items, got %d", len(sidebar.Groups[0].Items))
		}
	})

	t.Run("no roles leaves only ungated items", func(t *testing.T) {
		sidebar := filterSidebarByRoles(sidebarFixture(), nil)
		if len(sidebar.Groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(sidebar.Groups))
		}
	})
}
