package models

import (
	"log"

	"github.com/flowplatform/flow_backend/config"
)

// MigrateTable runs schema auto-migration against the default database and
// every registered tenant database. Universal search relies on pg_trgm, so
// the extension is created before the tables.
func MigrateTable() {
	for _, db := range config.AllDatabases() {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			log.Fatal(err)
		}

		err := db.AutoMigrate(
			&User{}, &Customer{}, &CustomerOwner{}, &Factory{},
			&Product{}, &ProductCpn{}, &ProductQuantityPricing{},
			&SalesTeam{}, &SalesTeamMember{},
			&Territory{}, &TerritoryManager{}, &TerritorySplitRate{},
			&Order{}, &OrderBalance{}, &OrderDetail{}, &OrderSplitRate{}, &OrderInsideRep{},
			&Quote{}, &QuoteDetail{}, &QuoteSplitRate{}, &QuoteInsideRep{},
			&Invoice{}, &InvoiceBalance{}, &InvoiceDetail{}, &InvoiceSplitRate{}, &InvoiceInsideRep{},
			&Credit{}, &CreditBalance{}, &CreditDetail{}, &CreditSplitRate{},
			&Check{}, &CheckDetail{},
			&Adjustment{}, &AdjustmentSplitRate{},
			&FulfillmentOrder{}, &FulfillmentOrderLineItem{}, &FulfillmentAssignment{},
			&FulfillmentActivity{}, &FulfillmentDocument{},
			&PackingBox{}, &PackingBoxItem{},
			&Watcher{}, &NotificationRecord{},
			&RbacPermission{}, &RbacRoleSetting{},
			&Sidebar{}, &SidebarGroup{}, &SidebarItem{}, &RoleSidebarAssignment{},
		)
		if err != nil {
			log.Fatal(err)
		}
	}
}
