// balance-rebuild recomputes every order, invoice, and credit balance from
// the stored detail lines. Run it after manual data fixes or imports that
// bypassed the mutation path.
//
// Usage:
//   DB_URL=... go run ./cmd/balance-rebuild
//
// Pass TENANT_NAME to target a registered tenant database instead of the
// default connection.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if tenant := strings.TrimSpace(os.Getenv("TENANT_NAME")); tenant != "" {
		var err error
		db, err = config.DBForTenant(tenant)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect tenant %q: %v\n", tenant, err)
			os.Exit(1)
		}
	}
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}

	orders, err := models.RebuildAllOrderBalances(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "order balances: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt %d order balances\n", orders)

	invoices, err := models.RebuildAllInvoiceBalances(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invoice balances: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt %d invoice balances\n", invoices)

	credits, err := models.RebuildAllCreditBalances(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "credit balances: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt %d credit balances\n", credits)
}
