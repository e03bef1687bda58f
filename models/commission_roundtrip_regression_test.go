package models_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

// Round trip over the commission core: factory -> order -> invoice -> check
// application -> posted statement, against a real Postgres.
func TestCommissionRoundTrip(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires DB_* and REDIS_ADDRESS env)")
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "Integration")
	ctx = utils.SetIsAdminInContext(ctx, true)

	rep, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Round Trip Rep",
		Email:    "roundtrip-rep-" + time.Now().UTC().Format("20060102150405") + "@test.local",
		Password: "integration-pw",
		Roles:    []string{"Sales"},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, rep.ID)

	factory, err := models.CreateFactory(ctx, &models.NewFactory{
		Name:               "Round Trip Mfg " + rep.ID[:8],
		BaseCommissionRate: decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("CreateFactory: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name: "Round Trip Customer " + rep.ID[:8],
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	fullSplit := []*models.NewSplitRate{{UserId: rep.ID, SplitRate: decimal.NewFromInt(1)}}

	order, err := models.CreateOrder(ctx, &models.NewOrder{
		FactoryId: factory.ID,
		SoldToId:  &customer.ID,
		OrderDate: time.Now().UTC(),
		Details: []*models.NewOrderDetail{{
			Description:    "widgets",
			Quantity:       decimal.NewFromInt(10),
			UnitPrice:      decimal.NewFromInt(100),
			CommissionRate: decimal.RequireFromString("10"),
			SplitRates:     fullSplit,
		}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Balance == nil {
		t.Fatal("expected order balance to be created")
	}
	if !order.Balance.Total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected total balance 1000, got %s", order.Balance.Total)
	}
	if !order.Balance.Commission.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected commission balance 100, got %s", order.Balance.Commission)
	}

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		FactoryId:   factory.ID,
		OrderId:     &order.ID,
		CustomerId:  &customer.ID,
		InvoiceDate: time.Now().UTC(),
		Details: []*models.NewInvoiceDetail{{
			Description:    "widgets",
			Quantity:       decimal.NewFromInt(10),
			UnitPrice:      decimal.NewFromInt(100),
			CommissionRate: decimal.RequireFromString("10"),
			SplitRates:     fullSplit,
		}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !invoice.Balance.Commission.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected invoice commission 100, got %s", invoice.Balance.Commission)
	}

	check, err := models.CreateCheck(ctx, &models.NewCheck{
		FactoryId:               factory.ID,
		EnteredCommissionAmount: decimal.NewFromInt(60),
		PostDate:                time.Now().UTC(),
		Details: []*models.NewCheckDetail{{
			InvoiceId:     &invoice.ID,
			AppliedAmount: decimal.NewFromInt(60),
		}},
	})
	if err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}

	applied, err := utils.FetchModel[models.Invoice](ctx, "Invoice", invoice.ID, "Balance")
	if err != nil {
		t.Fatalf("fetch invoice after check: %v", err)
	}
	if !applied.Balance.PaidBalance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected paid balance 60, got %s", applied.Balance.PaidBalance)
	}

	quote, err := models.CreateQuote(ctx, &models.NewQuote{
		CustomerId: &customer.ID,
		QuoteDate:  time.Now().UTC(),
		Details: []*models.NewQuoteDetail{{
			FactoryId:      factory.ID,
			Description:    "widgets",
			Quantity:       decimal.NewFromInt(4),
			UnitPrice:      decimal.NewFromInt(25),
			Discount:       decimal.NewFromInt(10),
			CommissionRate: decimal.RequireFromString("10"),
			SplitRates:     fullSplit,
		}},
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}

	// the landing total is computed from the detail columns
	quoteLanding, err := models.GetQuoteLanding(ctx, 50, nil)
	if err != nil {
		t.Fatalf("GetQuoteLanding: %v", err)
	}
	foundQuote := false
	for _, e := range quoteLanding.Edges {
		if e.Node.Id == quote.ID {
			foundQuote = true
			if !e.Node.Total.Equal(decimal.NewFromInt(90)) {
				t.Errorf("expected quote landing total 90, got %s", e.Node.Total)
			}
		}
	}
	if !foundQuote {
		t.Error("expected quote on the quotes landing page")
	}

	// a second landing page must pick up where the cursor left off
	for i := 0; i < 2; i++ {
		if _, err := models.CreateOrder(ctx, &models.NewOrder{
			FactoryId: factory.ID,
			SoldToId:  &customer.ID,
			OrderDate: time.Now().UTC(),
			Details: []*models.NewOrderDetail{{
				Description: "filler",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(50),
				SplitRates:  fullSplit,
			}},
		}); err != nil {
			t.Fatalf("CreateOrder (page filler): %v", err)
		}
	}
	pageOne, err := models.GetOrderLanding(ctx, 2, nil)
	if err != nil {
		t.Fatalf("GetOrderLanding page 1: %v", err)
	}
	if len(pageOne.Edges) != 2 {
		t.Fatalf("expected 2 edges on page 1, got %d", len(pageOne.Edges))
	}
	pageTwo, err := models.GetOrderLanding(ctx, 2, &pageOne.PageInfo.EndCursor)
	if err != nil {
		t.Fatalf("GetOrderLanding page 2: %v", err)
	}
	if len(pageTwo.Edges) == 0 {
		t.Fatal("expected at least one edge on page 2")
	}
	seen := map[string]bool{}
	for _, e := range pageOne.Edges {
		seen[e.Node.Id] = true
	}
	for _, e := range pageTwo.Edges {
		if seen[e.Node.Id] {
			t.Errorf("order %s appears on both pages", e.Node.Id)
		}
	}

	statement, err := models.GeneratePostedStatement(ctx, check.ID)
	if err != nil {
		t.Fatalf("GeneratePostedStatement: %v", err)
	}
	if len(statement.Details) != 1 {
		t.Fatalf("expected 1 statement detail, got %d", len(statement.Details))
	}
	detail := statement.Details[0]
	if detail.RepId != rep.ID {
		t.Errorf("expected rep %s on statement, got %s", rep.ID, detail.RepId)
	}
	if !detail.Expected.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected statement expected 100, got %s", detail.Expected)
	}
	if !detail.Received.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected statement received 60, got %s", detail.Received)
	}
	if !statement.Summary.Paid.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected summary paid 60, got %s", statement.Summary.Paid)
	}
	if !statement.Summary.Balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected summary balance 40, got %s", statement.Summary.Balance)
	}
}
