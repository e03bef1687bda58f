package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

const (
	repA = "5f0c1111-0000-0000-0000-000000000001"
	repB = "5f0c1111-0000-0000-0000-000000000002"
)

func statementFixture() (*Check, *statementSources) {
	invoiceId := "inv-1"
	creditId := "crd-1"
	adjustmentId := "adj-1"

	invoice := &Invoice{
		OwnedBase:     OwnedBase{Base: Base{ID: invoiceId}},
		InvoiceNumber: "INV-1001",
		Balance: &InvoiceBalance{
			InvoiceId:     invoiceId,
			BalanceFields: BalanceFields{Commission: dec("100")},
		},
		Details: []*InvoiceDetail{
			{
				Commission: dec("60"),
				SplitRates: []*InvoiceSplitRate{
					{UserId: repA, SplitRate: dec("0.5")},
					{UserId: repB, SplitRate: dec("0.5")},
				},
			},
			{
				Commission: dec("40"),
				SplitRates: []*InvoiceSplitRate{
					{UserId: repA, SplitRate: dec("1")},
				},
			},
		},
	}

	credit := &Credit{
		OwnedBase:    OwnedBase{Base: Base{ID: creditId}},
		CreditNumber: "CR-2001",
		Balance: &CreditBalance{
			CreditId:   creditId,
			Commission: dec("20"),
		},
		Details: []*CreditDetail{
			{
				Commission: dec("20"),
				SplitRates: []*CreditSplitRate{
					{UserId: repA, SplitRate: dec("1")},
				},
			},
		},
	}

	adjustment := &Adjustment{
		OwnedBase:        OwnedBase{Base: Base{ID: adjustmentId}},
		AdjustmentNumber: "ADJ-3001",
		Amount:           dec("50"),
		SplitRates: []*AdjustmentSplitRate{
			{UserId: repB, SplitRate: dec("1")},
		},
	}

	check := &Check{
		OwnedBase:   OwnedBase{Base: Base{ID: "chk-1"}},
		CheckNumber: "CHK-77",
		Details: []*CheckDetail{
			{InvoiceId: &invoiceId, AppliedAmount: dec("80")},
			{CreditId: &creditId, AppliedAmount: dec("20")},
			{AdjustmentId: &adjustmentId, AppliedAmount: dec("10")},
		},
	}

	return check, &statementSources{
		Invoices:    map[string]*Invoice{invoiceId: invoice},
		Credits:     map[string]*Credit{creditId: credit},
		Adjustments: map[string]*Adjustment{adjustmentId: adjustment},
	}
}

func TestBuildPostedStatement(t *testing.T) {
	check, sources := statementFixture()
	statement, err := BuildPostedStatement(check, sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if statement.CheckNumber != "CHK-77" {
		t.Errorf("check number: expected CHK-77, got %s", statement.CheckNumber)
	}
	if len(statement.Details) != 4 {
		t.Fatalf("expected 4 detail rows, got %d", len(statement.Details))
	}

	// invoice rows: per-rep expected is Σ commission*rate, received is
	// Σ applied*(line/total)*rate
	rows := map[string]*PostedStatementDetail{}
	for _, d := range statement.Details {
		if d.EntityType == StatementEntityTypeInvoice {
			rows[d.RepId] = d
		}
	}
	if !rows[repA].Expected.Equal(dec("70")) || !rows[repA].Received.Equal(dec("56")) {
		t.Errorf("invoice repA: expected 70/56, got %s/%s", rows[repA].Expected, rows[repA].Received)
	}
	if !rows[repB].Expected.Equal(dec("30")) || !rows[repB].Received.Equal(dec("24")) {
		t.Errorf("invoice repB: expected 30/24, got %s/%s", rows[repB].Expected, rows[repB].Received)
	}

	// credit rows carry negative sign
	for _, d := range statement.Details {
		if d.EntityType == StatementEntityTypeCredit {
			if !d.Expected.Equal(dec("-20")) || !d.Received.Equal(dec("-20")) {
				t.Errorf("credit row: expected -20/-20, got %s/%s", d.Expected, d.Received)
			}
		}
		if d.EntityType == StatementEntityTypeAdjustment {
			if !d.Expected.Equal(dec("50")) || !d.Received.Equal(dec("10")) {
				t.Errorf("adjustment row: expected 50/10, got %s/%s", d.Expected, d.Received)
			}
		}
	}

	s := statement.Summary
	checks := []struct {
		name     string
		got      decimal.Decimal
		expected string
	}{
		{"paid", s.Paid, "80"},
		{"credits", s.Credits, "-20"},
		{"expenses", s.Expenses, "10"},
		{"applied_total", s.AppliedTotal, "70"},
		{"expected", s.Expected, "130"},
		{"balance", s.Balance, "60"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.expected)) {
			t.Errorf("summary %s: expected %s, got %s", c.name, c.expected, c.got)
		}
	}

	if len(statement.RepSummaries) != 2 {
		t.Fatalf("expected 2 rep summaries, got %d", len(statement.RepSummaries))
	}
	a, b := statement.RepSummaries[0], statement.RepSummaries[1]
	if a.RepId != repA || !a.Expected.Equal(dec("50")) || !a.Received.Equal(dec("36")) {
		t.Errorf("rep summary A: expected %s 50/36, got %s %s/%s", repA, a.RepId, a.Expected, a.Received)
	}
	if b.RepId != repB || !b.Expected.Equal(dec("80")) || !b.Received.Equal(dec("34")) {
		t.Errorf("rep summary B: expected %s 80/34, got %s %s/%s", repB, b.RepId, b.Expected, b.Received)
	}
}

func TestBuildPostedStatement_MissingSource(t *testing.T) {
	check, sources := statementFixture()
	delete(sources.Invoices, "inv-1")
	if _, err := BuildPostedStatement(check, sources); err == nil {
		t.Fatal("expected error for missing invoice")
	}
}

func TestBuildPostedStatement_DetailWithoutTarget(t *testing.T) {
	check, sources := statementFixture()
	check.Details = append(check.Details, &CheckDetail{AppliedAmount: dec("5")})
	if _, err := BuildPostedStatement(check, sources); err == nil {
		t.Fatal("expected error for check detail without a target")
	}
}
