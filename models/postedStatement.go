package models

import (
	"context"
	"sort"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

type PostedStatementDetail struct {
	EntityType   StatementEntityType `json:"entity_type"`
	EntityNumber string              `json:"entity_number"`
	RepId        string              `json:"rep_id"`
	Expected     decimal.Decimal     `json:"expected"`
	Received     decimal.Decimal     `json:"received"`
}

type PostedStatementSummary struct {
	Paid         decimal.Decimal `json:"paid"`
	Credits      decimal.Decimal `json:"credits"`
	Expenses     decimal.Decimal `json:"expenses"`
	AppliedTotal decimal.Decimal `json:"applied_total"`
	Expected     decimal.Decimal `json:"expected"`
	Balance      decimal.Decimal `json:"balance"`
}

type PostedStatementRepSummary struct {
	RepId    string          `json:"rep_id"`
	Expected decimal.Decimal `json:"expected"`
	Received decimal.Decimal `json:"received"`
}

type PostedStatement struct {
	CheckId      string                       `json:"check_id"`
	CheckNumber  string                       `json:"check_number"`
	Details      []*PostedStatementDetail     `json:"details"`
	Summary      *PostedStatementSummary      `json:"summary"`
	RepSummaries []*PostedStatementRepSummary `json:"rep_summaries"`
	DownloadUrl  *string                      `json:"download_url"`
}

// statementSources carries the documents a check's details point at,
// keyed by id.
type statementSources struct {
	Invoices    map[string]*Invoice
	Credits     map[string]*Credit
	Adjustments map[string]*Adjustment
}

// appendRepShares distributes one check detail applied to an invoice-shaped
// document across its line splits. sign is -1 for credits.
func appendRepShares(
	details []*PostedStatementDetail,
	entityType StatementEntityType,
	entityNumber string,
	totalCommission decimal.Decimal,
	lines []statementLine,
	appliedAmount decimal.Decimal,
	sign decimal.Decimal,
) []*PostedStatementDetail {
	perRep := map[string]*PostedStatementDetail{}
	order := []string{}

	for _, line := range lines {
		proportion := decimal.Zero
		if totalCommission.IsPositive() {
			proportion = line.Commission.Div(totalCommission)
		}
		for _, split := range line.Splits {
			expected := line.Commission.Mul(split.Rate)
			received := appliedAmount.Mul(proportion).Mul(split.Rate)

			row, ok := perRep[split.UserId]
			if !ok {
				row = &PostedStatementDetail{
					EntityType:   entityType,
					EntityNumber: entityNumber,
					RepId:        split.UserId,
				}
				perRep[split.UserId] = row
				order = append(order, split.UserId)
			}
			row.Expected = row.Expected.Add(expected.Mul(sign))
			row.Received = row.Received.Add(received.Mul(sign))
		}
	}

	for _, userId := range order {
		row := perRep[userId]
		row.Expected = utils.RoundAmount(row.Expected)
		row.Received = utils.RoundMoney(row.Received)
		details = append(details, row)
	}
	return details
}

type statementSplit struct {
	UserId string
	Rate   decimal.Decimal // fraction 0..1
}

type statementLine struct {
	Commission decimal.Decimal
	Splits     []statementSplit
}

func invoiceStatementLines(invoice *Invoice) []statementLine {
	lines := make([]statementLine, 0, len(invoice.Details))
	for _, d := range invoice.Details {
		line := statementLine{Commission: d.Commission}
		for _, s := range d.SplitRates {
			line.Splits = append(line.Splits, statementSplit{UserId: s.UserId, Rate: s.SplitRate})
		}
		lines = append(lines, line)
	}
	return lines
}

func creditStatementLines(credit *Credit) []statementLine {
	lines := make([]statementLine, 0, len(credit.Details))
	for _, d := range credit.Details {
		line := statementLine{Commission: d.Commission}
		for _, s := range d.SplitRates {
			line.Splits = append(line.Splits, statementSplit{UserId: s.UserId, Rate: s.SplitRate})
		}
		lines = append(lines, line)
	}
	return lines
}

// BuildPostedStatement computes the statement for a check from preloaded
// documents. It touches no storage; callers load the sources.
func BuildPostedStatement(check *Check, sources *statementSources) (*PostedStatement, error) {
	statement := &PostedStatement{
		CheckId:     check.ID,
		CheckNumber: check.CheckNumber,
	}

	for _, d := range check.Details {
		switch {
		case d.InvoiceId != nil:
			invoice, ok := sources.Invoices[*d.InvoiceId]
			if !ok {
				return nil, &utils.NotFoundError{Entity: "Invoice", Id: *d.InvoiceId}
			}
			totalCommission := decimal.Zero
			if invoice.Balance != nil {
				totalCommission = invoice.Balance.Commission
			}
			statement.Details = appendRepShares(statement.Details,
				StatementEntityTypeInvoice, invoice.InvoiceNumber,
				totalCommission, invoiceStatementLines(invoice),
				d.AppliedAmount, decimal.NewFromInt(1))

		case d.CreditId != nil:
			credit, ok := sources.Credits[*d.CreditId]
			if !ok {
				return nil, &utils.NotFoundError{Entity: "Credit", Id: *d.CreditId}
			}
			totalCommission := decimal.Zero
			if credit.Balance != nil {
				totalCommission = credit.Balance.Commission
			}
			statement.Details = appendRepShares(statement.Details,
				StatementEntityTypeCredit, credit.CreditNumber,
				totalCommission, creditStatementLines(credit),
				d.AppliedAmount, decimal.NewFromInt(-1))

		case d.AdjustmentId != nil:
			adjustment, ok := sources.Adjustments[*d.AdjustmentId]
			if !ok {
				return nil, &utils.NotFoundError{Entity: "Adjustment", Id: *d.AdjustmentId}
			}
			// adjustments have no lines, so no proportionality
			for _, s := range adjustment.SplitRates {
				statement.Details = append(statement.Details, &PostedStatementDetail{
					EntityType:   StatementEntityTypeAdjustment,
					EntityNumber: adjustment.AdjustmentNumber,
					RepId:        s.UserId,
					Expected:     utils.RoundAmount(adjustment.Amount.Mul(s.SplitRate)),
					Received:     utils.RoundMoney(d.AppliedAmount.Mul(s.SplitRate)),
				})
			}

		default:
			return nil, utils.NewValidationError("check detail %s has no target", d.ID)
		}
	}

	statement.Summary = summarizeStatement(statement.Details)
	statement.RepSummaries = summarizeReps(statement.Details)
	return statement, nil
}

func summarizeStatement(details []*PostedStatementDetail) *PostedStatementSummary {
	s := &PostedStatementSummary{}
	for _, d := range details {
		switch d.EntityType {
		case StatementEntityTypeInvoice:
			s.Paid = s.Paid.Add(d.Received)
		case StatementEntityTypeCredit:
			s.Credits = s.Credits.Add(d.Received)
		case StatementEntityTypeAdjustment:
			s.Expenses = s.Expenses.Add(d.Received)
		}
		s.Expected = s.Expected.Add(d.Expected)
	}
	s.AppliedTotal = s.Paid.Add(s.Credits).Add(s.Expenses)
	s.Balance = s.Expected.Sub(s.AppliedTotal)
	return s
}

func summarizeReps(details []*PostedStatementDetail) []*PostedStatementRepSummary {
	perRep := map[string]*PostedStatementRepSummary{}
	for _, d := range details {
		row, ok := perRep[d.RepId]
		if !ok {
			row = &PostedStatementRepSummary{RepId: d.RepId}
			perRep[d.RepId] = row
		}
		row.Expected = row.Expected.Add(d.Expected)
		row.Received = row.Received.Add(d.Received)
	}
	summaries := make([]*PostedStatementRepSummary, 0, len(perRep))
	for _, row := range perRep {
		summaries = append(summaries, row)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RepId < summaries[j].RepId
	})
	return summaries
}

// GeneratePostedStatement loads the check and every applied document, then
// builds the statement.
func GeneratePostedStatement(ctx context.Context, checkId string) (*PostedStatement, error) {
	check, err := utils.FetchModel[Check](ctx, "Check", checkId, "Details")
	if err != nil {
		return nil, err
	}

	sources := &statementSources{
		Invoices:    map[string]*Invoice{},
		Credits:     map[string]*Credit{},
		Adjustments: map[string]*Adjustment{},
	}
	for _, d := range check.Details {
		switch {
		case d.InvoiceId != nil:
			invoice, err := GetInvoice(ctx, *d.InvoiceId)
			if err != nil {
				return nil, err
			}
			sources.Invoices[invoice.ID] = invoice
		case d.CreditId != nil:
			credit, err := GetCredit(ctx, *d.CreditId)
			if err != nil {
				return nil, err
			}
			sources.Credits[credit.ID] = credit
		case d.AdjustmentId != nil:
			adjustment, err := GetAdjustment(ctx, *d.AdjustmentId)
			if err != nil {
				return nil, err
			}
			sources.Adjustments[adjustment.ID] = adjustment
		}
	}

	return BuildPostedStatement(check, sources)
}
