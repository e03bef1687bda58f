package models

import (
	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

// BalanceFields is the shared shape of the per-document balance rows.
// All amounts are decimal(18,6); rates are percents at scale 6.
type BalanceFields struct {
	Quantity               decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"quantity"`
	Subtotal               decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"subtotal"`
	Discount               decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"discount"`
	Total                  decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"total"`
	Commission             decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission"`
	CommissionDiscount     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission_discount"`
	DiscountRate           decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"discount_rate"`
	CommissionRate         decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission_rate"`
	CommissionDiscountRate decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission_discount_rate"`
}

// LineAmounts is the slice of a detail row the balance roll-up needs.
type LineAmounts struct {
	Quantity           decimal.Decimal
	Subtotal           decimal.Decimal
	Discount           decimal.Decimal
	Commission         decimal.Decimal
	CommissionDiscount decimal.Decimal
	ShippingBalance    decimal.Decimal
	CancelledBalance   decimal.Decimal
	FreightCharge      decimal.Decimal
}

// ComputeBalanceFields rolls line amounts up into a balance row.
// Rates divide by zero to exactly 0; everything is rounded half-even at
// the storage scale.
func ComputeBalanceFields(lines []LineAmounts) BalanceFields {
	var b BalanceFields
	for _, line := range lines {
		b.Quantity = b.Quantity.Add(line.Quantity)
		b.Subtotal = b.Subtotal.Add(line.Subtotal)
		b.Discount = b.Discount.Add(line.Discount)
		b.Commission = b.Commission.Add(line.Commission)
		b.CommissionDiscount = b.CommissionDiscount.Add(line.CommissionDiscount)
	}
	b.Subtotal = utils.RoundAmount(b.Subtotal)
	b.Discount = utils.RoundAmount(b.Discount)
	b.Total = b.Subtotal.Sub(b.Discount)
	b.Commission = utils.RoundAmount(b.Commission)
	b.CommissionDiscount = utils.RoundAmount(b.CommissionDiscount)

	b.DiscountRate = utils.SafeRatePercent(b.Discount, b.Subtotal)
	b.CommissionRate = utils.SafeRatePercent(b.Commission, b.Total)
	b.CommissionDiscountRate = utils.SafeRatePercent(b.CommissionDiscount, b.Commission)
	return b
}

// ComputeCreditBalanceFields is the credit-memo variant: credits carry no
// discount, so total equals subtotal and the discount rate stays zero.
func ComputeCreditBalanceFields(lines []LineAmounts) BalanceFields {
	b := ComputeBalanceFields(lines)
	b.Discount = decimal.Zero
	b.DiscountRate = decimal.Zero
	b.Total = b.Subtotal
	b.CommissionRate = utils.SafeRatePercent(b.Commission, b.Total)
	return b
}

// sumShipping, sumCancelled and sumFreight feed the order-only balance columns.
func sumShipping(lines []LineAmounts) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.ShippingBalance)
	}
	return utils.RoundAmount(total)
}

func sumCancelled(lines []LineAmounts) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.CancelledBalance)
	}
	return utils.RoundAmount(total)
}

func sumFreight(lines []LineAmounts) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.FreightCharge)
	}
	return utils.RoundAmount(total)
}
