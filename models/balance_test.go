package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeBalanceFields(t *testing.T) {
	lines := []LineAmounts{
		{
			Quantity:           dec("10"),
			Subtotal:           dec("1000"),
			Discount:           dec("100"),
			Commission:         dec("90"),
			CommissionDiscount: dec("9"),
		},
		{
			Quantity:           dec("5"),
			Subtotal:           dec("500"),
			Discount:           dec("0"),
			Commission:         dec("50"),
			CommissionDiscount: dec("0"),
		},
	}

	b := ComputeBalanceFields(lines)

	checks := []struct {
		name     string
		got      decimal.Decimal
		expected string
	}{
		{"quantity", b.Quantity, "15"},
		{"subtotal", b.Subtotal, "1500"},
		{"discount", b.Discount, "100"},
		{"total", b.Total, "1400"},
		{"commission", b.Commission, "140"},
		{"commission_discount", b.CommissionDiscount, "9"},
		// 100/1500*100
		{"discount_rate", b.DiscountRate, "6.666667"},
		// 140/1400*100
		{"commission_rate", b.CommissionRate, "10"},
		// 9/140*100
		{"commission_discount_rate", b.CommissionDiscountRate, "6.428571"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.expected)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.expected, c.got)
		}
	}
}

func TestComputeBalanceFields_EmptyAndZeroDivision(t *testing.T) {
	b := ComputeBalanceFields(nil)
	if !b.Total.IsZero() || !b.DiscountRate.IsZero() || !b.CommissionRate.IsZero() || !b.CommissionDiscountRate.IsZero() {
		t.Fatalf("expected all-zero balance, got %+v", b)
	}

	// zero total but nonzero commission still yields a zero rate, not a panic
	b = ComputeBalanceFields([]LineAmounts{
		{Subtotal: dec("100"), Discount: dec("100"), Commission: dec("10")},
	})
	if !b.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", b.Total)
	}
	if !b.CommissionRate.IsZero() {
		t.Fatalf("expected zero commission rate on zero total, got %s", b.CommissionRate)
	}
}

func TestComputeCreditBalanceFields(t *testing.T) {
	b := ComputeCreditBalanceFields([]LineAmounts{
		{Quantity: dec("2"), Subtotal: dec("200"), Discount: dec("50"), Commission: dec("20")},
	})
	if !b.Discount.IsZero() || !b.DiscountRate.IsZero() {
		t.Fatalf("credits must not carry discounts, got discount %s rate %s", b.Discount, b.DiscountRate)
	}
	if !b.Total.Equal(dec("200")) {
		t.Fatalf("expected total to equal subtotal 200, got %s", b.Total)
	}
	if !b.CommissionRate.Equal(dec("10")) {
		t.Fatalf("expected commission rate 10, got %s", b.CommissionRate)
	}
}

func TestOrderOnlyBalanceColumns(t *testing.T) {
	lines := []LineAmounts{
		{ShippingBalance: dec("3"), CancelledBalance: dec("1"), FreightCharge: dec("2.5")},
		{ShippingBalance: dec("7"), CancelledBalance: dec("0"), FreightCharge: dec("0.5")},
	}
	if got := sumShipping(lines); !got.Equal(dec("10")) {
		t.Errorf("shipping: expected 10, got %s", got)
	}
	if got := sumCancelled(lines); !got.Equal(dec("1")) {
		t.Errorf("cancelled: expected 1, got %s", got)
	}
	if got := sumFreight(lines); !got.Equal(dec("3")) {
		t.Errorf("freight: expected 3, got %s", got)
	}
}
