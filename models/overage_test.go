package models

import (
	"testing"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func byLineFactory(baseRate string, overageAllowed bool, repShare *string) *Factory {
	f := &Factory{
		BaseCommissionRate: dec(baseRate),
		OverageType:        OverageTypeByLine,
		OverageAllowed:     &overageAllowed,
	}
	if repShare != nil {
		f.RepOverageShare = decPtr(*repShare)
	}
	return f
}

func strPtr(s string) *string { return &s }

func TestComputeByLineOverage_EffectiveRate(t *testing.T) {
	cases := []struct {
		name        string
		factory     *Factory
		product     *Product
		cpn         *ProductCpn
		detailPrice string
		expected    string
	}{
		{
			name:        "overage with half rep share",
			factory:     byLineFactory("10", true, strPtr("50")),
			product:     &Product{UnitPrice: dec("100")},
			detailPrice: "150",
			// 10*(100/150) + 10*0.5*(50/150)
			expected: "8.333333",
		},
		{
			name:        "overage with full rep share by default",
			factory:     byLineFactory("10", true, nil),
			product:     &Product{UnitPrice: dec("100")},
			detailPrice: "150",
			expected:    "10",
		},
		{
			name:        "no overage when selling at base price",
			factory:     byLineFactory("10", true, strPtr("50")),
			product:     &Product{UnitPrice: dec("100")},
			detailPrice: "100",
			expected:    "10",
		},
		{
			name:        "no overage when selling under base price",
			factory:     byLineFactory("10", true, strPtr("50")),
			product:     &Product{UnitPrice: dec("100")},
			detailPrice: "80",
			expected:    "10",
		},
		{
			name:        "overage disallowed keeps base rate",
			factory:     byLineFactory("10", false, strPtr("50")),
			product:     &Product{UnitPrice: dec("100")},
			detailPrice: "150",
			expected:    "10",
		},
		{
			name:        "cpn rate overrides product default",
			factory:     byLineFactory("10", false, nil),
			product:     &Product{UnitPrice: dec("100"), DefaultCommissionRate: decPtr("12")},
			cpn:         &ProductCpn{CommissionRate: decPtr("15")},
			detailPrice: "100",
			expected:    "15",
		},
		{
			name:        "product default overrides factory base",
			factory:     byLineFactory("10", false, nil),
			product:     &Product{UnitPrice: dec("100"), DefaultCommissionRate: decPtr("12")},
			detailPrice: "100",
			expected:    "12",
		},
		{
			name:    "cpn unit price moves the overage threshold",
			factory: byLineFactory("10", true, strPtr("50")),
			product: &Product{UnitPrice: dec("100")},
			cpn:     &ProductCpn{UnitPrice: decPtr("120")},
			// 10*(120/150) + 10*0.5*(30/150)
			detailPrice: "150",
			expected:    "9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := ComputeByLineOverage(tc.factory, tc.product, tc.cpn, dec(tc.detailPrice), dec("1"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if record.EffectiveRate == nil {
				t.Fatalf("expected effective rate %s, got nil", tc.expected)
			}
			if !record.EffectiveRate.Equal(dec(tc.expected)) {
				t.Fatalf("expected effective rate %s, got %s", tc.expected, record.EffectiveRate)
			}
		})
	}
}

func TestComputeByLineOverage_NoRateAnywhere(t *testing.T) {
	factory := byLineFactory("0", true, nil)
	record, err := ComputeByLineOverage(factory, &Product{UnitPrice: dec("100")}, nil, dec("150"), dec("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.EffectiveRate != nil {
		t.Fatalf("expected nil effective rate, got %s", record.EffectiveRate)
	}
}

func TestComputeByLineOverage_RejectsNonPositivePrice(t *testing.T) {
	factory := byLineFactory("10", true, nil)
	for _, price := range []string{"0", "-5"} {
		if _, err := ComputeByLineOverage(factory, &Product{UnitPrice: dec("100")}, nil, dec(price), dec("1")); err == nil {
			t.Fatalf("expected error for detail price %s", price)
		}
	}
}

func TestComputeByLineOverage_ByTotalFactoryReturnsErrorMessage(t *testing.T) {
	factory := &Factory{
		BaseCommissionRate: dec("10"),
		OverageType:        OverageTypeByTotal,
		OverageAllowed:     utils.NewTrue(),
	}
	record, err := ComputeByLineOverage(factory, &Product{UnitPrice: dec("100")}, nil, dec("150"), dec("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ErrorMessage == nil {
		t.Fatal("expected error message for BY_TOTAL factory")
	}
	if record.EffectiveRate != nil {
		t.Fatalf("expected nil effective rate, got %s", record.EffectiveRate)
	}
}

func TestComputeByLineOverage_LevelPricing(t *testing.T) {
	factory := byLineFactory("10", false, nil)
	product := &Product{
		UnitPrice: dec("100"),
		QuantityPricings: []*ProductQuantityPricing{
			{QtyLow: dec("1"), QtyHigh: dec("99"), UnitPrice: dec("100")},
			{QtyLow: dec("100"), QtyHigh: dec("499"), UnitPrice: dec("90")},
		},
	}

	record, err := ComputeByLineOverage(factory, product, nil, dec("100"), dec("250"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.LevelUnitPrice == nil || !record.LevelUnitPrice.Equal(dec("90")) {
		t.Fatalf("expected level unit price 90, got %v", record.LevelUnitPrice)
	}
	// (100-90)/100 * 100
	if record.LevelRate == nil || !record.LevelRate.Equal(dec("10")) {
		t.Fatalf("expected level rate 10, got %v", record.LevelRate)
	}

	// quantity outside every band leaves level outputs empty
	record, err = ComputeByLineOverage(factory, product, nil, dec("100"), dec("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.LevelUnitPrice != nil {
		t.Fatalf("expected no level unit price, got %s", record.LevelUnitPrice)
	}
}

func TestComputeByTotalOverage(t *testing.T) {
	factory := &Factory{
		OverageType:     OverageTypeByTotal,
		RepOverageShare: decPtr("50"),
	}

	lines := []QuoteOverageLine{
		{BaseUnitPrice: dec("100"), DetailUnitPrice: dec("150"), Quantity: dec("1")},
		{BaseUnitPrice: dec("50"), DetailUnitPrice: dec("50"), Quantity: dec("2")},
	}
	// tBase=200 tSell=250 overage=50: 10*(200/250) + 10*0.5*(50/250)
	record := ComputeByTotalOverage(factory, decPtr("10"), lines)
	if record.EffectiveRate == nil || !record.EffectiveRate.Equal(dec("9")) {
		t.Fatalf("expected effective rate 9, got %v", record.EffectiveRate)
	}
	if record.OverageUnitPrice == nil || !record.OverageUnitPrice.Equal(dec("50")) {
		t.Fatalf("expected overage amount 50, got %v", record.OverageUnitPrice)
	}
}

func TestComputeByTotalOverage_NoOverage(t *testing.T) {
	factory := &Factory{OverageType: OverageTypeByTotal}

	lines := []QuoteOverageLine{
		{BaseUnitPrice: dec("100"), DetailUnitPrice: dec("90"), Quantity: dec("1")},
	}
	record := ComputeByTotalOverage(factory, decPtr("10"), lines)
	if record.EffectiveRate == nil || !record.EffectiveRate.Equal(dec("10")) {
		t.Fatalf("expected base rate 10, got %v", record.EffectiveRate)
	}
	if record.OverageUnitPrice != nil {
		t.Fatalf("expected no overage amount, got %s", record.OverageUnitPrice)
	}
}

func TestComputeByTotalOverage_NilBaseRate(t *testing.T) {
	record := ComputeByTotalOverage(&Factory{}, nil, nil)
	if record.EffectiveRate != nil {
		t.Fatalf("expected nil effective rate, got %s", record.EffectiveRate)
	}
}
