package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OverageRecord is the result of an effective-rate lookup. A nil
// EffectiveRate means no rate could be determined anywhere in the chain.
type OverageRecord struct {
	EffectiveRate    *decimal.Decimal `json:"effective_rate"`
	OverageUnitPrice *decimal.Decimal `json:"overage_unit_price"`
	BaseRate         *decimal.Decimal `json:"base_rate"`
	BaseUnitPrice    decimal.Decimal  `json:"base_unit_price"`
	LevelUnitPrice   *decimal.Decimal `json:"level_unit_price"`
	LevelRate        *decimal.Decimal `json:"level_rate"`
	ErrorMessage     *string          `json:"error_message"`
}

// ComputeByLineOverage derives the effective commission rate for one line.
// Rates are percents; the rep share defaults to the full overage when the
// factory leaves it unset.
func ComputeByLineOverage(
	factory *Factory,
	product *Product,
	cpn *ProductCpn,
	detailUnitPrice decimal.Decimal,
	quantity decimal.Decimal,
) (*OverageRecord, error) {
	if !detailUnitPrice.IsPositive() {
		return nil, utils.NewValidationError("detail unit price must be positive")
	}
	if factory.OverageType == OverageTypeByTotal {
		msg := "BY_TOTAL overage must be calculated at the quote level"
		return &OverageRecord{ErrorMessage: &msg}, nil
	}

	// base rate: CPN override, product default, factory base
	var baseRate *decimal.Decimal
	switch {
	case cpn != nil && cpn.CommissionRate != nil:
		baseRate = cpn.CommissionRate
	case product.DefaultCommissionRate != nil:
		baseRate = product.DefaultCommissionRate
	case !factory.BaseCommissionRate.IsZero():
		rate := factory.BaseCommissionRate
		baseRate = &rate
	}

	baseUnitPrice := product.UnitPrice
	if cpn != nil && cpn.UnitPrice != nil {
		baseUnitPrice = *cpn.UnitPrice
	}

	record := &OverageRecord{BaseRate: baseRate, BaseUnitPrice: baseUnitPrice}
	if baseRate == nil {
		return record, nil
	}

	applyLevelPricing(record, product, baseUnitPrice, quantity)

	overageAllowed := factory.OverageAllowed != nil && *factory.OverageAllowed
	if !overageAllowed || detailUnitPrice.LessThanOrEqual(baseUnitPrice) {
		record.EffectiveRate = baseRate
		return record, nil
	}

	overageUnitPrice := detailUnitPrice.Sub(baseUnitPrice)
	record.OverageUnitPrice = &overageUnitPrice

	r := decimal.NewFromInt(1)
	if factory.RepOverageShare != nil {
		r = factory.RepOverageShare.Div(hundred)
	}
	p := baseUnitPrice.Div(detailUnitPrice)
	q := overageUnitPrice.Div(detailUnitPrice)

	effective := utils.RoundAmount(baseRate.Mul(p).Add(baseRate.Mul(r).Mul(q)))
	record.EffectiveRate = &effective
	return record, nil
}

// applyLevelPricing fills the informational level outputs when a quantity
// band covers the requested quantity.
func applyLevelPricing(record *OverageRecord, product *Product, baseUnitPrice decimal.Decimal, quantity decimal.Decimal) {
	tier := findQuantityTier(product.QuantityPricings, quantity)
	if tier == nil {
		return
	}
	levelPrice := tier.UnitPrice
	record.LevelUnitPrice = &levelPrice
	if baseUnitPrice.IsPositive() && baseUnitPrice.GreaterThan(levelPrice) {
		levelRate := utils.RoundAmount(
			baseUnitPrice.Sub(levelPrice).Div(baseUnitPrice).Mul(hundred))
		record.LevelRate = &levelRate
	}
}

// QuoteOverageLine is one quote line for the BY_TOTAL calculation.
type QuoteOverageLine struct {
	BaseUnitPrice   decimal.Decimal
	DetailUnitPrice decimal.Decimal
	Quantity        decimal.Decimal
}

// ComputeByTotalOverage spreads the overage across the whole quote.
func ComputeByTotalOverage(factory *Factory, baseRate *decimal.Decimal, lines []QuoteOverageLine) *OverageRecord {
	record := &OverageRecord{BaseRate: baseRate}
	if baseRate == nil {
		return record
	}

	tBase := decimal.Zero
	tSell := decimal.Zero
	for _, line := range lines {
		tBase = tBase.Add(line.BaseUnitPrice.Mul(line.Quantity))
		tSell = tSell.Add(line.DetailUnitPrice.Mul(line.Quantity))
	}

	overageAmount := tSell.Sub(tBase)
	if overageAmount.IsNegative() {
		overageAmount = decimal.Zero
	}

	if !tSell.IsPositive() || overageAmount.IsZero() {
		record.EffectiveRate = baseRate
		return record
	}

	r := decimal.NewFromInt(1)
	if factory.RepOverageShare != nil {
		r = factory.RepOverageShare.Div(hundred)
	}
	p := tBase.Div(tSell)
	q := overageAmount.Div(tSell)

	effective := utils.RoundAmount(baseRate.Mul(p).Add(baseRate.Mul(r).Mul(q)))
	record.EffectiveRate = &effective
	record.OverageUnitPrice = &overageAmount
	return record
}

// FindEffectiveCommissionRateAndOverageUnitPriceByProduct is the lookup
// behind per-line commission defaults.
func FindEffectiveCommissionRateAndOverageUnitPriceByProduct(
	ctx context.Context,
	productId string,
	detailUnitPrice decimal.Decimal,
	factoryId string,
	endUserId *string,
	quantity decimal.Decimal,
) (*OverageRecord, error) {
	factory, err := GetFactory(ctx, factoryId)
	if err != nil {
		return nil, err
	}
	product, err := GetProduct(ctx, productId)
	if err != nil {
		return nil, err
	}
	if product.FactoryId != factoryId {
		return nil, utils.NewValidationError("product does not belong to the given factory")
	}

	var cpn *ProductCpn
	if endUserId != nil {
		cpn, err = findProductCpn(ctx, productId, *endUserId)
		if err != nil {
			return nil, err
		}
	}

	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	return ComputeByLineOverage(factory, product, cpn, detailUnitPrice, quantity)
}

// ComputeQuoteOverage runs the BY_TOTAL calculation for a stored quote.
func ComputeQuoteOverage(ctx context.Context, quoteId string) (*OverageRecord, error) {
	quote, err := GetQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	if len(quote.Details) == 0 {
		return nil, utils.NewValidationError("quote has no details")
	}

	factoryId := quote.Details[0].FactoryId
	for _, d := range quote.Details {
		if d.FactoryId != factoryId {
			return nil, utils.NewValidationError("different manufacturers")
		}
	}
	factory, err := GetFactory(ctx, factoryId)
	if err != nil {
		return nil, err
	}

	var baseRate *decimal.Decimal
	if !factory.BaseCommissionRate.IsZero() {
		rate := factory.BaseCommissionRate
		baseRate = &rate
	}

	lines := make([]QuoteOverageLine, 0, len(quote.Details))
	for _, d := range quote.Details {
		base := decimal.Zero
		if d.ProductId != nil {
			product, err := GetProduct(ctx, *d.ProductId)
			if err != nil {
				return nil, err
			}
			base = product.UnitPrice
		}
		lines = append(lines, QuoteOverageLine{
			BaseUnitPrice:   base,
			DetailUnitPrice: d.UnitPrice,
			Quantity:        d.Quantity,
		})
	}
	return ComputeByTotalOverage(factory, baseRate, lines), nil
}
