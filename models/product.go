package models

import (
	"context"
	"errors"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	OwnedBase
	FactoryId             string           `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	Name                  string           `gorm:"size:255;not null;index" json:"name" binding:"required"`
	Sku                   string           `gorm:"size:100;index" json:"sku"`
	Description           string           `gorm:"type:text" json:"description"`
	UnitPrice             decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"unit_price"`
	DefaultCommissionRate *decimal.Decimal `gorm:"type:decimal(18,6)" json:"default_commission_rate"`
	IsActive              *bool            `gorm:"not null;default:true" json:"is_active"`

	QuantityPricings []*ProductQuantityPricing `json:"quantity_pricings"`
}

// ProductCpn is a customer-specific price and rate override.
type ProductCpn struct {
	Base
	ProductId      string           `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_cpn" json:"product_id"`
	CustomerId     string           `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_cpn" json:"customer_id"`
	Cpn            string           `gorm:"size:100" json:"cpn"`
	UnitPrice      *decimal.Decimal `gorm:"type:decimal(18,6)" json:"unit_price"`
	CommissionRate *decimal.Decimal `gorm:"type:decimal(18,6)" json:"commission_rate"`
}

// ProductQuantityPricing is a [qty_low, qty_high] price tier.
type ProductQuantityPricing struct {
	Base
	ProductId string          `gorm:"type:uuid;not null;index" json:"product_id"`
	QtyLow    decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"qty_low"`
	QtyHigh   decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"qty_high"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"unit_price"`
}

type NewProduct struct {
	FactoryId             string           `json:"factory_id" binding:"required"`
	Name                  string           `json:"name" binding:"required"`
	Sku                   string           `json:"sku"`
	Description           string           `json:"description"`
	UnitPrice             decimal.Decimal  `json:"unit_price"`
	DefaultCommissionRate *decimal.Decimal `json:"default_commission_rate"`
	IsActive              *bool            `json:"is_active"`

	QuantityPricings []*NewProductQuantityPricing `json:"quantity_pricings"`
}

type NewProductQuantityPricing struct {
	QtyLow    decimal.Decimal `json:"qty_low"`
	QtyHigh   decimal.Decimal `json:"qty_high"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type NewProductCpn struct {
	ProductId      string           `json:"product_id" binding:"required"`
	CustomerId     string           `json:"customer_id" binding:"required"`
	Cpn            string           `json:"cpn"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

type ProductsEdge Edge[Product]
type ProductsConnection struct {
	Edges    []*ProductsEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (p Product) GetCursor() string {
	return p.CreatedAt.Format(time.RFC3339Nano)
}

func (input *NewProduct) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Product](ctx, "Product", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}
	if input.UnitPrice.IsNegative() {
		return utils.NewValidationError("unit price cannot be negative")
	}
	for _, tier := range input.QuantityPricings {
		if tier.QtyHigh.LessThan(tier.QtyLow) {
			return utils.NewValidationError("quantity tier high bound is below its low bound")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	product := Product{
		FactoryId:             input.FactoryId,
		Name:                  input.Name,
		Sku:                   input.Sku,
		Description:           input.Description,
		UnitPrice:             input.UnitPrice,
		DefaultCommissionRate: input.DefaultCommissionRate,
		IsActive:              input.IsActive,
	}
	product.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Create(&product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, tier := range input.QuantityPricings {
		row := ProductQuantityPricing{
			ProductId: product.ID,
			QtyLow:    tier.QtyLow,
			QtyHigh:   tier.QtyHigh,
			UnitPrice: tier.UnitPrice,
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		product.QuantityPricings = append(product.QuantityPricings, &row)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id string, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, "Product", id)
	if err != nil {
		return nil, err
	}
	product.FactoryId = input.FactoryId
	product.Name = input.Name
	product.Sku = input.Sku
	product.Description = input.Description
	product.UnitPrice = input.UnitPrice
	product.DefaultCommissionRate = input.DefaultCommissionRate
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&Product{}).Where("id = ?", id).Select(
		"factory_id", "name", "sku", "description", "unit_price",
		"default_commission_rate", "is_active",
	).Updates(product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.QuantityPricings != nil {
		if err := tx.Where("product_id = ?", id).Delete(&ProductQuantityPricing{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		product.QuantityPricings = nil
		for _, tier := range input.QuantityPricings {
			row := ProductQuantityPricing{
				ProductId: id,
				QtyLow:    tier.QtyLow,
				QtyHigh:   tier.QtyHigh,
				UnitPrice: tier.UnitPrice,
			}
			if err := tx.Create(&row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			product.QuantityPricings = append(product.QuantityPricings, &row)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Product](id)
	return product, nil
}

func DeleteProduct(ctx context.Context, id string) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, "Product", id)
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&OrderDetail{}).Where("product_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Product is referenced by order lines and cannot be deleted"}
	}

	tx := db.Begin()
	if err := tx.Where("product_id = ?", id).Delete(&ProductQuantityPricing{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("product_id = ?", id).Delete(&ProductCpn{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Product{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Product](id)
	return product, nil
}

func GetProduct(ctx context.Context, id string) (*Product, error) {
	return utils.FetchModel[Product](ctx, "Product", id, "QuantityPricings")
}

func GetAllProducts(ctx context.Context, factoryId *string) ([]*Product, error) {
	db := dbFrom(ctx).Preload("QuantityPricings")
	if factoryId != nil {
		db = db.Where("factory_id = ?", *factoryId)
	}
	var results []*Product
	if err := db.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func UpsertProductCpn(ctx context.Context, input *NewProductCpn) (*ProductCpn, error) {
	if err := utils.ValidateResourceId[Product](ctx, "Product", input.ProductId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Customer](ctx, "Customer", input.CustomerId); err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var cpn ProductCpn
	err := db.Where("product_id = ? AND customer_id = ?", input.ProductId, input.CustomerId).
		First(&cpn).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cpn.ProductId = input.ProductId
	cpn.CustomerId = input.CustomerId
	cpn.Cpn = input.Cpn
	cpn.UnitPrice = input.UnitPrice
	cpn.CommissionRate = input.CommissionRate

	if err := db.Save(&cpn).Error; err != nil {
		return nil, err
	}
	return &cpn, nil
}

func DeleteProductCpn(ctx context.Context, id string) (*ProductCpn, error) {
	cpn, err := utils.FetchModel[ProductCpn](ctx, "ProductCpn", id)
	if err != nil {
		return nil, err
	}
	if err := dbFrom(ctx).Delete(&ProductCpn{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return cpn, nil
}

// findProductCpn loads the (product, customer) override when one exists.
func findProductCpn(ctx context.Context, productId string, customerId string) (*ProductCpn, error) {
	var cpn ProductCpn
	err := dbFrom(ctx).
		Where("product_id = ? AND customer_id = ?", productId, customerId).
		First(&cpn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cpn, nil
}

// findQuantityTier returns the tier covering the quantity, nil when none does.
func findQuantityTier(tiers []*ProductQuantityPricing, quantity decimal.Decimal) *ProductQuantityPricing {
	for _, tier := range tiers {
		if quantity.GreaterThanOrEqual(tier.QtyLow) && quantity.LessThanOrEqual(tier.QtyHigh) {
			return tier
		}
	}
	return nil
}
