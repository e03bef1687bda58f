package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
)

type Customer struct {
	OwnedBase
	Name        string  `gorm:"size:255;not null;index" json:"name" binding:"required"`
	ParentId    *string `gorm:"type:uuid;index" json:"parent_id"`
	TerritoryId *string `gorm:"type:uuid;index" json:"territory_id"`
	Email       string  `gorm:"size:100" json:"email"`
	Phone       string  `gorm:"size:20" json:"phone"`
	Address1    string  `gorm:"size:255" json:"address1"`
	Address2    string  `gorm:"size:255" json:"address2"`
	City        string  `gorm:"size:100" json:"city"`
	State       string  `gorm:"size:100" json:"state"`
	PostalCode  string  `gorm:"size:20" json:"postal_code"`
	Country     string  `gorm:"size:100" json:"country"`
	Notes       string  `gorm:"type:text" json:"notes"`
	IsActive    *bool   `gorm:"not null;default:true" json:"is_active"`

	Owners []*CustomerOwner `json:"owners"`
}

// CustomerOwner assigns a rep to a customer; the multi-owner visibility
// path reads this table.
type CustomerOwner struct {
	Base
	CustomerId string `gorm:"type:uuid;index;uniqueIndex:idx_customer_owner" json:"customer_id"`
	UserId     string `gorm:"type:uuid;index;uniqueIndex:idx_customer_owner" json:"user_id"`
	Position   int    `gorm:"default:0" json:"position"`
}

type NewCustomer struct {
	Name        string   `json:"name" binding:"required"`
	ParentId    *string  `json:"parent_id"`
	TerritoryId *string  `json:"territory_id"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Address1    string   `json:"address1"`
	Address2    string   `json:"address2"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postal_code"`
	Country     string   `json:"country"`
	Notes       string   `json:"notes"`
	IsActive    *bool    `json:"is_active"`
	OwnerIds    []string `json:"owner_ids"`
}

type CustomersEdge Edge[Customer]
type CustomersConnection struct {
	Edges    []*CustomersEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

func (c Customer) GetCursor() string {
	return c.CreatedAt.Format(time.RFC3339Nano)
}

func (input *NewCustomer) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Customer](ctx, "Customer", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Customer](ctx, "Customer", "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("invalid email address")
	}
	if input.ParentId != nil {
		if *input.ParentId == id {
			return utils.NewValidationError("customer cannot be its own parent")
		}
		if err := utils.ValidateResourceId[Customer](ctx, "Customer", *input.ParentId); err != nil {
			return err
		}
	}
	if input.TerritoryId != nil {
		if err := utils.ValidateResourceId[Territory](ctx, "Territory", *input.TerritoryId); err != nil {
			return err
		}
	}
	if len(input.OwnerIds) > 0 {
		if err := utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
			{Model: &User{}, Ids: input.OwnerIds, Message: "owner user not found"},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (input *NewCustomer) apply(c *Customer) {
	c.Name = input.Name
	c.ParentId = input.ParentId
	c.TerritoryId = input.TerritoryId
	c.Email = input.Email
	c.Phone = input.Phone
	c.Address1 = input.Address1
	c.Address2 = input.Address2
	c.City = input.City
	c.State = input.State
	c.PostalCode = input.PostalCode
	c.Country = input.Country
	c.Notes = input.Notes
	if input.IsActive != nil {
		c.IsActive = input.IsActive
	}
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	var customer Customer
	input.apply(&customer)
	customer.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&customer).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i, userId := range utils.UniqueSlice(input.OwnerIds) {
		owner := CustomerOwner{CustomerId: customer.ID, UserId: userId, Position: i}
		if err := tx.Create(&owner).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		customer.Owners = append(customer.Owners, &owner)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Customer](customer.ID)
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id string, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, "Customer", id)
	if err != nil {
		return nil, err
	}
	input.apply(customer)

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&Customer{}).Where("id = ?", id).Select(
		"name", "parent_id", "territory_id", "email", "phone", "address1", "address2",
		"city", "state", "postal_code", "country", "notes", "is_active",
	).Updates(customer).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.OwnerIds != nil {
		if err := tx.Where("customer_id = ?", id).Delete(&CustomerOwner{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		customer.Owners = nil
		for i, userId := range utils.UniqueSlice(input.OwnerIds) {
			owner := CustomerOwner{CustomerId: id, UserId: userId, Position: i}
			if err := tx.Create(&owner).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			customer.Owners = append(customer.Owners, &owner)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Customer](customer.ID)
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id string) (*Customer, error) {
	customer, err := utils.FetchModel[Customer](ctx, "Customer", id, "Owners")
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&Order{}).Where("sold_to_id = ? OR bill_to_id = ?", id, id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Customer has orders and cannot be deleted"}
	}
	if err := db.Model(&Customer{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Customer has child customers and cannot be deleted"}
	}

	tx := db.Begin()
	if err := tx.Where("customer_id = ?", id).Delete(&CustomerOwner{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Customer{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Customer](customer.ID)
	return customer, nil
}

func GetCustomer(ctx context.Context, id string) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, "Customer", id, "Owners")
}

func GetAllCustomers(ctx context.Context) ([]*Customer, error) {
	return utils.FetchAllModels[Customer](ctx, "Owners")
}

// OwnerUserIds returns the rep ids attached directly to the customer.
func (c *Customer) OwnerUserIds() []string {
	ids := make([]string, 0, len(c.Owners))
	for _, o := range c.Owners {
		ids = append(ids, o.UserId)
	}
	return ids
}
