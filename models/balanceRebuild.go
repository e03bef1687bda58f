package models

import (
	"gorm.io/gorm"
)

// Batch balance rebuilds for the balance-rebuild maintenance command. Each
// document type is rebuilt in its own transaction so a bad row does not
// roll back the other types.

func RebuildAllOrderBalances(db *gorm.DB) (int, error) {
	var orders []*Order
	if err := db.Preload("Details").Preload("Balance").Find(&orders).Error; err != nil {
		return 0, err
	}
	tx := db.Begin()
	for _, order := range orders {
		if err := recomputeOrderBalance(tx, order); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(orders), nil
}

func RebuildAllInvoiceBalances(db *gorm.DB) (int, error) {
	var invoices []*Invoice
	if err := db.Preload("Details").Preload("Balance").Find(&invoices).Error; err != nil {
		return 0, err
	}
	tx := db.Begin()
	for _, invoice := range invoices {
		if err := recomputeInvoiceBalance(tx, invoice); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(invoices), nil
}

func RebuildAllCreditBalances(db *gorm.DB) (int, error) {
	var credits []*Credit
	if err := db.Preload("Details").Preload("Balance").Find(&credits).Error; err != nil {
		return 0, err
	}
	tx := db.Begin()
	for _, credit := range credits {
		if err := recomputeCreditBalance(tx, credit); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(credits), nil
}
