package utils

import (
	"context"

	"github.com/flowplatform/flow_backend/config"
)

/* DB fetching */

// fetch model from db by uuid primary key
// (may return NotFoundError)
func FetchModel[T any](ctx context.Context, entityName string, id string, associations ...string) (*T, error) {

	dbCtx := config.DBFromContext(ctx).WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, &NotFoundError{Entity: entityName, Id: id}
	}
	return &result, nil
}

// fetch all models from db
func FetchAllModels[T any](ctx context.Context, associations ...string) ([]*T, error) {

	dbCtx := config.DBFromContext(ctx).WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// check if id exists, return NotFoundError otherwise
func ValidateResourceId[T any](ctx context.Context, entityName string, id string) error {
	if id == "" {
		return &NotFoundError{Entity: entityName}
	}
	var count int64
	var model T
	err := config.DBFromContext(ctx).WithContext(ctx).Model(&model).
		Where("id = ?", id).Count(&count).Error
	if err != nil {
		return err
	}
	if count <= 0 {
		return &NotFoundError{Entity: entityName, Id: id}
	}
	return nil
}

// validate no other row holds the same value in the given column
// (may return NameAlreadyExistsError)
func ValidateUnique[T any](ctx context.Context, entityName string, field string, value string, excludeId string) error {
	if value == "" {
		return nil
	}
	var count int64
	var model T
	q := config.DBFromContext(ctx).WithContext(ctx).Model(&model).
		Where(field+" = ?", value)
	if excludeId != "" {
		q = q.Not("id = ?", excludeId)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &NameAlreadyExistsError{Entity: entityName, Name: value}
	}
	return nil
}

type ValidationRule struct {
	Model   interface{}
	Ids     []string
	Message string
}

// validate a batch of id sets in one count query each
func MassValidateResourceIds(ctx context.Context, rules []ValidationRule) error {
	db := config.DBFromContext(ctx)
	var count int64
	for _, rule := range rules {
		if len(rule.Ids) <= 0 {
			continue
		}

		unqIds := UniqueSlice(rule.Ids)

		err := db.WithContext(ctx).Model(rule.Model).
			Where("id IN ?", unqIds).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count != int64(len(unqIds)) {
			return &ValidationError{Message: rule.Message}
		}
	}

	return nil
}
