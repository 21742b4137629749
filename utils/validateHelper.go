package utils

import (
	"context"

	"bitbucket.org/farmasuite/pharma_backend/config"
)

// ValidateResourceId checks that an id exists within the acting pharmacy.
// A cross-tenant id is indistinguishable from a missing one.
func ValidateResourceId[T any](ctx context.Context, pharmacyId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, pharmacyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ResourceCountWhere[T any](ctx context.Context, pharmacyId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("pharmacy_id = ?", pharmacyId).
		Where(cond, values...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ValidateUnique returns an error when (pharmacy_id, field=value) already
// exists on another row.
func ValidateUnique[T any](ctx context.Context, pharmacyId string, field string, value interface{}, excludeId int) error {
	db := config.GetDB()
	var model T
	var count int64
	query := db.WithContext(ctx).Model(&model).
		Where("pharmacy_id = ?", pharmacyId).
		Where(field+" = ?", value)
	if excludeId > 0 {
		query = query.Where("id <> ?", excludeId)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrorDuplicateValue
	}
	return nil
}
