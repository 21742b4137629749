package workflow

import (
	"context"
	"errors"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
)

const supplierModuleFile = "supplierWorkflow.go"

type NewSupplier struct {
	Name            string `json:"name" binding:"required"`
	TradeName       string `json:"trade_name"`
	Nuit            string `json:"nuit"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Address         string `json:"address"`
	PaymentTermDays int    `json:"payment_term_days"`
}

// validateSupplierContacts checks the optional contact fields. Both may be
// empty, but when present they must be usable: payable follow-up dials and
// mails suppliers straight from these columns.
func validateSupplierContacts(email, phone string) error {
	if email != "" && !utils.IsValidEmail(email) {
		return errors.New("supplier email is not a valid address")
	}
	if phone != "" {
		if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
			return errors.New("supplier phone is not a valid number")
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*models.Supplier, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	if err := validateSupplierContacts(input.Email, input.Phone); err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[models.Supplier](ctx, pharmacyId, "name = ?", input.Name)
	if err != nil {
		config.LogError(logger, supplierModuleFile, "CreateSupplier", "CountByName", input.Name, err)
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorDuplicateValue
	}

	supplier := models.Supplier{
		PharmacyId:      pharmacyId,
		Name:            input.Name,
		TradeName:       input.TradeName,
		Nuit:            input.Nuit,
		Phone:           input.Phone,
		Email:           input.Email,
		Address:         input.Address,
		PaymentTermDays: input.PaymentTermDays,
		IsActive:        utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		config.LogError(logger, supplierModuleFile, "CreateSupplier", "Create", input.Name, err)
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, supplierId int, input *NewSupplier) (*models.Supplier, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	if err := utils.ValidateResourceId[models.Supplier](ctx, pharmacyId, supplierId); err != nil {
		return nil, err
	}
	if err := validateSupplierContacts(input.Email, input.Phone); err != nil {
		return nil, err
	}

	// Renaming onto another supplier's name is a duplicate too.
	count, err := utils.ResourceCountWhere[models.Supplier](ctx, pharmacyId, "name = ? AND id <> ?", input.Name, supplierId)
	if err != nil {
		config.LogError(logger, supplierModuleFile, "UpdateSupplier", "CountByName", input.Name, err)
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorDuplicateValue
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&models.Supplier{}).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, supplierId).
		Updates(map[string]interface{}{
			"name":              input.Name,
			"trade_name":        input.TradeName,
			"nuit":              input.Nuit,
			"phone":             input.Phone,
			"email":             input.Email,
			"address":           input.Address,
			"payment_term_days": input.PaymentTermDays,
		}).Error
	if err != nil {
		config.LogError(logger, supplierModuleFile, "UpdateSupplier", "Update", supplierId, err)
		return nil, err
	}

	var supplier models.Supplier
	err = db.WithContext(ctx).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, supplierId).
		First(&supplier).Error
	if err != nil {
		config.LogError(logger, supplierModuleFile, "UpdateSupplier", "Reload", supplierId, err)
		return nil, err
	}
	return &supplier, nil
}
