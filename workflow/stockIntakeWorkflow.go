package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const stockIntakeModuleFile = "stockIntakeWorkflow.go"

type NewStockIntakeItem struct {
	ProductId  int             `json:"product_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time      `json:"expiry_date"`
	SalePrice  *decimal.Decimal `json:"sale_price"`
}

type NewStockIntake struct {
	SupplierId     int                  `json:"supplier_id" binding:"required"`
	DocumentNumber string               `json:"document_number" binding:"required"`
	IssueDate      *time.Time           `json:"issue_date"`
	EntryDate      time.Time            `json:"entry_date"`
	Notes          string               `json:"notes"`
	Items          []NewStockIntakeItem `json:"items"`
}

func (input *NewStockIntake) validate(ctx context.Context, pharmacyId string) error {
	if input.DocumentNumber == "" {
		return errors.New("document number is required")
	}
	if len(input.Items) == 0 {
		return errors.New("intake must carry at least one item")
	}
	if err := utils.ValidateResourceId[models.Supplier](ctx, pharmacyId, input.SupplierId); err != nil {
		return err
	}
	db := config.GetDB()
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return &utils.InvalidQuantityError{Quantity: item.Quantity, Reason: fmt.Sprintf("item %d quantity must be positive", i+1)}
		}
		if item.UnitCost.IsNegative() {
			return fmt.Errorf("item %d unit cost must not be negative", i+1)
		}
		var count int64
		if err := db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", item.ProductId).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return utils.ErrorRecordNotFound
		}
	}
	return nil
}

// CreateStockIntake registers a supplier delivery document. Lot codes are
// generated here, one per line; processing is a separate step so a document
// can be reviewed before it touches the ledger.
func CreateStockIntake(ctx context.Context, input *NewStockIntake) (*models.StockIntake, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	if err := input.validate(ctx, pharmacyId); err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	now := time.Now()
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	totalValue := decimal.Zero
	items := make([]models.StockIntakeItem, 0, len(input.Items))
	for _, in := range input.Items {
		item := models.StockIntakeItem{
			ProductId:  in.ProductId,
			Quantity:   in.Quantity,
			UnitCost:   in.UnitCost,
			LotCode:    utils.GenerateLotCode(now),
			ExpiryDate: in.ExpiryDate,
		}
		totalValue = totalValue.Add(item.Subtotal())
		items = append(items, item)
	}

	intake := models.StockIntake{
		PharmacyId:     pharmacyId,
		SupplierId:     input.SupplierId,
		DocumentNumber: input.DocumentNumber,
		IssueDate:      input.IssueDate,
		EntryDate:      entryDate,
		TotalValue:     totalValue,
		Notes:          input.Notes,
		Processed:      utils.NewFalse(),
		FinanceGenerated: utils.NewFalse(),
		CreatedBy:      userId,
		Items:          items,
	}

	db := config.GetDB()
	tx := db.Begin()

	seqNo, err := utils.GetSequence[models.StockIntake](ctx, pharmacyId)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, stockIntakeModuleFile, "CreateStockIntake", "GetSequence", pharmacyId, err)
		return nil, err
	}
	intake.SequenceNo = decimal.NewFromInt(seqNo)

	if err := tx.WithContext(ctx).Create(&intake).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, stockIntakeModuleFile, "CreateStockIntake", "Create", intake.DocumentNumber, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, stockIntakeModuleFile, "CreateStockIntake", "Commit", intake.DocumentNumber, err)
		return nil, err
	}
	return &intake, nil
}

// ProcessStockIntake applies a registered document to the stock ledger and
// generates the supplier payable, all in one transaction. For every line the
// weighted-average cost is recomputed against the quantity on hand BEFORE the
// received quantity is added. Reprocessing a processed document is rejected;
// the payable is written at most once per document.
func ProcessStockIntake(ctx context.Context, intakeId int) (*models.StockIntake, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()
	lock, err := AcquireIntakePostingLock(ctx, db, pharmacyId, intakeId)
	if err != nil {
		config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "AcquireIntakePostingLock", intakeId, err)
		return nil, err
	}
	defer lock.Release()
	tx := db.Begin()

	var intake models.StockIntake
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, intakeId).
		First(&intake).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "LoadIntake", intakeId, err)
		return nil, err
	}
	if intake.Processed != nil && *intake.Processed {
		tx.Rollback()
		return nil, utils.ErrorDocumentAlreadyProcessed
	}
	if err := tx.WithContext(ctx).Where("intake_id = ?", intake.ID).Find(&intake.Items).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "LoadItems", intakeId, err)
		return nil, err
	}

	totalValue := decimal.Zero
	for _, item := range intake.Items {
		totalValue = totalValue.Add(item.Subtotal())
	}
	intake.TotalValue = totalValue

	for _, item := range intake.Items {
		if err := applyIntakeItem(tx, ctx, &intake, item, userId, now); err != nil {
			tx.Rollback()
			config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "ApplyItem", item.LotCode, err)
			return nil, err
		}
	}

	if intake.FinanceGenerated == nil || !*intake.FinanceGenerated {
		if err := generateIntakePayable(tx, ctx, &intake, userId); err != nil {
			tx.Rollback()
			config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "GeneratePayable", intake.DocumentNumber, err)
			return nil, err
		}
	}

	err = tx.WithContext(ctx).Model(&models.StockIntake{}).
		Where("id = ?", intake.ID).
		Updates(map[string]interface{}{"processed": true, "finance_generated": true, "total_value": totalValue}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "MarkProcessed", intake.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, stockIntakeModuleFile, "ProcessStockIntake", "Commit", intake.ID, err)
		return nil, err
	}
	intake.Processed = utils.NewTrue()
	intake.FinanceGenerated = utils.NewTrue()
	return &intake, nil
}

func applyIntakeItem(tx *gorm.DB, ctx context.Context, intake *models.StockIntake, item models.StockIntakeItem, userId int, now time.Time) error {
	defaults := models.StockLot{
		CostPrice:  item.UnitCost,
		SalePrice:  models.DefaultSalePrice(item.UnitCost),
		ExpiryDate: item.ExpiryDate,
	}
	lot, _, err := models.FindOrCreateStockLot(tx, ctx, intake.PharmacyId, item.ProductId, item.LotCode, defaults)
	if err != nil {
		return err
	}
	lot, err = models.GetStockLotForUpdate(tx, ctx, intake.PharmacyId, lot.ID)
	if err != nil {
		return err
	}

	// Cost first, quantity after: the average must blend against what was on
	// hand before this receipt.
	newCost := models.WeightedAverageCost(lot.Quantity, lot.CostPrice, item.Quantity, item.UnitCost)

	unitCost := item.UnitCost
	salePrice := lot.SalePrice
	if _, err := models.RecordStockMovement(tx, ctx, lot, models.MovementInput{
		Kind:          models.MovementKindInflow,
		Quantity:      item.Quantity,
		UnitCost:      &unitCost,
		UnitSalePrice: &salePrice,
		PerformedBy:   userId,
		Reason:        fmt.Sprintf("Entrada fatura %s", intake.DocumentNumber),
		ExternalRef:   intake.DocumentNumber,
	}); err != nil {
		return err
	}

	lot.CostPrice = newCost
	lot.Quantity = lot.Quantity + item.Quantity
	updates := map[string]interface{}{"cost_price": newCost, "quantity": lot.Quantity}
	if item.ExpiryDate != nil {
		lot.ExpiryDate = item.ExpiryDate
		updates["expiry_date"] = item.ExpiryDate
	}
	err = tx.WithContext(ctx).Model(&models.StockLot{}).
		Where("id = ?", lot.ID).
		Updates(updates).Error
	if err != nil {
		return err
	}
	return models.EnqueueLotAlerts(tx, ctx, lot, now)
}

func generateIntakePayable(tx *gorm.DB, ctx context.Context, intake *models.StockIntake, userId int) error {
	var supplier models.Supplier
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND id = ?", intake.PharmacyId, intake.SupplierId).
		First(&supplier).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorRecordNotFound
		}
		return err
	}

	baseDate := intake.EntryDate
	if intake.IssueDate != nil {
		baseDate = *intake.IssueDate
	}
	dueDate := baseDate.AddDate(0, 0, supplier.PaymentTermDays)

	seqNo, err := utils.GetSequence[models.Expense](ctx, intake.PharmacyId)
	if err != nil {
		return err
	}
	expense := models.Expense{
		PharmacyId:    intake.PharmacyId,
		SequenceNo:    decimal.NewFromInt(seqNo),
		SupplierId:    &intake.SupplierId,
		Description:   fmt.Sprintf("Fatura %s - %s", intake.DocumentNumber, supplier.Name),
		Amount:        intake.TotalValue,
		Status:        models.ExpenseStatusPending,
		DueDate:       &dueDate,
		StockIntakeId: &intake.ID,
		CreatedBy:     userId,
	}
	return tx.WithContext(ctx).Create(&expense).Error
}
