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
)

const stockAdjustmentModuleFile = "stockAdjustmentWorkflow.go"

type AdjustmentDirection string

const (
	AdjustmentDirectionIn  AdjustmentDirection = "ENTRADA"
	AdjustmentDirectionOut AdjustmentDirection = "SAIDA"
)

type NewStockAdjustment struct {
	LotId     int                 `json:"lot_id" binding:"required"`
	Direction AdjustmentDirection `json:"direction" binding:"required"`
	Quantity  int                 `json:"quantity" binding:"required"`
	Reason    string              `json:"reason" binding:"required"`
}

// AdjustStock applies a manual quantity correction to one lot under its row
// lock. Loss reasons (breakage, expiry, theft) additionally write a paid
// expense valued at the lot's current cost, so write-offs hit the books the
// day they happen. The lot cost never changes here, adjustments reprice
// nothing.
func AdjustStock(ctx context.Context, input *NewStockAdjustment) (*models.StockMovement, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	if input.Quantity <= 0 {
		return nil, &utils.InvalidQuantityError{Quantity: input.Quantity, Reason: "adjustment quantity must be positive"}
	}
	if input.Reason == "" {
		return nil, errors.New("adjustment reason is required")
	}
	if input.Direction != AdjustmentDirectionIn && input.Direction != AdjustmentDirectionOut {
		return nil, fmt.Errorf("invalid adjustment direction %q", input.Direction)
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()
	tx := db.Begin()

	lot, err := models.GetStockLotForUpdate(tx, ctx, pharmacyId, input.LotId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	kind := models.MovementKindInflow
	newQty := lot.Quantity + input.Quantity
	isLoss := false
	if input.Direction == AdjustmentDirectionOut {
		kind = models.MovementKindOutflow
		if models.IsLossReason(input.Reason) {
			kind = models.MovementKindLoss
			isLoss = true
		}
		newQty = lot.Quantity - input.Quantity
	}

	unitCost := lot.CostPrice
	movement, err := models.RecordStockMovement(tx, ctx, lot, models.MovementInput{
		Kind:        kind,
		Quantity:    input.Quantity,
		UnitCost:    &unitCost,
		PerformedBy: userId,
		Reason:      input.Reason,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	lot.Quantity = newQty
	err = tx.WithContext(ctx).Model(&models.StockLot{}).
		Where("id = ?", lot.ID).
		Update("quantity", newQty).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, stockAdjustmentModuleFile, "AdjustStock", "UpdateLot", lot.ID, err)
		return nil, err
	}

	if isLoss {
		if err := recordLossExpense(tx, ctx, lot, input, userId, now); err != nil {
			tx.Rollback()
			config.LogError(logger, stockAdjustmentModuleFile, "AdjustStock", "RecordLossExpense", lot.ID, err)
			return nil, err
		}
	}
	if err := models.EnqueueLotAlerts(tx, ctx, lot, now); err != nil {
		tx.Rollback()
		config.LogError(logger, stockAdjustmentModuleFile, "AdjustStock", "EnqueueLotAlerts", lot.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, stockAdjustmentModuleFile, "AdjustStock", "Commit", lot.ID, err)
		return nil, err
	}
	return movement, nil
}

// ReadjustPrice changes a lot's sale price and leaves a zero-quantity
// adjustment row in the Kardex naming both prices, so price history is
// reconstructible from the ledger alone.
func ReadjustPrice(ctx context.Context, lotId int, newPrice decimal.Decimal) (*models.StockLot, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	if newPrice.IsNegative() || newPrice.IsZero() {
		return nil, errors.New("sale price must be positive")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()

	lot, err := models.GetStockLotForUpdate(tx, ctx, pharmacyId, lotId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	oldPrice := lot.SalePrice
	salePrice := newPrice
	if _, err := models.RecordStockMovement(tx, ctx, lot, models.MovementInput{
		Kind:          models.MovementKindAdjustment,
		Quantity:      0,
		UnitSalePrice: &salePrice,
		PerformedBy:   userId,
		Reason:        fmt.Sprintf("PRECO: %s -> %s", oldPrice.StringFixed(2), newPrice.StringFixed(2)),
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	lot.SalePrice = newPrice
	err = tx.WithContext(ctx).Model(&models.StockLot{}).
		Where("id = ?", lot.ID).
		Update("sale_price", newPrice).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, stockAdjustmentModuleFile, "ReadjustPrice", "UpdateLot", lot.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, stockAdjustmentModuleFile, "ReadjustPrice", "Commit", lot.ID, err)
		return nil, err
	}
	return lot, nil
}

func recordLossExpense(tx *gorm.DB, ctx context.Context, lot *models.StockLot, input *NewStockAdjustment, userId int, now time.Time) error {
	seqNo, err := utils.GetSequence[models.Expense](ctx, lot.PharmacyId)
	if err != nil {
		return err
	}
	productName := lot.LotCode
	if lot.Product != nil {
		productName = lot.Product.Name
	}
	amount := lot.CostPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
	expense := models.Expense{
		PharmacyId:  lot.PharmacyId,
		SequenceNo:  decimal.NewFromInt(seqNo),
		Description: fmt.Sprintf("Perda de stock (%s): %s lote %s x%d", input.Reason, productName, lot.LotCode, input.Quantity),
		Amount:      amount,
		Status:      models.ExpenseStatusPaid,
		PaidAt:      &now,
		CreatedBy:   userId,
	}
	return tx.WithContext(ctx).Create(&expense).Error
}
