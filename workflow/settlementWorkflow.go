package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const settlementModuleFile = "settlementWorkflow.go"

// SettlementLine is one requested sale line. Prices always come from the
// lot on the server; the client only names the lot and the quantity.
type SettlementLine struct {
	LotId       int  `json:"lot_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required"`
	IsLooseItem bool `json:"is_loose_item"`
}

type NewCounterSale struct {
	Lines          []SettlementLine `json:"lines" binding:"required,min=1,dive"`
	PaymentMethod  string           `json:"payment_method" binding:"required"`
	AmountTendered decimal.Decimal  `json:"amount_tendered"`
	BuyerName      string           `json:"buyer_name"`
	Notes          string           `json:"notes"`
	PrescriptionImageUrl string     `json:"prescription_image_url"`
}

// CreateCounterSale settles a counter sale: it locks every requested lot,
// re-checks availability under the lock, decrements stock with a ledger row
// per line and writes the terminal order, all in one transaction. Two
// concurrent sales on the same lot serialize on the row lock; the loser sees
// the decremented quantity and fails cleanly instead of overselling.
func CreateCounterSale(ctx context.Context, input *NewCounterSale) (*models.SettlementReceipt, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	sellerId, _ := utils.GetUserIdFromContext(ctx)
	sellerName, _ := utils.GetUserNameFromContext(ctx)

	method, err := models.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	lines, err := coalesceLines(input.Lines)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	// Unlocked pre-check so obviously bad requests fail with a friendly
	// error before any lock is taken. The authoritative check happens again
	// under the row lock below.
	for _, line := range lines {
		lot, err := models.GetStockLot(db, ctx, pharmacyId, line.LotId)
		if err != nil {
			return nil, err
		}
		if err := checkLotSellable(lot, line); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	tx := db.Begin()

	session, err := models.GetOpenCashSession(tx, ctx, pharmacyId, sellerId)
	if err != nil && err != utils.ErrorNoOpenSession {
		tx.Rollback()
		config.LogError(logger, settlementModuleFile, "CreateCounterSale", "GetOpenCashSession", sellerId, err)
		return nil, err
	}
	if method == models.PaymentMethodCash && session == nil {
		tx.Rollback()
		return nil, utils.ErrorNoOpenSession
	}

	seqNo, err := utils.GetSequence[models.Order](ctx, pharmacyId)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, settlementModuleFile, "CreateCounterSale", "GetSequence", pharmacyId, err)
		return nil, err
	}

	order := models.Order{
		PharmacyId:    pharmacyId,
		SequenceNo:    decimal.NewFromInt(seqNo),
		OrderNumber:   utils.GenerateOrderNumber(now),
		Status:        models.OrderStatusDelivered,
		PaymentMethod: method,
		Paid:          utils.NewTrue(),
		BuyerName:     input.BuyerName,
		SellerId:      sellerId,
		Notes:         input.Notes,
		PrescriptionImageUrl: input.PrescriptionImageUrl,
	}
	if session != nil {
		order.CashSessionId = &session.ID
	}

	var recaps []models.SettlementRecap
	subtotal := decimal.Zero

	// Lots are locked in ascending id order so two sales sharing lots cannot
	// deadlock each other.
	for _, line := range lines {
		lot, err := models.GetStockLotForUpdate(tx, ctx, pharmacyId, line.LotId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := checkLotSellable(lot, line); err != nil {
			tx.Rollback()
			return nil, err
		}

		unitPrice := lot.FinalPrice()
		lineSubtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		unitCost := lot.CostPrice
		if _, err := models.RecordStockMovement(tx, ctx, lot, models.MovementInput{
			Kind:          models.MovementKindOutflow,
			Quantity:      line.Quantity,
			UnitCost:      &unitCost,
			UnitSalePrice: &unitPrice,
			PerformedBy:   sellerId,
			Reason:        "Venda balcao",
			ExternalRef:   order.OrderNumber,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}

		lot.Quantity = lot.Quantity - line.Quantity
		err = tx.WithContext(ctx).Model(&models.StockLot{}).
			Where("id = ?", lot.ID).
			Update("quantity", lot.Quantity).Error
		if err != nil {
			tx.Rollback()
			config.LogError(logger, settlementModuleFile, "CreateCounterSale", "DecrementLot", lot.ID, err)
			return nil, err
		}
		if err := models.EnqueueLotAlerts(tx, ctx, lot, now); err != nil {
			tx.Rollback()
			config.LogError(logger, settlementModuleFile, "CreateCounterSale", "EnqueueLotAlerts", lot.ID, err)
			return nil, err
		}

		commission := decimal.Zero
		productName := lot.LotCode
		if lot.Product != nil {
			productName = lot.Product.Name
			commission = models.CommissionValueFor(lineSubtotal, lot.Product.CommissionPercent)
		}

		order.Items = append(order.Items, models.OrderItem{
			ProductId:       lot.ProductId,
			LotId:           lot.ID,
			Quantity:        line.Quantity,
			UnitPrice:       unitPrice,
			Subtotal:        lineSubtotal,
			IsLooseItem:     boolPtr(line.IsLooseItem),
			CommissionValue: commission,
		})
		recaps = append(recaps, models.SettlementRecap{
			ProductName: productName,
			Quantity:    line.Quantity,
			LineTotal:   lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	order.Subtotal = subtotal
	order.Total = subtotal
	if method == models.PaymentMethodCash {
		change, err := cashTenderChange(order.Total, input.AmountTendered)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		order.AmountTendered = input.AmountTendered
		order.ChangeDue = change
	}

	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, settlementModuleFile, "CreateCounterSale", "CreateOrder", order.OrderNumber, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, settlementModuleFile, "CreateCounterSale", "Commit", order.OrderNumber, err)
		return nil, err
	}

	return &models.SettlementReceipt{
		OrderId:       order.ID,
		OrderNumber:   order.OrderNumber,
		SettledAt:     now,
		PharmacyId:    pharmacyId,
		SellerId:      sellerId,
		SellerName:    sellerName,
		BuyerName:     order.BuyerName,
		PaymentMethod: method,
		Total:         order.Total,
		Tendered:      order.AmountTendered,
		ChangeDue:     order.ChangeDue,
		Lines:         recaps,
	}, nil
}

// AnnulCounterSale cancels a delivered sale and returns every item to its
// lot with a return ledger row. Stock comes back at the quantity sold; the
// lot cost is untouched, returns never reprice inventory.
func AnnulCounterSale(ctx context.Context, orderId int, reason string) (*models.Order, error) {
	logger := config.GetLogger()
	pharmacyId, ok := utils.GetPharmacyIdFromContext(ctx)
	if !ok || pharmacyId == "" {
		return nil, errors.New("pharmacy id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()
	tx := db.Begin()

	var order models.Order
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, orderId).
		Preload("Items").
		First(&order).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		config.LogError(logger, settlementModuleFile, "AnnulCounterSale", "LoadOrder", orderId, err)
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		tx.Rollback()
		return nil, errors.New("order is already cancelled")
	}

	items := append([]models.OrderItem(nil), order.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].LotId < items[j].LotId })
	for _, item := range items {
		lot, err := models.GetStockLotForUpdate(tx, ctx, pharmacyId, item.LotId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		unitCost := lot.CostPrice
		unitPrice := item.UnitPrice
		if _, err := models.RecordStockMovement(tx, ctx, lot, models.MovementInput{
			Kind:          models.MovementKindReturn,
			Quantity:      item.Quantity,
			UnitCost:      &unitCost,
			UnitSalePrice: &unitPrice,
			PerformedBy:   userId,
			Reason:        fmt.Sprintf("Devolucao venda %s: %s", order.OrderNumber, reason),
			ExternalRef:   order.OrderNumber,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		lot.Quantity = lot.Quantity + item.Quantity
		err = tx.WithContext(ctx).Model(&models.StockLot{}).
			Where("id = ?", lot.ID).
			Update("quantity", lot.Quantity).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	err = tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":        models.OrderStatusCancelled,
			"cancelled_at":  &now,
			"cancel_reason": reason,
		}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, settlementModuleFile, "AnnulCounterSale", "MarkCancelled", order.ID, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, settlementModuleFile, "AnnulCounterSale", "Commit", order.ID, err)
		return nil, err
	}
	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelReason = reason
	return &order, nil
}

// coalesceLines merges duplicate lot references and returns the lines in
// ascending lot id order, the order locks are taken in.
func coalesceLines(lines []SettlementLine) ([]SettlementLine, error) {
	if len(lines) == 0 {
		return nil, errors.New("sale must carry at least one line")
	}
	merged := map[int]*SettlementLine{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &utils.InvalidQuantityError{Quantity: line.Quantity, Reason: "sale line quantity must be positive"}
		}
		if existing, ok := merged[line.LotId]; ok {
			existing.Quantity += line.Quantity
			existing.IsLooseItem = existing.IsLooseItem || line.IsLooseItem
		} else {
			copied := line
			merged[line.LotId] = &copied
		}
	}
	out := make([]SettlementLine, 0, len(merged))
	for _, line := range merged {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotId < out[j].LotId })
	return out, nil
}

// cashTenderChange validates the tendered cash against the order total and
// returns the change due. Exact tender is fine, change is zero.
func cashTenderChange(total, tendered decimal.Decimal) (decimal.Decimal, error) {
	if tendered.LessThan(total) {
		return decimal.Zero, fmt.Errorf("amount tendered %s is below total %s", tendered, total)
	}
	return tendered.Sub(total), nil
}

func checkLotSellable(lot *models.StockLot, line SettlementLine) error {
	if lot.IsAvailable != nil && !*lot.IsAvailable {
		return fmt.Errorf("lot %s is not available for sale", lot.LotCode)
	}
	if line.IsLooseItem && (lot.Product == nil || lot.Product.AllowLooseSale == nil || !*lot.Product.AllowLooseSale) {
		return fmt.Errorf("lot %s does not allow loose sale", lot.LotCode)
	}
	if lot.Quantity < line.Quantity {
		productName := lot.LotCode
		if lot.Product != nil {
			productName = lot.Product.Name
		}
		return &utils.InsufficientStockError{
			ProductName: productName,
			LotCode:     lot.LotCode,
			Available:   decimal.NewFromInt(int64(lot.Quantity)),
			Requested:   decimal.NewFromInt(int64(line.Quantity)),
		}
	}
	return nil
}

func boolPtr(v bool) *bool {
	return &v
}
