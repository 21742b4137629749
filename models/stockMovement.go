package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is one append-only Kardex row. Rows are immutable once
// written; corrections happen by appending new rows, never by updating.
// The prior/new quantity snapshots are stored, not derived, so the ledger can
// be audited without replaying it.
type StockMovement struct {
	ID         int          `gorm:"primary_key" json:"id"`
	PharmacyId string       `gorm:"size:36;index;not null" json:"pharmacy_id"`
	LotId      int          `gorm:"index:idx_movement_lot_date,priority:1;not null" json:"lot_id"`
	Kind       MovementKind `gorm:"type:enum('ENTRADA','SAIDA','AJUSTE','DEVOLUCAO','PERDA','TRANSFERENCIA');not null" json:"kind"`

	Quantity      int `gorm:"not null" json:"quantity"`
	PriorQuantity int `gorm:"not null" json:"prior_quantity"`
	NewQuantity   int `gorm:"not null" json:"new_quantity"`

	// Financial snapshot at the moment of the movement; never recomputed from
	// the lot's live cost, so historical margins survive later cost changes.
	UnitCost      *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"unit_cost"`
	UnitSalePrice *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"unit_sale_price"`

	PerformedBy   int    `gorm:"index;default:null" json:"performed_by"`
	Reason        string `gorm:"type:text" json:"reason"`
	ExternalRef   string `gorm:"size:100" json:"external_ref"`
	CorrelationId string `gorm:"size:64;index" json:"correlation_id"`

	MovedAt time.Time `gorm:"autoCreateTime;index:idx_movement_lot_date,priority:2" json:"moved_at"`
}

// MovementInput carries the caller-supplied fields of a ledger append.
type MovementInput struct {
	Kind          MovementKind
	Quantity      int
	UnitCost      *decimal.Decimal
	UnitSalePrice *decimal.Decimal
	PerformedBy   int
	Reason        string
	ExternalRef   string
}

// RecordStockMovement appends a Kardex row for a quantity change the caller
// is about to apply (or has just applied) to the lot in the SAME transaction.
// priorQty must be the lot quantity before the change; the new quantity is
// derived from the kind. An outflow that would drive the lot negative is
// rejected before anything is written.
func RecordStockMovement(tx *gorm.DB, ctx context.Context, lot *StockLot, in MovementInput) (*StockMovement, error) {
	if in.Quantity < 0 {
		return nil, &utils.InvalidQuantityError{Quantity: in.Quantity, Reason: "movement quantity must not be negative"}
	}

	priorQty := lot.Quantity
	newQty := priorQty
	switch {
	case in.Kind.IsInbound():
		newQty = priorQty + in.Quantity
	case in.Kind == MovementKindOutflow || in.Kind == MovementKindLoss || in.Kind == MovementKindTransfer:
		newQty = priorQty - in.Quantity
	case in.Kind == MovementKindAdjustment:
		// Zero-quantity adjustments log price changes; quantity adjustments
		// come in as inflow/outflow through the adjustment workflow.
	}
	if newQty < 0 {
		return nil, &utils.InvalidQuantityError{Quantity: in.Quantity, Reason: "outflow exceeds quantity on hand"}
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	movement := StockMovement{
		PharmacyId:    lot.PharmacyId,
		LotId:         lot.ID,
		Kind:          in.Kind,
		Quantity:      in.Quantity,
		PriorQuantity: priorQty,
		NewQuantity:   newQty,
		UnitCost:      in.UnitCost,
		UnitSalePrice: in.UnitSalePrice,
		PerformedBy:   in.PerformedBy,
		Reason:        in.Reason,
		ExternalRef:   in.ExternalRef,
		CorrelationId: correlationId,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// GetLotHistory returns the Kardex for one lot, newest first, scoped to the
// acting pharmacy.
func GetLotHistory(tx *gorm.DB, ctx context.Context, pharmacyId string, lotId int, limit int) ([]StockMovement, error) {
	if _, err := GetStockLot(tx, ctx, pharmacyId, lotId); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var movements []StockMovement
	err := tx.WithContext(ctx).
		Where("lot_id = ? AND pharmacy_id = ?", lotId, pharmacyId).
		Order("moved_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func isDuplicateKeyError(err error) bool {
	if me, ok := err.(*mysql.MySQLError); ok {
		return me.Number == 1062
	}
	return false
}
