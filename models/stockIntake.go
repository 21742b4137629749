package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockIntake is one supplier delivery document. Processing it is the only
// way bulk stock enters the ledger; the Processed/FinanceGenerated flags make
// that processing exactly-once.
type StockIntake struct {
	ID         int             `gorm:"primary_key" json:"id"`
	PharmacyId string          `gorm:"size:36;index;not null" json:"pharmacy_id"`
	SupplierId int             `gorm:"index;not null" json:"supplier_id" binding:"required"`
	SequenceNo decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`

	DocumentNumber string     `gorm:"size:100;not null" json:"document_number" binding:"required"`
	IssueDate      *time.Time `gorm:"type:date;default:null" json:"issue_date"`
	EntryDate      time.Time  `gorm:"type:date;not null" json:"entry_date"`

	TotalValue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_value"`
	Notes      string          `gorm:"type:text" json:"notes"`

	// Idempotency guards: each document feeds the ledger and the payables
	// table at most once.
	Processed        *bool `gorm:"not null;default:false" json:"processed"`
	FinanceGenerated *bool `gorm:"not null;default:false" json:"finance_generated"`

	CreatedBy int       `gorm:"default:null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Items []StockIntakeItem `gorm:"foreignKey:IntakeId" json:"items"`
}

type StockIntakeItem struct {
	ID        int `gorm:"primary_key" json:"id"`
	IntakeId  int `gorm:"index;not null" json:"intake_id"`
	ProductId int `gorm:"index;not null" json:"product_id" binding:"required"`

	Quantity int             `gorm:"not null" json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`

	// System-generated; the supplier's own lot code is never trusted as a key.
	LotCode    string     `gorm:"size:50;not null" json:"lot_code"`
	ExpiryDate *time.Time `gorm:"type:date;default:null" json:"expiry_date"`
}

// Subtotal is quantity x unit cost for one received line.
func (item *StockIntakeItem) Subtotal() decimal.Decimal {
	return decimal.NewFromInt(int64(item.Quantity)).Mul(item.UnitCost)
}
