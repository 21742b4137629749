package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PharmacyId string `gorm:"size:36;index;not null" json:"pharmacy_id"`
	Name       string `gorm:"size:100;not null" json:"name"`
	Details    string `gorm:"type:text" json:"details"`
}

// Expense covers both supplier payables generated by stock intakes and
// operational spending. Loss adjustments also write one, already paid,
// so the write-off shows up in the books on the day it happened.
type Expense struct {
	ID         int             `gorm:"primary_key" json:"id"`
	PharmacyId string          `gorm:"size:36;index;not null" json:"pharmacy_id"`
	SequenceNo decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`

	CategoryId *int             `gorm:"index;default:null" json:"category_id"`
	Category   *ExpenseCategory `gorm:"foreignKey:CategoryId" json:"category,omitempty"`

	SupplierId *int      `gorm:"index;default:null" json:"supplier_id"`
	Supplier   *Supplier `gorm:"foreignKey:SupplierId" json:"supplier,omitempty"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status      ExpenseStatus   `gorm:"type:enum('PENDENTE','PAGO');not null;default:'PENDENTE'" json:"status"`

	DueDate *time.Time `gorm:"default:null" json:"due_date"`
	PaidAt  *time.Time `gorm:"default:null" json:"paid_at"`

	// Back-reference to the intake that produced this payable.
	StockIntakeId *int `gorm:"index;default:null" json:"stock_intake_id"`

	CreatedBy int       `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetExpenseById(ctx context.Context, pharmacyId string, id int) (Expense, error) {
	db := config.GetDB()
	var expense Expense
	err := db.WithContext(ctx).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, id).
		Preload("Category").
		Preload("Supplier").
		First(&expense).Error
	if err == gorm.ErrRecordNotFound {
		return expense, utils.ErrorRecordNotFound
	}
	return expense, err
}
