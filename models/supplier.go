package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Supplier struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PharmacyId string `gorm:"size:36;index;not null" json:"pharmacy_id"`
	Name       string `gorm:"size:200;not null" json:"name"`
	TradeName  string `gorm:"size:200" json:"trade_name"`
	Nuit       string `gorm:"size:50" json:"nuit"`
	Phone      string `gorm:"size:30" json:"phone"`
	Email      string `gorm:"size:255" json:"email"`
	Address    string `gorm:"type:text" json:"address"`

	// Days granted to pay an intake document; drives the payable due date.
	PaymentTermDays int `gorm:"default:0" json:"payment_term_days"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ListSuppliers(db *gorm.DB, ctx context.Context, pharmacyId string) ([]Supplier, error) {
	var suppliers []Supplier
	err := db.WithContext(ctx).
		Where("pharmacy_id = ?", pharmacyId).
		Order("name ASC").
		Find(&suppliers).Error
	return suppliers, err
}
