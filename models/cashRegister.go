package models

import "time"

// CashRegister is a physical or virtual POS terminal at a pharmacy.
type CashRegister struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PharmacyId string `gorm:"size:36;uniqueIndex:idx_register_pharmacy_name,priority:1;not null" json:"pharmacy_id"`
	Name       string `gorm:"size:100;uniqueIndex:idx_register_pharmacy_name,priority:2;not null" json:"name"`
	Code       string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	IsActive   *bool  `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
