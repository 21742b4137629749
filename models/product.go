package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is catalog master data shared across pharmacies; per-pharmacy
// quantities and prices live on StockLot.
type Product struct {
	ID           int    `gorm:"primary_key" json:"id"`
	Name         string `gorm:"size:200;not null" json:"name"`
	GenericName  string `gorm:"size:200" json:"generic_name"`
	Barcode      string `gorm:"size:50;uniqueIndex;default:null" json:"barcode"`
	InternalCode string `gorm:"size:50" json:"internal_code"`
	CategoryId   int    `gorm:"index;default:null" json:"category_id"`
	Description  string `gorm:"type:text" json:"description"`
	Manufacturer string `gorm:"size:200" json:"manufacturer"`

	PharmaceuticalForm string `gorm:"size:100" json:"pharmaceutical_form"`
	Concentration      string `gorm:"size:100" json:"concentration"`
	UnitsPerBox        int    `gorm:"default:1" json:"units_per_box"`

	RequiresPrescription *bool `gorm:"not null;default:false" json:"requires_prescription"`
	Controlled           *bool `gorm:"not null;default:false" json:"controlled"`
	AllowLooseSale       *bool `gorm:"not null;default:false" json:"allow_loose_sale"`

	// Seller commission on counter sales, percent of the line subtotal.
	CommissionPercent decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"commission_percent"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductCategory struct {
	ID          int    `gorm:"primary_key" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:50" json:"icon"`
	IsActive    *bool  `gorm:"not null;default:true" json:"is_active"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}
