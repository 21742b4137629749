package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// moneyScale is the decimal scale used for unit costs and prices.
const moneyScale = 4

// NearExpiryWindowDays is the look-ahead window for expiry alerts.
const NearExpiryWindowDays = 30

// StockLot is the unit of inventory accounting: one row per
// (pharmacy, product, lot code), carrying the lot's quantity and its
// weighted-average unit cost.
type StockLot struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PharmacyId string `gorm:"size:36;uniqueIndex:idx_lot_pharmacy_product_code,priority:1;not null" json:"pharmacy_id"`
	ProductId  int    `gorm:"uniqueIndex:idx_lot_pharmacy_product_code,priority:2;not null" json:"product_id"`
	LotCode    string `gorm:"size:50;uniqueIndex:idx_lot_pharmacy_product_code,priority:3;not null" json:"lot_code"`

	Quantity    int `gorm:"not null;default:0" json:"quantity"`
	MinQuantity int `gorm:"not null;default:10" json:"min_quantity"`

	// Weighted-average unit cost, recomputed on every intake.
	CostPrice   decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"cost_price"`
	SalePrice   decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"sale_price"`
	PromoPrice  *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"promo_price"`
	PromoActive *bool            `gorm:"not null;default:false" json:"promo_active"`

	ManufactureDate *time.Time `gorm:"type:date;default:null" json:"manufacture_date"`
	ExpiryDate      *time.Time `gorm:"type:date;default:null" json:"expiry_date"`

	StorageLocation string `gorm:"size:100" json:"storage_location"`

	// Soft "for sale" toggle, independent of quantity. Lots are never hard-deleted.
	IsAvailable *bool `gorm:"not null;default:true" json:"is_available"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

func (lot *StockLot) BeforeCreate(tx *gorm.DB) error {
	if lot.LotCode == "" {
		lot.LotCode = utils.GenerateAutoLotCode(time.Now())
	}
	return nil
}

// FinalPrice returns the promotional price when active, else the sale price.
func (lot *StockLot) FinalPrice() decimal.Decimal {
	if lot.PromoActive != nil && *lot.PromoActive && lot.PromoPrice != nil {
		return *lot.PromoPrice
	}
	return lot.SalePrice
}

// LowStock reports a lot that is running out but not yet empty.
func (lot *StockLot) LowStock() bool {
	return lot.Quantity > 0 && lot.Quantity <= lot.MinQuantity
}

// Rupture reports a fully depleted lot.
func (lot *StockLot) Rupture() bool {
	return lot.Quantity == 0
}

// ExpiryStatusOn classifies the lot's expiry date against the given day.
// Lots without an expiry date are always ok.
func (lot *StockLot) ExpiryStatusOn(today time.Time) ExpiryStatus {
	if lot.ExpiryDate == nil {
		return ExpiryStatusOk
	}
	day := today.Truncate(24 * time.Hour)
	expiry := lot.ExpiryDate.Truncate(24 * time.Hour)
	days := int(expiry.Sub(day).Hours() / 24)
	if days < 0 {
		return ExpiryStatusExpired
	}
	if days <= NearExpiryWindowDays {
		return ExpiryStatusNearExpiry
	}
	return ExpiryStatusOk
}

// WeightedAverageCost blends the existing lot cost with an incoming receipt:
// (onHand*cost + inQty*inCost) / (onHand + inQty). With nothing on hand and
// nothing incoming the incoming cost is kept unchanged (first-ever intake).
// Callers must apply this BEFORE incrementing the lot quantity.
func WeightedAverageCost(onHandQty int, onHandCost decimal.Decimal, incomingQty int, incomingCost decimal.Decimal) decimal.Decimal {
	total := onHandQty + incomingQty
	if total <= 0 {
		return incomingCost
	}
	blended := decimal.NewFromInt(int64(onHandQty)).Mul(onHandCost).
		Add(decimal.NewFromInt(int64(incomingQty)).Mul(incomingCost))
	return blended.DivRound(decimal.NewFromInt(int64(total)), moneyScale)
}

// DefaultSalePrice is the price applied to a brand-new lot when the intake
// does not carry one: cost plus a 50% margin.
func DefaultSalePrice(cost decimal.Decimal) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(3)).DivRound(decimal.NewFromInt(2), moneyScale)
}

// GetStockLot fetches a lot scoped to the acting pharmacy. A lot owned by
// another pharmacy is indistinguishable from a missing one.
func GetStockLot(tx *gorm.DB, ctx context.Context, pharmacyId string, lotId int) (*StockLot, error) {
	var lot StockLot
	err := tx.WithContext(ctx).Preload("Product").
		Where("id = ? AND pharmacy_id = ?", lotId, pharmacyId).
		Take(&lot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// GetStockLotForUpdate re-fetches a lot under an exclusive row lock. Every
// check-and-decrement must go through this inside its transaction so that two
// concurrent settlements cannot both pass validation and oversell the lot.
func GetStockLotForUpdate(tx *gorm.DB, ctx context.Context, pharmacyId string, lotId int) (*StockLot, error) {
	var lot StockLot
	err := tx.WithContext(ctx).Preload("Product").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND pharmacy_id = ?", lotId, pharmacyId).
		Take(&lot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindOrCreateStockLot resolves the lot keyed by (pharmacy, product, lot code).
// Intake generates a fresh code per line, so the find path only fires on
// idempotent retries of the same document.
func FindOrCreateStockLot(tx *gorm.DB, ctx context.Context, pharmacyId string, productId int, lotCode string, defaults StockLot) (*StockLot, bool, error) {
	var lot StockLot
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND product_id = ? AND lot_code = ?", pharmacyId, productId, lotCode).
		Take(&lot).Error
	if err == nil {
		return &lot, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	lot = defaults
	lot.PharmacyId = pharmacyId
	lot.ProductId = productId
	lot.LotCode = lotCode
	if err := tx.WithContext(ctx).Create(&lot).Error; err != nil {
		if isDuplicateKeyError(err) {
			// Lost a race on the unique key; fetch the winner.
			if ferr := tx.WithContext(ctx).
				Where("pharmacy_id = ? AND product_id = ? AND lot_code = ?", pharmacyId, productId, lotCode).
				Take(&lot).Error; ferr != nil {
				return nil, false, ferr
			}
			return &lot, false, nil
		}
		return nil, false, err
	}
	return &lot, true, nil
}
