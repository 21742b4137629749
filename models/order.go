package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the settlement's output record. Counter sales are born terminal:
// delivered and paid in the same instant, with no pending/in-transit states.
type Order struct {
	ID          int             `gorm:"primary_key" json:"id"`
	PharmacyId  string          `gorm:"size:36;index;not null" json:"pharmacy_id"`
	SequenceNo  decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	OrderNumber string          `gorm:"size:50;uniqueIndex;not null" json:"order_number"`

	Status        OrderStatus   `gorm:"type:enum('ENTREGUE','CANCELADO');not null" json:"status"`
	PaymentMethod PaymentMethod `gorm:"type:enum('DINHEIRO','POS','MPESA','EMOLA','OUTRO');not null" json:"payment_method"`
	Paid          *bool         `gorm:"not null;default:false" json:"paid"`

	BuyerName string `gorm:"size:200" json:"buyer_name"`
	SellerId  int    `gorm:"index;not null" json:"seller_id"`

	// Cash session the sale was rung on; reconciliation aggregates by it.
	CashSessionId *int `gorm:"index;default:null" json:"cash_session_id"`

	Subtotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Total    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`

	AmountTendered decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_tendered"`
	ChangeDue      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"change_due"`

	PrescriptionImageUrl string `gorm:"size:500" json:"prescription_image_url"`
	Notes                string `gorm:"type:text" json:"notes"`

	CancelledAt  *time.Time `gorm:"default:null" json:"cancelled_at"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderId" json:"items"`
}

type OrderItem struct {
	ID        int `gorm:"primary_key" json:"id"`
	OrderId   int `gorm:"index;not null" json:"order_id"`
	ProductId int `gorm:"index;not null" json:"product_id"`
	LotId     int `gorm:"index;not null" json:"lot_id"`

	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`

	// Unit sold outside its box (loose sale).
	IsLooseItem *bool `gorm:"not null;default:false" json:"is_loose_item"`

	// Seller commission captured at sale time from the product's percent.
	CommissionValue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"commission_value"`
}

// CommissionValueFor derives the seller commission for a line subtotal from
// the product's percent, rounded at the money scale.
func CommissionValueFor(lineSubtotal, commissionPercent decimal.Decimal) decimal.Decimal {
	return lineSubtotal.Mul(commissionPercent).DivRound(decimal.NewFromInt(100), moneyScale)
}

// SettlementReceipt is the contract handed to the receipt/printing layer.
type SettlementReceipt struct {
	OrderId       int               `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	SettledAt     time.Time         `json:"settled_at"`
	PharmacyId    string            `json:"pharmacy_id"`
	SellerId      int               `json:"seller_id"`
	SellerName    string            `json:"seller_name"`
	BuyerName     string            `json:"buyer_name"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Total         decimal.Decimal   `json:"total"`
	Tendered      decimal.Decimal   `json:"tendered"`
	ChangeDue     decimal.Decimal   `json:"change_due"`
	Lines         []SettlementRecap `json:"lines"`
}

type SettlementRecap struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}
