package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BucketTotals holds one amount per payment bucket. The cash bucket is the
// only one touched by float, reinforcements and withdrawals; the electronic
// buckets carry sales alone.
type BucketTotals struct {
	Cash  decimal.Decimal `json:"cash"`
	Pos   decimal.Decimal `json:"pos"`
	Mpesa decimal.Decimal `json:"mpesa"`
	Emola decimal.Decimal `json:"emola"`
	Other decimal.Decimal `json:"other"`
}

func (b BucketTotals) Total() decimal.Decimal {
	return b.Cash.Add(b.Pos).Add(b.Mpesa).Add(b.Emola).Add(b.Other)
}

func (b *BucketTotals) AddSale(method PaymentMethod, amount decimal.Decimal) {
	switch method {
	case PaymentMethodCash:
		b.Cash = b.Cash.Add(amount)
	case PaymentMethodPos:
		b.Pos = b.Pos.Add(amount)
	case PaymentMethodMpesa:
		b.Mpesa = b.Mpesa.Add(amount)
	case PaymentMethodEmola:
		b.Emola = b.Emola.Add(amount)
	default:
		b.Other = b.Other.Add(amount)
	}
}

type CashSession struct {
	ID         int    `gorm:"primary_key" json:"id"`
	PharmacyId string `gorm:"size:36;index;not null" json:"pharmacy_id"`

	RegisterId int           `gorm:"index;not null" json:"register_id"`
	Register   *CashRegister `gorm:"foreignKey:RegisterId" json:"register,omitempty"`

	OperatorId int   `gorm:"index;not null" json:"operator_id"`
	Operator   *User `gorm:"foreignKey:OperatorId" json:"operator,omitempty"`

	Status CashSessionStatus `gorm:"type:enum('ABERTO','FECHADO','CONCILIADO');not null;default:'ABERTO';index" json:"status"`

	OpeningFloat decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_float"`
	OpenedAt     time.Time       `gorm:"not null" json:"opened_at"`
	ClosedAt     *time.Time      `gorm:"default:null" json:"closed_at"`

	// Declared amounts counted by the operator at close.
	DeclaredCash  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_cash"`
	DeclaredPos   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_pos"`
	DeclaredMpesa decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_mpesa"`
	DeclaredEmola decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_emola"`
	DeclaredOther decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_other"`

	// System amounts recomputed from orders and cash movements at close.
	SystemCash  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"system_cash"`
	SystemPos   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"system_pos"`
	SystemMpesa decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"system_mpesa"`
	SystemEmola decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"system_emola"`
	SystemOther decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"system_other"`

	TotalDeclared decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_declared"`
	TotalSystem   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_system"`
	Difference    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"difference"`

	ClosingProofUrl string `gorm:"size:500" json:"closing_proof_url"`
	Observations    string `gorm:"type:text" json:"observations"`
	Latitude        *float64 `gorm:"default:null" json:"latitude"`
	Longitude       *float64 `gorm:"default:null" json:"longitude"`

	ReconciledAt *time.Time `gorm:"default:null" json:"reconciled_at"`
	ReconciledBy *int       `gorm:"default:null" json:"reconciled_by"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CashMovement is a mid-session cash event on the drawer: a reinforcement
// adds to the cash bucket, a withdrawal or payment removes from it. The
// electronic buckets are never touched by movements.
type CashMovement struct {
	ID            int              `gorm:"primary_key" json:"id"`
	PharmacyId    string           `gorm:"size:36;index;not null" json:"pharmacy_id"`
	CashSessionId int              `gorm:"index;not null" json:"cash_session_id"`
	Kind          CashMovementKind `gorm:"type:enum('REFORCO','SANGRIA','PAGAMENTO');not null" json:"kind"`
	Amount        decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reason        string           `gorm:"size:500" json:"reason"`
	ExpenseId     *int             `gorm:"index;default:null" json:"expense_id"`
	PerformedBy   int              `gorm:"not null" json:"performed_by"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (m CashMovement) SignedAmount() decimal.Decimal {
	if m.Kind == CashMovementKindReinforcement {
		return m.Amount
	}
	return m.Amount.Neg()
}

// DeclaredBuckets return what the operator counted.
func (s CashSession) DeclaredBuckets() BucketTotals {
	return BucketTotals{
		Cash:  s.DeclaredCash,
		Pos:   s.DeclaredPos,
		Mpesa: s.DeclaredMpesa,
		Emola: s.DeclaredEmola,
		Other: s.DeclaredOther,
	}
}

// ComputeSystemBuckets derives what the drawer should hold: paid sales per
// bucket, with the cash bucket also carrying the opening float and the net
// of cash movements. Pure so the close math is testable without a database.
func ComputeSystemBuckets(openingFloat decimal.Decimal, sales BucketTotals, movements []CashMovement) BucketTotals {
	system := sales
	system.Cash = system.Cash.Add(openingFloat)
	for _, m := range movements {
		system.Cash = system.Cash.Add(m.SignedAmount())
	}
	return system
}

// Difference is declared minus system, signed: negative means the drawer is
// short, positive means it holds more than the system expects.
func ComputeDifference(declared, system BucketTotals) decimal.Decimal {
	return declared.Total().Sub(system.Total())
}

// Variance severities derived at read time from the stored difference.
const (
	VarianceSeverityNone     = "SEM_DIFERENCA"
	VarianceSeverityMinor    = "MENOR"
	VarianceSeverityCritical = "CRITICA"
)

// VarianceSeverity classifies the drawer difference against the system
// total: within 5% is minor, beyond is critical. Derived on read, never
// stored, so a threshold change reclassifies history too.
func VarianceSeverity(difference, totalSystem decimal.Decimal) string {
	if difference.IsZero() {
		return VarianceSeverityNone
	}
	if totalSystem.IsZero() {
		return VarianceSeverityCritical
	}
	ratio := difference.Abs().Div(totalSystem.Abs())
	if ratio.LessThanOrEqual(decimal.NewFromFloat(0.05)) {
		return VarianceSeverityMinor
	}
	return VarianceSeverityCritical
}

// GetOpenCashSession finds the operator's single open session.
func GetOpenCashSession(tx *gorm.DB, ctx context.Context, pharmacyId string, operatorId int) (*CashSession, error) {
	var session CashSession
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND operator_id = ? AND status = ?", pharmacyId, operatorId, CashSessionStatusOpen).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorNoOpenSession
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCashSessionForUpdate locks the session row for the close or
// reconciliation write.
func GetCashSessionForUpdate(tx *gorm.DB, ctx context.Context, pharmacyId string, sessionId int) (*CashSession, error) {
	var session CashSession
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pharmacy_id = ? AND id = ?", pharmacyId, sessionId).
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SumSessionSales aggregates paid, non-cancelled orders by payment bucket.
func SumSessionSales(tx *gorm.DB, ctx context.Context, pharmacyId string, sessionId int) (BucketTotals, error) {
	var totals BucketTotals
	var orders []Order
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND cash_session_id = ? AND status = ? AND paid = ?",
			pharmacyId, sessionId, OrderStatusDelivered, true).
		Find(&orders).Error
	if err != nil {
		return totals, err
	}
	for _, order := range orders {
		totals.AddSale(order.PaymentMethod, order.Total)
	}
	return totals, nil
}

func ListSessionMovements(tx *gorm.DB, ctx context.Context, pharmacyId string, sessionId int) ([]CashMovement, error) {
	var movements []CashMovement
	err := tx.WithContext(ctx).
		Where("pharmacy_id = ? AND cash_session_id = ?", pharmacyId, sessionId).
		Order("created_at asc").
		Find(&movements).Error
	return movements, err
}
