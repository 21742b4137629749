package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// MovementKind classifies a Kardex ledger entry.
type MovementKind string

const (
	MovementKindInflow     MovementKind = "ENTRADA"
	MovementKindOutflow    MovementKind = "SAIDA"
	MovementKindAdjustment MovementKind = "AJUSTE"
	MovementKindReturn     MovementKind = "DEVOLUCAO"
	MovementKindLoss       MovementKind = "PERDA"
	MovementKindTransfer   MovementKind = "TRANSFERENCIA"
)

func (t *MovementKind) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = MovementKind(v)
	case string:
		*t = MovementKind(v)
	default:
		return errors.New("movement kind must be string")
	}
	return nil
}

func (t MovementKind) Value() (driver.Value, error) {
	return string(t), nil
}

// IsInbound reports whether this kind increases the lot quantity.
func (t MovementKind) IsInbound() bool {
	return t == MovementKindInflow || t == MovementKindReturn
}

// PaymentMethod is the tender used on a counter sale.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "DINHEIRO"
	PaymentMethodPos   PaymentMethod = "POS"
	PaymentMethodMpesa PaymentMethod = "MPESA"
	PaymentMethodEmola PaymentMethod = "EMOLA"
	PaymentMethodOther PaymentMethod = "OUTRO"
)

func (t *PaymentMethod) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = PaymentMethod(v)
	case string:
		*t = PaymentMethod(v)
	default:
		return errors.New("payment method must be string")
	}
	return nil
}

func (t PaymentMethod) Value() (driver.Value, error) {
	return string(t), nil
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodCash, PaymentMethodPos, PaymentMethodMpesa, PaymentMethodEmola, PaymentMethodOther:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("invalid payment method %q", s)
}

// CashSessionStatus is the cash-session lifecycle: open -> closed -> reconciled.
type CashSessionStatus string

const (
	CashSessionStatusOpen       CashSessionStatus = "ABERTO"
	CashSessionStatusClosed     CashSessionStatus = "FECHADO"
	CashSessionStatusReconciled CashSessionStatus = "CONCILIADO"
)

func (t *CashSessionStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = CashSessionStatus(v)
	case string:
		*t = CashSessionStatus(v)
	default:
		return errors.New("cash session status must be string")
	}
	return nil
}

func (t CashSessionStatus) Value() (driver.Value, error) {
	return string(t), nil
}

// CashMovementKind is a manual cash drawer movement during a session.
type CashMovementKind string

const (
	CashMovementKindReinforcement  CashMovementKind = "REFORCO"
	CashMovementKindWithdrawal     CashMovementKind = "SANGRIA"
	CashMovementKindExpensePayment CashMovementKind = "PAGAMENTO"
)

func (t *CashMovementKind) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = CashMovementKind(v)
	case string:
		*t = CashMovementKind(v)
	default:
		return errors.New("cash movement kind must be string")
	}
	return nil
}

func (t CashMovementKind) Value() (driver.Value, error) {
	return string(t), nil
}

// OrderStatus: counter sales are created terminal (delivered); online order
// states exist only so annulment has somewhere to go.
type OrderStatus string

const (
	OrderStatusDelivered OrderStatus = "ENTREGUE"
	OrderStatusCancelled OrderStatus = "CANCELADO"
)

// ExpenseStatus covers the payables written by intake and loss adjustments.
type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "PENDENTE"
	ExpenseStatusPaid    ExpenseStatus = "PAGO"
)

// StockAlertType classifies lot conditions for the notification sink.
type StockAlertType string

const (
	StockAlertTypeRupture    StockAlertType = "RUPTURA"
	StockAlertTypeLowStock   StockAlertType = "ESTOQUE_BAIXO"
	StockAlertTypeExpired    StockAlertType = "EXPIRADO"
	StockAlertTypeNearExpiry StockAlertType = "VALIDADE"
)

// ExpiryStatus is the classification of a lot's expiry date against today.
type ExpiryStatus string

const (
	ExpiryStatusOk         ExpiryStatus = "OK"
	ExpiryStatusNearExpiry ExpiryStatus = "NEAR_EXPIRY"
	ExpiryStatusExpired    ExpiryStatus = "EXPIRED"
)

// UserRole mirrors the platform roles that touch this backend.
type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleManager  UserRole = "Manager"
	UserRoleOperator UserRole = "Operator"
)

// Loss reasons that turn a manual outflow adjustment into a recorded expense.
const (
	LossReasonBreakage = "QUEBRA"
	LossReasonExpiry   = "VENCIMENTO"
	LossReasonTheft    = "ROUBO"
)

func IsLossReason(reason string) bool {
	switch reason {
	case LossReasonBreakage, LossReasonExpiry, LossReasonTheft:
		return true
	}
	return false
}

// Dispatch states of a stock alert outbox record.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
