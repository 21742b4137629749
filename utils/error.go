package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// InsufficientStockError names the product that lacked stock so the caller can
// surface a precise message.
type InsufficientStockError struct {
	ProductName string
	LotCode     string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (lot %s): available %s, requested %s",
		e.ProductName, e.LotCode, e.Available.String(), e.Requested.String())
}

type InvalidQuantityError struct {
	Quantity int
	Reason   string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d: %s", e.Quantity, e.Reason)
}

var (
	// Cash session state violations.
	ErrorDuplicateSession = errors.New("operator already has an open cash session")
	ErrorNoOpenSession    = errors.New("no open cash session for operator")
	ErrorSessionNotOpen   = errors.New("cash session is not open")

	// Intake idempotency guards.
	ErrorDocumentAlreadyProcessed = errors.New("intake document already processed")
	ErrorPayableAlreadyGenerated  = errors.New("payable already generated for intake document")

	ErrorDuplicateValue = errors.New("value already exists")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
