package workflow

import (
	"errors"
	"sync"
	"testing"

	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// settlement semantics:
// - concurrent sales on the same lot never oversell when the check runs under
//   the per-lot lock
// - the ledger stays contiguous, each row's prior quantity is the previous
//   row's new quantity
//
// Full DB integration tests should be added in an environment that can run MySQL.

type ledgerRow struct {
	priorQuantity int
	newQuantity   int
}

// fakeLotLedger stands in for a stock_lots row plus its kardex: a per-lot
// mutex models the FOR UPDATE row lock.
type fakeLotLedger struct {
	mu        sync.Mutex
	muByLot   map[int]*sync.Mutex
	quantity  map[int]int
	movements map[int][]ledgerRow
}

func newFakeLotLedger(initial map[int]int) *fakeLotLedger {
	l := &fakeLotLedger{
		muByLot:   map[int]*sync.Mutex{},
		quantity:  map[int]int{},
		movements: map[int][]ledgerRow{},
	}
	for lotId, qty := range initial {
		l.quantity[lotId] = qty
		l.muByLot[lotId] = &sync.Mutex{}
	}
	return l
}

func (l *fakeLotLedger) sell(lotId, requested int) error {
	l.mu.Lock()
	lm := l.muByLot[lotId]
	l.mu.Unlock()

	lm.Lock()
	defer lm.Unlock()

	available := l.quantity[lotId]
	if available < requested {
		return &utils.InsufficientStockError{
			LotCode:   "L-TEST",
			Available: decimal.NewFromInt(int64(available)),
			Requested: decimal.NewFromInt(int64(requested)),
		}
	}
	l.movements[lotId] = append(l.movements[lotId], ledgerRow{
		priorQuantity: available,
		newQuantity:   available - requested,
	})
	l.quantity[lotId] = available - requested
	return nil
}

func TestSettlement_ConcurrentSalesNeverOversell(t *testing.T) {
	const initialStock = 10

	ledger := newFakeLotLedger(map[int]int{1: initialStock})

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	rejected := 0

	// 30 buyers race for 10 units, one unit each.
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.sell(1, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sold++
				return
			}
			var stockErr *utils.InsufficientStockError
			if !errors.As(err, &stockErr) {
				t.Errorf("expected InsufficientStockError, got %v", err)
				return
			}
			rejected++
		}()
	}
	wg.Wait()

	if sold != initialStock {
		t.Fatalf("expected exactly %d units sold, got %d", initialStock, sold)
	}
	if rejected != 30-initialStock {
		t.Fatalf("expected %d rejections, got %d", 30-initialStock, rejected)
	}
	if ledger.quantity[1] != 0 {
		t.Fatalf("expected lot drained to zero, got %d", ledger.quantity[1])
	}
}

func TestSettlement_LedgerStaysContiguousUnderConcurrency(t *testing.T) {
	for run := 0; run < 50; run++ {
		ledger := newFakeLotLedger(map[int]int{1: 100})

		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = ledger.sell(1, 2)
			}()
		}
		wg.Wait()

		rows := ledger.movements[1]
		if len(rows) != 40 {
			t.Fatalf("run=%d expected 40 ledger rows, got %d", run, len(rows))
		}
		if rows[0].priorQuantity != 100 {
			t.Fatalf("run=%d first row must start from opening stock, got %d", run, rows[0].priorQuantity)
		}
		for i := 1; i < len(rows); i++ {
			if rows[i].priorQuantity != rows[i-1].newQuantity {
				t.Fatalf("run=%d ledger gap at row %d: prior %d, previous new %d",
					run, i, rows[i].priorQuantity, rows[i-1].newQuantity)
			}
		}
		if rows[len(rows)-1].newQuantity != 20 {
			t.Fatalf("run=%d expected closing quantity 20, got %d", run, rows[len(rows)-1].newQuantity)
		}
	}
}

func TestCoalesceLines(t *testing.T) {
	lines, err := coalesceLines([]SettlementLine{
		{LotId: 7, Quantity: 2},
		{LotId: 3, Quantity: 1},
		{LotId: 7, Quantity: 3, IsLooseItem: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected duplicates merged into 2 lines, got %d", len(lines))
	}
	if lines[0].LotId != 3 || lines[1].LotId != 7 {
		t.Fatalf("expected ascending lot id order, got %v", lines)
	}
	if lines[1].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", lines[1].Quantity)
	}
	if !lines[1].IsLooseItem {
		t.Fatal("loose flag must survive the merge")
	}
}

func TestCoalesceLines_RejectsBadInput(t *testing.T) {
	if _, err := coalesceLines(nil); err == nil {
		t.Fatal("empty sale must be rejected")
	}
	_, err := coalesceLines([]SettlementLine{{LotId: 1, Quantity: 0}})
	var qtyErr *utils.InvalidQuantityError
	if !errors.As(err, &qtyErr) {
		t.Fatalf("expected InvalidQuantityError, got %v", err)
	}
	if _, err := coalesceLines([]SettlementLine{{LotId: 1, Quantity: -3}}); err == nil {
		t.Fatal("negative quantity must be rejected")
	}
}

func TestCheckLotSellable(t *testing.T) {
	available := true
	unavailable := false
	looseOk := true
	looseNo := false

	lot := &models.StockLot{
		LotCode:     "L-250615-AB12",
		Quantity:    5,
		IsAvailable: &available,
		Product:     &models.Product{Name: "Paracetamol 500mg", AllowLooseSale: &looseNo},
	}

	if err := checkLotSellable(lot, SettlementLine{LotId: 1, Quantity: 5}); err != nil {
		t.Fatalf("full stock sale must pass: %v", err)
	}

	err := checkLotSellable(lot, SettlementLine{LotId: 1, Quantity: 6})
	var stockErr *utils.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !stockErr.Available.Equal(decimal.NewFromInt(5)) || !stockErr.Requested.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("error must carry available and requested: %+v", stockErr)
	}
	if stockErr.ProductName != "Paracetamol 500mg" {
		t.Fatalf("error must name the product, got %q", stockErr.ProductName)
	}

	if err := checkLotSellable(lot, SettlementLine{LotId: 1, Quantity: 1, IsLooseItem: true}); err == nil {
		t.Fatal("loose sale must be rejected when the product forbids it")
	}
	lot.Product.AllowLooseSale = &looseOk
	if err := checkLotSellable(lot, SettlementLine{LotId: 1, Quantity: 1, IsLooseItem: true}); err != nil {
		t.Fatalf("loose sale must pass when allowed: %v", err)
	}

	lot.IsAvailable = &unavailable
	if err := checkLotSellable(lot, SettlementLine{LotId: 1, Quantity: 1}); err == nil {
		t.Fatal("unavailable lot must be rejected")
	}
}

func TestCommissionValueFor(t *testing.T) {
	// 30 units at 20.00 with a 5% product commission pays 30.0000.
	subtotal := decimal.RequireFromString("20.00").Mul(decimal.NewFromInt(30))
	got := models.CommissionValueFor(subtotal, decimal.RequireFromString("5"))
	if !got.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected commission 30, got %s", got)
	}
	if got.Exponent() < -4 {
		t.Fatalf("commission must be rounded to 4 decimal places, got %s", got)
	}

	// A percent that does not divide evenly rounds at the money scale.
	got = models.CommissionValueFor(decimal.RequireFromString("10.01"), decimal.RequireFromString("3.33"))
	if !got.Equal(decimal.RequireFromString("0.3333")) {
		t.Fatalf("expected commission 0.3333, got %s", got)
	}

	if got := models.CommissionValueFor(subtotal, decimal.Zero); !got.IsZero() {
		t.Fatalf("zero percent must pay zero commission, got %s", got)
	}
}

func TestCashTenderChange(t *testing.T) {
	total := decimal.RequireFromString("600.00")

	change, err := cashTenderChange(total, decimal.RequireFromString("1000.00"))
	if err != nil {
		t.Fatalf("tender above total must pass: %v", err)
	}
	if !change.Equal(decimal.RequireFromString("400.00")) {
		t.Fatalf("expected change 400.00, got %s", change)
	}

	change, err = cashTenderChange(total, total)
	if err != nil {
		t.Fatalf("exact tender must pass: %v", err)
	}
	if !change.IsZero() {
		t.Fatalf("exact tender must owe no change, got %s", change)
	}

	if _, err := cashTenderChange(total, decimal.RequireFromString("599.99")); err == nil {
		t.Fatal("tender below total must be rejected")
	}
}
