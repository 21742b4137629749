package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestWeightedAverageCost_BlendsBeforeIncrement(t *testing.T) {
	// 10 units on hand at 10.00, receiving 5 at 12.00:
	// (10*10.00 + 5*12.00) / 15 = 160 / 15 = 10.6667
	got := WeightedAverageCost(10, d("10.00"), 5, d("12.00"))
	if got.StringFixed(4) != "10.6667" {
		t.Fatalf("expected 10.6667, got %s", got.StringFixed(4))
	}
}

func TestWeightedAverageCost_FirstIntakeKeepsIncomingCost(t *testing.T) {
	got := WeightedAverageCost(0, decimal.Zero, 20, d("7.5000"))
	if !got.Equal(d("7.5000")) {
		t.Fatalf("expected 7.5000, got %s", got)
	}
}

func TestWeightedAverageCost_EmptyLotAndEmptyReceipt(t *testing.T) {
	got := WeightedAverageCost(0, d("3.00"), 0, d("9.99"))
	if !got.Equal(d("9.99")) {
		t.Fatalf("expected incoming cost to pass through, got %s", got)
	}
}

func TestWeightedAverageCost_SameCostIsStable(t *testing.T) {
	got := WeightedAverageCost(100, d("4.2500"), 50, d("4.2500"))
	if got.StringFixed(4) != "4.2500" {
		t.Fatalf("expected 4.2500, got %s", got.StringFixed(4))
	}
}

func TestDefaultSalePrice(t *testing.T) {
	got := DefaultSalePrice(d("10.00"))
	if got.StringFixed(4) != "15.0000" {
		t.Fatalf("expected 15.0000, got %s", got.StringFixed(4))
	}
	got = DefaultSalePrice(d("3.33"))
	if got.StringFixed(4) != "4.9950" {
		t.Fatalf("expected 4.9950, got %s", got.StringFixed(4))
	}
}

func TestFinalPrice_UsesActivePromo(t *testing.T) {
	promo := d("8.00")
	lot := StockLot{SalePrice: d("10.00"), PromoPrice: &promo, PromoActive: boolRef(true)}
	if !lot.FinalPrice().Equal(promo) {
		t.Fatalf("expected promo price, got %s", lot.FinalPrice())
	}
	lot.PromoActive = boolRef(false)
	if !lot.FinalPrice().Equal(d("10.00")) {
		t.Fatalf("expected sale price, got %s", lot.FinalPrice())
	}
}

func TestLowStockAndRupture(t *testing.T) {
	lot := StockLot{Quantity: 5, MinQuantity: 10}
	if !lot.LowStock() {
		t.Fatal("expected low stock at 5/10")
	}
	if lot.Rupture() {
		t.Fatal("5 on hand is not a rupture")
	}

	lot.Quantity = 0
	if !lot.Rupture() {
		t.Fatal("expected rupture at zero")
	}
	if lot.LowStock() {
		t.Fatal("rupture is not low stock")
	}

	lot.Quantity = 11
	if lot.LowStock() || lot.Rupture() {
		t.Fatal("11/10 should be healthy")
	}
}

func TestExpiryStatusOn(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if got := (&StockLot{}).ExpiryStatusOn(today); got != ExpiryStatusOk {
		t.Fatalf("no expiry date should be OK, got %s", got)
	}

	past := today.AddDate(0, 0, -1)
	if got := (&StockLot{ExpiryDate: &past}).ExpiryStatusOn(today); got != ExpiryStatusExpired {
		t.Fatalf("expected EXPIRED, got %s", got)
	}

	soon := today.AddDate(0, 0, NearExpiryWindowDays)
	if got := (&StockLot{ExpiryDate: &soon}).ExpiryStatusOn(today); got != ExpiryStatusNearExpiry {
		t.Fatalf("expected NEAR_EXPIRY, got %s", got)
	}

	far := today.AddDate(0, 0, NearExpiryWindowDays+1)
	if got := (&StockLot{ExpiryDate: &far}).ExpiryStatusOn(today); got != ExpiryStatusOk {
		t.Fatalf("expected OK, got %s", got)
	}
}

func TestMovementKindIsInbound(t *testing.T) {
	inbound := []MovementKind{MovementKindInflow, MovementKindReturn}
	for _, kind := range inbound {
		if !kind.IsInbound() {
			t.Fatalf("%s should be inbound", kind)
		}
	}
	outbound := []MovementKind{MovementKindOutflow, MovementKindLoss, MovementKindTransfer, MovementKindAdjustment}
	for _, kind := range outbound {
		if kind.IsInbound() {
			t.Fatalf("%s should not be inbound", kind)
		}
	}
}

func boolRef(v bool) *bool {
	return &v
}
