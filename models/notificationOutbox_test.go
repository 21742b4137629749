package models

import (
	"testing"
	"time"
)

func TestClassifyLotAlerts(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	nearExpiry := today.AddDate(0, 0, 10)
	farExpiry := today.AddDate(0, 1, 0)
	pastExpiry := today.AddDate(0, 0, -1)

	cases := []struct {
		name   string
		lot    StockLot
		expect []StockAlertType
	}{
		{
			name:   "healthy lot raises nothing",
			lot:    StockLot{Quantity: 50, MinQuantity: 10, ExpiryDate: &farExpiry},
			expect: nil,
		},
		{
			name:   "rupture wins over low stock",
			lot:    StockLot{Quantity: 0, MinQuantity: 10, ExpiryDate: &farExpiry},
			expect: []StockAlertType{StockAlertTypeRupture},
		},
		{
			name:   "low stock at threshold",
			lot:    StockLot{Quantity: 10, MinQuantity: 10, ExpiryDate: &farExpiry},
			expect: []StockAlertType{StockAlertTypeLowStock},
		},
		{
			name:   "expiry alert is independent of stock level",
			lot:    StockLot{Quantity: 50, MinQuantity: 10, ExpiryDate: &nearExpiry},
			expect: []StockAlertType{StockAlertTypeNearExpiry},
		},
		{
			name:   "expired and ruptured together",
			lot:    StockLot{Quantity: 0, MinQuantity: 10, ExpiryDate: &pastExpiry},
			expect: []StockAlertType{StockAlertTypeRupture, StockAlertTypeExpired},
		},
		{
			name:   "no expiry date raises no expiry alert",
			lot:    StockLot{Quantity: 5, MinQuantity: 10},
			expect: []StockAlertType{StockAlertTypeLowStock},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyLotAlerts(&tc.lot, today)
			if len(got) != len(tc.expect) {
				t.Fatalf("expected %v, got %v", tc.expect, got)
			}
			for i := range got {
				if got[i] != tc.expect[i] {
					t.Fatalf("expected %v, got %v", tc.expect, got)
				}
			}
		})
	}
}

func TestAlertTitleUsesProductName(t *testing.T) {
	if alertTitle(StockAlertTypeRupture, "Paracetamol 500mg") != "Ruptura de stock: Paracetamol 500mg" {
		t.Fatal("unexpected rupture title")
	}
	if alertTitle(StockAlertTypeNearExpiry, "Amoxicilina") != "Validade proxima: Amoxicilina" {
		t.Fatal("unexpected near expiry title")
	}
}
