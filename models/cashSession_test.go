package models

import (
	"testing"
)

func TestBucketTotals_AddSaleRoutesByMethod(t *testing.T) {
	var b BucketTotals
	b.AddSale(PaymentMethodCash, d("100.00"))
	b.AddSale(PaymentMethodPos, d("50.00"))
	b.AddSale(PaymentMethodMpesa, d("25.00"))
	b.AddSale(PaymentMethodEmola, d("10.00"))
	b.AddSale(PaymentMethodOther, d("5.00"))
	b.AddSale(PaymentMethodCash, d("20.00"))

	if !b.Cash.Equal(d("120.00")) {
		t.Fatalf("cash bucket: got %s", b.Cash)
	}
	if !b.Pos.Equal(d("50.00")) || !b.Mpesa.Equal(d("25.00")) || !b.Emola.Equal(d("10.00")) || !b.Other.Equal(d("5.00")) {
		t.Fatalf("unexpected buckets: %+v", b)
	}
	if !b.Total().Equal(d("210.00")) {
		t.Fatalf("total: got %s", b.Total())
	}
}

func TestComputeSystemBuckets_CashCarriesFloatAndMovements(t *testing.T) {
	sales := BucketTotals{Cash: d("500.00"), Pos: d("300.00")}
	movements := []CashMovement{
		{Kind: CashMovementKindReinforcement, Amount: d("100.00")},
		{Kind: CashMovementKindWithdrawal, Amount: d("250.00")},
		{Kind: CashMovementKindExpensePayment, Amount: d("50.00")},
	}

	system := ComputeSystemBuckets(d("200.00"), sales, movements)

	// 200 float + 500 cash sales + 100 reinforcement - 250 withdrawal - 50 payment
	if !system.Cash.Equal(d("500.00")) {
		t.Fatalf("system cash: got %s", system.Cash)
	}
	// Electronic buckets carry sales only.
	if !system.Pos.Equal(d("300.00")) {
		t.Fatalf("system pos: got %s", system.Pos)
	}
	if !system.Mpesa.IsZero() || !system.Emola.IsZero() || !system.Other.IsZero() {
		t.Fatalf("movements must not leak into electronic buckets: %+v", system)
	}
}

func TestComputeDifference_SignedNotClamped(t *testing.T) {
	declared := BucketTotals{Cash: d("480.00"), Pos: d("300.00")}
	system := BucketTotals{Cash: d("500.00"), Pos: d("300.00")}

	diff := ComputeDifference(declared, system)
	if !diff.Equal(d("-20.00")) {
		t.Fatalf("short drawer must stay negative, got %s", diff)
	}

	diff = ComputeDifference(system, declared)
	if !diff.Equal(d("20.00")) {
		t.Fatalf("over drawer must stay positive, got %s", diff)
	}
}

func TestSignedAmount(t *testing.T) {
	if !(CashMovement{Kind: CashMovementKindReinforcement, Amount: d("30.00")}).SignedAmount().Equal(d("30.00")) {
		t.Fatal("reinforcement adds")
	}
	if !(CashMovement{Kind: CashMovementKindWithdrawal, Amount: d("30.00")}).SignedAmount().Equal(d("-30.00")) {
		t.Fatal("withdrawal subtracts")
	}
	if !(CashMovement{Kind: CashMovementKindExpensePayment, Amount: d("30.00")}).SignedAmount().Equal(d("-30.00")) {
		t.Fatal("expense payment subtracts")
	}
}

func TestVarianceSeverity(t *testing.T) {
	cases := []struct {
		difference string
		system     string
		want       string
	}{
		{"0", "1000.00", VarianceSeverityNone},
		{"-50.00", "1000.00", VarianceSeverityMinor},
		{"50.00", "1000.00", VarianceSeverityMinor},
		{"-50.01", "1000.00", VarianceSeverityCritical},
		{"200.00", "1000.00", VarianceSeverityCritical},
		{"10.00", "0", VarianceSeverityCritical},
	}
	for _, tc := range cases {
		got := VarianceSeverity(d(tc.difference), d(tc.system))
		if got != tc.want {
			t.Fatalf("difference=%s system=%s: expected %s, got %s", tc.difference, tc.system, tc.want, got)
		}
	}
}
