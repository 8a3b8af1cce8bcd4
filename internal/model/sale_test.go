package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSaleTotals(t *testing.T) {
	sale := Sale{
		Lines: []SaleLine{
			{ID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("1.25"), Subtotal: decimal.RequireFromString("2.50")},
			{ID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("7"), Subtotal: decimal.RequireFromString("7")},
		},
		Payments: []SalePayment{
			{Method: PaymentCash, Amount: decimal.RequireFromString("5")},
			{Method: PaymentDebit, Amount: decimal.RequireFromString("4.50")},
		},
	}

	if got := sale.LinesTotal(); !got.Equal(decimal.RequireFromString("9.5")) {
		t.Errorf("LinesTotal() = %s, want 9.5", got)
	}
	if got := sale.PaidTotal(); !got.Equal(decimal.RequireFromString("9.5")) {
		t.Errorf("PaidTotal() = %s, want 9.5", got)
	}

	var empty Sale
	if !empty.LinesTotal().IsZero() || !empty.PaidTotal().IsZero() {
		t.Error("expected zero totals for an empty sale")
	}
}

func TestSaleLine(t *testing.T) {
	sale := Sale{Lines: []SaleLine{{ID: 4, Quantity: 1}, {ID: 9, Quantity: 3}}}

	line := sale.Line(9)
	if line == nil || line.Quantity != 3 {
		t.Fatalf("Line(9) = %+v", line)
	}
	line.Quantity = 5
	if sale.Lines[1].Quantity != 5 {
		t.Error("Line should point into the sale's lines")
	}
	if sale.Line(7) != nil {
		t.Error("expected nil for a missing line")
	}
}

func TestSaleStatusValid(t *testing.T) {
	for _, s := range []SaleStatus{SaleStatusCompleted, SaleStatusCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []SaleStatus{"", "open", "COMPLETED"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}
