package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/db"
	"github.com/erazemk/blagajna/internal/model"
)

// insertSale writes a one-line, one-payment sale directly through the repository.
func insertSale(t *testing.T, database *sqlx.DB, sales *Sales, sellerID, variantID int64, qty int) int64 {
	t.Helper()
	ctx := context.Background()

	price := decimal.NewFromInt(100)
	subtotal := price.Mul(decimal.NewFromInt(int64(qty)))

	id, err := sales.InsertHeader(ctx, database, &model.Sale{SellerID: sellerID, Total: subtotal})
	if err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if _, err := sales.InsertLine(ctx, database, id, model.SaleLine{
		Position: 1, VariantID: variantID, Quantity: qty, UnitPrice: price, Subtotal: subtotal,
	}); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}
	if _, err := sales.InsertPayment(ctx, database, id, model.SalePayment{
		Position: 1, Method: model.PaymentCash, Amount: subtotal,
	}); err != nil {
		t.Fatalf("InsertPayment: %v", err)
	}
	return id
}

func TestInsertAndFindSale(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sales := NewSales(database)

	seller := seedSeller(t, database, "maja")
	v := seedVariant(t, database, "A", 10, 0)

	id := insertSale(t, database, sales, seller.ID, v.ID, 3)

	sale, err := sales.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sale.Status != model.SaleStatusCompleted {
		t.Errorf("expected status completed, got %q", sale.Status)
	}
	if !sale.Total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected total 300, got %s", sale.Total)
	}
	if sale.SellerName != "maja" {
		t.Errorf("expected seller name 'maja', got %q", sale.SellerName)
	}
	if len(sale.Lines) != 1 || sale.Lines[0].Quantity != 3 {
		t.Errorf("expected one line of 3, got %+v", sale.Lines)
	}
	if len(sale.Payments) != 1 || sale.Payments[0].Method != model.PaymentCash {
		t.Errorf("expected one cash payment, got %+v", sale.Payments)
	}
}

func TestFindMissingSale(t *testing.T) {
	database := db.NewTestDB(t)
	sales := NewSales(database)

	_, err := sales.Get(context.Background(), 7)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sales := NewSales(database)

	seller := seedSeller(t, database, "maja")
	v := seedVariant(t, database, "A", 10, 0)

	first := insertSale(t, database, sales, seller.ID, v.ID, 1)
	second := insertSale(t, database, sales, seller.ID, v.ID, 2)
	if err := sales.SetStatus(ctx, database, first, model.SaleStatusCancelled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	completed, err := sales.ListByStatus(ctx, model.SaleStatusCompleted)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != second {
		t.Fatalf("expected only sale %d completed, got %+v", second, completed)
	}
	if len(completed[0].Lines) != 1 || len(completed[0].Payments) != 1 {
		t.Errorf("expected listed sale to be hydrated, got %+v", completed[0])
	}

	cancelled, _ := sales.ListByStatus(ctx, model.SaleStatusCancelled)
	if len(cancelled) != 1 || cancelled[0].ID != first {
		t.Errorf("expected only sale %d cancelled, got %+v", first, cancelled)
	}
}

func TestListByDateRange(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sales := NewSales(database)

	seller := seedSeller(t, database, "maja")
	v := seedVariant(t, database, "A", 10, 0)

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := day.AddDate(0, 0, i)
		sales.now = func() time.Time { return at }
		insertSale(t, database, sales, seller.ID, v.ID, i+1)
	}

	got, err := sales.ListByDateRange(ctx, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ListByDateRange: %v", err)
	}
	if len(got) != 1 || got[0].Lines[0].Quantity != 2 {
		t.Fatalf("expected the second day's sale, got %+v", got)
	}

	all, _ := sales.ListByDateRange(ctx, time.Time{}, time.Time{})
	if len(all) != 3 {
		t.Fatalf("expected 3 sales with open bounds, got %d", len(all))
	}
	if !all[0].CreatedAt.After(all[2].CreatedAt) {
		t.Error("expected newest sale first")
	}
}

func TestDeleteCascade(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sales := NewSales(database)

	seller := seedSeller(t, database, "maja")
	v := seedVariant(t, database, "A", 10, 0)
	id := insertSale(t, database, sales, seller.ID, v.ID, 1)

	if err := sales.DeleteCascade(ctx, database, id); err != nil {
		t.Fatalf("DeleteCascade: %v", err)
	}
	if _, err := sales.Get(ctx, id); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var lines, payments int
	database.Get(&lines, `SELECT COUNT(*) FROM sale_lines WHERE sale_id = ?`, id)
	database.Get(&payments, `SELECT COUNT(*) FROM sale_payments WHERE sale_id = ?`, id)
	if lines != 0 || payments != 0 {
		t.Errorf("expected no child rows, got %d lines and %d payments", lines, payments)
	}

	if err := sales.DeleteCascade(ctx, database, id); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSaleEdits(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	sales := NewSales(database)

	seller := seedSeller(t, database, "maja")
	v := seedVariant(t, database, "A", 10, 0)
	id := insertSale(t, database, sales, seller.ID, v.ID, 1)
	sale, _ := sales.Get(ctx, id)

	if err := sales.UpdateNote(ctx, database, id, "gift wrap"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}

	line := sale.Lines[0]
	line.Quantity = 4
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(4))
	if err := sales.UpdateLine(ctx, database, line); err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if err := sales.UpdateTotal(ctx, database, id, line.Subtotal); err != nil {
		t.Fatalf("UpdateTotal: %v", err)
	}
	if err := sales.UpdatePaymentAmount(ctx, database, id, sale.Payments[0].ID, line.Subtotal); err != nil {
		t.Fatalf("UpdatePaymentAmount: %v", err)
	}

	got, _ := sales.Get(ctx, id)
	if got.Note != "gift wrap" {
		t.Errorf("expected note 'gift wrap', got %q", got.Note)
	}
	if got.Lines[0].Quantity != 4 || !got.Total.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected quantity 4 and total 400, got %d and %s", got.Lines[0].Quantity, got.Total)
	}
	if !got.Payments[0].Amount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected payment 400, got %s", got.Payments[0].Amount)
	}

	// A payment ID from another sale does not match.
	err := sales.UpdatePaymentAmount(ctx, database, id+1, sale.Payments[0].ID, decimal.NewFromInt(1))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
