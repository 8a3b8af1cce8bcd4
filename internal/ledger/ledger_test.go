package ledger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/db"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

type fixture struct {
	db     *sqlx.DB
	ledger *Ledger
	stock  *store.Stock
	sales  *store.Sales
	logs   *bytes.Buffer
	seller int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := db.NewTestDB(t)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	stock := store.NewStock(database)
	sales := store.NewSales(database)

	seller, err := store.CreateUser(context.Background(), database, "maja", "hash", model.RoleUser)
	require.NoError(t, err)

	return &fixture{
		db:     database,
		ledger: New(database, stock, sales, logger),
		stock:  stock,
		sales:  sales,
		logs:   logs,
		seller: seller.ID,
	}
}

func (f *fixture) variant(t *testing.T, sku string, quantity, minStock int) int64 {
	t.Helper()
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, f.db, "Product "+sku, "")
	require.NoError(t, err)
	v, err := store.CreateVariant(ctx, f.db, model.Variant{
		ProductID: p.ID,
		SKU:       sku,
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  quantity,
		MinStock:  minStock,
	})
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) quantity(t *testing.T, variantID int64) int {
	t.Helper()
	v, err := f.stock.Get(context.Background(), variantID)
	require.NoError(t, err)
	return v.Quantity
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func (f *fixture) draft(t *testing.T, lines []LineInput, payments []PaymentInput) Draft {
	t.Helper()
	d, err := NewDraft(DraftInput{SellerID: f.seller, Lines: lines, Payments: payments})
	require.NoError(t, err)
	return d
}

func TestSaleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	d := f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 3, UnitPrice: decimal.NewFromInt(100)}},
		[]PaymentInput{{Method: model.PaymentCash, Amount: decimal.NewFromInt(300)}},
	)

	sale, err := f.ledger.Create(ctx, d)
	require.NoError(t, err)
	assert.NotZero(t, sale.ID)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(300)), "total = %s", sale.Total)
	assert.Equal(t, model.SaleStatusCompleted, sale.Status)
	require.Len(t, sale.Lines, 1)
	require.Len(t, sale.Payments, 1)
	assert.Equal(t, 7, f.quantity(t, a))

	require.NoError(t, f.ledger.Cancel(ctx, sale.ID))
	assert.Equal(t, 10, f.quantity(t, a))

	cancelled, err := f.sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleStatusCancelled, cancelled.Status)
	assert.Len(t, cancelled.Payments, 1, "cancel keeps payments")

	err = f.ledger.Cancel(ctx, sale.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Equal(t, 10, f.quantity(t, a))

	require.NoError(t, f.ledger.Delete(ctx, sale.ID))
	_, err = f.sales.Get(ctx, sale.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 10, f.quantity(t, a))
	assert.Zero(t, f.count(t, "sale_lines"))
	assert.Zero(t, f.count(t, "sale_payments"))
}

func TestDeleteCompletedSaleFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 1, UnitPrice: decimal.NewFromInt(5)}}, nil))
	require.NoError(t, err)

	err = f.ledger.Delete(ctx, sale.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.sales.Get(ctx, sale.ID)
	assert.NoError(t, err)
	assert.Equal(t, 9, f.quantity(t, a))
}

func TestCreateIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)
	movements := f.count(t, "stock_movements")

	d := f.draft(t,
		[]LineInput{
			{VariantID: a, Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{VariantID: 9999, Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
		[]PaymentInput{{Method: model.PaymentDebit, Amount: decimal.NewFromInt(250)}},
	)

	_, err := f.ledger.Create(ctx, d)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 10, f.quantity(t, a))
	assert.Zero(t, f.count(t, "sales"))
	assert.Zero(t, f.count(t, "sale_lines"))
	assert.Zero(t, f.count(t, "sale_payments"))
	assert.Equal(t, movements, f.count(t, "stock_movements"))
}

func TestCreateUnknownSeller(t *testing.T) {
	f := newFixture(t)
	a := f.variant(t, "A", 10, 0)

	d, err := NewDraft(DraftInput{
		SellerID: f.seller + 1,
		Lines:    []LineInput{{VariantID: a, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.ledger.Create(context.Background(), d)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 10, f.quantity(t, a))
}

func TestCreateInactiveVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)
	require.NoError(t, store.DeactivateVariant(ctx, f.db, a))

	_, err := f.ledger.Create(ctx, f.draft(t, []LineInput{{VariantID: a, Quantity: 1}}, nil))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Zero(t, f.count(t, "sales"))
}

func TestCreateZeroDraft(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Create(context.Background(), Draft{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCancelRestoresAcrossOtherSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)
	b := f.variant(t, "B", 10, 0)

	first, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 4, UnitPrice: decimal.NewFromInt(1)}}, nil))
	require.NoError(t, err)

	_, err = f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: b, Quantity: 6, UnitPrice: decimal.NewFromInt(1)}}, nil))
	require.NoError(t, err)

	require.NoError(t, f.ledger.Cancel(ctx, first.ID))
	assert.Equal(t, 10, f.quantity(t, a))
	assert.Equal(t, 4, f.quantity(t, b))
}

func TestCancelUsesStoredQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 3, UnitPrice: decimal.NewFromInt(100)}}, nil))
	require.NoError(t, err)

	// Restock and a price change in between must not affect the reversal.
	_, err = f.stock.Apply(ctx, model.StockAdjustment{VariantID: a, Delta: 5, Reason: model.StockReasonRestock})
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE variants SET unit_price = '250' WHERE id = ?`, a)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Cancel(ctx, sale.ID))
	assert.Equal(t, 15, f.quantity(t, a))
}

func TestCancelMissingSale(t *testing.T) {
	f := newFixture(t)

	err := f.ledger.Cancel(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = f.ledger.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNegativeStockIsAWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 1, 0)

	_, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 3, UnitPrice: decimal.NewFromInt(1)}}, nil))
	require.NoError(t, err)

	assert.Equal(t, -2, f.quantity(t, a))
	assert.Contains(t, f.logs.String(), "negative stock")
}

func TestPaymentMismatchIsLogged(t *testing.T) {
	f := newFixture(t)
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(context.Background(), f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
		[]PaymentInput{{Method: model.PaymentCash, Amount: decimal.NewFromInt(80)}},
	))
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(decimal.NewFromInt(100)))
	assert.Contains(t, f.logs.String(), "sale payments do not match total")
}

func TestStockMovementsReferenceSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 2, UnitPrice: decimal.NewFromInt(1)}}, nil))
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, sale.ID))
	require.NoError(t, f.ledger.Delete(ctx, sale.ID))

	movements, err := f.stock.Movements(ctx, a, 0)
	require.NoError(t, err)
	require.Len(t, movements, 3)

	assert.Equal(t, model.StockReasonSaleCancel, movements[0].Reason)
	assert.Equal(t, 2, movements[0].Delta)
	assert.Equal(t, model.StockReasonSale, movements[1].Reason)
	assert.Equal(t, -2, movements[1].Delta)
	require.NotNil(t, movements[1].SaleID)
	assert.Equal(t, sale.ID, *movements[1].SaleID)
}
