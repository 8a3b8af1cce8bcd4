package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

func TestUpdateLineQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 3, UnitPrice: decimal.NewFromInt(100)}}, nil))
	require.NoError(t, err)
	lineID := sale.Lines[0].ID

	sale, err = f.ledger.UpdateLineQuantity(ctx, sale.ID, lineID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, f.quantity(t, a))
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(500)), "total = %s", sale.Total)
	assert.True(t, sale.Lines[0].Subtotal.Equal(decimal.NewFromInt(500)))

	sale, err = f.ledger.UpdateLineQuantity(ctx, sale.ID, lineID, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, f.quantity(t, a))

	// Cancel still restores exactly what the line now holds.
	require.NoError(t, f.ledger.Cancel(ctx, sale.ID))
	assert.Equal(t, 10, f.quantity(t, a))

	_, err = f.ledger.UpdateLineQuantity(ctx, sale.ID, lineID, 2)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestUpdateLineQuantityRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t, []LineInput{{VariantID: a, Quantity: 1}}, nil))
	require.NoError(t, err)

	_, err = f.ledger.UpdateLineQuantity(ctx, sale.ID, sale.Lines[0].ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.ledger.UpdateLineQuantity(ctx, sale.ID, sale.Lines[0].ID+50, 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 9, f.quantity(t, a))
}

func TestReplaceLineVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)
	b := f.variant(t, "B", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{
			{VariantID: a, Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{VariantID: b, Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
		}, nil))
	require.NoError(t, err)
	assert.Equal(t, 8, f.quantity(t, a))
	assert.Equal(t, 9, f.quantity(t, b))

	sale, err = f.ledger.ReplaceLineVariant(ctx, sale.ID, sale.Lines[0].ID, b, decimal.NewFromInt(40))
	require.NoError(t, err)

	assert.Equal(t, 10, f.quantity(t, a))
	assert.Equal(t, 7, f.quantity(t, b))
	assert.Equal(t, b, sale.Lines[0].VariantID)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(120)), "total = %s", sale.Total)

	require.NoError(t, f.ledger.Cancel(ctx, sale.ID))
	assert.Equal(t, 10, f.quantity(t, a))
	assert.Equal(t, 10, f.quantity(t, b))
}

func TestReplaceLineVariantMissingVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t, []LineInput{{VariantID: a, Quantity: 2}}, nil))
	require.NoError(t, err)

	_, err = f.ledger.ReplaceLineVariant(ctx, sale.ID, sale.Lines[0].ID, 777, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 8, f.quantity(t, a))
}

func TestUpdateNoteAndPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.variant(t, "A", 10, 0)

	sale, err := f.ledger.Create(ctx, f.draft(t,
		[]LineInput{{VariantID: a, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
		[]PaymentInput{{Method: model.PaymentCash, Amount: decimal.NewFromInt(90)}},
	))
	require.NoError(t, err)

	sale, err = f.ledger.UpdateNote(ctx, sale.ID, "discount refused")
	require.NoError(t, err)
	assert.Equal(t, "discount refused", sale.Note)

	sale, err = f.ledger.UpdatePaymentAmount(ctx, sale.ID, sale.Payments[0].ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, sale.PaidTotal().Equal(sale.Total))
	assert.Equal(t, 9, f.quantity(t, a))

	_, err = f.ledger.UpdatePaymentAmount(ctx, sale.ID, sale.Payments[0].ID, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.ledger.UpdateNote(ctx, sale.ID+1, "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
