// Package ledger records sales and keeps variant stock in step with them.
//
// Every operation runs in a single transaction: either all of a sale's rows
// and stock adjustments are stored, or none are.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

// Ledger creates, cancels and deletes sales.
type Ledger struct {
	db     *sqlx.DB
	stock  *store.Stock
	sales  *store.Sales
	logger *slog.Logger
}

// New returns a ledger writing through db. A nil logger uses slog.Default.
func New(db *sqlx.DB, stock *store.Stock, sales *store.Sales, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, stock: stock, sales: sales, logger: logger}
}

// Create stores the draft as a completed sale and takes its lines out of
// stock. It returns the sale as stored.
func (l *Ledger) Create(ctx context.Context, d Draft) (*model.Sale, error) {
	if !d.valid() {
		return nil, fmt.Errorf("creating sale: empty draft: %w", apperrors.ErrValidation)
	}

	var saleID int64
	touched := make([]int64, 0, len(d.lines))

	err := l.inTx(ctx, "creating sale", func(tx *sqlx.Tx) error {
		if err := requireSeller(ctx, tx, d.sellerID); err != nil {
			return err
		}

		sale := &model.Sale{SellerID: d.sellerID, Total: d.total, Note: d.note}
		id, err := l.sales.InsertHeader(ctx, tx, sale)
		if err != nil {
			return err
		}
		saleID = id

		for _, line := range d.lines {
			if err := l.requireActive(ctx, tx, line.VariantID); err != nil {
				return err
			}
			if _, err := l.sales.InsertLine(ctx, tx, id, line); err != nil {
				return err
			}
			if _, err := l.stock.Adjust(ctx, tx, model.StockAdjustment{
				VariantID: line.VariantID,
				Delta:     -line.Quantity,
				Reason:    model.StockReasonSale,
				SaleID:    &id,
			}); err != nil {
				return err
			}
			touched = append(touched, line.VariantID)
		}

		for _, p := range d.payments {
			if _, err := l.sales.InsertPayment(ctx, tx, id, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("sale created",
		"sale_id", saleID,
		"seller_id", d.sellerID,
		"lines", len(d.lines),
		"total", d.total.StringFixed(2),
	)
	if paid := d.Paid(); !paid.Equal(d.total) {
		l.logger.Warn("sale payments do not match total",
			"sale_id", saleID, "total", d.total.StringFixed(2), "paid", paid.StringFixed(2))
	}
	l.warnLowStock(ctx, touched)

	return l.reload(ctx, "creating sale", saleID)
}

// Cancel marks a completed sale cancelled and puts every line's stored
// quantity back into stock. Payments are kept. Cancelling a sale twice
// fails with ErrInvalidState.
func (l *Ledger) Cancel(ctx context.Context, id int64) error {
	err := l.inTx(ctx, "cancelling sale", func(tx *sqlx.Tx) error {
		sale, err := l.sales.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleStatusCancelled {
			return fmt.Errorf("sale %d is already cancelled: %w", id, apperrors.ErrInvalidState)
		}

		if err := l.sales.SetStatus(ctx, tx, id, model.SaleStatusCancelled); err != nil {
			return err
		}

		for _, line := range sale.Lines {
			if _, err := l.stock.Adjust(ctx, tx, model.StockAdjustment{
				VariantID: line.VariantID,
				Delta:     line.Quantity,
				Reason:    model.StockReasonSaleCancel,
				SaleID:    &id,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("sale cancelled", "sale_id", id)
	return nil
}

// Delete permanently removes a cancelled sale with its lines and payments.
// Stock is not touched; it was restored when the sale was cancelled.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	err := l.inTx(ctx, "deleting sale", func(tx *sqlx.Tx) error {
		sale, err := l.sales.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status != model.SaleStatusCancelled {
			return fmt.Errorf("sale %d is %s, only cancelled sales can be deleted: %w",
				id, sale.Status, apperrors.ErrInvalidState)
		}
		return l.sales.DeleteCascade(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	l.logger.Info("sale deleted", "sale_id", id)
	return nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (l *Ledger) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return classify(op, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// classify keeps the domain sentinels and files everything else under
// ErrPersistence, with the cause still reachable through errors.Is/As.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrPersistence):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrPersistence, err)
	}
}

func (l *Ledger) reload(ctx context.Context, op string, id int64) (*model.Sale, error) {
	sale, err := l.sales.Get(ctx, id)
	if err != nil {
		return nil, classify(op, err)
	}
	return sale, nil
}

func requireSeller(ctx context.Context, q sqlx.QueryerContext, id int64) error {
	u, err := store.GetUser(ctx, q, id)
	if err != nil {
		return err
	}
	if u == nil || u.DeletedAt != nil {
		return fmt.Errorf("seller %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (l *Ledger) requireActive(ctx context.Context, q sqlx.QueryerContext, variantID int64) error {
	v, err := l.stock.GetTx(ctx, q, variantID)
	if err != nil {
		return err
	}
	if !v.Active {
		return fmt.Errorf("variant %d (%s) is inactive: %w", v.ID, v.SKU, apperrors.ErrInvalidState)
	}
	return nil
}

// warnLowStock logs variants left at or below their minimum. It runs after
// commit and never fails the operation.
func (l *Ledger) warnLowStock(ctx context.Context, variantIDs []int64) {
	seen := make(map[int64]bool, len(variantIDs))
	for _, id := range variantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		v, err := l.stock.Get(ctx, id)
		if err != nil {
			l.logger.Error("checking stock", "variant_id", id, "error", err)
			continue
		}
		switch {
		case v.Quantity < 0:
			l.logger.Warn("negative stock", "variant_id", v.ID, "sku", v.SKU, "quantity", v.Quantity)
		case v.BelowMinimum():
			l.logger.Warn("low stock", "variant_id", v.ID, "sku", v.SKU,
				"quantity", v.Quantity, "min_stock", v.MinStock)
		}
	}
}
