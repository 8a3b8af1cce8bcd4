package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

// Stock holds quantity-on-hand per variant. Writes take the executor
// explicitly so they join the caller's transaction.
type Stock struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStock returns a stock store reading through db.
func NewStock(db *sqlx.DB) *Stock {
	return &Stock{db: db, now: time.Now}
}

// Apply runs a single adjustment in its own transaction. Use it for restocks
// and corrections that are not part of a sale.
func (s *Stock) Apply(ctx context.Context, adj model.StockAdjustment) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	quantity, err := s.Adjust(ctx, tx, adj)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing stock adjustment: %w", err)
	}
	return quantity, nil
}

// Adjust applies adj.Delta to the variant's quantity and records the movement
// inside tx. There is no floor: the resulting quantity may be negative.
func (s *Stock) Adjust(ctx context.Context, tx *sqlx.Tx, adj model.StockAdjustment) (int, error) {
	if adj.Delta == 0 {
		return 0, fmt.Errorf("adjusting stock of variant %d: zero delta: %w", adj.VariantID, apperrors.ErrValidation)
	}

	now := s.now().UTC()

	var quantity int
	err := sqlx.GetContext(ctx, tx, &quantity,
		`UPDATE variants SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? RETURNING quantity`,
		adj.Delta, now, adj.VariantID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("variant %d: %w", adj.VariantID, apperrors.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("adjusting stock of variant %d: %w", adj.VariantID, err)
	}

	err = insertMovement(ctx, tx, model.StockMovement{
		VariantID: adj.VariantID,
		Delta:     adj.Delta,
		Reason:    adj.Reason,
		SaleID:    adj.SaleID,
		CreatedAt: now,
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// Get returns the variant with its current stock.
func (s *Stock) Get(ctx context.Context, variantID int64) (*model.Variant, error) {
	return GetVariant(ctx, s.db, variantID)
}

// GetTx is Get within a transaction.
func (s *Stock) GetTx(ctx context.Context, q sqlx.QueryerContext, variantID int64) (*model.Variant, error) {
	return GetVariant(ctx, q, variantID)
}

// ListLow returns active variants at or below their minimum stock, the most
// depleted first. Negative quantities are included.
func (s *Stock) ListLow(ctx context.Context) ([]model.Variant, error) {
	var variants []model.Variant
	err := sqlx.SelectContext(ctx, s.db, &variants,
		`SELECT `+variantColumns+`
		 FROM variants v JOIN products p ON p.id = v.product_id
		 WHERE v.active = 1 AND v.quantity <= v.min_stock
		 ORDER BY v.quantity - v.min_stock, v.sku`)
	if err != nil {
		return nil, fmt.Errorf("listing low stock: %w", err)
	}
	return variants, nil
}

// Movements returns a variant's stock history, newest first. A limit of zero
// or less returns everything.
func (s *Stock) Movements(ctx context.Context, variantID int64, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = -1
	}

	var movements []model.StockMovement
	err := sqlx.SelectContext(ctx, s.db, &movements,
		`SELECT id, variant_id, delta, reason, sale_id, created_at
		 FROM stock_movements WHERE variant_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, variantID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stock movements: %w", err)
	}
	return movements, nil
}

func insertMovement(ctx context.Context, q sqlx.ExecerContext, m model.StockMovement) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO stock_movements (variant_id, delta, reason, sale_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.VariantID, m.Delta, m.Reason, m.SaleID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording stock movement: %w", err)
	}
	return nil
}
