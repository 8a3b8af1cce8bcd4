package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

const saleColumns = `s.id, s.seller_id, s.total, s.status, s.note, s.created_at, s.updated_at,
	u.username AS seller_name`

const saleFrom = `FROM sales s JOIN users u ON u.id = s.seller_id`

// Sales persists sale headers with their lines and payments. Methods taking
// an executor run against it; the others read through the shared handle.
type Sales struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSales returns a sale repository reading through db.
func NewSales(db *sqlx.DB) *Sales {
	return &Sales{db: db, now: time.Now}
}

// InsertHeader stores a new sale header in the completed state and returns
// its ID. The sale's status and timestamps are set from the stored values.
func (s *Sales) InsertHeader(ctx context.Context, q sqlx.ExecerContext, sale *model.Sale) (int64, error) {
	now := s.now().UTC()
	result, err := q.ExecContext(ctx,
		`INSERT INTO sales (seller_id, total, status, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sale.SellerID, sale.Total, model.SaleStatusCompleted, sale.Note, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting sale id: %w", err)
	}

	sale.ID = id
	sale.Status = model.SaleStatusCompleted
	sale.CreatedAt = now
	sale.UpdatedAt = now
	return id, nil
}

// InsertLine stores one line of a sale and returns its ID.
func (s *Sales) InsertLine(ctx context.Context, q sqlx.ExecerContext, saleID int64, line model.SaleLine) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO sale_lines (sale_id, position, variant_id, quantity, unit_price, subtotal)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		saleID, line.Position, line.VariantID, line.Quantity, line.UnitPrice, line.Subtotal,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting line %d of sale %d: %w", line.Position, saleID, err)
	}
	return result.LastInsertId()
}

// InsertPayment stores one payment of a sale and returns its ID.
func (s *Sales) InsertPayment(ctx context.Context, q sqlx.ExecerContext, saleID int64, payment model.SalePayment) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO sale_payments (sale_id, position, method, amount, reference)
		 VALUES (?, ?, ?, ?, ?)`,
		saleID, payment.Position, payment.Method, payment.Amount, payment.Reference,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting payment %d of sale %d: %w", payment.Position, saleID, err)
	}
	return result.LastInsertId()
}

// FindByID returns a sale with its lines and payments.
func (s *Sales) FindByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Sale, error) {
	sale := &model.Sale{}
	err := sqlx.GetContext(ctx, q, sale,
		`SELECT `+saleColumns+` `+saleFrom+` WHERE s.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale: %w", err)
	}

	sale.Lines = []model.SaleLine{}
	sale.Payments = []model.SalePayment{}
	if err := sqlx.SelectContext(ctx, q, &sale.Lines,
		`SELECT id, sale_id, position, variant_id, quantity, unit_price, subtotal
		 FROM sale_lines WHERE sale_id = ? ORDER BY position, id`, id); err != nil {
		return nil, fmt.Errorf("getting lines of sale %d: %w", id, err)
	}

	if err := sqlx.SelectContext(ctx, q, &sale.Payments,
		`SELECT id, sale_id, position, method, amount, reference
		 FROM sale_payments WHERE sale_id = ? ORDER BY position, id`, id); err != nil {
		return nil, fmt.Errorf("getting payments of sale %d: %w", id, err)
	}

	return sale, nil
}

// Get is FindByID against the shared handle.
func (s *Sales) Get(ctx context.Context, id int64) (*model.Sale, error) {
	return s.FindByID(ctx, s.db, id)
}

// ListByStatus returns all sales with the given status, newest first.
func (s *Sales) ListByStatus(ctx context.Context, status model.SaleStatus) ([]model.Sale, error) {
	return s.list(ctx, `WHERE s.status = ?`, status)
}

// ListByDateRange returns sales created in [from, to), newest first.
// A zero bound is open.
func (s *Sales) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	where := `WHERE 1=1`
	var args []any

	if !from.IsZero() {
		where += ` AND s.created_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where += ` AND s.created_at < ?`
		args = append(args, to.UTC())
	}

	return s.list(ctx, where, args...)
}

func (s *Sales) list(ctx context.Context, where string, args ...any) ([]model.Sale, error) {
	var sales []model.Sale
	err := sqlx.SelectContext(ctx, s.db, &sales,
		`SELECT `+saleColumns+` `+saleFrom+` `+where+` ORDER BY s.created_at DESC, s.id DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}

	if err := s.hydrate(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// hydrate loads lines and payments for all sales with one query each.
func (s *Sales) hydrate(ctx context.Context, sales []model.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, len(sales))
	index := make(map[int64]int, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
		index[sale.ID] = i
		sales[i].Lines = []model.SaleLine{}
		sales[i].Payments = []model.SalePayment{}
	}

	query, args, err := sqlx.In(
		`SELECT id, sale_id, position, variant_id, quantity, unit_price, subtotal
		 FROM sale_lines WHERE sale_id IN (?) ORDER BY sale_id, position, id`, ids)
	if err != nil {
		return fmt.Errorf("building line query: %w", err)
	}
	var lines []model.SaleLine
	if err := s.db.SelectContext(ctx, &lines, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading sale lines: %w", err)
	}
	for _, l := range lines {
		i := index[l.SaleID]
		sales[i].Lines = append(sales[i].Lines, l)
	}

	query, args, err = sqlx.In(
		`SELECT id, sale_id, position, method, amount, reference
		 FROM sale_payments WHERE sale_id IN (?) ORDER BY sale_id, position, id`, ids)
	if err != nil {
		return fmt.Errorf("building payment query: %w", err)
	}
	var payments []model.SalePayment
	if err := s.db.SelectContext(ctx, &payments, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading sale payments: %w", err)
	}
	for _, p := range payments {
		i := index[p.SaleID]
		sales[i].Payments = append(sales[i].Payments, p)
	}

	return nil
}

// SetStatus changes a sale's status.
func (s *Sales) SetStatus(ctx context.Context, q sqlx.ExecerContext, id int64, status model.SaleStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`,
		status, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting status of sale %d: %w", id, err)
	}
	return requireAffected(result, fmt.Sprintf("sale %d", id))
}

// DeleteCascade removes a sale's payments, then its lines, then the header.
func (s *Sales) DeleteCascade(ctx context.Context, q sqlx.ExecerContext, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sale_payments WHERE sale_id = ?`, id); err != nil {
		return fmt.Errorf("deleting payments of sale %d: %w", id, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = ?`, id); err != nil {
		return fmt.Errorf("deleting lines of sale %d: %w", id, err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sale %d: %w", id, err)
	}
	return requireAffected(result, fmt.Sprintf("sale %d", id))
}

// UpdateNote replaces a sale's note.
func (s *Sales) UpdateNote(ctx context.Context, q sqlx.ExecerContext, id int64, note string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sales SET note = ?, updated_at = ? WHERE id = ?`,
		note, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating note of sale %d: %w", id, err)
	}
	return requireAffected(result, fmt.Sprintf("sale %d", id))
}

// UpdateLine rewrites a line's variant, quantity, unit price and subtotal.
func (s *Sales) UpdateLine(ctx context.Context, q sqlx.ExecerContext, line model.SaleLine) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sale_lines SET variant_id = ?, quantity = ?, unit_price = ?, subtotal = ?
		 WHERE id = ? AND sale_id = ?`,
		line.VariantID, line.Quantity, line.UnitPrice, line.Subtotal, line.ID, line.SaleID,
	)
	if err != nil {
		return fmt.Errorf("updating line %d: %w", line.ID, err)
	}
	return requireAffected(result, fmt.Sprintf("line %d of sale %d", line.ID, line.SaleID))
}

// UpdateTotal replaces a sale's total.
func (s *Sales) UpdateTotal(ctx context.Context, q sqlx.ExecerContext, id int64, total decimal.Decimal) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sales SET total = ?, updated_at = ? WHERE id = ?`,
		total, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating total of sale %d: %w", id, err)
	}
	return requireAffected(result, fmt.Sprintf("sale %d", id))
}

// UpdatePaymentAmount replaces the amount of one of a sale's payments.
func (s *Sales) UpdatePaymentAmount(ctx context.Context, q sqlx.ExecerContext, saleID, paymentID int64, amount decimal.Decimal) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sale_payments SET amount = ? WHERE id = ? AND sale_id = ?`,
		amount, paymentID, saleID,
	)
	if err != nil {
		return fmt.Errorf("updating payment %d: %w", paymentID, err)
	}
	return requireAffected(result, fmt.Sprintf("payment %d of sale %d", paymentID, saleID))
}
