package ledger

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

// Administrative corrections to stored sales. Each runs in its own
// transaction and keeps stock and the sale total consistent with the lines.

// UpdateNote replaces a sale's note. Cancelled sales may be annotated too.
func (l *Ledger) UpdateNote(ctx context.Context, saleID int64, note string) (*model.Sale, error) {
	const op = "updating sale note"
	if len(note) > 500 {
		return nil, fmt.Errorf("%s: note longer than 500 bytes: %w", op, apperrors.ErrValidation)
	}

	err := l.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := l.sales.FindByID(ctx, tx, saleID); err != nil {
			return err
		}
		return l.sales.UpdateNote(ctx, tx, saleID, note)
	})
	if err != nil {
		return nil, err
	}
	return l.reload(ctx, op, saleID)
}

// UpdateLineQuantity changes a line's quantity, moving the difference in or
// out of stock and recomputing the subtotal and sale total.
func (l *Ledger) UpdateLineQuantity(ctx context.Context, saleID, lineID int64, quantity int) (*model.Sale, error) {
	const op = "updating line quantity"
	if quantity <= 0 {
		return nil, fmt.Errorf("%s: quantity must be positive: %w", op, apperrors.ErrValidation)
	}

	var variantID int64
	err := l.inTx(ctx, op, func(tx *sqlx.Tx) error {
		sale, line, err := l.editableLine(ctx, tx, saleID, lineID)
		if err != nil {
			return err
		}
		variantID = line.VariantID

		diff := quantity - line.Quantity
		if diff == 0 {
			return nil
		}
		if _, err := l.stock.Adjust(ctx, tx, model.StockAdjustment{
			VariantID: line.VariantID,
			Delta:     -diff,
			Reason:    model.StockReasonSaleEdit,
			SaleID:    &saleID,
		}); err != nil {
			return err
		}

		line.Quantity = quantity
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		return l.saveLine(ctx, tx, sale, line)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("sale line quantity updated", "sale_id", saleID, "line_id", lineID, "quantity", quantity)
	l.warnLowStock(ctx, []int64{variantID})
	return l.reload(ctx, op, saleID)
}

// ReplaceLineVariant swaps a line onto another variant at the given unit
// price. The old variant gets the line's quantity back and the new one is
// decremented by it.
func (l *Ledger) ReplaceLineVariant(ctx context.Context, saleID, lineID, variantID int64, unitPrice decimal.Decimal) (*model.Sale, error) {
	const op = "replacing line variant"
	if variantID <= 0 {
		return nil, fmt.Errorf("%s: variant is required: %w", op, apperrors.ErrValidation)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%s: unit price must not be negative: %w", op, apperrors.ErrValidation)
	}

	err := l.inTx(ctx, op, func(tx *sqlx.Tx) error {
		sale, line, err := l.editableLine(ctx, tx, saleID, lineID)
		if err != nil {
			return err
		}
		if err := l.requireActive(ctx, tx, variantID); err != nil {
			return err
		}

		if line.VariantID != variantID {
			if _, err := l.stock.Adjust(ctx, tx, model.StockAdjustment{
				VariantID: line.VariantID,
				Delta:     line.Quantity,
				Reason:    model.StockReasonSaleEdit,
				SaleID:    &saleID,
			}); err != nil {
				return err
			}
			if _, err := l.stock.Adjust(ctx, tx, model.StockAdjustment{
				VariantID: variantID,
				Delta:     -line.Quantity,
				Reason:    model.StockReasonSaleEdit,
				SaleID:    &saleID,
			}); err != nil {
				return err
			}
		}

		line.VariantID = variantID
		line.UnitPrice = unitPrice
		line.Subtotal = unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		return l.saveLine(ctx, tx, sale, line)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("sale line variant replaced", "sale_id", saleID, "line_id", lineID, "variant_id", variantID)
	l.warnLowStock(ctx, []int64{variantID})
	return l.reload(ctx, op, saleID)
}

// UpdatePaymentAmount changes the amount of one payment. Stock is unaffected.
func (l *Ledger) UpdatePaymentAmount(ctx context.Context, saleID, paymentID int64, amount decimal.Decimal) (*model.Sale, error) {
	const op = "updating payment amount"
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s: amount must be positive: %w", op, apperrors.ErrValidation)
	}

	err := l.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := l.sales.FindByID(ctx, tx, saleID); err != nil {
			return err
		}
		return l.sales.UpdatePaymentAmount(ctx, tx, saleID, paymentID, amount)
	})
	if err != nil {
		return nil, err
	}

	sale, err := l.reload(ctx, op, saleID)
	if err != nil {
		return nil, err
	}
	l.logger.Info("sale payment updated", "sale_id", saleID, "payment_id", paymentID, "amount", amount.StringFixed(2))
	if paid := sale.PaidTotal(); !paid.Equal(sale.Total) {
		l.logger.Warn("sale payments do not match total",
			"sale_id", saleID, "total", sale.Total.StringFixed(2), "paid", paid.StringFixed(2))
	}
	return sale, nil
}

// editableLine loads a completed sale and one of its lines.
func (l *Ledger) editableLine(ctx context.Context, tx *sqlx.Tx, saleID, lineID int64) (*model.Sale, model.SaleLine, error) {
	sale, err := l.sales.FindByID(ctx, tx, saleID)
	if err != nil {
		return nil, model.SaleLine{}, err
	}
	if sale.Status != model.SaleStatusCompleted {
		return nil, model.SaleLine{}, fmt.Errorf("sale %d is %s, only completed sales can be edited: %w",
			saleID, sale.Status, apperrors.ErrInvalidState)
	}
	line := sale.Line(lineID)
	if line == nil {
		return nil, model.SaleLine{}, fmt.Errorf("line %d of sale %d: %w", lineID, saleID, apperrors.ErrNotFound)
	}
	return sale, *line, nil
}

// saveLine stores an edited line and the sale total that follows from it.
func (l *Ledger) saveLine(ctx context.Context, tx *sqlx.Tx, sale *model.Sale, line model.SaleLine) error {
	if err := l.sales.UpdateLine(ctx, tx, line); err != nil {
		return err
	}
	*sale.Line(line.ID) = line
	return l.sales.UpdateTotal(ctx, tx, sale.ID, sale.LinesTotal())
}
