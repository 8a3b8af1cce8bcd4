package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

const productColumns = `id, name, description, COALESCE(image_mime, '') AS image_mime, created_at`

const variantColumns = `v.id, v.product_id, v.sku, v.label, v.unit_cost, v.unit_price,
	v.quantity, v.min_stock, v.active, v.created_at, v.updated_at, p.name AS product_name`

// CreateProduct creates a new product.
func CreateProduct(ctx context.Context, db sqlx.ExtContext, name, description string) (*model.Product, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO products (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product with all of its variants.
func GetProduct(ctx context.Context, db sqlx.QueryerContext, id int64) (*model.Product, error) {
	p := &model.Product{}
	err := sqlx.GetContext(ctx, db, p,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}

	p.Variants, err = ListVariants(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns all products ordered by name, without variants.
func ListProducts(ctx context.Context, db sqlx.QueryerContext) ([]model.Product, error) {
	var products []model.Product
	err := sqlx.SelectContext(ctx, db, &products,
		`SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// SetProductImage sets a product's image data.
func SetProductImage(ctx context.Context, db sqlx.ExecerContext, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products SET image = ?, image_mime = ? WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting product image: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("product %d", id))
}

// GetProductImage returns a product's image data and MIME type.
func GetProductImage(ctx context.Context, db sqlx.QueryerContext, id int64) ([]byte, string, error) {
	var row struct {
		Image []byte         `db:"image"`
		Mime  sql.NullString `db:"image_mime"`
	}
	err := sqlx.GetContext(ctx, db, &row,
		`SELECT image, image_mime FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product image: %w", err)
	}
	return row.Image, row.Mime.String, nil
}

// CreateVariant adds a variant to a product. A non-zero initial quantity is
// booked as a restock movement in the same transaction.
func CreateVariant(ctx context.Context, db *sqlx.DB, v model.Variant) (*model.Variant, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO variants (product_id, sku, label, unit_cost, unit_price, quantity, min_stock, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ProductID, v.SKU, v.Label, v.UnitCost, v.UnitPrice, v.Quantity, v.MinStock, now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("sku %q already exists: %w", v.SKU, apperrors.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("creating variant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting variant id: %w", err)
	}

	if v.Quantity != 0 {
		err = insertMovement(ctx, tx, model.StockMovement{
			VariantID: id,
			Delta:     v.Quantity,
			Reason:    model.StockReasonRestock,
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing variant: %w", err)
	}

	return GetVariant(ctx, db, id)
}

// GetVariant returns a variant by ID, active or not.
func GetVariant(ctx context.Context, db sqlx.QueryerContext, id int64) (*model.Variant, error) {
	v := &model.Variant{}
	err := sqlx.GetContext(ctx, db, v,
		`SELECT `+variantColumns+`
		 FROM variants v JOIN products p ON p.id = v.product_id
		 WHERE v.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("variant %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting variant: %w", err)
	}
	return v, nil
}

// ListVariants returns a product's variants ordered by SKU.
func ListVariants(ctx context.Context, db sqlx.QueryerContext, productID int64) ([]model.Variant, error) {
	var variants []model.Variant
	err := sqlx.SelectContext(ctx, db, &variants,
		`SELECT `+variantColumns+`
		 FROM variants v JOIN products p ON p.id = v.product_id
		 WHERE v.product_id = ? ORDER BY v.sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	return variants, nil
}

// DeactivateVariant hides a variant from sale. Variants are never deleted
// because sale lines and stock movements reference them.
func DeactivateVariant(ctx context.Context, db sqlx.ExecerContext, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE variants SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("deactivating variant: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("variant %d", id))
}

// requireAffected turns a write that matched no row into ErrNotFound.
func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
