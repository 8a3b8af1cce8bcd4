package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/model"
)

// seedVariant creates a product with one variant holding quantity units.
func seedVariant(t *testing.T, database *sqlx.DB, sku string, quantity, minStock int) *model.Variant {
	t.Helper()
	ctx := context.Background()

	p, err := CreateProduct(ctx, database, "Product "+sku, "")
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	v, err := CreateVariant(ctx, database, model.Variant{
		ProductID: p.ID,
		SKU:       sku,
		UnitCost:  decimal.NewFromInt(60),
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  quantity,
		MinStock:  minStock,
	})
	if err != nil {
		t.Fatalf("CreateVariant: %v", err)
	}
	return v
}

func seedSeller(t *testing.T, database *sqlx.DB, username string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}
