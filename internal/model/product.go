package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product groups the sellable variants of one catalog entry.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	ImageMime   string    `json:"image_mime,omitempty" db:"image_mime"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	Variants []Variant `json:"variants,omitempty" db:"-"`
}

// Variant is a purchasable unit of a product (a size, color or SKU) and the
// unit stock is tracked against. Quantity has no floor: a sale may drive it
// below zero when recorded and physical inventory have drifted.
type Variant struct {
	ID        int64           `json:"id" db:"id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	SKU       string          `json:"sku" db:"sku"`
	Label     string          `json:"label,omitempty" db:"label"`
	UnitCost  decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity  int             `json:"quantity" db:"quantity"`
	MinStock  int             `json:"min_stock" db:"min_stock"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`

	// Joined fields (not always populated).
	ProductName string `json:"product_name,omitempty" db:"product_name"`
}

// BelowMinimum reports whether the variant should appear on a low-stock listing.
func (v Variant) BelowMinimum() bool {
	return v.Quantity <= v.MinStock
}
