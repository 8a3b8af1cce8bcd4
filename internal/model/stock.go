package model

import "time"

// StockReason describes why a variant's quantity changed.
type StockReason string

// Stock movement reasons.
const (
	StockReasonSale       StockReason = "sale"
	StockReasonSaleCancel StockReason = "sale_cancel"
	StockReasonSaleEdit   StockReason = "sale_edit"
	StockReasonRestock    StockReason = "restock"
	StockReasonCorrection StockReason = "correction"
)

// StockAdjustment is a signed change to one variant's quantity on hand.
type StockAdjustment struct {
	VariantID int64
	Delta     int
	Reason    StockReason
	SaleID    *int64
}

// StockMovement is the recorded history of a StockAdjustment. SaleID is kept
// after the sale itself is deleted.
type StockMovement struct {
	ID        int64       `json:"id" db:"id"`
	VariantID int64       `json:"variant_id" db:"variant_id"`
	Delta     int         `json:"delta" db:"delta"`
	Reason    StockReason `json:"reason" db:"reason"`
	SaleID    *int64      `json:"sale_id,omitempty" db:"sale_id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
