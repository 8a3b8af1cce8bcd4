package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale. A sale starts completed and can
// only move to cancelled; only cancelled sales may be deleted.
type SaleStatus string

// Sale statuses.
const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SaleStatus) Valid() bool {
	return s == SaleStatusCompleted || s == SaleStatusCancelled
}

// PaymentMethod is how (part of) a sale was paid.
type PaymentMethod string

// Payment methods.
const (
	PaymentCash        PaymentMethod = "cash"
	PaymentDebit       PaymentMethod = "debit"
	PaymentCredit      PaymentMethod = "credit"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentWallet      PaymentMethod = "wallet"
	PaymentStoreCredit PaymentMethod = "store_credit"
	PaymentOther       PaymentMethod = "other"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{
	PaymentCash, PaymentDebit, PaymentCredit, PaymentTransfer,
	PaymentWallet, PaymentStoreCredit, PaymentOther,
}

// Sale is one recorded transaction with its lines and payments.
type Sale struct {
	ID        int64           `json:"id" db:"id"`
	SellerID  int64           `json:"seller_id" db:"seller_id"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Status    SaleStatus      `json:"status" db:"status"`
	Note      string          `json:"note,omitempty" db:"note"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`

	Lines    []SaleLine    `json:"lines" db:"-"`
	Payments []SalePayment `json:"payments" db:"-"`

	// Joined fields (not always populated).
	SellerName string `json:"seller_name,omitempty" db:"seller_name"`
}

// PaidTotal sums the sale's payments.
func (s *Sale) PaidTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// LinesTotal sums the sale's line subtotals.
func (s *Sale) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

// Line returns the line with the given ID, or nil.
func (s *Sale) Line(id int64) *SaleLine {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return &s.Lines[i]
		}
	}
	return nil
}

// SaleLine is one variant sold at the unit price captured at sale time.
type SaleLine struct {
	ID        int64           `json:"id" db:"id"`
	SaleID    int64           `json:"sale_id" db:"sale_id"`
	Position  int             `json:"position" db:"position"`
	VariantID int64           `json:"variant_id" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// SalePayment is one tender applied to a sale. A sale may be split across
// several payments.
type SalePayment struct {
	ID        int64           `json:"id" db:"id"`
	SaleID    int64           `json:"sale_id" db:"sale_id"`
	Position  int             `json:"position" db:"position"`
	Method    PaymentMethod   `json:"method" db:"method"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Reference string          `json:"reference,omitempty" db:"reference"`
}
