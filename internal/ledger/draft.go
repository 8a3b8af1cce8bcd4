package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/apperrors"
	"github.com/erazemk/blagajna/internal/model"
)

// LineInput is one requested line of a sale. UnitPrice is the price the
// caller charged; it is stored as given.
type LineInput struct {
	VariantID int64           `json:"variant_id" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"nonnegative"`
}

// PaymentInput is one requested payment of a sale.
type PaymentInput struct {
	Method    model.PaymentMethod `json:"method" validate:"required,oneof=cash debit credit transfer wallet store_credit other"`
	Amount    decimal.Decimal     `json:"amount" validate:"positive"`
	Reference string              `json:"reference,omitempty" validate:"max=120"`
}

// DraftInput is everything needed to build a Draft.
type DraftInput struct {
	SellerID int64          `json:"seller_id" validate:"gt=0"`
	Note     string         `json:"note,omitempty" validate:"max=500"`
	Lines    []LineInput    `json:"lines" validate:"required,min=1,dive"`
	Payments []PaymentInput `json:"payments" validate:"dive"`
}

// Draft is a validated sale ready to be created. The zero Draft is not
// valid; build one with NewDraft.
type Draft struct {
	sellerID int64
	note     string
	total    decimal.Decimal
	lines    []model.SaleLine
	payments []model.SalePayment
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Money is compared exactly, never through float64.
	v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	})
	v.RegisterValidation("nonnegative", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !d.IsNegative()
	})

	// Report JSON names in errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return v
}

// NewDraft validates in and computes line subtotals and the sale total.
// Lines and payments keep their order.
func NewDraft(in DraftInput) (Draft, error) {
	if err := validate.Struct(in); err != nil {
		return Draft{}, validationError(err)
	}

	d := Draft{
		sellerID: in.SellerID,
		note:     strings.TrimSpace(in.Note),
		total:    decimal.Zero,
		lines:    make([]model.SaleLine, len(in.Lines)),
		payments: make([]model.SalePayment, len(in.Payments)),
	}

	for i, l := range in.Lines {
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		d.lines[i] = model.SaleLine{
			Position:  i + 1,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  subtotal,
		}
		d.total = d.total.Add(subtotal)
	}

	for i, p := range in.Payments {
		d.payments[i] = model.SalePayment{
			Position:  i + 1,
			Method:    p.Method,
			Amount:    p.Amount,
			Reference: strings.TrimSpace(p.Reference),
		}
	}

	return d, nil
}

// SellerID returns the seller the sale is recorded for.
func (d Draft) SellerID() int64 { return d.sellerID }

// Total returns the sum of the line subtotals.
func (d Draft) Total() decimal.Decimal { return d.total }

// Lines returns a copy of the draft's lines.
func (d Draft) Lines() []model.SaleLine {
	return append([]model.SaleLine(nil), d.lines...)
}

// Payments returns a copy of the draft's payments.
func (d Draft) Payments() []model.SalePayment {
	return append([]model.SalePayment(nil), d.payments...)
}

// Paid returns the sum of the draft's payments.
func (d Draft) Paid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range d.payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func (d Draft) valid() bool {
	return d.sellerID > 0 && len(d.lines) > 0
}

// validationError flattens validator errors into one ErrValidation message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the top-level struct name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		switch {
		case fe.Param() != "":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		case fe.Tag() == "positive", fe.Tag() == "nonnegative":
			msgs = append(msgs, fmt.Sprintf("%s must be %s", field, fe.Tag()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
}
