// Package report aggregates stored sales. It never writes.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

// Period is one day or month of completed sales.
type Period struct {
	Start time.Time       `json:"start"`
	Sales int             `json:"sales"`
	Units int             `json:"units"`
	Total decimal.Decimal `json:"total"`
}

// SellerStats summarises one seller's sales in a range.
type SellerStats struct {
	SellerID   int64           `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Sales      int             `json:"sales"`
	Cancelled  int             `json:"cancelled"`
	Units      int             `json:"units"`
	Total      decimal.Decimal `json:"total"`
	Average    decimal.Decimal `json:"average"`
}

// MethodTotal is the amount taken with one payment method.
type MethodTotal struct {
	Method   model.PaymentMethod `json:"method"`
	Payments int                 `json:"payments"`
	Amount   decimal.Decimal     `json:"amount"`
}

// Reporter computes reports over the sale repository. Day and month
// boundaries are taken in loc.
type Reporter struct {
	sales *store.Sales
	stock *store.Stock
	loc   *time.Location
}

// New returns a Reporter. A nil loc means UTC.
func New(sales *store.Sales, stock *store.Stock, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{sales: sales, stock: stock, loc: loc}
}

// Location returns the time zone reports are bucketed in.
func (r *Reporter) Location() *time.Location { return r.loc }

// Daily returns one period per day in [from, to) that had completed sales,
// oldest first.
func (r *Reporter) Daily(ctx context.Context, from, to time.Time) ([]Period, error) {
	sales, err := r.completed(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return bucket(sales, func(t time.Time) time.Time {
		t = t.In(r.loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
	}), nil
}

// Monthly returns the twelve months of year, including empty ones.
func (r *Reporter) Monthly(ctx context.Context, year int) ([]Period, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, r.loc)
	sales, err := r.completed(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	months := make([]Period, 12)
	for i := range months {
		months[i] = Period{Start: from.AddDate(0, i, 0), Total: decimal.Zero}
	}
	for _, s := range sales {
		p := &months[s.CreatedAt.In(r.loc).Month()-1]
		p.add(s)
	}
	return months, nil
}

// Sellers returns per-seller totals for [from, to), highest total first.
// Cancelled sales are counted but add nothing to the totals.
func (r *Reporter) Sellers(ctx context.Context, from, to time.Time) ([]SellerStats, error) {
	sales, err := r.sales.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("seller report: %w", err)
	}

	bySeller := map[int64]*SellerStats{}
	for _, s := range sales {
		st, ok := bySeller[s.SellerID]
		if !ok {
			st = &SellerStats{SellerID: s.SellerID, SellerName: s.SellerName, Total: decimal.Zero}
			bySeller[s.SellerID] = st
		}
		if s.Status == model.SaleStatusCancelled {
			st.Cancelled++
			continue
		}
		st.Sales++
		st.Units += units(s)
		st.Total = st.Total.Add(s.Total)
	}

	stats := make([]SellerStats, 0, len(bySeller))
	for _, st := range bySeller {
		st.Average = decimal.Zero
		if st.Sales > 0 {
			st.Average = st.Total.Div(decimal.NewFromInt(int64(st.Sales))).Round(2)
		}
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Total.Cmp(stats[j].Total); c != 0 {
			return c > 0
		}
		return stats[i].SellerID < stats[j].SellerID
	})
	return stats, nil
}

// Payments returns the amount taken per payment method on completed sales in
// [from, to), in the order methods are declared.
func (r *Reporter) Payments(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	sales, err := r.completed(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byMethod := map[model.PaymentMethod]*MethodTotal{}
	for _, s := range sales {
		for _, p := range s.Payments {
			mt, ok := byMethod[p.Method]
			if !ok {
				mt = &MethodTotal{Method: p.Method, Amount: decimal.Zero}
				byMethod[p.Method] = mt
			}
			mt.Payments++
			mt.Amount = mt.Amount.Add(p.Amount)
		}
	}

	totals := make([]MethodTotal, 0, len(byMethod))
	for _, m := range model.PaymentMethods {
		if mt, ok := byMethod[m]; ok {
			totals = append(totals, *mt)
		}
	}
	return totals, nil
}

// LowStock lists active variants at or below their minimum stock.
func (r *Reporter) LowStock(ctx context.Context) ([]model.Variant, error) {
	return r.stock.ListLow(ctx)
}

func (r *Reporter) completed(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	sales, err := r.sales.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}

	n := 0
	for _, s := range sales {
		if s.Status == model.SaleStatusCompleted {
			sales[n] = s
			n++
		}
	}
	return sales[:n], nil
}

func bucket(sales []model.Sale, start func(time.Time) time.Time) []Period {
	byStart := map[int64]*Period{}
	for _, s := range sales {
		key := start(s.CreatedAt)
		p, ok := byStart[key.Unix()]
		if !ok {
			p = &Period{Start: key, Total: decimal.Zero}
			byStart[key.Unix()] = p
		}
		p.add(s)
	}

	periods := make([]Period, 0, len(byStart))
	for _, p := range byStart {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })
	return periods
}

func (p *Period) add(s model.Sale) {
	p.Sales++
	p.Units += units(s)
	p.Total = p.Total.Add(s.Total)
}

func units(s model.Sale) int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
