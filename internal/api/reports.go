package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/report"
)

// ReportsHandler serves read-only sales reports.
type ReportsHandler struct {
	Reporter *report.Reporter
}

// Daily handles GET /api/reports/daily?from=&to=. Without a range it covers
// the last 30 days.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeOrLast(w, r, 30)
	if !ok {
		return
	}

	periods, err := h.Reporter.Daily(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err, "failed to build daily report")
		return
	}
	if periods == nil {
		periods = []report.Period{}
	}
	jsonResponse(w, http.StatusOK, periods)
}

// Monthly handles GET /api/reports/monthly?year=YYYY (default: this year).
func (h *ReportsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	year := time.Now().In(h.Reporter.Location()).Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			jsonError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	months, err := h.Reporter.Monthly(r.Context(), year)
	if err != nil {
		writeError(w, r, err, "failed to build monthly report")
		return
	}
	jsonResponse(w, http.StatusOK, months)
}

// Sellers handles GET /api/reports/sellers?from=&to=.
func (h *ReportsHandler) Sellers(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeOrLast(w, r, 30)
	if !ok {
		return
	}

	stats, err := h.Reporter.Sellers(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err, "failed to build seller report")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Payments handles GET /api/reports/payments?from=&to=.
func (h *ReportsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeOrLast(w, r, 30)
	if !ok {
		return
	}

	totals, err := h.Reporter.Payments(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err, "failed to build payment report")
		return
	}
	jsonResponse(w, http.StatusOK, totals)
}

// LowStock handles GET /api/reports/low-stock.
func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	variants, err := h.Reporter.LowStock(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to build low stock report")
		return
	}
	if variants == nil {
		variants = []model.Variant{}
	}
	jsonResponse(w, http.StatusOK, variants)
}

// rangeOrLast reads ?from=&to= and falls back to the last days days,
// today included.
func (h *ReportsHandler) rangeOrLast(w http.ResponseWriter, r *http.Request, days int) (time.Time, time.Time, bool) {
	loc := h.Reporter.Location()
	from, to, ok := dateRange(w, r, loc)
	if !ok {
		return from, to, false
	}
	if from.IsZero() && to.IsZero() {
		now := time.Now().In(loc)
		to = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
		from = to.AddDate(0, 0, -days)
	}
	return from, to, true
}
