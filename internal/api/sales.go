package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/ledger"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

// SalesHandler exposes the ledger over HTTP.
type SalesHandler struct {
	Ledger   *ledger.Ledger
	Sales    *store.Sales
	Location *time.Location
}

type createSaleRequest struct {
	Note     string                `json:"note"`
	Lines    []ledger.LineInput    `json:"lines"`
	Payments []ledger.PaymentInput `json:"payments"`
}

type updateNoteRequest struct {
	Note string `json:"note"`
}

// updateLineRequest changes the quantity, or moves the line onto another
// variant when variant_id is set.
type updateLineRequest struct {
	Quantity  *int             `json:"quantity"`
	VariantID *int64           `json:"variant_id"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type updatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Create handles POST /api/sales. The caller is recorded as the seller.
func (h *SalesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft, err := ledger.NewDraft(ledger.DraftInput{
		SellerID: GetClaims(r.Context()).UserID,
		Note:     req.Note,
		Lines:    req.Lines,
		Payments: req.Payments,
	})
	if err != nil {
		writeError(w, r, err, "invalid sale")
		return
	}

	sale, err := h.Ledger.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err, "failed to create sale")
		return
	}
	jsonResponse(w, http.StatusCreated, sale)
}

// List handles GET /api/sales?status=&from=&to=. Dates are YYYY-MM-DD and
// inclusive. Without a status all sales in the range are returned.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r, h.Location)
	if !ok {
		return
	}

	status := model.SaleStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "status must be completed or cancelled")
		return
	}

	var (
		sales []model.Sale
		err   error
	)
	if status != "" && from.IsZero() && to.IsZero() {
		sales, err = h.Sales.ListByStatus(r.Context(), status)
	} else {
		sales, err = h.Sales.ListByDateRange(r.Context(), from, to)
		if status != "" {
			sales = filterStatus(sales, status)
		}
	}
	if err != nil {
		writeError(w, r, err, "failed to list sales")
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	jsonResponse(w, http.StatusOK, sales)
}

// Get handles GET /api/sales/{id}.
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	sale, err := h.Sales.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "failed to get sale")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// Cancel handles POST /api/sales/{id}/cancel.
func (h *SalesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	if err := h.Ledger.Cancel(r.Context(), id); err != nil {
		writeError(w, r, err, "failed to cancel sale")
		return
	}

	sale, err := h.Sales.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "failed to get sale")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// Delete handles DELETE /api/sales/{id}.
func (h *SalesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "failed to delete sale")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "sale deleted"})
}

// UpdateNote handles PUT /api/sales/{id}/note.
func (h *SalesHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.Ledger.UpdateNote(r.Context(), id, req.Note)
	if err != nil {
		writeError(w, r, err, "failed to update note")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// UpdateLine handles PUT /api/sales/{id}/lines/{lineID}.
func (h *SalesHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	var req updateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		sale *model.Sale
		err  error
	)
	switch {
	case req.VariantID != nil:
		if req.Quantity != nil {
			jsonError(w, http.StatusBadRequest, "change quantity and variant separately")
			return
		}
		if req.UnitPrice == nil {
			jsonError(w, http.StatusBadRequest, "unit_price required when changing variant")
			return
		}
		sale, err = h.Ledger.ReplaceLineVariant(r.Context(), id, lineID, *req.VariantID, *req.UnitPrice)
	case req.Quantity != nil:
		sale, err = h.Ledger.UpdateLineQuantity(r.Context(), id, lineID, *req.Quantity)
	default:
		jsonError(w, http.StatusBadRequest, "quantity or variant_id required")
		return
	}
	if err != nil {
		writeError(w, r, err, "failed to update line")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// UpdatePayment handles PUT /api/sales/{id}/payments/{paymentID}.
func (h *SalesHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req updatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.Ledger.UpdatePaymentAmount(r.Context(), id, paymentID, req.Amount)
	if err != nil {
		writeError(w, r, err, "failed to update payment")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

func filterStatus(sales []model.Sale, status model.SaleStatus) []model.Sale {
	out := sales[:0]
	for _, s := range sales {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}
