package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

// VariantsHandler handles variant and stock endpoints.
type VariantsHandler struct {
	DB    *sqlx.DB
	Stock *store.Stock
}

type createVariantRequest struct {
	SKU       string          `json:"sku"`
	Label     string          `json:"label"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	MinStock  int             `json:"min_stock"`
}

type adjustStockRequest struct {
	Delta  int               `json:"delta"`
	Reason model.StockReason `json:"reason"`
}

type adjustStockResponse struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// Create handles POST /api/products/{id}/variants.
func (h *VariantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req createVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SKU = strings.TrimSpace(req.SKU)
	switch {
	case req.SKU == "":
		jsonError(w, http.StatusBadRequest, "sku required")
		return
	case req.UnitCost.IsNegative() || req.UnitPrice.IsNegative():
		jsonError(w, http.StatusBadRequest, "prices must not be negative")
		return
	case req.Quantity < 0 || req.MinStock < 0:
		jsonError(w, http.StatusBadRequest, "quantity and min_stock must not be negative")
		return
	}

	if _, err := store.GetProduct(r.Context(), h.DB, productID); err != nil {
		writeError(w, r, err, "failed to get product")
		return
	}

	variant, err := store.CreateVariant(r.Context(), h.DB, model.Variant{
		ProductID: productID,
		SKU:       req.SKU,
		Label:     strings.TrimSpace(req.Label),
		UnitCost:  req.UnitCost,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		MinStock:  req.MinStock,
	})
	if err != nil {
		writeError(w, r, err, "failed to create variant")
		return
	}

	slog.Info("variant created", "user", GetClaims(r.Context()).Username, "sku", variant.SKU, "quantity", variant.Quantity)
	jsonResponse(w, http.StatusCreated, variant)
}

// Get handles GET /api/variants/{id}.
func (h *VariantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	variant, err := h.Stock.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "failed to get variant")
		return
	}
	jsonResponse(w, http.StatusOK, variant)
}

// Deactivate handles DELETE /api/variants/{id}.
func (h *VariantsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	if err := store.DeactivateVariant(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err, "failed to deactivate variant")
		return
	}

	slog.Info("variant deactivated", "user", GetClaims(r.Context()).Username, "variant_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "variant deactivated"})
}

// AdjustStock handles POST /api/variants/{id}/stock: a manual restock or
// correction outside of any sale.
func (h *VariantsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}
	switch req.Reason {
	case "":
		req.Reason = model.StockReasonRestock
		if req.Delta < 0 {
			req.Reason = model.StockReasonCorrection
		}
	case model.StockReasonRestock, model.StockReasonCorrection:
	default:
		jsonError(w, http.StatusBadRequest, "reason must be restock or correction")
		return
	}

	qty, err := h.Stock.Apply(r.Context(), model.StockAdjustment{
		VariantID: id,
		Delta:     req.Delta,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, r, err, "failed to adjust stock")
		return
	}

	slog.Info("stock adjusted", "user", GetClaims(r.Context()).Username,
		"variant_id", id, "delta", req.Delta, "reason", req.Reason, "quantity", qty)
	jsonResponse(w, http.StatusOK, adjustStockResponse{VariantID: id, Quantity: qty})
}

// Movements handles GET /api/variants/{id}/movements?limit=N.
func (h *VariantsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if _, err := h.Stock.Get(r.Context(), id); err != nil {
		writeError(w, r, err, "failed to get variant")
		return
	}

	movements, err := h.Stock.Movements(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err, "failed to list stock movements")
		return
	}
	if movements == nil {
		movements = []model.StockMovement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
