package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/blagajna/internal/apperrors"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps a store or ledger error onto a status code. Domain errors
// carry their own message; anything else is logged and reported as msg.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrInvalidState):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(msg, "error", err, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryDate parses a YYYY-MM-DD query parameter as midnight in loc. An
// absent parameter yields the zero time.
func queryDate(r *http.Request, name string, loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	return t, err == nil
}

// dateRange reads ?from=&to= as an inclusive day range and returns it as a
// half-open interval.
func dateRange(w http.ResponseWriter, r *http.Request, loc *time.Location) (from, to time.Time, ok bool) {
	from, okFrom := queryDate(r, "from", loc)
	to, okTo := queryDate(r, "to", loc)
	if !okFrom || !okTo {
		jsonError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		jsonError(w, http.StatusBadRequest, "from must not be after to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
