package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/booking"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/upload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps store and backend errors to a status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, booking.ErrSlotFull):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, upload.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, app.ErrInvalidSessionID),
		errors.Is(err, booking.ErrInvalidSlot),
		errors.Is(err, booking.ErrMissingSlot),
		errors.Is(err, booking.ErrInvalidPrice),
		errors.Is(err, booking.ErrWrongKind),
		errors.Is(err, backend.ErrUnsupported),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, errMissingFile):
		badRequest(w, err.Error())
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": apiErr.Message, "upstream_status": apiErr.Status})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
