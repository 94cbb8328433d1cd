package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/partsdesk/procurement-app/internal/auth"
	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/services"

	"gorm.io/gorm"
)

// actorID pulls the authenticated user from the request context, falling back
// to the raw session cookie for handlers mounted outside the middleware.
func actorID(r *http.Request) (uint, bool) {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid != 0 {
		return uid, true
	}
	if uid, ok := auth.ParseSession(r); ok && uid != 0 {
		return uid, true
	}
	return 0, false
}

// queryID parses a numeric query parameter ("id", "item_id", ...).
func queryID(r *http.Request, name string) (uint, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pagination reads limit/page query params with the usual caps.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrPermissionDenied):
		httpx.JSONError(w, http.StatusForbidden, "permission_denied", nil)
	case errors.Is(err, services.ErrAlreadyConverted):
		httpx.JSONError(w, http.StatusConflict, "already_converted", nil)
	case errors.Is(err, services.ErrAmountConflict):
		httpx.JSONError(w, http.StatusConflict, "amount_conflict", nil)
	case errors.Is(err, services.ErrMissingSelection):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "missing_selection", err.Error())
	case errors.Is(err, services.ErrInvalidState):
		httpx.JSONError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
