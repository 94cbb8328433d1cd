package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/services"

	"gorm.io/gorm"
)

// OrderHandler covers conversion and fulfilment of orders.
type OrderHandler struct {
	DB         *gorm.DB
	Converter  *services.Converter
	Aggregator *services.Aggregator
}

func NewOrderHandler(db *gorm.DB, conv *services.Converter, agg *services.Aggregator) *OrderHandler {
	return &OrderHandler{DB: db, Converter: conv, Aggregator: agg}
}

// List handles GET /orders scoped to the actor's organization.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	limit, offset := pagination(r)
	dbq := h.DB.Where("organization_id = ?", user.OrganizationID)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Model(&models.Order{}).Count(&total)
	var orders []models.Order
	if err := dbq.Preload("Items").Order("id desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "total": total, "limit": limit, "offset": offset})
}

// Convert handles POST /orders/convert?quote_id=N.
func (h *OrderHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	quoteID, ok := queryID(r, "quote_id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_quote_id", nil)
		return
	}
	order, err := h.Converter.Convert(r.Context(), uid, quoteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

type deliverInput struct {
	DeliveredAt *time.Time `json:"delivered_at"`
}

// Deliver handles POST /orders/deliver?id=N. Acts as the webhook target for
// the fulfilment side; savings finalization happens behind it.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if _, ok := actorID(r); !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in deliverInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	at := time.Now()
	if in.DeliveredAt != nil {
		at = *in.DeliveredAt
	}
	order, err := h.Aggregator.Deliver(r.Context(), id, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
