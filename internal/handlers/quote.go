package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"
	"github.com/partsdesk/procurement-app/internal/services"

	"gorm.io/gorm"
)

// QuoteHandler exposes the quote request lifecycle. Every mutation goes
// through the service; the handler only translates HTTP.
type QuoteHandler struct {
	DB      *gorm.DB
	Svc     *services.QuoteService
	Tracker *services.ThreadTracker
}

func NewQuoteHandler(db *gorm.DB, svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{DB: db, Svc: svc, Tracker: services.NewThreadTracker(db)}
}

// List handles GET /quotes, scoped to the actor's organization with an
// optional status filter.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
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
	dbq.Model(&models.QuoteRequest{}).Count(&total)
	var quotes []models.QuoteRequest
	if err := dbq.Preload("Items").Order("id desc").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": quotes, "total": total, "limit": limit, "offset": offset})
}

type createQuoteInput struct {
	VehicleRef string     `json:"vehicle_ref"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	var in createQuoteInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	q, err := h.Svc.Create(r.Context(), services.CreateQuoteInput{
		OrganizationID: user.OrganizationID,
		CreatedBy:      user.ID,
		VehicleRef:     strings.TrimSpace(in.VehicleRef),
		ExpiryDate:     in.ExpiryDate,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// Get handles GET /quotes/get?id=N.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

type itemInput struct {
	PartNumber  string   `json:"part_number"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
}

func (in itemInput) toService() services.ItemInput {
	out := services.ItemInput{
		PartNumber:  in.PartNumber,
		Description: in.Description,
		Quantity:    in.Quantity,
	}
	if in.UnitPrice != nil {
		p := money.FromFloat(*in.UnitPrice)
		out.UnitPrice = &p
	}
	return out
}

// AddItem handles POST /quotes/items?id=N.
func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in itemInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), uid, id, in.toService())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// UpdateItem handles POST /quotes/items/update?id=N&item_id=M.
func (h *QuoteHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	itemID, ok2 := queryID(r, "item_id")
	if !ok || !ok2 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in itemInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.UpdateItem(r.Context(), uid, id, itemID, in.toService()); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveItem handles POST /quotes/items/delete?id=N&item_id=M.
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	itemID, ok2 := queryID(r, "item_id")
	if !ok || !ok2 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), uid, id, itemID); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type sendInput struct {
	SupplierIDs []uint `json:"supplier_ids"`
}

// Send handles POST /quotes/send?id=N.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in sendInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	q, dispatchErrs, err := h.Svc.Send(r.Context(), uid, id, in.SupplierIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := map[string]any{"quote": q}
	if len(dispatchErrs) > 0 {
		failed := make([]string, 0, len(dispatchErrs))
		for _, e := range dispatchErrs {
			failed = append(failed, e.Ref)
		}
		resp["undelivered_threads"] = failed
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// RequestReview handles POST /quotes/review?id=N.
func (h *QuoteHandler) RequestReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := h.Svc.RequestReview(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": models.QuoteStatusUnderReview})
}

type decisionInput struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// Approve handles POST /quotes/approve?id=N.
func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in decisionInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.Approve(r.Context(), uid, id, in.Notes); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": models.QuoteStatusApproved})
}

// Reject handles POST /quotes/reject?id=N.
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in decisionInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.Reject(r.Context(), uid, id, in.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": models.QuoteStatusRejected})
}

type selectSupplierInput struct {
	SupplierID uint `json:"supplier_id"`
}

// SelectSupplier handles POST /quotes/select-supplier?id=N.
func (h *QuoteHandler) SelectSupplier(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in selectSupplierInput
	if err := httpx.Decode(r, &in); err != nil || in.SupplierID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Svc.SelectSupplier(r.Context(), uid, id, in.SupplierID); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "selected"})
}

// BestPrice handles GET /quotes/best-price?id=N.
func (h *QuoteHandler) BestPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	best, found, err := h.Tracker.BestPrice(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		httpx.JSONError(w, http.StatusNotFound, "no_quotes_received", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, best)
}

// Threads handles GET /quotes/threads?id=N.
func (h *QuoteHandler) Threads(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	threads, err := h.Tracker.ThreadsByQuote(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": threads})
}
