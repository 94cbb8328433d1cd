package handlers

import (
	"net/http"
	"strings"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"

	"gorm.io/gorm"
)

// PartHandler manages the catalog whose list prices anchor the savings
// baseline.
type PartHandler struct {
	DB *gorm.DB
}

func NewPartHandler(db *gorm.DB) *PartHandler { return &PartHandler{DB: db} }

func (h *PartHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Part{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(part_number) LIKE ? OR lower(description) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var parts []models.Part
	if err := dbq.Order("part_number asc").Limit(limit).Offset(offset).Find(&parts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_parts", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": parts, "total": total, "limit": limit, "offset": offset})
}

type partInput struct {
	PartNumber  string  `json:"part_number"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Cost        float64 `json:"cost"`
}

func (h *PartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in partInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	number := strings.TrimSpace(in.PartNumber)
	if number == "" {
		httpx.JSONError(w, http.StatusBadRequest, "part_number_required", nil)
		return
	}
	if in.Price < 0 || in.Cost < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "negative_price", nil)
		return
	}
	part := models.Part{
		PartNumber:  number,
		Description: strings.TrimSpace(in.Description),
		Price:       money.FromFloat(in.Price),
		Cost:        money.FromFloat(in.Cost),
	}
	if err := h.DB.Create(&part).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "part_number_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, part)
}

// Update handles POST /parts/update?id=N.
func (h *PartHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in partInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.Price < 0 || in.Cost < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "negative_price", nil)
		return
	}
	var part models.Part
	if err := h.DB.First(&part, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "part_not_found", nil)
		return
	}
	updates := map[string]any{
		"description": strings.TrimSpace(in.Description),
		"price":       money.FromFloat(in.Price),
		"cost":        money.FromFloat(in.Cost),
	}
	if number := strings.TrimSpace(in.PartNumber); number != "" {
		updates["part_number"] = number
	}
	if err := h.DB.Model(&part).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_part", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, part)
}
