package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/models"

	"gorm.io/gorm"
)

var searchSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 \-_@.]`)

// SupplierHandler is a thin CRUD surface over the supplier directory. The
// quote core never writes suppliers; fixtures and back-office screens do.
type SupplierHandler struct {
	DB *gorm.DB
}

func NewSupplierHandler(db *gorm.DB) *SupplierHandler { return &SupplierHandler{DB: db} }

func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	dbq := h.DB.Model(&models.Supplier{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(contact_email) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var suppliers []models.Supplier
	if err := dbq.Order("name asc").Limit(limit).Offset(offset).Find(&suppliers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_suppliers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": suppliers, "total": total, "limit": limit, "offset": offset})
}

type supplierInput struct {
	Name         string  `json:"name"`
	ContactName  string  `json:"contact_name"`
	ContactEmail string  `json:"contact_email"`
	Phone        string  `json:"phone"`
	Rating       float64 `json:"rating"`
}

func (in *supplierInput) validate() (string, bool) {
	if strings.TrimSpace(in.Name) == "" {
		return "name_required", false
	}
	if in.Rating < 0 || in.Rating > 5 {
		return "rating_out_of_range", false
	}
	return "", true
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in supplierInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if msg, ok := in.validate(); !ok {
		httpx.JSONError(w, http.StatusBadRequest, msg, nil)
		return
	}
	sup := models.Supplier{
		Name:         strings.TrimSpace(in.Name),
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		Phone:        strings.TrimSpace(in.Phone),
		Rating:       in.Rating,
	}
	if err := h.DB.Create(&sup).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_supplier", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, sup)
}

// Update handles POST /suppliers/update?id=N.
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var in supplierInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if msg, ok := in.validate(); !ok {
		httpx.JSONError(w, http.StatusBadRequest, msg, nil)
		return
	}
	var sup models.Supplier
	if err := h.DB.First(&sup, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "supplier_not_found", nil)
		return
	}
	updates := map[string]any{
		"name":          strings.TrimSpace(in.Name),
		"contact_name":  strings.TrimSpace(in.ContactName),
		"contact_email": strings.TrimSpace(in.ContactEmail),
		"phone":         strings.TrimSpace(in.Phone),
		"rating":        in.Rating,
	}
	if err := h.DB.Model(&sup).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_supplier", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

// Delete handles POST /suppliers/delete?id=N. Suppliers referenced by
// threads or orders stay; this is for typos in the directory.
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var threads int64
	h.DB.Model(&models.SupplierThread{}).Where("supplier_id = ?", id).Count(&threads)
	if threads > 0 {
		httpx.JSONError(w, http.StatusConflict, "supplier_in_use", nil)
		return
	}
	res := h.DB.Delete(&models.Supplier{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_supplier", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "supplier_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
