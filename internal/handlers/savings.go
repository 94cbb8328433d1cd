package handlers

import (
	"net/http"
	"strconv"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/policy"
	"github.com/partsdesk/procurement-app/internal/services"

	"gorm.io/gorm"
)

// SavingsHandler is the read-only reporting surface.
type SavingsHandler struct {
	DB       *gorm.DB
	Reporter *services.Reporter
	Authz    policy.Authorizer
}

func NewSavingsHandler(db *gorm.DB, rep *services.Reporter, authz policy.Authorizer) *SavingsHandler {
	return &SavingsHandler{DB: db, Reporter: rep, Authz: authz}
}

func monthsParam(r *http.Request) int {
	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 36 {
			months = n
		}
	}
	return months
}

// Window handles GET /reports/savings?months=N for the actor's organization.
func (h *SavingsHandler) Window(w http.ResponseWriter, r *http.Request) {
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
	report, err := h.Reporter.Window(r.Context(), user.OrganizationID, monthsParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// AllOrganizations handles GET /reports/savings/all?months=N. Cross-tenant
// figures are restricted to approval-authorized actors.
func (h *SavingsHandler) AllOrganizations(w http.ResponseWriter, r *http.Request) {
	uid, ok := actorID(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.Authz.HasApprovalAuthority(r.Context(), uid) {
		httpx.JSONError(w, http.StatusForbidden, "permission_denied", nil)
		return
	}
	rows, err := h.Reporter.AllOrganizations(r.Context(), monthsParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows})
}
