package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/partsdesk/procurement-app/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbi, err := gorm.Open(sqlite.Open("file:h_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbi.AutoMigrate(&models.Supplier{}, &models.SupplierThread{}, &models.Part{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbi
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestSupplierCreateValidation(t *testing.T) {
	h := NewSupplierHandler(setupHandlerDB(t))

	rr := postJSON(t, h.Create, "/suppliers", map[string]any{"name": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400 got %d", rr.Code)
	}

	rr = postJSON(t, h.Create, "/suppliers", map[string]any{"name": "Acme", "rating": 6.0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("rating 6: expected 400 got %d", rr.Code)
	}

	rr = postJSON(t, h.Create, "/suppliers", map[string]any{
		"name": " Acme Parts ", "contact_email": "sales@acme.test", "rating": 4.5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", rr.Code, rr.Body.String())
	}
	var sup models.Supplier
	if err := json.Unmarshal(rr.Body.Bytes(), &sup); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sup.Name != "Acme Parts" {
		t.Fatalf("name not trimmed: %q", sup.Name)
	}
}

func TestSupplierListSearchSanitized(t *testing.T) {
	dbi := setupHandlerDB(t)
	h := NewSupplierHandler(dbi)
	for _, name := range []string{"Acme Parts", "Bolt Brothers"} {
		if err := dbi.Create(&models.Supplier{Name: name}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// The quote and semicolon are stripped before the LIKE, so this still
	// matches Acme instead of erroring or matching nothing.
	req := httptest.NewRequest(http.MethodGet, "/suppliers?q=acme%27%3B", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Items []models.Supplier `json:"items"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 1 || len(out.Items) != 1 || out.Items[0].Name != "Acme Parts" {
		t.Fatalf("search result = %+v", out)
	}
}

func TestSupplierDeleteGuardsReferences(t *testing.T) {
	dbi := setupHandlerDB(t)
	h := NewSupplierHandler(dbi)

	used := models.Supplier{Name: "In Use"}
	idle := models.Supplier{Name: "Idle"}
	if err := dbi.Create(&used).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := dbi.Create(&idle).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := dbi.Create(&models.SupplierThread{QuoteRequestID: 1, SupplierID: used.ID, Status: models.ThreadStatusSent}).Error; err != nil {
		t.Fatalf("thread: %v", err)
	}

	rr := postJSON(t, h.Delete, fmt.Sprintf("/suppliers/delete?id=%d", used.ID), map[string]any{})
	if rr.Code != http.StatusConflict {
		t.Fatalf("referenced supplier: expected 409 got %d", rr.Code)
	}

	rr = postJSON(t, h.Delete, fmt.Sprintf("/suppliers/delete?id=%d", idle.ID), map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("idle supplier: expected 200 got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, h.Delete, "/suppliers/delete?id=9999", map[string]any{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing supplier: expected 404 got %d", rr.Code)
	}
}
