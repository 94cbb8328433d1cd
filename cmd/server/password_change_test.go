package main

import (
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/partsdesk/procurement-app/internal/models"
)

func TestPasswordChangeSuccessE2E(t *testing.T) {
	dbi := setupE2EDB(t)
	app := newE2EServer(dbi, &scriptedMail{})
	sess := signupManager(t, app, dbi, "pwd@example.com")

	rr := do(t, app, http.MethodPost, "/profile/password", sess, map[string]any{
		"current": "SuperSecret1",
		"new":     "EvenMoreSecret2",
		"confirm": "EvenMoreSecret2",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rr.Code, rr.Body.String())
	}

	var u models.User
	if err := dbi.Where("email = ?", "pwd@example.com").First(&u).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("EvenMoreSecret2")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}

	// Old password no longer logs in.
	rr = do(t, app, http.MethodPost, "/login", nil, map[string]any{
		"email": "pwd@example.com", "password": "SuperSecret1",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("old password login: expected 401 got %d", rr.Code)
	}
}

func TestPasswordChangeWrongCurrentE2E(t *testing.T) {
	dbi := setupE2EDB(t)
	app := newE2EServer(dbi, &scriptedMail{})
	sess := signupManager(t, app, dbi, "pwd2@example.com")

	rr := do(t, app, http.MethodPost, "/profile/password", sess, map[string]any{
		"current": "NotTheRightOne",
		"new":     "EvenMoreSecret2",
		"confirm": "EvenMoreSecret2",
	})
	if rr.Code == http.StatusOK {
		t.Fatalf("expected rejection, got 200")
	}

	var u models.User
	if err := dbi.Where("email = ?", "pwd2@example.com").First(&u).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("SuperSecret1")); err != nil {
		t.Fatalf("original password should be untouched: %v", err)
	}
}
