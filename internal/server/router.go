package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/partsdesk/procurement-app/internal/auth"
	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/handlers"
	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/middleware"
	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"
	"github.com/partsdesk/procurement-app/internal/policy"
	"github.com/partsdesk/procurement-app/internal/services"

	"gorm.io/gorm"
)

// Options carries the collaborator implementations the router wires into the
// services. Zero values fall back to dev-friendly defaults.
type Options struct {
	Email         collab.EmailClient
	Prices        collab.PriceExtractor
	Strategy      services.RecordingStrategy
	CollabTimeout time.Duration
	Log           *slog.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, opts Options) http.Handler {
	if opts.Email == nil {
		opts.Email = collab.LogSender{}
	}
	if opts.Prices == nil {
		// No extraction model configured: every message reads as unpriced.
		opts.Prices = collab.ExtractorFunc(func(context.Context, string, []collab.Attachment) (*money.Money, error) {
			return nil, nil
		})
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	mux := http.NewServeMux()

	// RequireAuth checks the user still exists before trusting the session.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	authz := policy.NewGateAuthorizer(db, 5*time.Minute)
	catalog := services.NewDBPartCatalog(db)
	quoteSvc := services.NewQuoteService(db, authz, opts.Email, opts.CollabTimeout)
	extractor := services.NewExtractor(db, opts.Email, opts.Prices, opts.Log, opts.CollabTimeout)
	converter := services.NewConverter(db, authz, catalog)
	aggregator := services.NewAggregator(db, catalog, opts.Strategy, opts.Log)
	reporter := services.NewReporter(db)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)
	mux.Handle("/profile/password", protect(http.HandlerFunc(authHandler.ChangePassword)))

	// Supplier directory (thin CRUD)
	sh := handlers.NewSupplierHandler(db)
	mux.Handle("/suppliers", protect(listCreate(sh.List, sh.Create)))
	mux.Handle("/suppliers/update", protect(http.HandlerFunc(sh.Update)))
	mux.Handle("/suppliers/delete", protect(http.HandlerFunc(sh.Delete)))

	// Part catalog (thin CRUD)
	ph := handlers.NewPartHandler(db)
	mux.Handle("/parts", protect(listCreate(ph.List, ph.Create)))
	mux.Handle("/parts/update", protect(http.HandlerFunc(ph.Update)))

	// Quote lifecycle
	qh := handlers.NewQuoteHandler(db, quoteSvc)
	mux.Handle("/quotes", protect(listCreate(qh.List, qh.Create)))
	mux.Handle("/quotes/get", protect(http.HandlerFunc(qh.Get)))
	mux.Handle("/quotes/items", protect(postOnly(qh.AddItem)))
	mux.Handle("/quotes/items/update", protect(postOnly(qh.UpdateItem)))
	mux.Handle("/quotes/items/delete", protect(postOnly(qh.RemoveItem)))
	mux.Handle("/quotes/send", protect(postOnly(qh.Send)))
	mux.Handle("/quotes/review", protect(postOnly(qh.RequestReview)))
	mux.Handle("/quotes/approve", protect(postOnly(qh.Approve)))
	mux.Handle("/quotes/reject", protect(postOnly(qh.Reject)))
	mux.Handle("/quotes/select-supplier", protect(postOnly(qh.SelectSupplier)))
	mux.Handle("/quotes/best-price", protect(http.HandlerFunc(qh.BestPrice)))
	mux.Handle("/quotes/threads", protect(http.HandlerFunc(qh.Threads)))

	// Price extraction trigger
	eh := handlers.NewExtractionHandler(extractor)
	mux.Handle("/quotes/extract", protect(http.HandlerFunc(eh.Run)))

	// Orders
	oh := handlers.NewOrderHandler(db, converter, aggregator)
	mux.Handle("/orders", protect(http.HandlerFunc(oh.List)))
	mux.Handle("/orders/convert", protect(http.HandlerFunc(oh.Convert)))
	mux.Handle("/orders/deliver", protect(http.HandlerFunc(oh.Deliver)))

	// Savings reports
	rh := handlers.NewSavingsHandler(db, reporter, authz)
	mux.Handle("/reports/savings", protect(http.HandlerFunc(rh.Window)))
	mux.Handle("/reports/savings/all", protect(http.HandlerFunc(rh.AllOrganizations)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"service": "procurement-app"})
	})

	return withRecover(middleware.RequestLog(opts.Log)(mux))
}

func protect(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireAuth(next))
}

func listCreate(list, create http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}

func postOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
