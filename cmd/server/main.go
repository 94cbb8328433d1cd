package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/partsdesk/procurement-app/internal/collab"
	"github.com/partsdesk/procurement-app/internal/config"
	"github.com/partsdesk/procurement-app/internal/db"
	"github.com/partsdesk/procurement-app/internal/logger"
	"github.com/partsdesk/procurement-app/internal/server"
	"github.com/partsdesk/procurement-app/internal/services"
	"github.com/joho/godotenv"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	slogger := logger.New()

	// Load configuration from environment
	cfg := config.Load()

	// Connect to database; migrations and seeding run as part of the connect.
	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		log.Println("Migrations completed successfully")
		return
	}

	if *rebuildSavingsFlag {
		runRebuildSavings(dbConn, cfg, slogger)
		return
	}

	opts := server.Options{
		Email:         collab.LogSender{},
		Strategy:      services.StrategyFromName(cfg.SavingsStrategy),
		CollabTimeout: cfg.CollabTimeout,
		Log:           slogger,
	}

	// Gemini-backed price extraction is opt-in; without a key, inbound
	// messages are stored but never priced automatically.
	if cfg.GeminiAPIKey != "" {
		extractor, err := collab.NewGeminiExtractor(context.Background(), cfg.GeminiAPIKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatalf("Failed to initialize price extractor: %v", err)
		}
		defer extractor.Close()
		opts.Prices = extractor
	}

	handler := server.New(dbConn, opts)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slogger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slogger.Info("shutdown signal received")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("error during shutdown", "err", err)
	}
	slogger.Info("server stopped gracefully")
}
