package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"github.com/partsdesk/procurement-app/internal/config"
	"github.com/partsdesk/procurement-app/internal/services"
	"gorm.io/gorm"
)

var rebuildSavingsFlag = flag.Bool("rebuild-savings", false, "Rebuild monthly savings rollups from the contribution ledger and exit")

// runRebuildSavings drops every monthly rollup and replays the contribution
// ledger. Safe to run while the app is stopped; the ledger itself is never
// touched.
func runRebuildSavings(dbConn *gorm.DB, cfg config.Config, logger *slog.Logger) {
	agg := services.NewAggregator(dbConn, services.NewDBPartCatalog(dbConn), services.StrategyFromName(cfg.SavingsStrategy), logger)
	if err := agg.RebuildMonthly(context.Background()); err != nil {
		log.Fatalf("Savings rebuild failed: %v", err)
	}
	log.Println("Monthly savings rollups rebuilt from ledger")
}
