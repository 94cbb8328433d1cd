package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordingStrategy decides which monthly bucket a delivered order's savings
// land in.
type RecordingStrategy interface {
	Name() string
	// Period returns the (month, year) bucket for the order. ok is false
	// when the order lacks the timestamp the strategy needs.
	Period(order *models.Order) (month, year int, ok bool)
}

// DeliveryTimeStrategy buckets savings under the month the order was actually
// delivered. This is the default.
type DeliveryTimeStrategy struct{}

func (DeliveryTimeStrategy) Name() string { return models.StrategyDelivery }

func (DeliveryTimeStrategy) Period(order *models.Order) (int, int, bool) {
	if order.ActualDelivery == nil {
		return 0, 0, false
	}
	return int(order.ActualDelivery.Month()), order.ActualDelivery.Year(), true
}

// CreationTimeStrategy buckets savings under the month the order was created.
//
// Deprecated: creation-time bucketing credits savings before anything was
// delivered. Kept only so historical ledgers recorded under it keep replaying
// into the same months. Use DeliveryTimeStrategy.
type CreationTimeStrategy struct{}

func (CreationTimeStrategy) Name() string { return models.StrategyCreation }

func (CreationTimeStrategy) Period(order *models.Order) (int, int, bool) {
	if order.CreatedAt.IsZero() {
		return 0, 0, false
	}
	return int(order.CreatedAt.Month()), order.CreatedAt.Year(), true
}

// StrategyFromName maps a configuration value to a strategy, defaulting to
// delivery time.
func StrategyFromName(name string) RecordingStrategy {
	if name == models.StrategyCreation {
		return CreationTimeStrategy{}
	}
	return DeliveryTimeStrategy{}
}

// OrderSavings is the per-order comparison of list-price cost to paid cost.
// Only lines with a usable catalog baseline are counted on either side.
type OrderSavings struct {
	ManualCost   money.Money
	PlatformCost money.Money
	Savings      money.Money
}

// Aggregator maintains the monthly cost savings rollup. Finalization is
// idempotent: the per-order contribution ledger carries a unique order index,
// so replaying a delivery is a no-op.
type Aggregator struct {
	DB       *gorm.DB
	Catalog  PartCatalog
	Strategy RecordingStrategy
	Log      *slog.Logger
}

func NewAggregator(db *gorm.DB, catalog PartCatalog, strategy RecordingStrategy, logger *slog.Logger) *Aggregator {
	if strategy == nil {
		strategy = DeliveryTimeStrategy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{DB: db, Catalog: catalog, Strategy: strategy, Log: logger}
}

// OrderSavings computes the savings for one order. Operational lines
// (shipping, tax placeholders) are skipped. Returns nil when no line has a
// usable list price: such orders cannot be compared and contribute nothing.
func (a *Aggregator) OrderSavings(ctx context.Context, order *models.Order) (*OrderSavings, error) {
	items := order.Items
	if len(items) == 0 {
		if err := a.DB.WithContext(ctx).Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return nil, err
		}
	}

	manual := money.Zero
	platform := money.Zero
	counted := false
	for _, it := range items {
		if models.IsOperational(it.PartNumber) {
			continue
		}
		part, err := a.Catalog.GetPart(ctx, it.PartNumber)
		if err != nil {
			return nil, err
		}
		if part == nil {
			continue
		}
		lp, ok := part.ListPrice()
		if !ok {
			continue
		}
		qty := money.FromInt(int64(it.Quantity))
		manual = manual.Add(money.Cents(lp.Mul(qty)))
		// TotalPrice is what was actually paid; recomputing it from the
		// 4-decimal unit price drifts on pro-rated high-quantity lines.
		platform = platform.Add(money.Cents(it.TotalPrice))
		counted = true
	}
	if !counted {
		return nil, nil
	}
	return &OrderSavings{
		ManualCost:   manual,
		PlatformCost: platform,
		Savings:      manual.Sub(platform),
	}, nil
}

// Finalize records a delivered order's savings into the monthly rollup.
// The ledger insert, the rollup increments and the derived-field recompute
// commit in one transaction. Calling it again for the same order is a no-op.
func (a *Aggregator) Finalize(ctx context.Context, order *models.Order) error {
	if order.Status != models.OrderStatusDelivered {
		return fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrInvalidState)
	}
	month, year, ok := a.Strategy.Period(order)
	if !ok {
		return fmt.Errorf("order %d has no %s timestamp: %w", order.ID, a.Strategy.Name(), ErrInvalidState)
	}

	sav, err := a.OrderSavings(ctx, order)
	if err != nil {
		return err
	}
	if sav == nil {
		a.Log.Info("order has no savings baseline, skipping",
			"order_id", order.ID, "organization_id", order.OrganizationID)
		return nil
	}

	return a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SavingsContribution
		err := tx.Where("order_id = ?", order.ID).First(&existing).Error
		if err == nil {
			return nil // already finalized
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		contrib := models.SavingsContribution{
			OrderID:        order.ID,
			OrganizationID: order.OrganizationID,
			Month:          month,
			Year:           year,
			ManualCost:     sav.ManualCost,
			PlatformCost:   sav.PlatformCost,
			Savings:        sav.Savings,
			Strategy:       a.Strategy.Name(),
		}
		if err := tx.Create(&contrib).Error; err != nil {
			// A concurrent finalize can win the unique order index
			// between the probe and the insert. Losing that race is
			// the same no-op as finding the row up front.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			var recheck models.SavingsContribution
			if tx.Where("order_id = ?", order.ID).First(&recheck).Error == nil {
				return nil
			}
			return err
		}

		return applyContribution(tx, &contrib)
	})
}

// applyContribution increments the monthly record for one ledger row and
// recomputes the derived columns from the re-read cumulative values.
func applyContribution(tx *gorm.DB, c *models.SavingsContribution) error {
	// Two first-of-month finalizations can race on creating the rollup row.
	// A probe-then-create would abort the losing transaction on the unique
	// (org, month, year) index and drop its ledger row with it, so the
	// create tolerates the conflict and the row is re-read by key.
	seed := models.CostSavingsRecord{
		OrganizationID: c.OrganizationID,
		Month:          c.Month,
		Year:           c.Year,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return err
	}
	var record models.CostSavingsRecord
	if err := tx.Where("organization_id = ? AND month = ? AND year = ?",
		c.OrganizationID, c.Month, c.Year).First(&record).Error; err != nil {
		return err
	}

	updates := map[string]any{
		"total_savings":    gorm.Expr("total_savings + ?", c.Savings),
		"manual_cost":      gorm.Expr("manual_cost + ?", c.ManualCost),
		"platform_cost":    gorm.Expr("platform_cost + ?", c.PlatformCost),
		"orders_processed": gorm.Expr("orders_processed + 1"),
	}
	if err := tx.Model(&models.CostSavingsRecord{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return err
	}

	var fresh models.CostSavingsRecord
	if err := tx.First(&fresh, record.ID).Error; err != nil {
		return err
	}
	derived := map[string]any{
		"savings_percent": money.Percent(fresh.TotalSavings, fresh.ManualCost),
		"avg_order_value": money.SafeDivide(fresh.PlatformCost, money.FromInt(int64(fresh.OrdersProcessed)), 2),
	}
	return tx.Model(&models.CostSavingsRecord{}).Where("id = ?", fresh.ID).Updates(derived).Error
}

// Deliver marks an order delivered and finalizes its savings. The delivery
// transition stands even when finalization fails: the failure is logged and
// the ledger can be replayed later via RebuildMonthly.
func (a *Aggregator) Deliver(ctx context.Context, orderID uint, at time.Time) (*models.Order, error) {
	res := a.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, []string{models.OrderStatusPending, models.OrderStatusShipped}).
		Updates(map[string]any{
			"status":          models.OrderStatusDelivered,
			"actual_delivery": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var o models.Order
		if err := a.DB.WithContext(ctx).First(&o, orderID).Error; err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrInvalidState)
	}

	var order models.Order
	if err := a.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if err := a.Finalize(ctx, &order); err != nil {
		a.Log.Warn("savings finalization failed, delivery stands",
			"order_id", order.ID, "error", err)
	}
	return &order, nil
}

// RebuildMonthly wipes the monthly rollup and replays the contribution
// ledger, recomputing every record from scratch. Used by the maintenance
// command after strategy changes or suspected drift.
func (a *Aggregator) RebuildMonthly(ctx context.Context) error {
	return a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CostSavingsRecord{}).Error; err != nil {
			return err
		}
		var ledger []models.SavingsContribution
		if err := tx.Order("id").Find(&ledger).Error; err != nil {
			return err
		}
		for i := range ledger {
			if err := applyContribution(tx, &ledger[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
