package services

import (
	"context"
	"time"

	"github.com/partsdesk/procurement-app/internal/models"
	"github.com/partsdesk/procurement-app/internal/money"

	"gorm.io/gorm"
)

// SavingsSummary is an aggregate over one or more monthly records. The
// percent and average are always recomputed from the summed cumulative
// columns; averaging the per-record percentages would weight small months
// the same as large ones.
type SavingsSummary struct {
	TotalSavings    money.Money `json:"total_savings"`
	ManualCost      money.Money `json:"manual_cost"`
	PlatformCost    money.Money `json:"platform_cost"`
	OrdersProcessed int         `json:"orders_processed"`
	SavingsPercent  money.Money `json:"savings_percent"`
	AvgOrderValue   money.Money `json:"avg_order_value"`
}

// MonthlySavings is one month's slice of a window report.
type MonthlySavings struct {
	Month int `json:"month"`
	Year  int `json:"year"`
	SavingsSummary
}

// OrgSavings is one organization's aggregate in a cross-organization report.
type OrgSavings struct {
	OrganizationID uint `json:"organization_id"`
	SavingsSummary
}

// SavingsReport is the windowed view for one organization.
type SavingsReport struct {
	Summary SavingsSummary   `json:"summary"`
	Months  []MonthlySavings `json:"months"`
}

// Reporter is the read-only reporting surface over the monthly rollup.
type Reporter struct {
	DB *gorm.DB
}

func NewReporter(db *gorm.DB) *Reporter { return &Reporter{DB: db} }

// Window reports the trailing N months for one organization, newest month
// first, with an overall summary recomputed from the sums.
func (r *Reporter) Window(ctx context.Context, orgID uint, months int) (*SavingsReport, error) {
	records, err := r.windowRecords(ctx, months, "organization_id = ?", orgID)
	if err != nil {
		return nil, err
	}

	report := &SavingsReport{
		Summary: summarize(records),
		Months:  make([]MonthlySavings, 0, len(records)),
	}
	for _, rec := range records {
		report.Months = append(report.Months, MonthlySavings{
			Month:          rec.Month,
			Year:           rec.Year,
			SavingsSummary: summarize([]models.CostSavingsRecord{rec}),
		})
	}
	return report, nil
}

// AllOrganizations reports the trailing N months grouped per organization.
func (r *Reporter) AllOrganizations(ctx context.Context, months int) ([]OrgSavings, error) {
	records, err := r.windowRecords(ctx, months, "")
	if err != nil {
		return nil, err
	}

	byOrg := map[uint][]models.CostSavingsRecord{}
	order := []uint{}
	for _, rec := range records {
		if _, seen := byOrg[rec.OrganizationID]; !seen {
			order = append(order, rec.OrganizationID)
		}
		byOrg[rec.OrganizationID] = append(byOrg[rec.OrganizationID], rec)
	}

	out := make([]OrgSavings, 0, len(order))
	for _, id := range order {
		out = append(out, OrgSavings{
			OrganizationID: id,
			SavingsSummary: summarize(byOrg[id]),
		})
	}
	return out, nil
}

func (r *Reporter) windowRecords(ctx context.Context, months int, cond string, args ...any) ([]models.CostSavingsRecord, error) {
	if months < 1 {
		months = 1
	}
	now := time.Now()
	// Month index arithmetic keeps the cutoff comparable in SQL across
	// year boundaries.
	cutoff := now.Year()*12 + int(now.Month()) - (months - 1)

	q := r.DB.WithContext(ctx).
		Where("(year * 12 + month) >= ?", cutoff).
		Order("organization_id, year DESC, month DESC")
	if cond != "" {
		q = q.Where(cond, args...)
	}

	var records []models.CostSavingsRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func summarize(records []models.CostSavingsRecord) SavingsSummary {
	var s SavingsSummary
	s.TotalSavings = money.Zero
	s.ManualCost = money.Zero
	s.PlatformCost = money.Zero
	for _, rec := range records {
		s.TotalSavings = s.TotalSavings.Add(rec.TotalSavings)
		s.ManualCost = s.ManualCost.Add(rec.ManualCost)
		s.PlatformCost = s.PlatformCost.Add(rec.PlatformCost)
		s.OrdersProcessed += rec.OrdersProcessed
	}
	s.SavingsPercent = money.Percent(s.TotalSavings, s.ManualCost)
	s.AvgOrderValue = money.SafeDivide(s.PlatformCost, money.FromInt(int64(s.OrdersProcessed)), 2)
	return s
}
