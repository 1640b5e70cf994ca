package roi

import (
	"context"
	"fmt"
	"time"

	"github.com/quarrydesk/quarrydesk/internal/analytics"
	"github.com/quarrydesk/quarrydesk/internal/finance"
	"github.com/quarrydesk/quarrydesk/internal/ledger"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

// ConfigSource resolves the site's capital configuration.
type ConfigSource interface {
	GetCapitalConfig(ctx context.Context, siteID int64) (*CapitalConfig, error)
}

// MetricsSource is the canonical period metrics entry point. ROI goes through
// the same formula as every other consumer so the cumulative profit series
// cannot drift from the dashboard.
type MetricsSource interface {
	GetPeriodMetrics(ctx context.Context, filter analytics.Filter) (finance.PeriodMetrics, error)
}

// FeeSource resolves the per-unit fee rates that make up variable cost.
type FeeSource interface {
	GetFeeConfig(ctx context.Context, siteID int64) (ledger.FeeConfig, error)
}

// Service computes the ROI analysis.
type Service struct {
	configs ConfigSource
	metrics MetricsSource
	fees    FeeSource
	now     func() time.Time
}

// NewService wires the service dependencies.
func NewService(configs ConfigSource, metrics MetricsSource, fees FeeSource) *Service {
	return &Service{
		configs: configs,
		metrics: metrics,
		fees:    fees,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Analyze computes the ROI view for one site. The window defaults to the
// operations start date through today and may be narrowed by from/to.
func (s *Service) Analyze(ctx context.Context, siteID int64, from, to *time.Time) (Analysis, error) {
	cfg, err := s.configs.GetCapitalConfig(ctx, siteID)
	if err != nil {
		return Analysis{}, fmt.Errorf("roi: read capital config: %w", err)
	}
	if cfg == nil || cfg.InitialInvestment <= 0 {
		return Unavailable(siteID, "no investment data recorded for this site"), nil
	}

	lower := shared.Day(cfg.OperationsStartDate)
	upper := shared.Day(s.now())
	if from != nil && from.After(lower) {
		lower = shared.Day(*from)
	}
	if to != nil && to.Before(upper) {
		upper = shared.Day(*to)
	}
	if upper.Before(lower) {
		return Unavailable(siteID, "analysis window precedes operations start"), nil
	}

	var (
		cumulativeNet float64
		totalRevenue  float64
		totalQuantity float64
		monthly       []MonthlyPoint
	)
	for _, month := range shared.EnumerateMonths(lower, upper) {
		rng, ok := shared.ClampRange(month, lower, upper)
		if !ok {
			continue
		}
		metrics, err := s.metrics.GetPeriodMetrics(ctx, analytics.Filter{SiteID: &siteID, Range: rng})
		if err != nil {
			return Analysis{}, fmt.Errorf("roi: month %s: %w", shared.MonthKey(month), err)
		}
		cumulativeNet += metrics.NetIncome
		totalRevenue += metrics.Revenue
		totalQuantity += metrics.QuantitySold
		monthly = append(monthly, MonthlyPoint{
			Month:     shared.MonthKey(month),
			NetIncome: metrics.NetIncome,
			Revenue:   metrics.Revenue,
			Quantity:  metrics.QuantitySold,
		})
	}

	operatingMonths := len(monthly)
	if operatingMonths == 0 {
		operatingMonths = 1
	}
	operatingDays := int(upper.Sub(lower).Hours()/24) + 1

	analysis := Analysis{
		Available:             true,
		SiteID:                siteID,
		InitialInvestment:     cfg.InitialInvestment,
		OperatingMonths:       operatingMonths,
		CumulativeNetProfit:   cumulativeNet,
		TargetProfitMarginPct: cfg.TargetProfitMarginPct,
		Monthly:               monthly,
	}

	analysis.AverageMonthlyProfit = cumulativeNet / float64(operatingMonths)
	analysis.BasicROIPct = finance.SafePercent(cumulativeNet, cfg.InitialInvestment)
	analysis.AnnualizedROIPct = analysis.BasicROIPct * 12 / float64(operatingMonths)
	analysis.ActualMarginPct = finance.SafePercent(cumulativeNet, totalRevenue)

	if analysis.AverageMonthlyProfit > 0 {
		analysis.Recoverable = true
		analysis.PaybackMonths = cfg.InitialInvestment / analysis.AverageMonthlyProfit
	}

	analysis.BreakEven = s.breakEven(ctx, siteID, cfg, totalRevenue, totalQuantity, operatingMonths)

	if cfg.DailyProductionCapacity > 0 {
		avgDailyUnits := totalQuantity / float64(operatingDays)
		analysis.CapacityUtilizationPct = finance.SafePercent(avgDailyUnits, cfg.DailyProductionCapacity)
	}

	return analysis, nil
}

// breakEven runs the contribution-margin analysis. Variable cost per unit is
// the sum of the two fees that scale with quantity sold.
func (s *Service) breakEven(ctx context.Context, siteID int64, cfg *CapitalConfig, totalRevenue, totalQuantity float64, operatingMonths int) BreakEven {
	fees, err := s.fees.GetFeeConfig(ctx, siteID)
	if err != nil {
		// Missing fee config degrades to a zero variable cost; the
		// analysis stays usable.
		fees = ledger.FeeConfig{}
	}

	be := BreakEven{
		AverageSellingPrice: finance.SafeRatio(totalRevenue, totalQuantity),
		VariableCostPerUnit: fees.LoadersFeeRate + fees.LandRateFeeRate,
		AverageMonthlyUnits: totalQuantity / float64(operatingMonths),
	}
	be.ContributionMargin = be.AverageSellingPrice - be.VariableCostPerUnit
	if be.ContributionMargin > 0 && cfg.MonthlyFixedCosts > 0 {
		be.BreakEvenUnits = cfg.MonthlyFixedCosts / be.ContributionMargin
	}
	if be.AverageMonthlyUnits > 0 {
		be.MarginOfSafetyPct = (be.AverageMonthlyUnits - be.BreakEvenUnits) / be.AverageMonthlyUnits * 100
	}
	return be
}
