// Package analytics orchestrates the finance reads behind dashboards,
// clerk reports, and trend charts. All arithmetic lives in the pure
// finance package; this layer only fetches records, resolves the balance
// chain, and caches results.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/quarrydesk/quarrydesk/internal/finance"
	"github.com/quarrydesk/quarrydesk/internal/ledger"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

// Repository exposes the transactional store reads the service relies on.
// A nil site selects the administrator all-sites view.
type Repository interface {
	ListSales(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.SaleRecord, error)
	ListCollections(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.SaleRecord, error)
	ListExpenses(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.ManualExpenseRecord, error)
	ListFuelUsage(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.FuelUsageRecord, error)
	ListBanking(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.BankingRecord, error)
	ListPrepayments(ctx context.Context, siteID *int64, from, to time.Time) ([]ledger.PrepaymentRecord, error)
	GetFeeConfig(ctx context.Context, siteID int64) (ledger.FeeConfig, error)
	ListFeeConfigs(ctx context.Context) (ledger.FeeSchedule, error)
}

// BalanceSource resolves opening balances and extends the snapshot chain.
type BalanceSource interface {
	RangeOpeningBalance(ctx context.Context, siteID *int64, rng shared.DateRange) (float64, error)
	Persist(ctx context.Context, siteID int64, day time.Time, closingBalance float64) error
}

// Filter scopes one analytics request.
type Filter struct {
	SiteID *int64
	Range  shared.DateRange
}

// Service coordinates repository reads, balance resolution, and the cache.
type Service struct {
	repo     Repository
	balances BalanceSource
	cache    *Cache
	logger   *slog.Logger
}

// NewService wires the service dependencies. The cache may be nil, in which
// case every call recomputes.
func NewService(repo Repository, balances BalanceSource, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, balances: balances, cache: cache, logger: logger}
}

// GetPeriodMetrics returns the canonical period figures. Generating a
// single-day report additionally persists that day's closing balance,
// extending the chain for the following day.
func (s *Service) GetPeriodMetrics(ctx context.Context, filter Filter) (finance.PeriodMetrics, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.computePeriod(ctx, filter)
	}

	key, err := s.cache.BuildKey(ctx, keyMetrics(filter.SiteID, filter.Range)...)
	if err != nil {
		return finance.PeriodMetrics{}, err
	}
	var metrics finance.PeriodMetrics
	if err := s.cache.FetchJSON(ctx, key, &metrics, loader); err != nil {
		return finance.PeriodMetrics{}, err
	}
	return metrics, nil
}

// GetDailyTrend returns one row per calendar day in the range, gap-filled
// with zeros so chart axes stay contiguous.
func (s *Service) GetDailyTrend(ctx context.Context, filter Filter) ([]finance.DailyRow, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		inputs, err := s.loadInputs(ctx, filter)
		if err != nil {
			return nil, err
		}
		return finance.BuildDailyBreakdown(filter.Range, inputs), nil
	}

	key, err := s.cache.BuildKey(ctx, keyTrend(filter.SiteID, filter.Range)...)
	if err != nil {
		return nil, err
	}
	var rows []finance.DailyRow
	if err := s.cache.FetchJSON(ctx, key, &rows, loader); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetComparativePeriod recomputes the formula for the immediately preceding
// period of equal length and reports the deltas.
func (s *Service) GetComparativePeriod(ctx context.Context, filter Filter) (finance.Comparison, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		current, err := s.computePeriod(ctx, filter)
		if err != nil {
			return nil, err
		}
		previous, err := s.computePeriod(ctx, Filter{SiteID: filter.SiteID, Range: filter.Range.Previous()})
		if err != nil {
			return nil, err
		}
		return finance.Compare(current, previous), nil
	}

	key, err := s.cache.BuildKey(ctx, keyCompare(filter.SiteID, filter.Range)...)
	if err != nil {
		return finance.Comparison{}, err
	}
	var comparison finance.Comparison
	if err := s.cache.FetchJSON(ctx, key, &comparison, loader); err != nil {
		return finance.Comparison{}, err
	}
	return comparison, nil
}

// BumpCache invalidates every cached analysis.
func (s *Service) BumpCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) computePeriod(ctx context.Context, filter Filter) (finance.PeriodMetrics, error) {
	inputs, err := s.loadInputs(ctx, filter)
	if err != nil {
		return finance.PeriodMetrics{}, err
	}

	opening, err := s.balances.RangeOpeningBalance(ctx, filter.SiteID, filter.Range)
	if err != nil {
		return finance.PeriodMetrics{}, err
	}
	inputs.OpeningBalance = opening

	metrics := finance.ComputePeriodMetrics(inputs)

	if filter.Range.SingleDay() && filter.SiteID != nil {
		if err := s.balances.Persist(ctx, *filter.SiteID, filter.Range.From, metrics.NetIncome); err != nil {
			return finance.PeriodMetrics{}, err
		}
		s.logger.Debug("closing balance persisted",
			slog.Int64("site_id", *filter.SiteID),
			slog.String("day", shared.DayKey(filter.Range.From)),
			slog.Float64("closing_balance", metrics.NetIncome),
		)
	}

	return metrics, nil
}

func (s *Service) loadInputs(ctx context.Context, filter Filter) (finance.PeriodInputs, error) {
	from, to := filter.Range.From, filter.Range.To
	inputs := finance.PeriodInputs{}
	var err error

	if inputs.Sales, err = s.repo.ListSales(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}
	if inputs.Collections, err = s.repo.ListCollections(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}
	if inputs.Manual, err = s.repo.ListExpenses(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}
	if inputs.Fuel, err = s.repo.ListFuelUsage(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}
	if inputs.Banking, err = s.repo.ListBanking(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}
	if inputs.Prepayments, err = s.repo.ListPrepayments(ctx, filter.SiteID, from, to); err != nil {
		return finance.PeriodInputs{}, err
	}

	if filter.SiteID != nil {
		cfg, err := s.repo.GetFeeConfig(ctx, *filter.SiteID)
		if err != nil {
			return finance.PeriodInputs{}, err
		}
		inputs.Fees = ledger.FeeSchedule{cfg.SiteID: cfg}
	} else {
		if inputs.Fees, err = s.repo.ListFeeConfigs(ctx); err != nil {
			return finance.PeriodInputs{}, err
		}
	}

	return inputs, nil
}
