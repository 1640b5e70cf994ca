package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quarrydesk/quarrydesk/internal/analytics"
	"github.com/quarrydesk/quarrydesk/internal/finance"
	jobmetrics "github.com/quarrydesk/quarrydesk/internal/jobs"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

// AnalyticsWarmer is the slice of the finance service the warmup job drives.
type AnalyticsWarmer interface {
	GetPeriodMetrics(ctx context.Context, filter analytics.Filter) (finance.PeriodMetrics, error)
	GetDailyTrend(ctx context.Context, filter analytics.Filter) ([]finance.DailyRow, error)
	GetComparativePeriod(ctx context.Context, filter analytics.Filter) (finance.Comparison, error)
}

// AnalyticsWarmupJob pre-populates the finance caches for the current month
// so the first dashboard hit after an invalidation stays fast.
type AnalyticsWarmupJob struct {
	Analytics AnalyticsWarmer
	Sites     SiteSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc AnalyticsWarmer, sites SiteSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: analyticsSvc,
		Sites:     sites,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PeriodScope == "" {
		payload.PeriodScope = "current"
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("period_scope", payload.PeriodScope))
	logger.Info("starting analytics warmup")

	now := j.now()
	rng, err := currentMonthRange(now)
	if err != nil {
		resultErr = err
		return resultErr
	}

	sites, err := j.fetchSites(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load warmup sites", slog.Any("error", err))
		return resultErr
	}

	// The all-sites view first, then each site's own dashboard.
	warmed := 0
	if err := j.warmScope(ctx, nil, rng); err != nil {
		resultErr = err
		logger.Error("warm all-sites scope", slog.Any("error", err))
		return resultErr
	}
	warmed++
	for _, siteID := range sites {
		site := siteID
		if err := j.warmScope(ctx, &site, rng); err != nil {
			resultErr = err
			logger.Error("warm scope", slog.Int64("site_id", siteID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed analytics warmup", slog.Int("scopes", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *AnalyticsWarmupJob) warmScope(ctx context.Context, siteID *int64, rng shared.DateRange) error {
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	filter := analytics.Filter{SiteID: siteID, Range: rng}
	if _, err := j.Analytics.GetPeriodMetrics(scopeCtx, filter); err != nil {
		return err
	}
	if _, err := j.Analytics.GetDailyTrend(scopeCtx, filter); err != nil {
		return err
	}
	if _, err := j.Analytics.GetComparativePeriod(scopeCtx, filter); err != nil {
		return err
	}
	return nil
}

func (j *AnalyticsWarmupJob) fetchSites(ctx context.Context) ([]int64, error) {
	if j.Sites == nil {
		return nil, nil
	}
	return j.Sites.ListActiveSites(ctx)
}

// currentMonthRange spans month start through today. On the first of the
// month this is a single day, so a per-site warm persists a snapshot for the
// still-open day; that write is the same recompute the nightly close performs
// and the close overwrites it with the final figure.
func currentMonthRange(now time.Time) (shared.DateRange, error) {
	return shared.RangeOf(shared.MonthStart(now), shared.Day(now))
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
