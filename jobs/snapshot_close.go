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

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// FinanceReader computes period metrics; single-day per-site reads also
// persist the closing balance snapshot for that day.
type FinanceReader interface {
	GetPeriodMetrics(ctx context.Context, filter analytics.Filter) (finance.PeriodMetrics, error)
}

// SiteSource lists the sites the close run should cover.
type SiteSource interface {
	ListActiveSites(ctx context.Context) ([]int64, error)
}

// SnapshotCloseJob writes the end-of-day balance snapshot for each active
// site so the next day's opening balance resolves without recomputation.
type SnapshotCloseJob struct {
	Finance FinanceReader
	Sites   SiteSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSnapshotCloseJob wires dependencies for the close handler.
func NewSnapshotCloseJob(financeSvc FinanceReader, sites SiteSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotCloseJob {
	return &SnapshotCloseJob{
		Finance: financeSvc,
		Sites:   sites,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes snapshot close tasks.
func (j *SnapshotCloseJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Finance == nil {
		return errors.New("snapshot close: handler not configured")
	}
	var payload SnapshotClosePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	day, err := j.resolveDay(payload.Day)
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskSnapshotClose)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("day", day.Format(shared.DayLayout)))
	logger.Info("starting snapshot close")

	sites, err := j.resolveSites(ctx, payload.SiteID)
	if err != nil {
		resultErr = err
		logger.Error("resolve close sites", slog.Any("error", err))
		return resultErr
	}
	if len(sites) == 0 {
		logger.Info("no sites to close")
		return resultErr
	}

	written := 0
	for _, siteID := range sites {
		if err := j.closeSite(ctx, siteID, day); err != nil {
			resultErr = err
			logger.Error("close site", slog.Int64("site_id", siteID), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddSnapshots(siteID, 1)
		written++
	}

	logger.Info("completed snapshot close", slog.Int("snapshots", written))
	return resultErr
}

func (j *SnapshotCloseJob) closeSite(ctx context.Context, siteID int64, day time.Time) error {
	siteCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	rng, err := shared.RangeOf(day, day)
	if err != nil {
		return err
	}
	site := siteID
	_, err = j.Finance.GetPeriodMetrics(siteCtx, analytics.Filter{
		SiteID: &site,
		Range:  rng,
	})
	return err
}

func (j *SnapshotCloseJob) resolveDay(raw string) (time.Time, error) {
	if raw == "" {
		return shared.Day(j.now().AddDate(0, 0, -1)), nil
	}
	return shared.ParseDay(raw)
}

func (j *SnapshotCloseJob) resolveSites(ctx context.Context, siteID int64) ([]int64, error) {
	if siteID > 0 {
		return []int64{siteID}, nil
	}
	if j.Sites == nil {
		return nil, errors.New("snapshot close: site source not configured")
	}
	return j.Sites.ListActiveSites(ctx)
}

func (j *SnapshotCloseJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotClose))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotClose))
}

func (j *SnapshotCloseJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SnapshotCloseJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
