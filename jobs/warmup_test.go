package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quarrydesk/quarrydesk/internal/analytics"
	"github.com/quarrydesk/quarrydesk/internal/finance"
)

type recordingWarmer struct {
	metrics []analytics.Filter
	trends  []analytics.Filter
	compare []analytics.Filter
}

func (w *recordingWarmer) GetPeriodMetrics(_ context.Context, filter analytics.Filter) (finance.PeriodMetrics, error) {
	w.metrics = append(w.metrics, filter)
	return finance.PeriodMetrics{}, nil
}

func (w *recordingWarmer) GetDailyTrend(_ context.Context, filter analytics.Filter) ([]finance.DailyRow, error) {
	w.trends = append(w.trends, filter)
	return nil, nil
}

func (w *recordingWarmer) GetComparativePeriod(_ context.Context, filter analytics.Filter) (finance.Comparison, error) {
	w.compare = append(w.compare, filter)
	return finance.Comparison{}, nil
}

func newWarmupJob(warmer *recordingWarmer, sites SiteSource, now time.Time) *AnalyticsWarmupJob {
	job := NewAnalyticsWarmupJob(warmer, sites, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	job.clock = func() time.Time { return now }
	return job
}

func TestWarmupCoversAllSitesScopeThenEachSite(t *testing.T) {
	warmer := &recordingWarmer{}
	now := time.Date(2025, time.April, 15, 7, 0, 0, 0, time.UTC)
	job := newWarmupJob(warmer, staticSites{ids: []int64{1, 2}}, now)

	payload, err := json.Marshal(AnalyticsWarmupPayload{})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(warmer.metrics) != 3 {
		t.Fatalf("expected 3 warmed scopes, got %d", len(warmer.metrics))
	}
	if warmer.metrics[0].SiteID != nil {
		t.Fatal("first scope must be all sites")
	}
	if *warmer.metrics[1].SiteID != 1 || *warmer.metrics[2].SiteID != 2 {
		t.Fatalf("per-site scopes out of order: %+v", warmer.metrics[1:])
	}
	for _, filter := range warmer.metrics {
		if !filter.Range.From.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("range must start at month start, got %v", filter.Range.From)
		}
		if !filter.Range.To.Equal(time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("range must end today, got %v", filter.Range.To)
		}
	}
	if len(warmer.trends) != 3 || len(warmer.compare) != 3 {
		t.Fatalf("every scope warms trend and comparison, got %d/%d", len(warmer.trends), len(warmer.compare))
	}
}

// On the first of a month the window collapses to that single day, which is
// what makes a per-site warm write a provisional snapshot for the open day.
// The handler must still run rather than reject the degenerate range.
func TestWarmupOnFirstOfMonthUsesSingleDayWindow(t *testing.T) {
	warmer := &recordingWarmer{}
	now := time.Date(2025, time.May, 1, 7, 0, 0, 0, time.UTC)
	job := newWarmupJob(warmer, staticSites{ids: []int64{1}}, now)

	payload, err := json.Marshal(AnalyticsWarmupPayload{})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(warmer.metrics) != 2 {
		t.Fatalf("expected all-sites plus one site, got %d scopes", len(warmer.metrics))
	}
	day := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	for _, filter := range warmer.metrics {
		if !filter.Range.From.Equal(day) || !filter.Range.To.Equal(day) {
			t.Fatalf("expected the single day %v, got %v..%v", day, filter.Range.From, filter.Range.To)
		}
	}
}
