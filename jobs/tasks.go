package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotClose writes end-of-day balance snapshots per site.
	TaskSnapshotClose = "snapshot:close"
	// TaskAnalyticsWarmup pre-populates the finance caches.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// SnapshotClosePayload scopes an end-of-day close run.
type SnapshotClosePayload struct {
	// Day is the business day to close in YYYY-MM-DD form. Empty means
	// the previous UTC day.
	Day string `json:"day,omitempty"`
	// SiteID restricts the run to one site. Zero means every active site.
	SiteID int64 `json:"siteId,omitempty"`
}

// NewSnapshotCloseTask constructs a snapshot close task. The task ID ties
// duplicate enqueues of the same day together so the queue deduplicates them.
func NewSnapshotCloseTask(payload SnapshotClosePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	id := "snapshot-close-" + payload.Day
	if payload.Day == "" {
		id = "snapshot-close-" + uuid.NewString()
	}
	return asynq.NewTask(TaskSnapshotClose, data, asynq.TaskID(id), asynq.Queue(QueueDefault)), nil
}

// AnalyticsWarmupPayload scopes a cache warmup run.
type AnalyticsWarmupPayload struct {
	// PeriodScope selects which windows to warm. Only "current" is
	// recognised today; empty defaults to it.
	PeriodScope string `json:"periodScope,omitempty"`
}

// NewAnalyticsWarmupTask constructs a cache warmup task.
func NewAnalyticsWarmupTask(payload AnalyticsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data, asynq.TaskID("analytics-warmup-"+uuid.NewString()), asynq.Queue(QueueDefault)), nil
}
