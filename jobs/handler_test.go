package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

type recordingEnqueuer struct {
	closes  []SnapshotClosePayload
	warmups []AnalyticsWarmupPayload
	err     error
}

func (e *recordingEnqueuer) EnqueueSnapshotClose(_ context.Context, payload SnapshotClosePayload) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.closes = append(e.closes, payload)
	return &asynq.TaskInfo{ID: "snapshot-close-" + payload.Day, Type: TaskSnapshotClose, Queue: QueueDefault}, nil
}

func (e *recordingEnqueuer) EnqueueAnalyticsWarmup(_ context.Context, payload AnalyticsWarmupPayload) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.warmups = append(e.warmups, payload)
	return &asynq.TaskInfo{Type: TaskAnalyticsWarmup, Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer Enqueuer) http.Handler {
	h := NewHandler(nil, enqueuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestEnqueueSnapshotCloseForDay(t *testing.T) {
	enq := &recordingEnqueuer{}
	router := newJobsRouter(enq)

	req := httptest.NewRequest(http.MethodPost, "/jobs/snapshot-close", strings.NewReader(`{"day":"2025-04-01","siteId":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(enq.closes) != 1 {
		t.Fatalf("expected 1 enqueued close, got %d", len(enq.closes))
	}
	if enq.closes[0].Day != "2025-04-01" || enq.closes[0].SiteID != 2 {
		t.Fatalf("unexpected payload: %+v", enq.closes[0])
	}
	if !strings.Contains(rec.Body.String(), TaskSnapshotClose) {
		t.Fatalf("response should name the task type: %s", rec.Body.String())
	}
}

func TestEnqueueSnapshotCloseRejectsBadDay(t *testing.T) {
	enq := &recordingEnqueuer{}
	router := newJobsRouter(enq)

	req := httptest.NewRequest(http.MethodPost, "/jobs/snapshot-close", strings.NewReader(`{"day":"01-04-2025"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(enq.closes) != 0 {
		t.Fatal("nothing should be enqueued on a bad day")
	}
}

func TestEnqueueSnapshotCloseDuplicateDayConflicts(t *testing.T) {
	enq := &recordingEnqueuer{err: asynq.ErrTaskIDConflict}
	router := newJobsRouter(enq)

	req := httptest.NewRequest(http.MethodPost, "/jobs/snapshot-close", strings.NewReader(`{"day":"2025-04-01"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate day, got %d", rec.Code)
	}
}

func TestEnqueueWarmup(t *testing.T) {
	enq := &recordingEnqueuer{}
	router := newJobsRouter(enq)

	req := httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(enq.warmups) != 1 {
		t.Fatalf("expected 1 enqueued warmup, got %d", len(enq.warmups))
	}
}

func TestEnqueueWithoutClientUnavailable(t *testing.T) {
	router := newJobsRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/jobs/snapshot-close", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a queue client, got %d", rec.Code)
	}
}
