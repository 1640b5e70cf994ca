// Package analytichttp exposes the finance analytics endpoints consumed by
// the dashboard, the clerk report, and the trend charts.
package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/quarrydesk/quarrydesk/internal/analytics"
	"github.com/quarrydesk/quarrydesk/internal/finance"
	"github.com/quarrydesk/quarrydesk/internal/platform/httpx"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

const requestTimeout = 5 * time.Second

// FinanceService defines the analytics contract used by the handler.
type FinanceService interface {
	GetPeriodMetrics(ctx context.Context, filter analytics.Filter) (finance.PeriodMetrics, error)
	GetDailyTrend(ctx context.Context, filter analytics.Filter) ([]finance.DailyRow, error)
	GetComparativePeriod(ctx context.Context, filter analytics.Filter) (finance.Comparison, error)
}

// Handler coordinates HTTP requests for finance analytics.
type Handler struct {
	logger   *slog.Logger
	service  FinanceService
	validate *validator.Validate
	csvPool  sync.Pool
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service FinanceService) *Handler {
	h := &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type filterQuery struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
	Site string `validate:"omitempty,number"`
}

func (h *Handler) parseFilter(r *http.Request) (analytics.Filter, error) {
	q := filterQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
		Site: r.URL.Query().Get("site"),
	}
	if err := h.validate.Struct(q); err != nil {
		return analytics.Filter{}, fmt.Errorf("%w: from and to must be YYYY-MM-DD dates", httpx.ErrValidation)
	}
	rng, err := shared.NewDateRange(q.From, q.To)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidRange) {
			return analytics.Filter{}, fmt.Errorf("%w: to precedes from", httpx.ErrValidation)
		}
		return analytics.Filter{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	filter := analytics.Filter{Range: rng}
	if q.Site != "" {
		siteID, err := strconv.ParseInt(q.Site, 10, 64)
		if err != nil || siteID <= 0 {
			return analytics.Filter{}, fmt.Errorf("%w: site must be a positive id", httpx.ErrValidation)
		}
		filter.SiteID = &siteID
	}
	return filter, nil
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	metrics, err := h.service.GetPeriodMetrics(ctx, filter)
	if err != nil {
		h.serverError(w, "period metrics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.GetDailyTrend(ctx, filter)
	if err != nil {
		h.serverError(w, "daily trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comparison, err := h.service.GetComparativePeriod(ctx, filter)
	if err != nil {
		h.serverError(w, "comparative period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, comparison)
}

type dashboardResponse struct {
	Metrics    finance.PeriodMetrics `json:"metrics"`
	Trend      []finance.DailyRow    `json:"trend"`
	Comparison finance.Comparison    `json:"comparison"`
}

// handleDashboard fans the three independent reads out concurrently; the
// computations share no mutable state, so they only contend on the store.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var resp dashboardResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resp.Metrics, err = h.service.GetPeriodMetrics(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Trend, err = h.service.GetDailyTrend(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Comparison, err = h.service.GetComparativePeriod(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		h.serverError(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTrendCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.GetDailyTrend(ctx, filter)
	if err != nil {
		h.serverError(w, "trend export", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	buf.WriteString("day,revenue,expenses,net,quantity\n")
	for _, row := range rows {
		buf.WriteString(row.Day.Format(shared.DayLayout))
		for _, v := range []float64{row.Revenue, row.Expenses, row.Net, row.Quantity} {
			buf.WriteByte(',')
			buf.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
		}
		buf.WriteByte('\n')
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="daily-trend.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// serverError maps failures to problem responses. Reads have no failure
// modes of their own, so anything that is not a request defect means the
// backing store is unreachable.
func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnavailable, op))
}
