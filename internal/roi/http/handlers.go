// Package roihttp exposes the ROI analysis endpoints.
package roihttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quarrydesk/quarrydesk/internal/platform/httpx"
	"github.com/quarrydesk/quarrydesk/internal/roi"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

const requestTimeout = 10 * time.Second

// ROIService defines the analysis contract used by the handler.
type ROIService interface {
	Analyze(ctx context.Context, siteID int64, from, to *time.Time) (roi.Analysis, error)
}

// ConfigStore persists capital configuration updates.
type ConfigStore interface {
	SaveCapitalConfig(ctx context.Context, cfg roi.CapitalConfig) error
}

// CacheBumper invalidates cached analytics after a config change.
type CacheBumper interface {
	BumpCache(ctx context.Context) error
}

// Handler coordinates HTTP requests for the ROI view.
type Handler struct {
	logger   *slog.Logger
	service  ROIService
	configs  ConfigStore
	cache    CacheBumper
	validate *validator.Validate
}

// NewHandler constructs the ROI HTTP handler.
func NewHandler(logger *slog.Logger, service ROIService, configs ConfigStore, cache CacheBumper) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		configs:  configs,
		cache:    cache,
		validate: validator.New(),
	}
}

// MountRoutes registers ROI endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/finance/roi", h.handleAnalysis)
	r.Put("/finance/roi/config", h.handleSaveConfig)
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	siteID, err := parseSite(r.URL.Query().Get("site"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := parseOptionalDay(r.URL.Query().Get("from"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := parseOptionalDay(r.URL.Query().Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	analysis, err := h.service.Analyze(ctx, siteID, from, to)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("roi analysis", slog.Int64("site_id", siteID), slog.Any("error", err))
		}
		httpx.RespondError(w, storeError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

type configPayload struct {
	SiteID                  int64   `json:"siteId" validate:"required,gt=0"`
	InitialInvestment       float64 `json:"initialInvestment" validate:"gte=0"`
	OperationsStartDate     string  `json:"operationsStartDate" validate:"required,datetime=2006-01-02"`
	MonthlyFixedCosts       float64 `json:"monthlyFixedCosts" validate:"gte=0"`
	DailyProductionCapacity float64 `json:"dailyProductionCapacity" validate:"gte=0"`
	TargetProfitMarginPct   float64 `json:"targetProfitMarginPct" validate:"gte=0,lte=100"`
}

func (h *Handler) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var payload configPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	start, err := shared.ParseDay(payload.OperationsStartDate)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: operationsStartDate must be YYYY-MM-DD", httpx.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cfg := roi.CapitalConfig{
		SiteID:                  payload.SiteID,
		InitialInvestment:       payload.InitialInvestment,
		OperationsStartDate:     start,
		MonthlyFixedCosts:       payload.MonthlyFixedCosts,
		DailyProductionCapacity: payload.DailyProductionCapacity,
		TargetProfitMarginPct:   payload.TargetProfitMarginPct,
	}
	if err := h.configs.SaveCapitalConfig(ctx, cfg); err != nil {
		if h.logger != nil {
			h.logger.Error("save capital config", slog.Int64("site_id", cfg.SiteID), slog.Any("error", err))
		}
		httpx.RespondError(w, storeError(err))
		return
	}
	if h.cache != nil {
		if err := h.cache.BumpCache(ctx); err != nil && h.logger != nil {
			h.logger.Warn("bump analytics cache", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

// storeError keeps sentinel errors intact and flags everything else as a
// backing-store failure.
func storeError(err error) error {
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
}

func parseSite(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: site is required", httpx.ErrValidation)
	}
	siteID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || siteID <= 0 {
		return 0, fmt.Errorf("%w: site must be a positive id", httpx.ErrValidation)
	}
	return siteID, nil
}

func parseOptionalDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := shared.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: dates must be YYYY-MM-DD", httpx.ErrValidation)
	}
	return &day, nil
}
