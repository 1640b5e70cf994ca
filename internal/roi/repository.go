package roi

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for capital configs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCapitalConfig returns the site's investment profile, or nil when none
// has been recorded.
func (r *Repository) GetCapitalConfig(ctx context.Context, siteID int64) (*CapitalConfig, error) {
	const query = `
		SELECT site_id, initial_investment, operations_start_date,
			monthly_fixed_costs, daily_production_capacity, target_profit_margin_pct
		FROM site_capital_configs
		WHERE site_id = $1`

	var cfg CapitalConfig
	var start time.Time
	err := r.pool.QueryRow(ctx, query, siteID).Scan(
		&cfg.SiteID,
		&cfg.InitialInvestment,
		&start,
		&cfg.MonthlyFixedCosts,
		&cfg.DailyProductionCapacity,
		&cfg.TargetProfitMarginPct,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.OperationsStartDate = start.UTC()
	return &cfg, nil
}

// SaveCapitalConfig upserts the site's investment profile.
func (r *Repository) SaveCapitalConfig(ctx context.Context, cfg CapitalConfig) error {
	const query = `
		INSERT INTO site_capital_configs (
			site_id, initial_investment, operations_start_date,
			monthly_fixed_costs, daily_production_capacity, target_profit_margin_pct, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (site_id) DO UPDATE SET
			initial_investment = EXCLUDED.initial_investment,
			operations_start_date = EXCLUDED.operations_start_date,
			monthly_fixed_costs = EXCLUDED.monthly_fixed_costs,
			daily_production_capacity = EXCLUDED.daily_production_capacity,
			target_profit_margin_pct = EXCLUDED.target_profit_margin_pct,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		cfg.SiteID,
		cfg.InitialInvestment,
		cfg.OperationsStartDate,
		cfg.MonthlyFixedCosts,
		cfg.DailyProductionCapacity,
		cfg.TargetProfitMarginPct,
	)
	return err
}
