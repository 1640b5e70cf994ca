package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads over the transactional store.
// Every query filters by site when a site is provided; a nil site means the
// administrator-level all-sites view.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func optionalSite(siteID *int64) pgtype.Int8 {
	if siteID == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *siteID, Valid: true}
}

// ListSales returns sales whose sale date falls inside [from, to] inclusive.
func (r *Repository) ListSales(ctx context.Context, siteID *int64, from, to time.Time) ([]SaleRecord, error) {
	const query = `
		SELECT id, site_id, product_category, quantity, unit_price,
			commission_per_unit, include_land_rate, payment_status,
			sale_date, payment_received_at
		FROM quarry_sales
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND sale_date BETWEEN $2 AND $3
		ORDER BY sale_date, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

// ListCollections returns sales whose payment was received inside [from, to]
// but whose sale date precedes from. These are the collection events of the
// period; excluding sales dated in-period prevents double counting revenue.
func (r *Repository) ListCollections(ctx context.Context, siteID *int64, from, to time.Time) ([]SaleRecord, error) {
	const query = `
		SELECT id, site_id, product_category, quantity, unit_price,
			commission_per_unit, include_land_rate, payment_status,
			sale_date, payment_received_at
		FROM quarry_sales
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND payment_received_at BETWEEN $2 AND $3
			AND sale_date < $2
		ORDER BY payment_received_at, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

func scanSales(rows pgx.Rows) ([]SaleRecord, error) {
	var sales []SaleRecord
	for rows.Next() {
		var s SaleRecord
		var received pgtype.Timestamptz
		if err := rows.Scan(
			&s.ID,
			&s.SiteID,
			&s.ProductCategory,
			&s.Quantity,
			&s.UnitPrice,
			&s.CommissionPerUnit,
			&s.IncludeLandRate,
			&s.PaymentStatus,
			&s.SaleDate,
			&received,
		); err != nil {
			return nil, err
		}
		if received.Valid {
			t := received.Time
			s.PaymentReceivedAt = &t
		}
		s.FeeClass = ClassifyProduct(s.ProductCategory)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// ListExpenses returns manual expenses recorded inside [from, to].
func (r *Repository) ListExpenses(ctx context.Context, siteID *int64, from, to time.Time) ([]ManualExpenseRecord, error) {
	const query = `
		SELECT id, site_id, category, description, amount, expense_date
		FROM quarry_expenses
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND expense_date BETWEEN $2 AND $3
		ORDER BY expense_date, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []ManualExpenseRecord
	for rows.Next() {
		var e ManualExpenseRecord
		if err := rows.Scan(&e.ID, &e.SiteID, &e.Category, &e.Description, &e.Amount, &e.ExpenseDate); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListFuelUsage returns fuel logs recorded inside [from, to].
func (r *Repository) ListFuelUsage(ctx context.Context, siteID *int64, from, to time.Time) ([]FuelUsageRecord, error) {
	const query = `
		SELECT id, site_id, old_stock, new_stock, machines_loaded, wheel_loaders_loaded, usage_date
		FROM fuel_logs
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND usage_date BETWEEN $2 AND $3
		ORDER BY usage_date, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []FuelUsageRecord
	for rows.Next() {
		var f FuelUsageRecord
		if err := rows.Scan(&f.ID, &f.SiteID, &f.OldStock, &f.NewStock, &f.MachinesLoaded, &f.WheelLoadersLoaded, &f.UsageDate); err != nil {
			return nil, err
		}
		logs = append(logs, f)
	}
	return logs, rows.Err()
}

// ListBanking returns cash deposits made inside [from, to].
func (r *Repository) ListBanking(ctx context.Context, siteID *int64, from, to time.Time) ([]BankingRecord, error) {
	const query = `
		SELECT id, site_id, amount_banked, banking_date
		FROM banking_records
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND banking_date BETWEEN $2 AND $3
		ORDER BY banking_date, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BankingRecord
	for rows.Next() {
		var b BankingRecord
		if err := rows.Scan(&b.ID, &b.SiteID, &b.AmountBanked, &b.BankingDate); err != nil {
			return nil, err
		}
		records = append(records, b)
	}
	return records, rows.Err()
}

// ListPrepayments returns customer deposits received inside [from, to].
func (r *Repository) ListPrepayments(ctx context.Context, siteID *int64, from, to time.Time) ([]PrepaymentRecord, error) {
	const query = `
		SELECT id, site_id, customer_name, total_amount_paid, prepayment_date
		FROM prepayments
		WHERE deleted_at IS NULL
			AND ($1::bigint IS NULL OR site_id = $1)
			AND prepayment_date BETWEEN $2 AND $3
		ORDER BY prepayment_date, id`

	rows, err := r.pool.Query(ctx, query, optionalSite(siteID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PrepaymentRecord
	for rows.Next() {
		var p PrepaymentRecord
		if err := rows.Scan(&p.ID, &p.SiteID, &p.CustomerName, &p.TotalAmountPaid, &p.PrepaymentDate); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// GetFeeConfig returns the site fee schedule. Missing configuration is a
// valid state and yields a zero config.
func (r *Repository) GetFeeConfig(ctx context.Context, siteID int64) (FeeConfig, error) {
	const query = `
		SELECT site_id, loaders_fee_rate, land_rate_fee_rate, rejects_fee_rate, fuel_cost_per_liter
		FROM site_fee_configs
		WHERE site_id = $1`

	var cfg FeeConfig
	err := r.pool.QueryRow(ctx, query, siteID).Scan(
		&cfg.SiteID,
		&cfg.LoadersFeeRate,
		&cfg.LandRateFeeRate,
		&cfg.RejectsFeeRate,
		&cfg.FuelCostPerLiter,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FeeConfig{SiteID: siteID}, nil
	}
	if err != nil {
		return FeeConfig{}, err
	}
	return cfg, nil
}

// ListFeeConfigs returns every site's fee schedule, used by the all-sites view.
func (r *Repository) ListFeeConfigs(ctx context.Context) (FeeSchedule, error) {
	const query = `
		SELECT site_id, loaders_fee_rate, land_rate_fee_rate, rejects_fee_rate, fuel_cost_per_liter
		FROM site_fee_configs`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule := make(FeeSchedule)
	for rows.Next() {
		var cfg FeeConfig
		if err := rows.Scan(
			&cfg.SiteID,
			&cfg.LoadersFeeRate,
			&cfg.LandRateFeeRate,
			&cfg.RejectsFeeRate,
			&cfg.FuelCostPerLiter,
		); err != nil {
			return nil, err
		}
		schedule[cfg.SiteID] = cfg
	}
	return schedule, rows.Err()
}

// ListActiveSites returns the IDs of sites still operating, used by the
// end-of-day close and cache warmup jobs.
func (r *Repository) ListActiveSites(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM sites WHERE active ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
