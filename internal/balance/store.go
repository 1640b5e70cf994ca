// Package balance carries daily closing balances forward across the
// (site, day) snapshot chain.
package balance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Snapshot records one site's end-of-day cash in hand.
type Snapshot struct {
	SiteID         int64
	Day            time.Time
	ClosingBalance float64
	UpdatedAt      time.Time
}

// Store provides PostgreSQL backed persistence for snapshots. One row exists
// per (site, day); writes are last-writer-wins, acceptable because every
// writer recomputes the same formula from the same records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the snapshot for one site and day, or nil when none exists.
// Missing history is expected for a site's first operating day.
func (s *Store) Get(ctx context.Context, siteID int64, day time.Time) (*Snapshot, error) {
	const query = `
		SELECT site_id, day, closing_balance, updated_at
		FROM daily_balance_snapshots
		WHERE site_id = $1 AND day = $2`

	var snap Snapshot
	err := s.pool.QueryRow(ctx, query, siteID, day).Scan(&snap.SiteID, &snap.Day, &snap.ClosingBalance, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Latest returns the most recent snapshot strictly before the given day,
// or nil when the site has no earlier history.
func (s *Store) Latest(ctx context.Context, siteID int64, before time.Time) (*Snapshot, error) {
	const query = `
		SELECT site_id, day, closing_balance, updated_at
		FROM daily_balance_snapshots
		WHERE site_id = $1 AND day < $2
		ORDER BY day DESC
		LIMIT 1`

	var snap Snapshot
	err := s.pool.QueryRow(ctx, query, siteID, before).Scan(&snap.SiteID, &snap.Day, &snap.ClosingBalance, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SumLatestPerSite sums, across all sites, each site's most recent closing
// balance strictly before the given day. Used by the all-sites view.
func (s *Store) SumLatestPerSite(ctx context.Context, before time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(closing_balance), 0)
		FROM (
			SELECT DISTINCT ON (site_id) closing_balance
			FROM daily_balance_snapshots
			WHERE day < $1
			ORDER BY site_id, day DESC
		) latest`

	var total float64
	if err := s.pool.QueryRow(ctx, query, before).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Upsert writes a snapshot, updating in place when the (site, day) row
// already exists. An insert racing another writer surfaces as a unique
// violation and falls through to the update path.
func (s *Store) Upsert(ctx context.Context, siteID int64, day time.Time, closingBalance float64) error {
	const insert = `
		INSERT INTO daily_balance_snapshots (site_id, day, closing_balance, updated_at)
		VALUES ($1, $2, $3, NOW())`

	_, err := s.pool.Exec(ctx, insert, siteID, day, closingBalance)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	const update = `
		UPDATE daily_balance_snapshots
		SET closing_balance = $3, updated_at = NOW()
		WHERE site_id = $1 AND day = $2`

	_, err = s.pool.Exec(ctx, update, siteID, day, closingBalance)
	return err
}
