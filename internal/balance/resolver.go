package balance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quarrydesk/quarrydesk/internal/shared"
)

// SnapshotSource is the subset of Store reads the resolver depends on.
type SnapshotSource interface {
	Get(ctx context.Context, siteID int64, day time.Time) (*Snapshot, error)
	Latest(ctx context.Context, siteID int64, before time.Time) (*Snapshot, error)
	SumLatestPerSite(ctx context.Context, before time.Time) (float64, error)
	Upsert(ctx context.Context, siteID int64, day time.Time, closingBalance float64) error
}

// Resolver reads and extends the balance chain. Day N's opening balance is
// day N-1's closing balance, or 0 when no earlier snapshot exists.
type Resolver struct {
	snapshots SnapshotSource
	locks     sync.Map // lock key -> *sync.Mutex
}

// NewResolver constructs a resolver over a snapshot source.
func NewResolver(snapshots SnapshotSource) *Resolver {
	return &Resolver{snapshots: snapshots}
}

// LockKey names the critical section guarding one (site, day) snapshot write.
func LockKey(siteID int64, day time.Time) string {
	return fmt.Sprintf("balance:site:%d:day:%s", siteID, shared.DayKey(day))
}

// OpeningBalance returns the closing balance carried into the given day:
// the previous day's snapshot, or 0 when the site has no history yet.
func (r *Resolver) OpeningBalance(ctx context.Context, siteID int64, day time.Time) (float64, error) {
	snap, err := r.snapshots.Get(ctx, siteID, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, fmt.Errorf("balance: read opening snapshot: %w", err)
	}
	if snap == nil {
		return 0, nil
	}
	return snap.ClosingBalance, nil
}

// RangeOpeningBalance resolves the opening balance for a reporting range.
// Balances are sequential, so the most recent snapshot strictly before the
// range end already subsumes everything before it; summing every snapshot in
// the range would double count carried-forward cash. When no site is given
// the latest snapshot of every site is summed.
func (r *Resolver) RangeOpeningBalance(ctx context.Context, siteID *int64, rng shared.DateRange) (float64, error) {
	if siteID == nil {
		total, err := r.snapshots.SumLatestPerSite(ctx, rng.To)
		if err != nil {
			return 0, fmt.Errorf("balance: sum latest snapshots: %w", err)
		}
		return total, nil
	}
	snap, err := r.snapshots.Latest(ctx, *siteID, rng.To)
	if err != nil {
		return 0, fmt.Errorf("balance: read latest snapshot: %w", err)
	}
	if snap == nil {
		return 0, nil
	}
	return snap.ClosingBalance, nil
}

// Persist writes a day's closing balance, serializing writers of the same
// (site, day) so concurrent single-day report generations cannot interleave
// their read-compute-write cycles.
func (r *Resolver) Persist(ctx context.Context, siteID int64, day time.Time, closingBalance float64) error {
	mu := r.lockFor(LockKey(siteID, day))
	mu.Lock()
	defer mu.Unlock()
	if err := r.snapshots.Upsert(ctx, siteID, day, closingBalance); err != nil {
		return fmt.Errorf("balance: persist snapshot: %w", err)
	}
	return nil
}

func (r *Resolver) lockFor(key string) *sync.Mutex {
	if mu, ok := r.locks.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := r.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
