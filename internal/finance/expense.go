// Package finance is the single authoritative computation core for the
// expense model, the period metrics formula, and their derived analyses.
// It is pure: no I/O, no clock, no cache. Every consumer (dashboard, clerk
// report, ROI, trend charts) must call through this package so the numbers
// cannot drift between views.
package finance

import (
	"time"

	"github.com/quarrydesk/quarrydesk/internal/ledger"
)

// ExpenseSource tags a line with the component of the expense model it came from.
type ExpenseSource string

const (
	SourceManual     ExpenseSource = "Manual"
	SourceCommission ExpenseSource = "Commission"
	SourceLoadersFee ExpenseSource = "LoadersFee"
	SourceLandRate   ExpenseSource = "LandRate"
	SourceFuel       ExpenseSource = "Fuel"
)

// ExpenseLine is one normalized expense item.
type ExpenseLine struct {
	Source ExpenseSource `json:"source"`
	Label  string        `json:"label"`
	Amount float64       `json:"amount"`
	Day    time.Time     `json:"day"`
	SiteID int64         `json:"siteId"`
}

// ExpenseBreakdown carries the normalized lines plus their exact decomposition.
// The invariant Sum(BySource) == Total holds by construction: both are
// accumulated from the same lines in one pass.
type ExpenseBreakdown struct {
	Lines    []ExpenseLine             `json:"lines"`
	BySource map[ExpenseSource]float64 `json:"bySource"`
	Total    float64                   `json:"total"`
}

func (b *ExpenseBreakdown) add(line ExpenseLine) {
	if line.Amount == 0 {
		return
	}
	b.Lines = append(b.Lines, line)
	b.BySource[line.Source] += line.Amount
	b.Total += line.Amount
}

// AggregateExpenses combines the four expense sources, plus fuel cost when a
// per-liter cost is configured, in their fixed order: manual, commission,
// loaders fee, land rate, fuel. Fee rates are looked up per record's site so
// the all-sites view applies each site's own schedule.
func AggregateExpenses(
	sales []ledger.SaleRecord,
	manual []ledger.ManualExpenseRecord,
	fuel []ledger.FuelUsageRecord,
	fees ledger.FeeSchedule,
) ExpenseBreakdown {
	breakdown := ExpenseBreakdown{BySource: make(map[ExpenseSource]float64)}

	for _, e := range manual {
		breakdown.add(ExpenseLine{
			Source: SourceManual,
			Label:  e.Category,
			Amount: e.Amount,
			Day:    e.ExpenseDate,
			SiteID: e.SiteID,
		})
	}

	for _, s := range sales {
		if s.CommissionPerUnit > 0 {
			breakdown.add(ExpenseLine{
				Source: SourceCommission,
				Label:  s.ProductCategory,
				Amount: s.Quantity * s.CommissionPerUnit,
				Day:    s.SaleDate,
				SiteID: s.SiteID,
			})
		}
	}

	for _, s := range sales {
		// Beams and hardcore are loaded without the loaders crew.
		if s.FeeClass == ledger.FeeClassExemptFromLoaders {
			continue
		}
		rate := fees.For(s.SiteID).LoadersFeeRate
		if rate <= 0 {
			continue
		}
		breakdown.add(ExpenseLine{
			Source: SourceLoadersFee,
			Label:  s.ProductCategory,
			Amount: s.Quantity * rate,
			Day:    s.SaleDate,
			SiteID: s.SiteID,
		})
	}

	for _, s := range sales {
		if !s.IncludeLandRate {
			continue
		}
		cfg := fees.For(s.SiteID)
		rate := cfg.LandRateFeeRate
		if s.FeeClass == ledger.FeeClassRejectRate {
			rate = cfg.RejectsFeeRate
		}
		if rate <= 0 {
			continue
		}
		breakdown.add(ExpenseLine{
			Source: SourceLandRate,
			Label:  s.ProductCategory,
			Amount: s.Quantity * rate,
			Day:    s.SaleDate,
			SiteID: s.SiteID,
		})
	}

	for _, f := range fuel {
		cost := fees.For(f.SiteID).FuelCostPerLiter
		if cost <= 0 {
			continue
		}
		breakdown.add(ExpenseLine{
			Source: SourceFuel,
			Label:  "Fuel consumed",
			Amount: f.Consumed() * cost,
			Day:    f.UsageDate,
			SiteID: f.SiteID,
		})
	}

	return breakdown
}
