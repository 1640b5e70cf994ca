package finance

import (
	"time"

	"github.com/quarrydesk/quarrydesk/internal/ledger"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

// DailyRow is one calendar day of the trend. Rows report per-day figures,
// not cumulative cash: opening balances are not chained inside the trend.
type DailyRow struct {
	Day      time.Time `json:"day"`
	DayKey   string    `json:"dayKey"`
	Revenue  float64   `json:"revenue"`
	Expenses float64   `json:"expenses"`
	Net      float64   `json:"net"`
	Quantity float64   `json:"quantity"`
}

// BuildDailyBreakdown produces one row per calendar day in the range,
// including days with zero activity, so chart axes and table rows stay
// contiguous. Each row runs the reduced per-day form of the expense model
// over the records dated on that day.
func BuildDailyBreakdown(r shared.DateRange, in PeriodInputs) []DailyRow {
	salesByDay := make(map[string][]ledger.SaleRecord)
	for _, s := range in.Sales {
		key := shared.DayKey(s.SaleDate)
		salesByDay[key] = append(salesByDay[key], s)
	}
	manualByDay := make(map[string][]ledger.ManualExpenseRecord)
	for _, e := range in.Manual {
		key := shared.DayKey(e.ExpenseDate)
		manualByDay[key] = append(manualByDay[key], e)
	}
	fuelByDay := make(map[string][]ledger.FuelUsageRecord)
	for _, f := range in.Fuel {
		key := shared.DayKey(f.UsageDate)
		fuelByDay[key] = append(fuelByDay[key], f)
	}

	days := r.Days()
	rows := make([]DailyRow, 0, len(days))
	for _, day := range days {
		key := shared.DayKey(day)
		row := DailyRow{Day: day, DayKey: key}
		for _, s := range salesByDay[key] {
			row.Revenue += s.GrossAmount()
			row.Quantity += s.Quantity
		}
		breakdown := AggregateExpenses(salesByDay[key], manualByDay[key], fuelByDay[key], in.Fees)
		row.Expenses = breakdown.Total
		row.Net = row.Revenue - row.Expenses
		rows = append(rows, row)
	}
	return rows
}
