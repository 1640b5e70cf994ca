package finance

// Comparison reports the current period against the immediately preceding
// period of equal length. Percentage deltas guard a zero previous value to
// 0% change rather than a division error; margin is reported as an absolute
// delta in percentage points.
type Comparison struct {
	Current            PeriodMetrics `json:"current"`
	Previous           PeriodMetrics `json:"previous"`
	RevenueChangePct   float64       `json:"revenueChangePct"`
	ExpensesChangePct  float64       `json:"expensesChangePct"`
	QuantityChangePct  float64       `json:"quantityChangePct"`
	NetIncomeChangePct float64       `json:"netIncomeChangePct"`
	MarginChangeAbs    float64       `json:"marginChangeAbs"`
}

// Compare derives the period-over-period deltas from two metric sets.
func Compare(current, previous PeriodMetrics) Comparison {
	return Comparison{
		Current:            current,
		Previous:           previous,
		RevenueChangePct:   changePercent(previous.Revenue, current.Revenue),
		ExpensesChangePct:  changePercent(previous.TotalExpenses, current.TotalExpenses),
		QuantityChangePct:  changePercent(previous.QuantitySold, current.QuantitySold),
		NetIncomeChangePct: changePercent(previous.NetIncome, current.NetIncome),
		MarginChangeAbs:    current.ProfitMarginPct - previous.ProfitMarginPct,
	}
}

func changePercent(base, current float64) float64 {
	if almostZero(base) {
		return 0
	}
	return (current - base) / base * 100
}
