package finance

import (
	"math"
	"testing"
)

func TestCompareZeroPreviousGuards(t *testing.T) {
	current := PeriodMetrics{Revenue: 1000, TotalExpenses: 400, QuantitySold: 50, NetIncome: 600, ProfitMarginPct: 60}
	previous := PeriodMetrics{}
	c := Compare(current, previous)
	if c.RevenueChangePct != 0 {
		t.Fatalf("expected 0%% revenue change for empty previous, got %.2f", c.RevenueChangePct)
	}
	if c.ExpensesChangePct != 0 || c.QuantityChangePct != 0 || c.NetIncomeChangePct != 0 {
		t.Fatalf("expected all zero-previous deltas to guard to 0: %+v", c)
	}
	if c.MarginChangeAbs != 60 {
		t.Fatalf("expected absolute margin delta 60, got %.2f", c.MarginChangeAbs)
	}
}

func TestCompareDeltas(t *testing.T) {
	current := PeriodMetrics{Revenue: 1200, TotalExpenses: 300, QuantitySold: 60, NetIncome: 900, ProfitMarginPct: 75}
	previous := PeriodMetrics{Revenue: 1000, TotalExpenses: 400, QuantitySold: 50, NetIncome: 600, ProfitMarginPct: 60}
	c := Compare(current, previous)
	if math.Abs(c.RevenueChangePct-20) > epsilon {
		t.Fatalf("revenue delta: expected 20, got %.2f", c.RevenueChangePct)
	}
	if math.Abs(c.ExpensesChangePct-(-25)) > epsilon {
		t.Fatalf("expenses delta: expected -25, got %.2f", c.ExpensesChangePct)
	}
	if math.Abs(c.QuantityChangePct-20) > epsilon {
		t.Fatalf("quantity delta: expected 20, got %.2f", c.QuantityChangePct)
	}
	if math.Abs(c.MarginChangeAbs-15) > epsilon {
		t.Fatalf("margin delta: expected 15, got %.2f", c.MarginChangeAbs)
	}
}
