package perf

import (
	"testing"
	"time"

	"github.com/quarrydesk/quarrydesk/internal/finance"
	"github.com/quarrydesk/quarrydesk/internal/ledger"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

func benchSales(n int) []ledger.SaleRecord {
	day := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	sales := make([]ledger.SaleRecord, 0, n)
	for i := 0; i < n; i++ {
		sales = append(sales, ledger.SaleRecord{
			ID:                int64(i + 1),
			SiteID:            int64(i%4) + 1,
			ProductCategory:   "crushed stone",
			FeeClass:          ledger.FeeClassStandard,
			Quantity:          float64(10 + i%50),
			UnitPrice:         45,
			CommissionPerUnit: 2,
			IncludeLandRate:   true,
			PaymentStatus:     ledger.PaymentStatusPaid,
			SaleDate:          day.AddDate(0, 0, i%30),
		})
	}
	return sales
}

func benchFees() ledger.FeeSchedule {
	fees := ledger.FeeSchedule{}
	for site := int64(1); site <= 4; site++ {
		fees[site] = ledger.FeeConfig{
			SiteID:           site,
			LoadersFeeRate:   10,
			LandRateFeeRate:  5,
			RejectsFeeRate:   2,
			FuelCostPerLiter: 1.5,
		}
	}
	return fees
}

func BenchmarkAggregateExpenses(b *testing.B) {
	sales := benchSales(1000)
	fees := benchFees()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		breakdown := finance.AggregateExpenses(sales, nil, nil, fees)
		if breakdown.Total <= 0 {
			b.Fatal("expected a positive expense total")
		}
	}
}

func BenchmarkComputePeriodMetrics(b *testing.B) {
	inputs := finance.PeriodInputs{
		Sales: benchSales(1000),
		Fees:  benchFees(),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics := finance.ComputePeriodMetrics(inputs)
		if metrics.Revenue <= 0 {
			b.Fatal("expected positive revenue")
		}
	}
}

func BenchmarkBuildDailyBreakdown(b *testing.B) {
	inputs := finance.PeriodInputs{
		Sales: benchSales(1000),
		Fees:  benchFees(),
	}
	rng, err := shared.RangeOf(
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		b.Fatalf("build range: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows := finance.BuildDailyBreakdown(rng, inputs)
		if len(rows) != 30 {
			b.Fatalf("expected 30 rows, got %d", len(rows))
		}
	}
}
