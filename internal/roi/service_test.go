package roi

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/quarrydesk/quarrydesk/internal/analytics"
	"github.com/quarrydesk/quarrydesk/internal/finance"
	"github.com/quarrydesk/quarrydesk/internal/ledger"
	"github.com/quarrydesk/quarrydesk/internal/shared"
)

type stubConfigs struct {
	cfg *CapitalConfig
}

func (s stubConfigs) GetCapitalConfig(context.Context, int64) (*CapitalConfig, error) {
	return s.cfg, nil
}

type stubMetrics struct {
	perMonth map[string]finance.PeriodMetrics
	calls    []shared.DateRange
}

func (s *stubMetrics) GetPeriodMetrics(_ context.Context, f analytics.Filter) (finance.PeriodMetrics, error) {
	s.calls = append(s.calls, f.Range)
	return s.perMonth[shared.MonthKey(f.Range.From)], nil
}

type stubFees struct {
	cfg ledger.FeeConfig
}

func (s stubFees) GetFeeConfig(context.Context, int64) (ledger.FeeConfig, error) {
	return s.cfg, nil
}

func fixedNow(value string) func() time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestAnalyzeNoInvestmentData(t *testing.T) {
	svc := NewService(stubConfigs{}, &stubMetrics{}, stubFees{})
	analysis, err := svc.Analyze(context.Background(), 4, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Available {
		t.Fatal("expected unavailable analysis without capital config")
	}
	if analysis.Reason == "" {
		t.Fatal("expected a reason on the terminal state")
	}
	if analysis.BasicROIPct != 0 || analysis.CumulativeNetProfit != 0 {
		t.Fatalf("no-data state must not carry figures: %+v", analysis)
	}
}

func TestAnalyzeZeroInvestmentTreatedAsNoData(t *testing.T) {
	cfg := &CapitalConfig{SiteID: 4, InitialInvestment: 0, OperationsStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(stubConfigs{cfg: cfg}, &stubMetrics{}, stubFees{})
	analysis, err := svc.Analyze(context.Background(), 4, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Available {
		t.Fatal("zero investment must report no investment data")
	}
}

func TestAnalyzeCumulativeAndPayback(t *testing.T) {
	cfg := &CapitalConfig{
		SiteID:              1,
		InitialInvestment:   120000,
		OperationsStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyFixedCosts:   30000,
	}
	metrics := &stubMetrics{perMonth: map[string]finance.PeriodMetrics{
		"2025-01": {NetIncome: 10000, Revenue: 50000, QuantitySold: 1000},
		"2025-02": {NetIncome: 12000, Revenue: 55000, QuantitySold: 1100},
		"2025-03": {NetIncome: 14000, Revenue: 60000, QuantitySold: 1200},
		"2025-04": {NetIncome: 12000, Revenue: 55000, QuantitySold: 1100},
	}}
	svc := NewService(stubConfigs{cfg: cfg}, metrics, stubFees{cfg: ledger.FeeConfig{LoadersFeeRate: 10, LandRateFeeRate: 5}})
	svc.WithNow(fixedNow("2025-04-30"))

	analysis, err := svc.Analyze(context.Background(), 1, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !analysis.Available {
		t.Fatalf("expected available analysis: %+v", analysis)
	}
	if analysis.OperatingMonths != 4 {
		t.Fatalf("expected 4 operating months, got %d", analysis.OperatingMonths)
	}
	if analysis.CumulativeNetProfit != 48000 {
		t.Fatalf("expected cumulative 48000, got %.2f", analysis.CumulativeNetProfit)
	}
	if analysis.AverageMonthlyProfit != 12000 {
		t.Fatalf("expected average 12000, got %.2f", analysis.AverageMonthlyProfit)
	}
	if math.Abs(analysis.BasicROIPct-40) > 0.0001 {
		t.Fatalf("expected basic ROI 40%%, got %.4f", analysis.BasicROIPct)
	}
	if math.Abs(analysis.AnnualizedROIPct-120) > 0.0001 {
		t.Fatalf("expected annualized ROI 120%%, got %.4f", analysis.AnnualizedROIPct)
	}
	if !analysis.Recoverable || math.Abs(analysis.PaybackMonths-10) > 0.0001 {
		t.Fatalf("expected payback 10 months, got %+v", analysis)
	}

	// 220000 revenue over 4400 units.
	be := analysis.BreakEven
	if math.Abs(be.AverageSellingPrice-50) > 0.0001 {
		t.Fatalf("expected avg price 50, got %.4f", be.AverageSellingPrice)
	}
	if be.VariableCostPerUnit != 15 {
		t.Fatalf("expected variable cost 15, got %.2f", be.VariableCostPerUnit)
	}
	if math.Abs(be.ContributionMargin-35) > 0.0001 {
		t.Fatalf("expected contribution margin 35, got %.4f", be.ContributionMargin)
	}
	// 30000 / 35
	if math.Abs(be.BreakEvenUnits-857.142857) > 0.001 {
		t.Fatalf("expected break-even ~857.14 units, got %.4f", be.BreakEvenUnits)
	}
	if be.AverageMonthlyUnits != 1100 {
		t.Fatalf("expected 1100 avg monthly units, got %.2f", be.AverageMonthlyUnits)
	}

	// Month windows must stay inside the operating bounds.
	first := metrics.calls[0]
	if shared.DayKey(first.From) != "20250101" || shared.DayKey(first.To) != "20250131" {
		t.Fatalf("unexpected first month window: %+v", first)
	}
	last := metrics.calls[len(metrics.calls)-1]
	if shared.DayKey(last.To) != "20250430" {
		t.Fatalf("expected final window to end today, got %s", shared.DayKey(last.To))
	}
}

func TestAnalyzeNotYetRecoverable(t *testing.T) {
	cfg := &CapitalConfig{
		SiteID:              2,
		InitialInvestment:   100000,
		OperationsStartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	metrics := &stubMetrics{perMonth: map[string]finance.PeriodMetrics{
		"2025-03": {NetIncome: -5000},
		"2025-04": {NetIncome: -2000},
	}}
	svc := NewService(stubConfigs{cfg: cfg}, metrics, stubFees{})
	svc.WithNow(fixedNow("2025-04-15"))

	analysis, err := svc.Analyze(context.Background(), 2, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Recoverable {
		t.Fatal("loss-making site must report not yet recoverable")
	}
	if analysis.PaybackMonths != 0 {
		t.Fatalf("payback must stay unset when unrecoverable, got %.2f", analysis.PaybackMonths)
	}
}

func TestAnalyzeCapacityUtilization(t *testing.T) {
	cfg := &CapitalConfig{
		SiteID:                  3,
		InitialInvestment:       50000,
		OperationsStartDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		DailyProductionCapacity: 100,
	}
	metrics := &stubMetrics{perMonth: map[string]finance.PeriodMetrics{
		"2025-04": {NetIncome: 1000, Revenue: 30000, QuantitySold: 600},
	}}
	svc := NewService(stubConfigs{cfg: cfg}, metrics, stubFees{})
	svc.WithNow(fixedNow("2025-04-10"))

	analysis, err := svc.Analyze(context.Background(), 3, nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// 600 units over 10 operating days against capacity 100/day.
	if math.Abs(analysis.CapacityUtilizationPct-60) > 0.0001 {
		t.Fatalf("expected 60%% utilization, got %.4f", analysis.CapacityUtilizationPct)
	}
}
