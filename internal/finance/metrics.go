package finance

import (
	"github.com/quarrydesk/quarrydesk/internal/ledger"
)

// PeriodInputs collects every record the metrics formula reads for one
// (site, range) scope. Collections hold sales dated before the period whose
// payment arrived inside it.
type PeriodInputs struct {
	Sales          []ledger.SaleRecord
	Manual         []ledger.ManualExpenseRecord
	Fuel           []ledger.FuelUsageRecord
	Banking        []ledger.BankingRecord
	Prepayments    []ledger.PrepaymentRecord
	Collections    []ledger.SaleRecord
	Fees           ledger.FeeSchedule
	OpeningBalance float64
}

// PeriodMetrics is the canonical result shape every consumer displays
// without re-deriving.
type PeriodMetrics struct {
	Revenue         float64          `json:"revenue"`
	QuantitySold    float64          `json:"quantitySold"`
	TotalExpenses   float64          `json:"totalExpenses"`
	Earnings        float64          `json:"earnings"`
	UnpaidOrders    float64          `json:"unpaidOrders"`
	Collections     float64          `json:"collections"`
	Prepayments     float64          `json:"prepayments"`
	OpeningBalance  float64          `json:"openingBalance"`
	NetIncome       float64          `json:"netIncome"`
	ProfitMarginPct float64          `json:"profitMarginPct"`
	BankedInPeriod  float64          `json:"bankedInPeriod"`
	FuelConsumed    float64          `json:"fuelConsumed"`
	FuelBalance     float64          `json:"fuelBalance"`
	FuelCost        float64          `json:"fuelCost"`
	Expenses        ExpenseBreakdown `json:"expenses"`
}

// ComputePeriodMetrics applies the net income formula:
//
//	Earnings  = Revenue - TotalExpenses
//	NetIncome = (Earnings + OpeningBalance + Collections + Prepayments) - UnpaidOrders
//
// All ratios guard division by zero to 0.
func ComputePeriodMetrics(in PeriodInputs) PeriodMetrics {
	m := PeriodMetrics{OpeningBalance: in.OpeningBalance}

	for _, s := range in.Sales {
		m.Revenue += s.GrossAmount()
		m.QuantitySold += s.Quantity
		if s.PaymentStatus != ledger.PaymentStatusPaid {
			m.UnpaidOrders += s.GrossAmount()
		}
	}

	m.Expenses = AggregateExpenses(in.Sales, in.Manual, in.Fuel, in.Fees)
	m.TotalExpenses = m.Expenses.Total
	m.Earnings = m.Revenue - m.TotalExpenses

	for _, c := range in.Collections {
		m.Collections += c.GrossAmount()
	}
	for _, p := range in.Prepayments {
		m.Prepayments += p.TotalAmountPaid
	}
	for _, b := range in.Banking {
		m.BankedInPeriod += b.AmountBanked
	}
	for _, f := range in.Fuel {
		m.FuelConsumed += f.Consumed()
		m.FuelBalance += f.Balance()
	}
	m.FuelCost = m.Expenses.BySource[SourceFuel]

	m.NetIncome = (m.Earnings + m.OpeningBalance + m.Collections + m.Prepayments) - m.UnpaidOrders
	m.ProfitMarginPct = SafePercent(m.NetIncome, m.Revenue)

	return m
}

// SafePercent returns value/base*100, guarding a zero base to 0.
func SafePercent(value, base float64) float64 {
	if almostZero(base) {
		return 0
	}
	return value / base * 100
}

// SafeRatio returns num/den, guarding a zero denominator to 0.
func SafeRatio(num, den float64) float64 {
	if almostZero(den) {
		return 0
	}
	return num / den
}

func almostZero(v float64) bool {
	return v > -0.0001 && v < 0.0001
}
