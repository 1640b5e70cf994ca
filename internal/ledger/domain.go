package ledger

import (
	"strings"
	"time"
)

// PaymentStatus tracks how much of a sale has been settled.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
)

// ProductFeeClass drives the fee exceptions applied per product category.
// It is resolved once when a sale is loaded so aggregation never re-matches
// category strings.
type ProductFeeClass int

const (
	// FeeClassStandard products attract the loaders fee and the standard land rate.
	FeeClassStandard ProductFeeClass = iota
	// FeeClassExemptFromLoaders covers beams and hardcore, which skip the loaders fee.
	FeeClassExemptFromLoaders
	// FeeClassRejectRate covers reject material billed at the rejects land rate.
	FeeClassRejectRate
)

// ClassifyProduct maps a product category name onto its fee class. Matching is
// a case-insensitive substring check on the category name.
func ClassifyProduct(category string) ProductFeeClass {
	name := strings.ToLower(category)
	if strings.Contains(name, "beam") || strings.Contains(name, "hardcore") {
		return FeeClassExemptFromLoaders
	}
	if strings.Contains(name, "reject") {
		return FeeClassRejectRate
	}
	return FeeClassStandard
}

// SaleRecord is one posted sale transaction.
type SaleRecord struct {
	ID                int64
	SiteID            int64
	ProductCategory   string
	FeeClass          ProductFeeClass
	Quantity          float64
	UnitPrice         float64
	CommissionPerUnit float64
	IncludeLandRate   bool
	PaymentStatus     PaymentStatus
	SaleDate          time.Time
	PaymentReceivedAt *time.Time
}

// GrossAmount derives the sale value. It is never stored independently.
func (s SaleRecord) GrossAmount() float64 {
	return s.Quantity * s.UnitPrice
}

// ManualExpenseRecord is a clerk-entered expense.
type ManualExpenseRecord struct {
	ID          int64
	SiteID      int64
	Category    string
	Description string
	Amount      float64
	ExpenseDate time.Time
}

// FuelUsageRecord is a daily fuel log entry.
type FuelUsageRecord struct {
	ID                 int64
	SiteID             int64
	OldStock           float64
	NewStock           float64
	MachinesLoaded     float64
	WheelLoadersLoaded float64
	UsageDate          time.Time
}

// Consumed returns the liters issued to machines and wheel loaders.
func (f FuelUsageRecord) Consumed() float64 {
	return f.MachinesLoaded + f.WheelLoadersLoaded
}

// Balance returns the remaining stock. Negative balances are a soft data
// quality signal, not an error.
func (f FuelUsageRecord) Balance() float64 {
	return (f.OldStock + f.NewStock) - f.Consumed()
}

// BankingRecord is a cash deposit made from site takings.
type BankingRecord struct {
	ID           int64
	SiteID       int64
	AmountBanked float64
	BankingDate  time.Time
}

// PrepaymentRecord is a customer deposit received in-period.
type PrepaymentRecord struct {
	ID              int64
	SiteID          int64
	CustomerName    string
	TotalAmountPaid float64
	PrepaymentDate  time.Time
}

// FeeConfig is the per-site fee schedule. A zero rate means the charge is not
// configured and contributes nothing.
type FeeConfig struct {
	SiteID           int64
	LoadersFeeRate   float64
	LandRateFeeRate  float64
	RejectsFeeRate   float64
	FuelCostPerLiter float64
}

// FeeSchedule indexes fee configs by site for aggregate (all-sites) reads.
type FeeSchedule map[int64]FeeConfig

// For returns the site's fee config, or a zero config when none is recorded.
func (s FeeSchedule) For(siteID int64) FeeConfig {
	if s == nil {
		return FeeConfig{}
	}
	return s[siteID]
}
