// Package roi derives return-on-investment and break-even figures from the
// same period metrics formula the dashboards use.
package roi

import "time"

// CapitalConfig is the per-site investment profile. It is configured by the
// site owner; fixed costs, capacity, and target margin are optional.
type CapitalConfig struct {
	SiteID                  int64     `json:"siteId"`
	InitialInvestment       float64   `json:"initialInvestment"`
	OperationsStartDate     time.Time `json:"operationsStartDate"`
	MonthlyFixedCosts       float64   `json:"monthlyFixedCosts"`
	DailyProductionCapacity float64   `json:"dailyProductionCapacity"`
	TargetProfitMarginPct   float64   `json:"targetProfitMarginPct"`
}

// MonthlyPoint is one month of the cumulative profit series.
type MonthlyPoint struct {
	Month     string  `json:"month"`
	NetIncome float64 `json:"netIncome"`
	Revenue   float64 `json:"revenue"`
	Quantity  float64 `json:"quantity"`
}

// BreakEven captures the contribution-margin analysis.
type BreakEven struct {
	AverageSellingPrice float64 `json:"averageSellingPrice"`
	VariableCostPerUnit float64 `json:"variableCostPerUnit"`
	ContributionMargin  float64 `json:"contributionMargin"`
	BreakEvenUnits      float64 `json:"breakEvenUnits"`
	AverageMonthlyUnits float64 `json:"averageMonthlyUnits"`
	MarginOfSafetyPct   float64 `json:"marginOfSafetyPct"`
}

// Analysis is the ROI view result. Available is false when the site has no
// usable investment data; that is a valid terminal state, not an error, and
// no misleading zero figures are reported alongside it.
type Analysis struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`

	SiteID                 int64          `json:"siteId"`
	InitialInvestment      float64        `json:"initialInvestment,omitempty"`
	OperatingMonths        int            `json:"operatingMonths,omitempty"`
	CumulativeNetProfit    float64        `json:"cumulativeNetProfit,omitempty"`
	AverageMonthlyProfit   float64        `json:"averageMonthlyProfit,omitempty"`
	BasicROIPct            float64        `json:"basicRoiPct,omitempty"`
	AnnualizedROIPct       float64        `json:"annualizedRoiPct,omitempty"`
	Recoverable            bool           `json:"recoverable,omitempty"`
	PaybackMonths          float64        `json:"paybackMonths,omitempty"`
	BreakEven              BreakEven      `json:"breakEven,omitempty"`
	CapacityUtilizationPct float64        `json:"capacityUtilizationPct,omitempty"`
	ActualMarginPct        float64        `json:"actualMarginPct,omitempty"`
	TargetProfitMarginPct  float64        `json:"targetProfitMarginPct,omitempty"`
	Monthly                []MonthlyPoint `json:"monthly,omitempty"`
}

// Unavailable builds the no-investment-data terminal state.
func Unavailable(siteID int64, reason string) Analysis {
	return Analysis{SiteID: siteID, Available: false, Reason: reason}
}
