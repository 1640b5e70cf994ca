package ledger

import "testing"

func TestClassifyProduct(t *testing.T) {
	cases := []struct {
		category string
		want     ProductFeeClass
	}{
		{"Size 6", FeeClassStandard},
		{"Size 9", FeeClassStandard},
		{"Hardcore", FeeClassExemptFromLoaders},
		{"hardcore mix", FeeClassExemptFromLoaders},
		{"Concrete Beam", FeeClassExemptFromLoaders},
		{"BEAMS 9ft", FeeClassExemptFromLoaders},
		{"Reject", FeeClassRejectRate},
		{"rejects - fine", FeeClassRejectRate},
		{"", FeeClassStandard},
	}
	for _, tc := range cases {
		if got := ClassifyProduct(tc.category); got != tc.want {
			t.Fatalf("ClassifyProduct(%q) = %d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestSaleGrossAmount(t *testing.T) {
	s := SaleRecord{Quantity: 100, UnitPrice: 50}
	if got := s.GrossAmount(); got != 5000 {
		t.Fatalf("expected gross 5000, got %.2f", got)
	}
}

func TestFuelBalance(t *testing.T) {
	f := FuelUsageRecord{OldStock: 120, NewStock: 80, MachinesLoaded: 90, WheelLoadersLoaded: 40}
	if got := f.Consumed(); got != 130 {
		t.Fatalf("expected 130 consumed, got %.2f", got)
	}
	if got := f.Balance(); got != 70 {
		t.Fatalf("expected balance 70, got %.2f", got)
	}
}

func TestFeeScheduleFallsBackToZero(t *testing.T) {
	sched := FeeSchedule{7: {SiteID: 7, LoadersFeeRate: 10}}
	if got := sched.For(7).LoadersFeeRate; got != 10 {
		t.Fatalf("expected configured rate, got %.2f", got)
	}
	if got := sched.For(99); got != (FeeConfig{}) {
		t.Fatalf("expected zero config for unknown site, got %+v", got)
	}
	var nilSched FeeSchedule
	if got := nilSched.For(1); got != (FeeConfig{}) {
		t.Fatalf("expected zero config from nil schedule, got %+v", got)
	}
}
