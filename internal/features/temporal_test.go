package features

import (
	"math"
	"testing"
	"time"

	"evintel/pkg/contracts/domain"
)

func monthDate(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func salesRecord(state string, cat domain.VehicleCategory, date time.Time, ev, total int64) domain.SalesRecord {
	return domain.SalesRecord{
		State:                state,
		Date:                 date,
		VehicleCategory:      cat,
		ElectricVehiclesSold: ev,
		TotalVehiclesSold:    total,
	}
}

func enrich(records []domain.SalesRecord) ([]domain.EnrichedRecord, *Grouping) {
	table := NewTable(records)
	g := BuildGrouping(table)
	return table, g
}

func TestBuildTemporalFeaturesGrowthRate(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.April), 5, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.May), 30, 120),
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	if !math.IsNaN(table[0].EVGrowthRate) {
		t.Errorf("first observation growth = %v, want NaN", table[0].EVGrowthRate)
	}
	if got := table[1].EVGrowthRate; !almostEqual(got, 500.0) {
		t.Errorf("growth rate = %v, want 500.0", got)
	}
	if got := table[1].RollingMeanEV; !almostEqual(got, 17.5) {
		t.Errorf("rolling mean = %v, want 17.5", got)
	}
}

func TestBuildTemporalFeaturesZeroPredecessor(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.April), 0, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.May), 10, 120),
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	if !math.IsNaN(table[1].EVGrowthRate) {
		t.Errorf("growth over a zero predecessor = %v, want NaN", table[1].EVGrowthRate)
	}
}

func TestBuildTemporalFeaturesRollingWindow(t *testing.T) {
	// Four months at 10, 20, 30, 40 with window 3: the last row averages
	// the trailing three only.
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.April), 10, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.May), 20, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.June), 30, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.July), 40, 100),
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	wantRolling := []float64{10, 15, 20, 30}
	for i, want := range wantRolling {
		if got := table[i].RollingMeanEV; !almostEqual(got, want) {
			t.Errorf("rolling mean[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestBuildTemporalFeaturesPartitionIsolation(t *testing.T) {
	// Growth must not leak across the category boundary within a state.
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.April), 100, 200),
		salesRecord("Goa", domain.CategoryFourWheeler, monthDate(2022, time.May), 50, 100),
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	for i := range table {
		if !math.IsNaN(table[i].EVGrowthRate) {
			t.Errorf("row %d growth = %v, want NaN (single-row partition)", i, table[i].EVGrowthRate)
		}
	}
}

func TestBuildTemporalFeaturesCalendar(t *testing.T) {
	tests := []struct {
		date            time.Time
		wantQ4          bool
		wantMarch       bool
		wantFY          int
		wantQuarter     string
		wantYearQuarter string
	}{
		{monthDate(2022, time.April), false, false, 2023, "Q1", "FY23-Q1"},
		{monthDate(2022, time.December), false, false, 2023, "Q3", "FY23-Q3"},
		{monthDate(2023, time.January), true, false, 2023, "Q4", "FY23-Q4"},
		{monthDate(2023, time.March), true, true, 2023, "Q4", "FY23-Q4"},
		{monthDate(2023, time.July), false, false, 2024, "Q2", "FY24-Q2"},
	}

	records := make([]domain.SalesRecord, len(tests))
	for i, tt := range tests {
		records[i] = salesRecord("Goa", domain.CategoryTwoWheeler, tt.date, 10, 100)
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	for i, tt := range tests {
		rec := table[i]
		if rec.IsQ4 != tt.wantQ4 {
			t.Errorf("%s: IsQ4 = %v, want %v", tt.date.Format("2006-01"), rec.IsQ4, tt.wantQ4)
		}
		if rec.IsMarch != tt.wantMarch {
			t.Errorf("%s: IsMarch = %v, want %v", tt.date.Format("2006-01"), rec.IsMarch, tt.wantMarch)
		}
		if rec.FiscalYearID != tt.wantFY {
			t.Errorf("%s: fiscal year = %d, want %d", tt.date.Format("2006-01"), rec.FiscalYearID, tt.wantFY)
		}
		if rec.Quarter != tt.wantQuarter {
			t.Errorf("%s: quarter = %q, want %q", tt.date.Format("2006-01"), rec.Quarter, tt.wantQuarter)
		}
		if rec.YearQuarter != tt.wantYearQuarter {
			t.Errorf("%s: year quarter = %q, want %q", tt.date.Format("2006-01"), rec.YearQuarter, tt.wantYearQuarter)
		}
	}
}

func TestMonthsFromStart(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2022, time.April), 10, 100),
		salesRecord("Kerala", domain.CategoryTwoWheeler, monthDate(2023, time.February), 10, 100),
	}
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)

	if got := table[0].MonthsFromStart; got != 0 {
		t.Errorf("start row MonthsFromStart = %d, want 0", got)
	}
	if got := table[1].MonthsFromStart; got != 10 {
		t.Errorf("Feb 2023 MonthsFromStart = %d, want 10", got)
	}
}
