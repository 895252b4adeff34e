package testutil

import (
	"time"

	"evintel/pkg/contracts/domain"
)

// SalesSeries builds a deterministic monthly sales panel for the given
// states: both vehicle categories per state, with electric sales growing
// linearly month over month. Useful wherever a test needs a well-formed
// multi-partition batch without caring about exact values.
func SalesSeries(states []string, start time.Time, months int) []domain.SalesRecord {
	var records []domain.SalesRecord
	for m := 0; m < months; m++ {
		date := start.AddDate(0, m, 0)
		for i, state := range states {
			ev := int64((i + 1) * (m + 2) * 10)
			records = append(records,
				SalesRecord(state, domain.CategoryTwoWheeler, date, ev, ev*4),
				SalesRecord(state, domain.CategoryFourWheeler, date, ev/2, ev*3),
			)
		}
	}
	return records
}

// SalesRecord builds one sales observation.
func SalesRecord(state string, category domain.VehicleCategory, date time.Time, electric, total int64) domain.SalesRecord {
	return domain.SalesRecord{
		State:                state,
		Date:                 date,
		VehicleCategory:      category,
		ElectricVehiclesSold: electric,
		TotalVehiclesSold:    total,
	}
}

// MakerSeries builds maker-level observations splitting each month's
// two-wheeler sales across the given makers in fixed proportions.
func MakerSeries(makers []string, start time.Time, months int) []domain.MakerRecord {
	var records []domain.MakerRecord
	for m := 0; m < months; m++ {
		date := start.AddDate(0, m, 0)
		for i, maker := range makers {
			records = append(records, domain.MakerRecord{
				Maker:                maker,
				Date:                 date,
				VehicleCategory:      domain.CategoryTwoWheeler,
				ElectricVehiclesSold: int64((len(makers) - i) * (m + 1) * 25),
			})
		}
	}
	return records
}

// MonthDate returns midnight UTC on the first of the given month.
func MonthDate(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}
