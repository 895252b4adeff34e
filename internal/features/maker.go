package features

import (
	"sort"

	"evintel/pkg/contracts/domain"
)

type makerKey struct {
	Maker      string
	Category   domain.VehicleCategory
	FiscalYear int
}

// MakerLeaders aggregates manufacturer electric sales per category and
// fiscal year and returns the top n makers of each (category, year) by
// units sold, with their share of that group's total. Records with an
// unknown category are skipped.
func MakerLeaders(makers []domain.MakerRecord, n int) []domain.MakerShare {
	unitsByMaker := make(map[makerKey]int64)

	type groupKey struct {
		Category   domain.VehicleCategory
		FiscalYear int
	}
	totals := make(map[groupKey]int64)

	for _, rec := range makers {
		if !rec.VehicleCategory.IsValid() || rec.Maker == "" {
			continue
		}
		fy := domain.FiscalYear(rec.Date)
		unitsByMaker[makerKey{rec.Maker, rec.VehicleCategory, fy}] += rec.ElectricVehiclesSold
		totals[groupKey{rec.VehicleCategory, fy}] += rec.ElectricVehiclesSold
	}

	byGroup := make(map[groupKey][]domain.MakerShare)
	for key, units := range unitsByMaker {
		gk := groupKey{key.Category, key.FiscalYear}
		share := 0.0
		if total := totals[gk]; total > 0 {
			share = Round2(float64(units) / float64(total) * 100)
		}
		byGroup[gk] = append(byGroup[gk], domain.MakerShare{
			Maker:           key.Maker,
			VehicleCategory: key.Category,
			FiscalYear:      key.FiscalYear,
			UnitsSold:       units,
			SharePercent:    share,
		})
	}

	var leaders []domain.MakerShare
	for _, shares := range byGroup {
		sort.Slice(shares, func(a, b int) bool {
			if shares[a].UnitsSold != shares[b].UnitsSold {
				return shares[a].UnitsSold > shares[b].UnitsSold
			}
			return shares[a].Maker < shares[b].Maker
		})
		if len(shares) > n {
			shares = shares[:n]
		}
		leaders = append(leaders, shares...)
	}

	sort.Slice(leaders, func(a, b int) bool {
		if leaders[a].FiscalYear != leaders[b].FiscalYear {
			return leaders[a].FiscalYear < leaders[b].FiscalYear
		}
		if leaders[a].VehicleCategory != leaders[b].VehicleCategory {
			return leaders[a].VehicleCategory < leaders[b].VehicleCategory
		}
		if leaders[a].UnitsSold != leaders[b].UnitsSold {
			return leaders[a].UnitsSold > leaders[b].UnitsSold
		}
		return leaders[a].Maker < leaders[b].Maker
	})
	return leaders
}
