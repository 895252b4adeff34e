package features

import (
	"math"
	"sort"

	"evintel/pkg/contracts/domain"
)

// BuildPenetrationFeatures computes per-row penetration plus every
// cross-sectional market-structure feature: national market share, dense
// state ranks per date, global growth-stage quartiles and per-period
// market concentration.
func BuildPenetrationFeatures(table []domain.EnrichedRecord, g *Grouping) {
	for i := range table {
		rec := &table[i]

		// A zero total means penetration is unknowable, not zero.
		if rec.TotalVehiclesSold == 0 {
			rec.EVPenetration = math.NaN()
			rec.EVPenetrationLog = math.NaN()
			continue
		}
		rec.EVPenetration = Round2(float64(rec.ElectricVehiclesSold) / float64(rec.TotalVehiclesSold) * 100)
		rec.EVPenetrationLog = math.Log(rec.EVPenetration + 1)
	}

	buildMarketShare(table, g)
	buildStateRanks(table, g)
	buildGrowthStages(table)
	buildConcentration(table, g)
}

// buildMarketShare normalises each row's electric sales by the national
// total of the same date. The shares of one date sum to 100 up to
// rounding.
func buildMarketShare(table []domain.EnrichedRecord, g *Grouping) {
	for _, date := range g.SortedDates() {
		indices := g.Dates[date]
		total := int64(0)
		for _, idx := range indices {
			total += table[idx].ElectricVehiclesSold
		}
		for _, idx := range indices {
			if total == 0 {
				table[idx].NationalMarketShare = math.NaN()
				continue
			}
			table[idx].NationalMarketShare = Round2(float64(table[idx].ElectricVehiclesSold) / float64(total) * 100)
		}
	}
}

// buildStateRanks dense-ranks rows by penetration descending within each
// date. Ties share a rank and the next distinct penetration gets rank+1;
// rows with missing penetration get a missing rank.
func buildStateRanks(table []domain.EnrichedRecord, g *Grouping) {
	for _, date := range g.SortedDates() {
		indices := g.Dates[date]
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = table[idx].EVPenetration
		}
		ranks := DenseRankDesc(values)
		for i, idx := range indices {
			table[idx].StateRank = ranks[i]
		}
	}
}

// buildGrowthStages buckets every row by the quartile of the global
// penetration distribution. Boundaries are computed once over the whole
// dataset, not per state or date.
func buildGrowthStages(table []domain.EnrichedRecord) {
	defined := make([]float64, 0, len(table))
	for i := range table {
		if !math.IsNaN(table[i].EVPenetration) {
			defined = append(defined, table[i].EVPenetration)
		}
	}
	if len(defined) == 0 {
		return
	}
	sort.Float64s(defined)

	p25 := Percentile(defined, 0.25)
	p50 := Percentile(defined, 0.50)
	p75 := Percentile(defined, 0.75)

	for i := range table {
		pen := table[i].EVPenetration
		if math.IsNaN(pen) {
			continue // neutral-filled by the quality pass
		}
		switch {
		case pen <= p25:
			table[i].Stage = domain.StageEarly
		case pen <= p50:
			table[i].Stage = domain.StageDeveloping
		case pen <= p75:
			table[i].Stage = domain.StageMaturing
		default:
			table[i].Stage = domain.StageAdvanced
		}
	}
}

// buildConcentration normalises each row's electric sales to the leader
// of its (date, category) group, yielding values in [0, 1] with the group
// leader at exactly 1.
func buildConcentration(table []domain.EnrichedRecord, g *Grouping) {
	for _, indices := range g.DateCategories {
		max := int64(0)
		for _, idx := range indices {
			if table[idx].ElectricVehiclesSold > max {
				max = table[idx].ElectricVehiclesSold
			}
		}
		for _, idx := range indices {
			if max == 0 {
				table[idx].MarketConcentration = math.NaN()
				continue
			}
			table[idx].MarketConcentration = float64(table[idx].ElectricVehiclesSold) / float64(max)
		}
	}
}
