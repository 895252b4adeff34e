package features

import (
	"math"

	"evintel/pkg/contracts/domain"
)

// BuildSegmentFeatures pivots per-category penetration onto every row of
// a state-date, then derives the preference ratio, the dominant-segment
// label and the cross-segment growth difference. A ratio with a zero or
// missing denominator is recorded missing, never infinity; the capped and
// log variants are derived in the quality pass.
func BuildSegmentFeatures(table []domain.EnrichedRecord, g *Grouping) {
	for _, indices := range g.StateDates {
		pen2w, pen4w := math.NaN(), math.NaN()
		growth2w, growth4w := math.NaN(), math.NaN()

		for _, idx := range indices {
			switch table[idx].VehicleCategory {
			case domain.CategoryTwoWheeler:
				pen2w = table[idx].EVPenetration
				growth2w = table[idx].EVGrowthRate
			case domain.CategoryFourWheeler:
				pen4w = table[idx].EVPenetration
				growth4w = table[idx].EVGrowthRate
			}
		}

		ratio := math.NaN()
		if !math.IsNaN(pen2w) && !math.IsNaN(pen4w) && pen4w != 0 {
			ratio = pen2w / pen4w
		}

		dominant := ""
		if !math.IsNaN(ratio) {
			if ratio > 1 {
				dominant = string(domain.CategoryTwoWheeler)
			} else {
				dominant = string(domain.CategoryFourWheeler)
			}
		}

		growthDiff := math.NaN()
		if !math.IsNaN(growth2w) && !math.IsNaN(growth4w) {
			growthDiff = growth2w - growth4w
		}

		for _, idx := range indices {
			table[idx].SegmentPenetration2W = pen2w
			table[idx].SegmentPenetration4W = pen4w
			table[idx].SegmentPreferenceRatio = ratio
			table[idx].DominantSegment = dominant
			table[idx].SegmentGrowthDiff = growthDiff
		}
	}
}
