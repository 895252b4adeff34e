package features

import (
	"math"

	"evintel/pkg/contracts/domain"
)

// ApplyQualityPass runs the final data-quality stage: missing flags are
// set from the pre-fill state of every tracked feature, outlier-capped
// and log variants are derived, and the fill policies run last so no fill
// can hide a flag. nStd is the outlier cap width in standard deviations.
func ApplyQualityPass(table []domain.EnrichedRecord, g *Grouping, nStd float64) {
	setMissingFlags(table)
	capAdoptionVelocity(table, g, nStd)
	capPreferenceRatio(table, nStd)
	applyFills(table, g)
}

// setMissingFlags records which tracked features were undefined before
// any fill or zero-substitution policy runs. Flags are the contract the
// fills must not repaint.
func setMissingFlags(table []domain.EnrichedRecord) {
	for i := range table {
		rec := &table[i]
		rec.IsMissingGrowthRate = math.IsNaN(rec.EVGrowthRate)
		rec.IsMissingPreferenceRatio = math.IsNaN(rec.SegmentPreferenceRatio)
		rec.IsMissingSegmentGrowth = math.IsNaN(rec.SegmentGrowthDiff)
		rec.IsMissingRegionalAvg = math.IsNaN(rec.RegionalAvgPenetration)
		rec.IsMissingAdoptionVelocity = math.IsNaN(rec.AdoptionVelocity)
	}
}

// capAdoptionVelocity clips velocity to mean +/- nStd sigma within its own
// (state, category) partition, the grouping the velocity was computed in.
func capAdoptionVelocity(table []domain.EnrichedRecord, g *Grouping, nStd float64) {
	for _, indices := range g.Partitions {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = table[idx].AdoptionVelocity
		}
		capped := CapOutliers(values, nStd)
		for i, idx := range indices {
			table[idx].AdoptionVelocityCapped = capped[i]
		}
	}
}

// capPreferenceRatio derives the capped and log variants of the segment
// preference ratio. The ratio is cross-sectional, so the cap bounds come
// from the full dataset distribution.
func capPreferenceRatio(table []domain.EnrichedRecord, nStd float64) {
	values := make([]float64, len(table))
	for i := range table {
		values[i] = table[i].SegmentPreferenceRatio
	}
	capped := CapOutliers(values, nStd)
	for i := range table {
		table[i].SegmentPreferenceRatioCapped = capped[i]
		table[i].SegmentPreferenceRatioLog = math.Log(table[i].SegmentPreferenceRatio + 1)
	}
}

// applyFills resolves the remaining undefined cells. Time-ordered
// features forward-fill within their partition, cross-sectional features
// take the same-date median, categoricals get the neutral label, and the
// growth rate is zero-substituted per its documented policy. Penetration
// is never filled.
func applyFills(table []domain.EnrichedRecord, g *Grouping) {
	for i := range table {
		if math.IsNaN(table[i].EVGrowthRate) {
			table[i].EVGrowthRate = 0
		}
	}

	for _, indices := range g.Partitions {
		forwardFill(table, indices, velocityColumn)
		forwardFill(table, indices, velocityCappedColumn)
	}

	for _, date := range g.SortedDates() {
		indices := g.Dates[date]
		for _, col := range crossSectionalColumns {
			fillWithDateMedian(table, indices, col)
		}
	}

	for i := range table {
		if !table[i].Region.IsValid() {
			table[i].Region = domain.RegionUnclassified
		}
		if table[i].DominantSegment == "" {
			table[i].DominantSegment = "Unclassified"
		}
		if table[i].Stage == "" {
			table[i].Stage = domain.StageUnclassified
		}
	}
}

// column accessors let the generic fill helpers address a float feature
// without reflection or string dispatch; the feature set stays fixed at
// compile time.
type floatColumn struct {
	get func(*domain.EnrichedRecord) float64
	set func(*domain.EnrichedRecord, float64)
}

var (
	velocityColumn = floatColumn{
		get: func(r *domain.EnrichedRecord) float64 { return r.AdoptionVelocity },
		set: func(r *domain.EnrichedRecord, v float64) { r.AdoptionVelocity = v },
	}
	velocityCappedColumn = floatColumn{
		get: func(r *domain.EnrichedRecord) float64 { return r.AdoptionVelocityCapped },
		set: func(r *domain.EnrichedRecord, v float64) { r.AdoptionVelocityCapped = v },
	}

	crossSectionalColumns = []floatColumn{
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.SegmentPreferenceRatio },
			set: func(r *domain.EnrichedRecord, v float64) { r.SegmentPreferenceRatio = v },
		},
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.SegmentPreferenceRatioCapped },
			set: func(r *domain.EnrichedRecord, v float64) { r.SegmentPreferenceRatioCapped = v },
		},
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.SegmentPreferenceRatioLog },
			set: func(r *domain.EnrichedRecord, v float64) { r.SegmentPreferenceRatioLog = v },
		},
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.SegmentGrowthDiff },
			set: func(r *domain.EnrichedRecord, v float64) { r.SegmentGrowthDiff = v },
		},
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.RegionalAvgPenetration },
			set: func(r *domain.EnrichedRecord, v float64) { r.RegionalAvgPenetration = v },
		},
		{
			get: func(r *domain.EnrichedRecord) float64 { return r.StateToRegionRatio },
			set: func(r *domain.EnrichedRecord, v float64) { r.StateToRegionRatio = v },
		},
	}
)

// forwardFill carries the last defined value forward through a
// date-ordered partition. Leading undefined cells stay missing.
func forwardFill(table []domain.EnrichedRecord, indices []int, col floatColumn) {
	last := math.NaN()
	for _, idx := range indices {
		v := col.get(&table[idx])
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				col.set(&table[idx], last)
			}
			continue
		}
		last = v
	}
}

// fillWithDateMedian replaces undefined cells with the median of the
// defined values on the same date. A date with no defined value at all
// stays missing.
func fillWithDateMedian(table []domain.EnrichedRecord, indices []int, col floatColumn) {
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = col.get(&table[idx])
	}
	median := Median(values)
	if math.IsNaN(median) {
		return
	}
	for _, idx := range indices {
		if math.IsNaN(col.get(&table[idx])) {
			col.set(&table[idx], median)
		}
	}
}
