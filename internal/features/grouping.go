package features

import (
	"math"
	"sort"
	"time"

	"evintel/pkg/contracts/domain"
)

// DateCategoryKey groups rows that share a date and vehicle category; the
// scope for market concentration.
type DateCategoryKey struct {
	Date     time.Time
	Category domain.VehicleCategory
}

// StateDateKey groups the category rows of one state on one date; the
// scope for the segment pivot.
type StateDateKey struct {
	State string
	Date  time.Time
}

// RegionDateKey groups rows that share a region and a date; the scope for
// regional averages and regional ranks.
type RegionDateKey struct {
	Region domain.Region
	Date   time.Time
}

// Grouping holds every row grouping the pipeline needs, as maps from group
// key to row indices. It is computed once per run and shared across stages
// so no stage re-groups the table. Index slices for time-ordered groupings
// are sorted date-ascending; cross-sectional groupings keep table order.
type Grouping struct {
	Partitions     map[domain.TimeSeriesKey][]int
	Dates          map[time.Time][]int
	DateCategories map[DateCategoryKey][]int
	StateDates     map[StateDateKey][]int

	// RegionDates is populated by AttachRegions once the regional stage
	// has assigned a region to every row.
	RegionDates map[RegionDateKey][]int

	// StartDate and EndDate bound the whole dataset; months_from_start is
	// measured from StartDate.
	StartDate time.Time
	EndDate   time.Time
}

// BuildGrouping derives all groupings from the table in one pass plus a
// per-partition sort.
func BuildGrouping(table []domain.EnrichedRecord) *Grouping {
	g := &Grouping{
		Partitions:     make(map[domain.TimeSeriesKey][]int),
		Dates:          make(map[time.Time][]int),
		DateCategories: make(map[DateCategoryKey][]int),
		StateDates:     make(map[StateDateKey][]int),
		RegionDates:    make(map[RegionDateKey][]int),
	}

	for i, rec := range table {
		key := rec.Key()
		g.Partitions[key] = append(g.Partitions[key], i)
		g.Dates[rec.Date] = append(g.Dates[rec.Date], i)

		dck := DateCategoryKey{Date: rec.Date, Category: rec.VehicleCategory}
		g.DateCategories[dck] = append(g.DateCategories[dck], i)

		sdk := StateDateKey{State: rec.State, Date: rec.Date}
		g.StateDates[sdk] = append(g.StateDates[sdk], i)

		if g.StartDate.IsZero() || rec.Date.Before(g.StartDate) {
			g.StartDate = rec.Date
		}
		if rec.Date.After(g.EndDate) {
			g.EndDate = rec.Date
		}
	}

	for key := range g.Partitions {
		indices := g.Partitions[key]
		sort.Slice(indices, func(a, b int) bool {
			return table[indices[a]].Date.Before(table[indices[b]].Date)
		})
	}

	return g
}

// AttachRegions builds the region-date grouping after region assignment.
func (g *Grouping) AttachRegions(table []domain.EnrichedRecord) {
	g.RegionDates = make(map[RegionDateKey][]int)
	for i, rec := range table {
		key := RegionDateKey{Region: rec.Region, Date: rec.Date}
		g.RegionDates[key] = append(g.RegionDates[key], i)
	}
}

// TotalMonths returns the month span of the dataset, zero for a
// single-month dataset.
func (g *Grouping) TotalMonths() int {
	return monthsBetween(g.StartDate, g.EndDate)
}

// SortedDates returns every distinct date ascending. Cross-sectional
// stages iterate dates in this order so runs are deterministic.
func (g *Grouping) SortedDates() []time.Time {
	dates := make([]time.Time, 0, len(g.Dates))
	for d := range g.Dates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })
	return dates
}

// monthsBetween counts whole calendar months from a to b. The day of
// month is ignored: observations are monthly.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// NewTable wraps the loaded sales records in enriched rows with every
// numeric feature initialised to the missing sentinel. Input fields are
// copied, never aliased; the pipeline owns the table for the whole run.
func NewTable(records []domain.SalesRecord) []domain.EnrichedRecord {
	nan := math.NaN()
	table := make([]domain.EnrichedRecord, len(records))
	for i, rec := range records {
		table[i] = domain.EnrichedRecord{
			SalesRecord: rec,

			RollingMeanEV: nan,
			EVGrowthRate:  nan,

			EVPenetration:       nan,
			EVPenetrationLog:    nan,
			NationalMarketShare: nan,
			StateRank:           nan,
			MarketConcentration: nan,

			RegionalAvgPenetration: nan,
			StateToRegionRatio:     nan,
			RegionalRank:           nan,
			MarketMaturityScore:    nan,
			AdoptionVelocity:       nan,
			AdoptionVelocityCapped: nan,

			SegmentPenetration2W:         nan,
			SegmentPenetration4W:         nan,
			SegmentPreferenceRatio:       nan,
			SegmentPreferenceRatioCapped: nan,
			SegmentPreferenceRatioLog:    nan,
			SegmentGrowthDiff:            nan,
		}
	}
	return table
}
