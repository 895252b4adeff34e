package features

import (
	"fmt"
	"math"
	"time"

	"evintel/pkg/contracts/domain"
)

// BuildTemporalFeatures computes the calendar attributes and the
// per-partition rolling and growth statistics. Within each (state,
// category) partition rows are visited date-ascending; the rolling mean
// uses the current observation plus up to window-1 preceding ones, so
// early rows average whatever history exists.
func BuildTemporalFeatures(table []domain.EnrichedRecord, g *Grouping, window int) {
	if window < 1 {
		window = 1
	}

	for _, indices := range g.Partitions {
		for pos, idx := range indices {
			rec := &table[idx]

			rec.RollingMeanEV = rollingMean(table, indices, pos, window)
			rec.EVGrowthRate = growthRate(table, indices, pos)

			rec.IsQ4 = isFinancialQ4(rec.Date)
			rec.IsMarch = rec.Date.Month() == time.March
			rec.MonthsFromStart = monthsBetween(g.StartDate, rec.Date)

			fy := domain.FiscalYear(rec.Date)
			q := domain.FiscalQuarter(rec.Date)
			rec.FiscalYearID = fy
			rec.Quarter = fmt.Sprintf("Q%d", q)
			rec.YearQuarter = fmt.Sprintf("FY%02d-Q%d", fy%100, q)
		}
	}
}

// rollingMean averages electric sales over the current row and up to
// window-1 preceding observations in the partition.
func rollingMean(table []domain.EnrichedRecord, indices []int, pos, window int) float64 {
	start := pos - window + 1
	if start < 0 {
		start = 0
	}
	sum := int64(0)
	for _, idx := range indices[start : pos+1] {
		sum += table[idx].ElectricVehiclesSold
	}
	return float64(sum) / float64(pos-start+1)
}

// growthRate is the percentage change versus the immediately preceding
// observation in the partition, rounded to two decimals. The first row of
// a partition and any row whose predecessor sold zero units are undefined;
// the quality pass zero-substitutes them after flagging.
func growthRate(table []domain.EnrichedRecord, indices []int, pos int) float64 {
	if pos == 0 {
		return math.NaN()
	}
	prev := table[indices[pos-1]].ElectricVehiclesSold
	if prev == 0 {
		return math.NaN()
	}
	cur := table[indices[pos]].ElectricVehiclesSold
	return Round2(float64(cur-prev) / float64(prev) * 100)
}

// isFinancialQ4 reports whether the date falls in the last quarter of the
// Indian financial year, January through March.
func isFinancialQ4(date time.Time) bool {
	switch date.Month() {
	case time.January, time.February, time.March:
		return true
	}
	return false
}
