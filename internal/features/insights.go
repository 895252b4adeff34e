package features

import (
	"math"
	"sort"
	"time"

	"evintel/internal/config"
	"evintel/pkg/contracts/domain"
)

// BuildInsights derives the summary report from a finished enriched
// table: state CAGRs with projections, seasonality, penetration declines
// and the leader boards served by the query API. Maker records are
// optional; when present the maker leader board is attached.
func BuildInsights(table []domain.EnrichedRecord, makers []domain.MakerRecord, cfg config.PipelineConfig) domain.MarketInsights {
	insights := domain.MarketInsights{
		RecordCount: len(table),
	}
	if len(table) == 0 {
		return insights
	}

	g := BuildGrouping(table)
	insights.DateFrom = g.StartDate
	insights.DateTo = g.EndDate

	states := make(map[string]struct{})
	for i := range table {
		states[table[i].State] = struct{}{}
	}
	insights.StateCount = len(states)

	insights.TopStatesByPenetration = topStatesByPenetration(table, g, cfg.InsightTopN)
	insights.TopStatesByCAGR = topStatesByCAGR(table, g, cfg.InsightTopN, cfg.ProjectionYears)
	insights.PenetrationDeclines = penetrationDeclines(table, g)
	insights.Seasonality = buildSeasonality(table)
	if len(makers) > 0 {
		insights.MakerLeaders = MakerLeaders(makers, cfg.InsightTopN)
	}
	return insights
}

// topStatesByPenetration snapshots each partition at its latest
// observation and keeps the n highest penetrations.
func topStatesByPenetration(table []domain.EnrichedRecord, g *Grouping, n int) []domain.StateSnapshot {
	snapshots := make([]domain.StateSnapshot, 0, len(g.Partitions))
	for _, indices := range g.Partitions {
		last := &table[indices[len(indices)-1]]
		if math.IsNaN(last.EVPenetration) {
			continue
		}
		snapshots = append(snapshots, domain.StateSnapshot{
			State:           last.State,
			VehicleCategory: last.VehicleCategory,
			Region:          last.Region,
			Date:            last.Date,
			EVPenetration:   domain.Float64Ptr(last.EVPenetration),
			StateRank:       domain.Float64Ptr(last.StateRank),
			Stage:           last.Stage,
		})
	}

	sort.Slice(snapshots, func(a, b int) bool {
		pa, pb := *snapshots[a].EVPenetration, *snapshots[b].EVPenetration
		if pa != pb {
			return pa > pb
		}
		if snapshots[a].State != snapshots[b].State {
			return snapshots[a].State < snapshots[b].State
		}
		return snapshots[a].VehicleCategory < snapshots[b].VehicleCategory
	})
	if len(snapshots) > n {
		snapshots = snapshots[:n]
	}
	return snapshots
}

// topStatesByCAGR computes each partition's compound annual growth rate
// between its first and last fiscal year with sales, plus a projection at
// that rate, and keeps the n fastest growers.
func topStatesByCAGR(table []domain.EnrichedRecord, g *Grouping, n, projectionYears int) []domain.CAGREntry {
	entries := make([]domain.CAGREntry, 0, len(g.Partitions))
	for key, indices := range g.Partitions {
		entry, ok := partitionCAGR(table, indices, projectionYears)
		if !ok {
			continue
		}
		entry.State = key.State
		entry.VehicleCategory = key.VehicleCategory
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].CAGRPercent != entries[b].CAGRPercent {
			return entries[a].CAGRPercent > entries[b].CAGRPercent
		}
		if entries[a].State != entries[b].State {
			return entries[a].State < entries[b].State
		}
		return entries[a].VehicleCategory < entries[b].VehicleCategory
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// partitionCAGR sums electric sales per fiscal year within one partition
// and computes the growth rate between the first and last year. A zero
// starting year or a single-year history is undefined and excluded.
func partitionCAGR(table []domain.EnrichedRecord, indices []int, projectionYears int) (domain.CAGREntry, bool) {
	salesByFY := make(map[int]int64)
	for _, idx := range indices {
		salesByFY[table[idx].FiscalYearID] += table[idx].ElectricVehiclesSold
	}

	years := make([]int, 0, len(salesByFY))
	for fy := range salesByFY {
		years = append(years, fy)
	}
	sort.Ints(years)

	startFY, endFY := years[0], years[len(years)-1]
	startSales, endSales := salesByFY[startFY], salesByFY[endFY]
	span := endFY - startFY
	if span == 0 || startSales <= 0 {
		return domain.CAGREntry{}, false
	}

	cagr := (math.Pow(float64(endSales)/float64(startSales), 1/float64(span)) - 1) * 100
	projected := float64(endSales) * math.Pow(1+cagr/100, float64(projectionYears))

	return domain.CAGREntry{
		StartFiscalYear: startFY,
		EndFiscalYear:   endFY,
		StartSales:      startSales,
		EndSales:        endSales,
		CAGRPercent:     Round2(cagr),
		ProjectedSales:  math.Round(projected),
		ProjectionYears: projectionYears,
	}, true
}

// penetrationDeclines lists partitions whose latest fiscal-year average
// penetration fell below the prior fiscal year's, largest decline first.
func penetrationDeclines(table []domain.EnrichedRecord, g *Grouping) []domain.PenetrationDrop {
	var drops []domain.PenetrationDrop
	for key, indices := range g.Partitions {
		byFY := make(map[int][]float64)
		for _, idx := range indices {
			byFY[table[idx].FiscalYearID] = append(byFY[table[idx].FiscalYearID], table[idx].EVPenetration)
		}

		years := make([]int, 0, len(byFY))
		for fy := range byFY {
			years = append(years, fy)
		}
		if len(years) < 2 {
			continue
		}
		sort.Ints(years)

		lastFY := years[len(years)-1]
		priorFY := years[len(years)-2]
		lastAvg := Mean(byFY[lastFY])
		priorAvg := Mean(byFY[priorFY])
		if math.IsNaN(lastAvg) || math.IsNaN(priorAvg) || lastAvg >= priorAvg {
			continue
		}

		drops = append(drops, domain.PenetrationDrop{
			State:           key.State,
			VehicleCategory: key.VehicleCategory,
			FromFiscalYear:  priorFY,
			ToFiscalYear:    lastFY,
			FromPenetration: Round2(priorAvg),
			ToPenetration:   Round2(lastAvg),
			Change:          Round2(lastAvg - priorAvg),
		})
	}

	sort.Slice(drops, func(a, b int) bool {
		if drops[a].Change != drops[b].Change {
			return drops[a].Change < drops[b].Change
		}
		if drops[a].State != drops[b].State {
			return drops[a].State < drops[b].State
		}
		return drops[a].VehicleCategory < drops[b].VehicleCategory
	})
	return drops
}

// buildSeasonality summarises the calendar-month shape of national EV
// sales: monthly national totals are averaged per calendar month, then
// compared against the overall monthly mean.
func buildSeasonality(table []domain.EnrichedRecord) *domain.SeasonalityReport {
	totalsByDate := make(map[time.Time]float64)
	for i := range table {
		totalsByDate[table[i].Date] += float64(table[i].ElectricVehiclesSold)
	}
	if len(totalsByDate) == 0 {
		return nil
	}

	sumByMonth := make(map[time.Month]float64)
	countByMonth := make(map[time.Month]int)
	overall := 0.0
	for date, total := range totalsByDate {
		sumByMonth[date.Month()] += total
		countByMonth[date.Month()]++
		overall += total
	}
	overallMean := overall / float64(len(totalsByDate))
	if overallMean == 0 {
		return nil
	}

	report := &domain.SeasonalityReport{}
	for m := time.January; m <= time.December; m++ {
		count, ok := countByMonth[m]
		if !ok {
			continue
		}
		mean := sumByMonth[m] / float64(count)
		report.MonthScores = append(report.MonthScores, domain.MonthSeasonality{
			Month:     m,
			MeanSales: Round2(mean),
			Score:     Round2(mean/overallMean - 1),
		})

		if report.PeakMonth == 0 || mean > report.PeakMeanSales {
			report.PeakMonth = m
			report.PeakMeanSales = Round2(mean)
		}
		if report.LowMonth == 0 || mean < report.LowMeanSales {
			report.LowMonth = m
			report.LowMeanSales = Round2(mean)
		}
	}

	if report.LowMeanSales > 0 {
		report.PeakToLowRatio = Round2(report.PeakMeanSales / report.LowMeanSales)
	}
	report.PeakVsAvgPercent = Round2((report.PeakMeanSales/overallMean - 1) * 100)
	return report
}
