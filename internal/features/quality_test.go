package features

import (
	"math"
	"testing"
	"time"

	"evintel/internal/config"
	"evintel/pkg/contracts/domain"
)

func runFullPipeline(t *testing.T, records []domain.SalesRecord) []domain.EnrichedRecord {
	t.Helper()
	table, g := enrich(records)
	BuildTemporalFeatures(table, g, 3)
	BuildPenetrationFeatures(table, g)
	BuildRegionalFeatures(table, g, config.MaturityWeights{Penetration: 0.5, Consistency: 0.3, MarketAge: 0.2})
	BuildSegmentFeatures(table, g)
	ApplyQualityPass(table, g, 3)
	return table
}

func TestQualityPassFlagsBeforeFills(t *testing.T) {
	// A single-category state has no segment counterpart, so its preference
	// ratio and segment growth diff are undefined before the quality pass;
	// both are flagged and then median-filled from the same date.
	date := monthDate(2023, time.June)
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, date, 20, 100),
		salesRecord("Goa", domain.CategoryFourWheeler, date, 5, 100),
		salesRecord("Kerala", domain.CategoryTwoWheeler, date, 30, 100),
	}
	table := runFullPipeline(t, records)

	var kerala *domain.EnrichedRecord
	for i := range table {
		if table[i].State == "Kerala" {
			kerala = &table[i]
		}
	}

	if !kerala.IsMissingPreferenceRatio {
		t.Error("Kerala preference ratio flag = false, want true for a single-category state")
	}
	// Goa's ratio 20/5 = 4 is the only defined value on the date, so the
	// median fill resolves Kerala's ratio to it.
	if got := kerala.SegmentPreferenceRatio; !almostEqual(got, 4.0) {
		t.Errorf("Kerala filled ratio = %v, want 4.0 (same-date median)", got)
	}

	// Goa had a defined ratio, so it must not be flagged.
	for i := range table {
		if table[i].State == "Goa" && table[i].IsMissingPreferenceRatio {
			t.Error("Goa preference ratio flag = true, want false for a defined computation")
		}
	}
}

func TestQualityPassGrowthZeroSubstitution(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.April), 10, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.May), 20, 100),
	}
	table := runFullPipeline(t, records)

	if !table[0].IsMissingGrowthRate {
		t.Error("first observation growth flag = false, want true")
	}
	if got := table[0].EVGrowthRate; !almostEqual(got, 0) {
		t.Errorf("first observation growth after fill = %v, want 0", got)
	}
	if table[1].IsMissingGrowthRate {
		t.Error("defined growth flagged missing")
	}
	if got := table[1].EVGrowthRate; !almostEqual(got, 100.0) {
		t.Errorf("defined growth = %v, want 100.0 untouched by fill", got)
	}
}

func TestQualityPassVelocityForwardFill(t *testing.T) {
	// Middle observation has an unknowable penetration (zero total), so its
	// velocity is undefined and forward-filled from April's... April is the
	// partition head with no velocity either, so the May cell stays missing
	// while June fills nothing (its own velocity is also undefined because
	// May's penetration is missing).
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.April), 10, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.May), 15, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.June), 0, 0),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.July), 20, 100),
	}
	table := runFullPipeline(t, records)

	if !table[2].IsMissingAdoptionVelocity {
		t.Error("zero-total month velocity flag = false, want true")
	}
	// May's velocity (15-10)/1 = 5 carries forward into June.
	if got := table[2].AdoptionVelocity; !almostEqual(got, 5.0) {
		t.Errorf("forward-filled velocity = %v, want 5.0", got)
	}
	// July's own velocity is undefined (predecessor penetration missing)
	// and also takes the carried value.
	if got := table[3].AdoptionVelocity; !almostEqual(got, 5.0) {
		t.Errorf("July velocity = %v, want 5.0 forward-filled", got)
	}
}

func TestQualityPassCapsBounded(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.April), 1, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.May), 2, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.June), 3, 100),
		salesRecord("Goa", domain.CategoryTwoWheeler, monthDate(2023, time.July), 90, 100),
		salesRecord("Goa", domain.CategoryFourWheeler, monthDate(2023, time.April), 1, 100),
		salesRecord("Goa", domain.CategoryFourWheeler, monthDate(2023, time.May), 1, 100),
		salesRecord("Goa", domain.CategoryFourWheeler, monthDate(2023, time.June), 1, 100),
		salesRecord("Goa", domain.CategoryFourWheeler, monthDate(2023, time.July), 1, 100),
	}
	table := runFullPipeline(t, records)

	for i := range table {
		raw := table[i].AdoptionVelocity
		capped := table[i].AdoptionVelocityCapped
		if math.IsNaN(raw) || math.IsNaN(capped) {
			continue
		}
		if math.Abs(capped) > math.Abs(raw)+1e-9 {
			t.Errorf("row %d capped velocity %v exceeds raw %v in magnitude", i, capped, raw)
		}
	}
	for i := range table {
		if math.IsNaN(table[i].SegmentPreferenceRatio) {
			continue
		}
		wantLog := math.Log(table[i].SegmentPreferenceRatio + 1)
		// The log variant derives from the uncapped ratio.
		if !table[i].IsMissingPreferenceRatio && !almostEqual(table[i].SegmentPreferenceRatioLog, wantLog) {
			t.Errorf("row %d ratio log = %v, want %v", i, table[i].SegmentPreferenceRatioLog, wantLog)
		}
	}
}

func TestQualityPassCategoricalFills(t *testing.T) {
	date := monthDate(2023, time.June)
	records := []domain.SalesRecord{
		salesRecord("Atlantis", domain.CategoryTwoWheeler, date, 0, 0),
	}
	table := runFullPipeline(t, records)

	rec := table[0]
	if rec.Region != domain.RegionUnclassified {
		t.Errorf("unknown state region = %q, want %q", rec.Region, domain.RegionUnclassified)
	}
	if rec.DominantSegment != "Unclassified" {
		t.Errorf("dominant segment = %q, want Unclassified", rec.DominantSegment)
	}
	if rec.Stage != domain.StageUnclassified {
		t.Errorf("growth stage = %q, want %q", rec.Stage, domain.StageUnclassified)
	}
	// Penetration is never filled.
	if !math.IsNaN(rec.EVPenetration) {
		t.Errorf("penetration = %v, want NaN preserved through the quality pass", rec.EVPenetration)
	}
}
