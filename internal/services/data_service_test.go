package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evintel/internal/config"
	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts/domain"
)

// artifactColumns is a reduced header, simulating an export from an older
// pipeline version that lacks several optional feature columns.
var artifactColumns = []string{
	domain.ColState, domain.ColDate, domain.ColVehicleCategory,
	domain.ColElectricVehiclesSold, domain.ColTotalVehiclesSold,
	domain.ColEVPenetration, domain.ColStateRank, domain.ColGrowthStage,
	domain.ColRegion, domain.ColMarketMaturityScore,
}

func writeEnrichedArtifact(t *testing.T, paths *config.Paths, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0o755))

	file, err := os.Create(paths.EnrichedCSV)
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(artifactColumns))
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
}

func writeInsightsArtifact(t *testing.T, paths *config.Paths, insights domain.MarketInsights) {
	t.Helper()
	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0o755))
	data, err := json.Marshal(insights)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.InsightsJSON, data, 0o644))
}

func fixtureRows() [][]string {
	return [][]string{
		{"Goa", "2023-05-01", "2-Wheelers", "20", "100", "20.00", "2", "Maturing", "West", "70.00"},
		{"Goa", "2023-06-01", "2-Wheelers", "25", "100", "25.00", "1", "Advanced", "West", "80.00"},
		{"Goa", "2023-06-01", "4-Wheelers", "5", "50", "10.00", "2", "Developing", "West", "40.00"},
		{"Kerala", "2023-06-01", "2-Wheelers", "30", "200", "15.00", "2", "Maturing", "South", "60.00"},
		// Zero-total row: penetration, rank, and maturity undefined.
		{"Kerala", "2023-06-01", "4-Wheelers", "0", "0", "", "", "Unclassified", "South", ""},
	}
}

func newTestDataService(t *testing.T) (*DataService, *config.Paths) {
	t.Helper()
	paths := config.PathsFromRoot(t.TempDir())
	cfg := config.Default()
	return NewDataService(cfg, paths, nil), paths
}

func TestGetEnrichedFilters(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())
	ctx := context.Background()

	page, err := ds.GetEnriched(ctx, EnrichedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, artifactColumns, page.Columns)

	page, err = ds.GetEnriched(ctx, EnrichedQuery{State: "goa"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total, "state filter is case-insensitive")

	page, err = ds.GetEnriched(ctx, EnrichedQuery{Category: "4-Wheelers"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = ds.GetEnriched(ctx, EnrichedQuery{Region: "South"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	from := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	page, err = ds.GetEnriched(ctx, EnrichedQuery{From: from})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total, "May row falls outside the range")
}

func TestGetEnrichedPaging(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	page, err := ds.GetEnriched(context.Background(), EnrichedQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, 1, page.Offset)

	page, err = ds.GetEnriched(context.Background(), EnrichedQuery{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Records, "offset past the end yields an empty page")
	assert.Equal(t, 5, page.Total)
}

func TestGetEnrichedOmitsUndefinedCells(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	page, err := ds.GetEnriched(context.Background(), EnrichedQuery{State: "Kerala", Category: "4-Wheelers"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	assert.Equal(t, "Kerala", rec[domain.ColState])
	_, hasPen := rec[domain.ColEVPenetration]
	assert.False(t, hasPen, "undefined penetration is absent, not empty string")
}

func TestGetColumnsReportsMissing(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	report, err := ds.GetColumns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, artifactColumns, report.Available)
	assert.Contains(t, report.Missing, domain.ColRollingMeanEV)
	assert.Contains(t, report.Missing, domain.ColAdoptionVelocity)
	assert.NotContains(t, report.Missing, domain.ColEVPenetration)
}

func TestGetStatesLatestSnapshots(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	snaps, err := ds.GetStates(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 4, "one snapshot per (state, category) partition")

	// Sorted by state then category; the Goa 2W snapshot must be the
	// June row, not May.
	goa2w := snaps[0]
	assert.Equal(t, "Goa", goa2w.State)
	assert.Equal(t, domain.CategoryTwoWheeler, goa2w.VehicleCategory)
	require.NotNil(t, goa2w.EVPenetration)
	assert.Equal(t, 25.0, *goa2w.EVPenetration)
	assert.Equal(t, domain.StageAdvanced, goa2w.Stage)

	// The undefined Kerala 4W row keeps nil pointers.
	kerala4w := snaps[3]
	assert.Equal(t, "Kerala", kerala4w.State)
	assert.Nil(t, kerala4w.EVPenetration)
	assert.Nil(t, kerala4w.StateRank)
}

func TestGetStateDetail(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	detail, err := ds.GetStateDetail(context.Background(), "Goa")
	require.NoError(t, err)
	assert.Equal(t, "Goa", detail.State)
	assert.Equal(t, domain.RegionWest, detail.Region)
	assert.Len(t, detail.Snapshots, 2)
	assert.Len(t, detail.History, 3)

	_, err = ds.GetStateDetail(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestGetRegions(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	regions, err := ds.GetRegions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)

	// Sorted by region name: South before West.
	south := regions[0]
	assert.Equal(t, domain.RegionSouth, south.Region)
	assert.Equal(t, 1, south.StateCount)
	require.NotNil(t, south.AvgPenetration)
	assert.InDelta(t, 15.0, *south.AvgPenetration, 1e-9, "undefined partition excluded from the mean")
	assert.Equal(t, int64(30), south.TotalElectric)

	west := regions[1]
	assert.Equal(t, domain.RegionWest, west.Region)
	require.NotNil(t, west.AvgPenetration)
	assert.InDelta(t, 17.5, *west.AvgPenetration, 1e-9)
}

func TestGetInsights(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows())

	// No insights artifact yet.
	_, err := ds.GetInsights(context.Background())
	assert.ErrorIs(t, err, ErrInsightsUnavailable)

	writeInsightsArtifact(t, paths, domain.MarketInsights{
		RecordCount: 5,
		StateCount:  2,
	})
	ds.checkedAt = time.Time{} // force a re-stat

	insights, err := ds.GetInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, insights.RecordCount)
	assert.Equal(t, 2, insights.StateCount)
}

func TestMissingArtifact(t *testing.T) {
	ds, _ := newTestDataService(t)

	_, err := ds.GetEnriched(context.Background(), EnrichedQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrNoEnrichedTable)
}

func TestReloadOnArtifactChange(t *testing.T) {
	ds, paths := newTestDataService(t)
	writeEnrichedArtifact(t, paths, fixtureRows()[:2])

	page, err := ds.GetEnriched(context.Background(), EnrichedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	// Rewrite the artifact with more rows and a bumped mtime, then force
	// the refresh window open.
	writeEnrichedArtifact(t, paths, fixtureRows())
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(paths.EnrichedCSV, future, future))
	ds.checkedAt = time.Time{}

	page, err = ds.GetEnriched(context.Background(), EnrichedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
}

func TestLoadArtifactTableBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enriched.csv")
	content := "\xEF\xBB\xBFstate,date\nGoa,2023-06-01\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := loadArtifactTable(path, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "date"}, table.Columns)
}
