package exporter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"evintel/internal/config"
	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts"
	"evintel/pkg/contracts/domain"
)

func testExporter(t *testing.T) (*Exporter, *config.Paths) {
	t.Helper()
	paths := config.PathsFromRoot(t.TempDir())
	cfg := config.Default().Pipeline
	return New(paths, nil, cfg), paths
}

func sampleTable() []domain.EnrichedRecord {
	nan := math.NaN()
	return []domain.EnrichedRecord{
		{
			SalesRecord: domain.SalesRecord{
				State:                "Goa",
				Date:                 time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
				VehicleCategory:      domain.CategoryTwoWheeler,
				ElectricVehiclesSold: 25,
				TotalVehiclesSold:    100,
			},
			RollingMeanEV:                25,
			EVGrowthRate:                 13.4,
			MonthsFromStart:              0,
			FiscalYearID:                 2024,
			Quarter:                      "Q1",
			YearQuarter:                  "FY24-Q1",
			EVPenetration:                25,
			EVPenetrationLog:             math.Log(26),
			NationalMarketShare:          100,
			StateRank:                    1,
			Stage:                        domain.StageAdvanced,
			MarketConcentration:          1,
			Region:                       domain.RegionWest,
			RegionalAvgPenetration:       25,
			StateToRegionRatio:           1,
			RegionalRank:                 1,
			MarketMaturityScore:          80,
			AdoptionVelocity:             nan,
			AdoptionVelocityCapped:       nan,
			SegmentPenetration2W:         25,
			SegmentPenetration4W:         nan,
			SegmentPreferenceRatio:       nan,
			SegmentPreferenceRatioCapped: nan,
			SegmentPreferenceRatioLog:    nan,
			DominantSegment:              "Unclassified",
			SegmentGrowthDiff:            nan,
			IsMissingPreferenceRatio:     true,
			IsMissingAdoptionVelocity:    true,
		},
	}
}

func sampleInsights() domain.MarketInsights {
	pen := 25.0
	rank := 1.0
	return domain.MarketInsights{
		DateFrom:    time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		DateTo:      time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		RecordCount: 1,
		StateCount:  1,
		TopStatesByPenetration: []domain.StateSnapshot{{
			State:           "Goa",
			VehicleCategory: domain.CategoryTwoWheeler,
			Region:          domain.RegionWest,
			EVPenetration:   &pen,
			StateRank:       &rank,
			Stage:           domain.StageAdvanced,
		}},
	}
}

func TestExportCSV(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportCSV(context.Background(), sampleTable()))

	f, err := os.Open(paths.EnrichedCSV)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.Columns(), rows[0], "header must follow the fixed column order")

	record := rows[1]
	require.Len(t, record, len(domain.Columns()))
	assert.Equal(t, "Goa", record[0])
	assert.Equal(t, "2023-06-01", record[1])
	assert.Equal(t, "2-Wheelers", record[2])
	assert.Equal(t, "25", record[3])

	cols := map[string]int{}
	for i, name := range domain.Columns() {
		cols[name] = i
	}
	assert.Equal(t, "13.40", record[cols[domain.ColEVGrowthRate]], "2 decimals always")
	assert.Equal(t, "25.00", record[cols[domain.ColEVPenetration]])
	assert.Equal(t, "1", record[cols[domain.ColStateRank]], "ranks render whole")
	assert.Equal(t, "", record[cols[domain.ColAdoptionVelocity]], "undefined cells render empty")
	assert.Equal(t, "true", record[cols[domain.ColIsMissingAdoptionVelocity]])
	assert.Equal(t, "false", record[cols[domain.ColIsMissingGrowthRate]])
}

func TestExportCSVBOMPrefix(t *testing.T) {
	paths := config.PathsFromRoot(t.TempDir())
	cfg := config.Default().Pipeline
	cfg.CSVBOMPrefix = true
	exp := New(paths, nil, cfg)

	require.NoError(t, exp.ExportCSV(context.Background(), sampleTable()))

	data, err := os.ReadFile(paths.EnrichedCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))
}

func TestExportJSON(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportJSON(context.Background(), sampleTable()))

	data, err := os.ReadFile(paths.EnrichedJSON)
	require.NoError(t, err)

	var envelope struct {
		DataFormat string                   `json:"data_format"`
		Columns    []string                 `json:"columns"`
		RowCount   int                      `json:"row_count"`
		Records    []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))

	assert.Equal(t, contracts.DataFormatVersion, envelope.DataFormat)
	assert.Equal(t, domain.Columns(), envelope.Columns)
	assert.Equal(t, 1, envelope.RowCount)
	require.Len(t, envelope.Records, 1)

	rec := envelope.Records[0]
	assert.Equal(t, "Goa", rec["state"])
	assert.Nil(t, rec["adoption_velocity"], "NaN renders as JSON null")
	assert.Equal(t, 25.0, rec["ev_penetration"])
}

func TestExportInsights(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportInsights(context.Background(), sampleInsights()))

	data, err := os.ReadFile(paths.InsightsJSON)
	require.NoError(t, err)

	var decoded domain.MarketInsights
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.RecordCount)
	require.Len(t, decoded.TopStatesByPenetration, 1)
	assert.Equal(t, "Goa", decoded.TopStatesByPenetration[0].State)
}

func TestExportExcel(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportExcel(context.Background(), sampleTable(), sampleInsights()))

	f, err := excelize.OpenFile(paths.EnrichedExcel)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Enriched Data")
	assert.Contains(t, sheets, "Insights")

	rows, err := f.GetRows("Enriched Data")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, domain.ColState, rows[0][0])
	assert.Equal(t, "Goa", rows[1][0])
}

func TestExportSummary(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportSummary(context.Background(), sampleTable(), sampleInsights()))

	data, err := os.ReadFile(paths.RunSummary)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "run summary")
	assert.Contains(t, content, "rows:    1")
	assert.Contains(t, content, "Goa")
}

func TestExportJSONDataThrough(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportJSON(context.Background(), sampleTable()))

	data, err := os.ReadFile(paths.EnrichedJSON)
	require.NoError(t, err)

	var envelope struct {
		DataThrough string `json:"data_through"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "2023-06-01", envelope.DataThrough, "envelope dates come from the data, not the clock")
}

func TestExportIsReproducible(t *testing.T) {
	table := sampleTable()
	insights := sampleInsights()

	export := func() map[string][]byte {
		exp, paths := testExporter(t)
		require.NoError(t, exp.ExportCSV(context.Background(), table))
		require.NoError(t, exp.ExportJSON(context.Background(), table))
		require.NoError(t, exp.ExportInsights(context.Background(), insights))
		require.NoError(t, exp.ExportSummary(context.Background(), table, insights))

		out := map[string][]byte{}
		for _, path := range []string{
			paths.EnrichedCSV, paths.EnrichedJSON, paths.InsightsJSON, paths.RunSummary,
		} {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			out[filepath.Base(path)] = data
		}
		return out
	}

	first := export()
	second := export()
	for name, data := range first {
		assert.Equal(t, data, second[name], "artifact %s must be byte-identical across runs", name)
	}
}

func TestExportAll(t *testing.T) {
	exp, paths := testExporter(t)
	require.NoError(t, exp.ExportAll(context.Background(), sampleTable(), sampleInsights()))

	for _, path := range []string{
		paths.EnrichedCSV, paths.EnrichedJSON, paths.InsightsJSON,
		paths.EnrichedExcel, paths.RunSummary,
	} {
		assert.True(t, config.FileExists(path), "expected artifact %s", path)
	}
}

func TestExportAllExcelDisabled(t *testing.T) {
	paths := config.PathsFromRoot(t.TempDir())
	cfg := config.Default().Pipeline
	cfg.ExcelEnabled = false
	exp := New(paths, nil, cfg)

	require.NoError(t, exp.ExportAll(context.Background(), sampleTable(), sampleInsights()))
	assert.False(t, config.FileExists(paths.EnrichedExcel))
	assert.True(t, config.FileExists(paths.EnrichedCSV))
}

func TestExportErrorOnUnwritableSink(t *testing.T) {
	root := t.TempDir()
	paths := config.PathsFromRoot(root)

	// Occupy the reports path with a file so the directory cannot exist.
	require.NoError(t, os.MkdirAll(paths.DataDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ReportsDir, []byte("blocker"), 0o644))

	exp := New(paths, nil, config.Default().Pipeline)
	err := exp.ExportCSV(context.Background(), sampleTable())
	require.Error(t, err)
	assert.True(t, apierrors.IsExportError(err), "want ExportError, got %T: %v", err, err)
	assert.Contains(t, err.Error(), "csv")
}
