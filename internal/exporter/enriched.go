package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"evintel/internal/config"
	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts"
	"evintel/pkg/contracts/domain"
)

// Exporter writes the enriched table and insights to every configured sink.
type Exporter struct {
	paths  *config.Paths
	logger *slog.Logger
	cfg    config.PipelineConfig
	csv    *CSVWriter
}

// New creates an exporter writing under the given path set.
func New(paths *config.Paths, logger *slog.Logger, cfg config.PipelineConfig) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:  paths,
		logger: logger,
		cfg:    cfg,
		csv:    NewCSVWriter(logger),
	}
}

// ExportAll writes every sink: CSV, JSON, insights, the run summary, and
// Excel when enabled. The first failing sink aborts the export.
func (e *Exporter) ExportAll(ctx context.Context, table []domain.EnrichedRecord, insights domain.MarketInsights) error {
	start := time.Now()

	if err := e.ExportCSV(ctx, table); err != nil {
		return err
	}
	if err := e.ExportJSON(ctx, table); err != nil {
		return err
	}
	if err := e.ExportInsights(ctx, insights); err != nil {
		return err
	}
	if e.cfg.ExcelEnabled {
		if err := e.ExportExcel(ctx, table, insights); err != nil {
			return err
		}
	}
	if err := e.ExportSummary(ctx, table, insights); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "export completed",
		"rows", len(table),
		"duration", time.Since(start),
		"reports_dir", e.paths.ReportsDir,
	)
	return nil
}

// ExportCSV writes the enriched table in the fixed column order.
func (e *Exporter) ExportCSV(ctx context.Context, table []domain.EnrichedRecord) error {
	records := make([][]string, len(table))
	for i := range table {
		records[i] = recordRow(&table[i])
	}

	err := e.csv.WriteCSV(e.paths.EnrichedCSV, WriteOptions{
		Headers:   domain.Columns(),
		Records:   records,
		BOMPrefix: e.cfg.CSVBOMPrefix,
	})
	if err != nil {
		return apierrors.NewExportError("csv", e.paths.EnrichedCSV, err)
	}

	e.logger.InfoContext(ctx, "wrote enriched CSV",
		"path", e.paths.EnrichedCSV,
		"rows", len(table),
	)
	return nil
}

// enrichedEnvelope is the JSON export format. Consumers key on the column
// list and the format version, never on field order. Every field derives
// from the input table, so re-running the pipeline on the same input
// reproduces the artifact byte for byte.
type enrichedEnvelope struct {
	DataThrough string                  `json:"data_through,omitempty"`
	DataFormat  string                  `json:"data_format"`
	Columns     []string                `json:"columns"`
	RowCount    int                     `json:"row_count"`
	Records     []domain.EnrichedRecord `json:"records"`
}

// ExportJSON writes the enriched table as a versioned JSON envelope with
// undefined cells rendered as null.
func (e *Exporter) ExportJSON(ctx context.Context, table []domain.EnrichedRecord) error {
	envelope := enrichedEnvelope{
		DataThrough: latestDate(table),
		DataFormat:  contracts.DataFormatVersion,
		Columns:     domain.Columns(),
		RowCount:    len(table),
		Records:     table,
	}

	if err := e.writeJSON(e.paths.EnrichedJSON, envelope); err != nil {
		return apierrors.NewExportError("json", e.paths.EnrichedJSON, err)
	}

	e.logger.InfoContext(ctx, "wrote enriched JSON",
		"path", e.paths.EnrichedJSON,
		"rows", len(table),
	)
	return nil
}

// ExportInsights writes the derived insights report.
func (e *Exporter) ExportInsights(ctx context.Context, insights domain.MarketInsights) error {
	if err := e.writeJSON(e.paths.InsightsJSON, insights); err != nil {
		return apierrors.NewExportError("insights", e.paths.InsightsJSON, err)
	}

	e.logger.InfoContext(ctx, "wrote insights JSON",
		"path", e.paths.InsightsJSON,
	)
	return nil
}

// ExportExcel writes the enriched table and an insights sheet to one
// workbook.
func (e *Exporter) ExportExcel(ctx context.Context, table []domain.EnrichedRecord, insights domain.MarketInsights) error {
	path := e.paths.EnrichedExcel
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apierrors.NewExportError("excel", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const dataSheet = "Enriched Data"
	f.SetSheetName(f.GetSheetName(0), dataSheet)

	if err := writeExcelHeader(f, dataSheet, domain.Columns()); err != nil {
		return apierrors.NewExportError("excel", path, err)
	}
	for i := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apierrors.NewExportError("excel", path, err)
		}
		row := excelRow(&table[i])
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return apierrors.NewExportError("excel", path, err)
		}
	}

	if err := writeInsightsSheet(f, insights); err != nil {
		return apierrors.NewExportError("excel", path, err)
	}

	if err := f.SaveAs(path); err != nil {
		return apierrors.NewExportError("excel", path, err)
	}

	e.logger.InfoContext(ctx, "wrote Excel workbook",
		"path", path,
		"rows", len(table),
	)
	return nil
}

// ExportSummary writes the human-readable run report.
func (e *Exporter) ExportSummary(ctx context.Context, table []domain.EnrichedRecord, insights domain.MarketInsights) error {
	path := e.paths.RunSummary
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apierrors.NewExportError("summary", path, err)
	}

	content := RenderSummary(table, insights)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return apierrors.NewExportError("summary", path, err)
	}

	e.logger.InfoContext(ctx, "wrote run summary",
		"path", path,
	)
	return nil
}

// RenderSummary builds the run-summary text. Exposed so the pipeline CLI
// can print the same report to stdout.
func RenderSummary(table []domain.EnrichedRecord, insights domain.MarketInsights) string {
	var b []byte
	add := func(format string, args ...any) {
		b = append(b, fmt.Sprintf(format+"\n", args...)...)
	}

	add("%s — run summary", contracts.GetVersionString())
	add("")
	add("rows:    %d", insights.RecordCount)
	add("states:  %d", insights.StateCount)
	if !insights.DateFrom.IsZero() {
		add("period:  %s to %s",
			insights.DateFrom.Format("2006-01"), insights.DateTo.Format("2006-01"))
	}

	undefined := 0
	for i := range table {
		if math.IsNaN(table[i].EVPenetration) {
			undefined++
		}
	}
	add("rows with undefined penetration: %d", undefined)

	if len(insights.TopStatesByPenetration) > 0 {
		add("")
		add("top states by EV penetration:")
		for i, s := range insights.TopStatesByPenetration {
			pen := math.NaN()
			if s.EVPenetration != nil {
				pen = *s.EVPenetration
			}
			add("  %2d. %-20s %-12s %6.2f%%", i+1, s.State, s.VehicleCategory, pen)
		}
	}

	if len(insights.TopStatesByCAGR) > 0 {
		add("")
		add("fastest-growing states (CAGR):")
		for i, c := range insights.TopStatesByCAGR {
			add("  %2d. %-20s %-12s %7.2f%%  (FY%d-FY%d)",
				i+1, c.State, c.VehicleCategory, c.CAGRPercent, c.StartFiscalYear, c.EndFiscalYear)
		}
	}

	if len(insights.PenetrationDeclines) > 0 {
		add("")
		add("penetration declines:")
		for _, d := range insights.PenetrationDeclines {
			add("  %-20s %-12s %.2f%% -> %.2f%% (FY%d to FY%d)",
				d.State, d.VehicleCategory, d.FromPenetration, d.ToPenetration,
				d.FromFiscalYear, d.ToFiscalYear)
		}
	}

	if insights.Seasonality != nil {
		add("")
		add("seasonality: peak %s (%.0f avg), low %s (%.0f avg), ratio %.2f",
			insights.Seasonality.PeakMonth, insights.Seasonality.PeakMeanSales,
			insights.Seasonality.LowMonth, insights.Seasonality.LowMeanSales,
			insights.Seasonality.PeakToLowRatio)
	}

	return string(b)
}

// latestDate is the newest observation month in the table, or "" for an
// empty table.
func latestDate(table []domain.EnrichedRecord) string {
	var latest time.Time
	for i := range table {
		if table[i].Date.After(latest) {
			latest = table[i].Date
		}
	}
	if latest.IsZero() {
		return ""
	}
	return latest.Format("2006-01-02")
}

func (e *Exporter) writeJSON(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// recordRow renders one enriched record in domain.Columns() order.
func recordRow(r *domain.EnrichedRecord) []string {
	return []string{
		r.State,
		r.Date.Format("2006-01-02"),
		string(r.VehicleCategory),
		formatInt(r.ElectricVehiclesSold),
		formatInt(r.TotalVehiclesSold),

		formatFloat(r.RollingMeanEV),
		formatFloat(r.EVGrowthRate),
		formatBool(r.IsQ4),
		formatBool(r.IsMarch),
		formatInt(int64(r.MonthsFromStart)),
		formatInt(int64(r.FiscalYearID)),
		r.Quarter,
		r.YearQuarter,

		formatFloat(r.EVPenetration),
		formatFloat4(r.EVPenetrationLog),
		formatFloat(r.NationalMarketShare),
		formatRank(r.StateRank),
		string(r.Stage),
		formatFloat4(r.MarketConcentration),

		string(r.Region),
		formatFloat(r.RegionalAvgPenetration),
		formatFloat4(r.StateToRegionRatio),
		formatRank(r.RegionalRank),
		formatFloat(r.MarketMaturityScore),
		formatFloat4(r.AdoptionVelocity),
		formatFloat4(r.AdoptionVelocityCapped),

		formatFloat(r.SegmentPenetration2W),
		formatFloat(r.SegmentPenetration4W),
		formatFloat4(r.SegmentPreferenceRatio),
		formatFloat4(r.SegmentPreferenceRatioCapped),
		formatFloat4(r.SegmentPreferenceRatioLog),
		r.DominantSegment,
		formatFloat(r.SegmentGrowthDiff),

		formatBool(r.IsMissingGrowthRate),
		formatBool(r.IsMissingPreferenceRatio),
		formatBool(r.IsMissingSegmentGrowth),
		formatBool(r.IsMissingRegionalAvg),
		formatBool(r.IsMissingAdoptionVelocity),
	}
}

// excelRow mirrors recordRow with native types so Excel keeps numerics as
// numbers; undefined cells become empty strings.
func excelRow(r *domain.EnrichedRecord) []any {
	num := func(v float64) any {
		if math.IsNaN(v) {
			return ""
		}
		return v
	}
	return []any{
		r.State,
		r.Date.Format("2006-01-02"),
		string(r.VehicleCategory),
		r.ElectricVehiclesSold,
		r.TotalVehiclesSold,

		num(r.RollingMeanEV),
		num(r.EVGrowthRate),
		r.IsQ4,
		r.IsMarch,
		r.MonthsFromStart,
		r.FiscalYearID,
		r.Quarter,
		r.YearQuarter,

		num(r.EVPenetration),
		num(r.EVPenetrationLog),
		num(r.NationalMarketShare),
		num(r.StateRank),
		string(r.Stage),
		num(r.MarketConcentration),

		string(r.Region),
		num(r.RegionalAvgPenetration),
		num(r.StateToRegionRatio),
		num(r.RegionalRank),
		num(r.MarketMaturityScore),
		num(r.AdoptionVelocity),
		num(r.AdoptionVelocityCapped),

		num(r.SegmentPenetration2W),
		num(r.SegmentPenetration4W),
		num(r.SegmentPreferenceRatio),
		num(r.SegmentPreferenceRatioCapped),
		num(r.SegmentPreferenceRatioLog),
		r.DominantSegment,
		num(r.SegmentGrowthDiff),

		r.IsMissingGrowthRate,
		r.IsMissingPreferenceRatio,
		r.IsMissingSegmentGrowth,
		r.IsMissingRegionalAvg,
		r.IsMissingAdoptionVelocity,
	}
}

func writeExcelHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return f.SetSheetRow(sheet, "A1", &row)
}

func writeInsightsSheet(f *excelize.File, insights domain.MarketInsights) error {
	const sheet = "Insights"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	write := func(values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write("Top States by EV Penetration"); err != nil {
		return err
	}
	if err := write("State", "Category", "Region", "Penetration %", "Rank", "Stage"); err != nil {
		return err
	}
	for _, s := range insights.TopStatesByPenetration {
		pen, rank := any(""), any("")
		if s.EVPenetration != nil {
			pen = *s.EVPenetration
		}
		if s.StateRank != nil {
			rank = *s.StateRank
		}
		if err := write(s.State, string(s.VehicleCategory), string(s.Region), pen, rank, string(s.Stage)); err != nil {
			return err
		}
	}

	row++
	if err := write("Fastest-Growing States (CAGR)"); err != nil {
		return err
	}
	if err := write("State", "Category", "CAGR %", "From FY", "To FY", "Projected Sales"); err != nil {
		return err
	}
	for _, c := range insights.TopStatesByCAGR {
		if err := write(c.State, string(c.VehicleCategory), c.CAGRPercent,
			c.StartFiscalYear, c.EndFiscalYear, c.ProjectedSales); err != nil {
			return err
		}
	}

	if insights.Seasonality != nil {
		row++
		if err := write("Seasonality"); err != nil {
			return err
		}
		if err := write("Month", "Mean Sales", "Score"); err != nil {
			return err
		}
		for _, m := range insights.Seasonality.MonthScores {
			if err := write(m.Month.String(), m.MeanSales, m.Score); err != nil {
				return err
			}
		}
	}

	return nil
}
