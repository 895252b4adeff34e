package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"evintel/internal/config"
	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts/domain"
)

// DataService serves the exported pipeline artifacts: the enriched table
// (CSV, read header-driven) and the insight report (JSON). Artifacts are
// cached in memory and re-read when their mtime changes.
type DataService struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger

	mu          sync.RWMutex
	table       *artifactTable
	insights    *domain.MarketInsights
	insightsMod time.Time
	checkedAt   time.Time
}

// artifactTable is a header-driven view of the enriched CSV. Cells are
// kept as exported strings; an empty cell is an undefined feature value.
type artifactTable struct {
	Columns []string
	Rows    [][]string
	ModTime time.Time

	index map[string]int
}

// EnrichedQuery filters the enriched table. Zero values mean "no filter".
type EnrichedQuery struct {
	State    string
	Category string
	Region   string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// EnrichedPage is one page of enriched rows, keyed by column name.
// Undefined cells are omitted from each record.
type EnrichedPage struct {
	Columns         []string            `json:"columns"`
	Total           int                 `json:"total"`
	Limit           int                 `json:"limit"`
	Offset          int                 `json:"offset"`
	ArtifactModTime time.Time           `json:"artifact_mod_time"`
	Records         []map[string]string `json:"records"`
}

// ColumnsReport lists which enriched columns the current artifact carries.
type ColumnsReport struct {
	Available       []string  `json:"available"`
	Missing         []string  `json:"missing"`
	ArtifactModTime time.Time `json:"artifact_mod_time"`
}

// RegionSummary aggregates the latest state snapshots within one region.
type RegionSummary struct {
	Region           domain.Region `json:"region"`
	StateCount       int           `json:"state_count"`
	TotalElectric    int64         `json:"total_electric_vehicles_sold"`
	AvgPenetration   *float64      `json:"avg_penetration"`
	AvgMaturityScore *float64      `json:"avg_maturity_score"`
}

// StateDetail is one state's latest snapshots plus its full row history.
type StateDetail struct {
	State     string                 `json:"state"`
	Region    domain.Region          `json:"region"`
	Snapshots []domain.StateSnapshot `json:"snapshots"`
	History   []map[string]string    `json:"history"`
}

// NewDataService creates a data service over the configured report paths.
func NewDataService(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("data service initialized",
		slog.String("enriched_csv", paths.EnrichedCSV),
		slog.String("insights_json", paths.InsightsJSON))

	return &DataService{
		cfg:    cfg,
		paths:  paths,
		logger: logger,
	}
}

// GetEnriched returns enriched rows matching the query, paged.
func (ds *DataService) GetEnriched(ctx context.Context, q EnrichedQuery) (*EnrichedPage, error) {
	table, err := ds.currentTable(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if table.matches(row, q) {
			matched = append(matched, row)
		}
	}

	limit := q.Limit
	if limit <= 0 || limit > len(matched) {
		limit = len(matched)
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := &EnrichedPage{
		Columns:         table.Columns,
		Total:           len(matched),
		Limit:           limit,
		Offset:          offset,
		ArtifactModTime: table.ModTime,
		Records:         make([]map[string]string, 0, end-offset),
	}
	for _, row := range matched[offset:end] {
		page.Records = append(page.Records, table.record(row))
	}

	ds.logger.DebugContext(ctx, "enriched query served",
		slog.Int("total", page.Total),
		slog.Int("returned", len(page.Records)))

	return page, nil
}

// GetColumns reports which enriched columns the artifact carries, compared
// against the full schema of the current pipeline version.
func (ds *DataService) GetColumns(ctx context.Context) (*ColumnsReport, error) {
	table, err := ds.currentTable(ctx)
	if err != nil {
		return nil, err
	}

	report := &ColumnsReport{
		Available:       table.Columns,
		Missing:         []string{},
		ArtifactModTime: table.ModTime,
	}
	for _, col := range domain.Columns() {
		if _, ok := table.index[col]; !ok {
			report.Missing = append(report.Missing, col)
		}
	}
	return report, nil
}

// GetStates returns the latest snapshot per (state, category) partition.
func (ds *DataService) GetStates(ctx context.Context) ([]domain.StateSnapshot, error) {
	table, err := ds.currentTable(ctx)
	if err != nil {
		return nil, err
	}
	return table.latestSnapshots(""), nil
}

// GetStateDetail returns one state's latest snapshots and row history.
func (ds *DataService) GetStateDetail(ctx context.Context, state string) (*StateDetail, error) {
	table, err := ds.currentTable(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := table.latestSnapshots(state)
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%q: %w", state, ErrStateNotFound)
	}

	detail := &StateDetail{
		State:     snapshots[0].State,
		Region:    snapshots[0].Region,
		Snapshots: snapshots,
		History:   []map[string]string{},
	}
	for _, row := range table.Rows {
		if strings.EqualFold(table.cell(row, domain.ColState), state) {
			detail.History = append(detail.History, table.record(row))
		}
	}
	return detail, nil
}

// GetRegions aggregates the latest snapshots into per-region summaries.
func (ds *DataService) GetRegions(ctx context.Context) ([]RegionSummary, error) {
	table, err := ds.currentTable(ctx)
	if err != nil {
		return nil, err
	}

	type regionAgg struct {
		states        map[string]struct{}
		electric      int64
		penSum        float64
		penCount      int
		maturitySum   float64
		maturityCount int
	}
	aggs := make(map[domain.Region]*regionAgg)

	for _, snap := range table.latestSnapshots("") {
		agg := aggs[snap.Region]
		if agg == nil {
			agg = &regionAgg{states: make(map[string]struct{})}
			aggs[snap.Region] = agg
		}
		agg.states[snap.State] = struct{}{}
		if snap.EVPenetration != nil {
			agg.penSum += *snap.EVPenetration
			agg.penCount++
		}
	}

	// Electric totals and maturity come from the latest rows directly;
	// snapshots only carry the headline fields.
	latest := table.latestRows("")
	for _, row := range latest {
		region := domain.Region(table.cell(row, domain.ColRegion))
		agg := aggs[region]
		if agg == nil {
			continue
		}
		if ev, err := strconv.ParseInt(table.cell(row, domain.ColElectricVehiclesSold), 10, 64); err == nil {
			agg.electric += ev
		}
		if m, ok := table.float(row, domain.ColMarketMaturityScore); ok {
			agg.maturitySum += m
			agg.maturityCount++
		}
	}

	summaries := make([]RegionSummary, 0, len(aggs))
	for region, agg := range aggs {
		summary := RegionSummary{
			Region:        region,
			StateCount:    len(agg.states),
			TotalElectric: agg.electric,
		}
		if agg.penCount > 0 {
			avg := agg.penSum / float64(agg.penCount)
			summary.AvgPenetration = &avg
		}
		if agg.maturityCount > 0 {
			avg := agg.maturitySum / float64(agg.maturityCount)
			summary.AvgMaturityScore = &avg
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Region < summaries[j].Region
	})
	return summaries, nil
}

// GetInsights returns the exported insight report.
func (ds *DataService) GetInsights(ctx context.Context) (*domain.MarketInsights, error) {
	if err := ds.refresh(ctx); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.insights == nil {
		return nil, ErrInsightsUnavailable
	}
	return ds.insights, nil
}

// currentTable refreshes and returns the cached enriched table.
func (ds *DataService) currentTable(ctx context.Context) (*artifactTable, error) {
	if err := ds.refresh(ctx); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.table == nil {
		return nil, apierrors.ErrNoEnrichedTable
	}
	return ds.table, nil
}

// refresh re-reads artifacts when the refresh interval elapsed and the
// files on disk changed. The enriched table is required; the insight
// report is optional.
func (ds *DataService) refresh(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.table != nil && time.Since(ds.checkedAt) < config.ArtifactRefreshInterval {
		return nil
	}
	ds.checkedAt = time.Now()

	csvInfo, err := os.Stat(ds.paths.EnrichedCSV)
	if err != nil {
		if os.IsNotExist(err) {
			ds.table = nil
			return fmt.Errorf("%s: %w", ds.paths.EnrichedCSV, apierrors.ErrNoEnrichedTable)
		}
		return fmt.Errorf("stat enriched table: %w", err)
	}

	insightsInfo, insightsErr := os.Stat(ds.paths.InsightsJSON)

	tableFresh := ds.table != nil && csvInfo.ModTime().Equal(ds.table.ModTime)
	insightsFresh := insightsErr == nil && ds.insights != nil && insightsInfo.ModTime().Equal(ds.insightsMod)
	if tableFresh && (insightsErr != nil || insightsFresh) {
		return nil
	}

	var (
		table    *artifactTable
		insights *domain.MarketInsights
	)

	g, gctx := errgroup.WithContext(ctx)
	if !tableFresh {
		g.Go(func() error {
			var loadErr error
			table, loadErr = loadArtifactTable(ds.paths.EnrichedCSV, csvInfo.ModTime())
			if loadErr != nil {
				return fmt.Errorf("load enriched table: %w", loadErr)
			}
			return gctx.Err()
		})
	}
	if insightsErr == nil && !insightsFresh {
		g.Go(func() error {
			var loadErr error
			insights, loadErr = loadInsights(ds.paths.InsightsJSON)
			if loadErr != nil {
				// A bad insights artifact degrades the insight
				// endpoint but must not take the table down.
				ds.logger.WarnContext(gctx, "insights artifact unreadable",
					slog.String("path", ds.paths.InsightsJSON),
					slog.String("error", loadErr.Error()))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if table != nil {
		ds.table = table
		ds.logger.InfoContext(ctx, "enriched table reloaded",
			slog.Int("rows", len(table.Rows)),
			slog.Int("columns", len(table.Columns)),
			slog.Time("mod_time", table.ModTime))
	}
	if insights != nil {
		ds.insights = insights
		ds.insightsMod = insightsInfo.ModTime()
	}
	return nil
}

func loadArtifactTable(path string, modTime time.Time) (*artifactTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, apierrors.ErrEmptyDataset
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	table := &artifactTable{
		Columns: header,
		Rows:    records[1:],
		ModTime: modTime,
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		table.index[name] = i
	}
	return table, nil
}

func loadInsights(path string) (*domain.MarketInsights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var insights domain.MarketInsights
	if err := json.Unmarshal(data, &insights); err != nil {
		return nil, fmt.Errorf("parse insights: %w", err)
	}
	return &insights, nil
}

// cell returns the raw cell for a column, or "" when the column is absent.
func (t *artifactTable) cell(row []string, column string) string {
	idx, ok := t.index[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// float parses a numeric cell; ok is false for absent or undefined cells.
func (t *artifactTable) float(row []string, column string) (float64, bool) {
	raw := t.cell(row, column)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// date parses the row's observation date.
func (t *artifactTable) date(row []string) (time.Time, bool) {
	raw := t.cell(row, domain.ColDate)
	if raw == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// record converts a row into a column-keyed map, omitting undefined cells.
func (t *artifactTable) record(row []string) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(row) && row[i] != "" {
			out[col] = row[i]
		}
	}
	return out
}

func (t *artifactTable) matches(row []string, q EnrichedQuery) bool {
	if q.State != "" && !strings.EqualFold(t.cell(row, domain.ColState), q.State) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(t.cell(row, domain.ColVehicleCategory), q.Category) {
		return false
	}
	if q.Region != "" && !strings.EqualFold(t.cell(row, domain.ColRegion), q.Region) {
		return false
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		d, ok := t.date(row)
		if !ok {
			return false
		}
		if !q.From.IsZero() && d.Before(q.From) {
			return false
		}
		if !q.To.IsZero() && d.After(q.To) {
			return false
		}
	}
	return true
}

// latestRows returns the most recent row per (state, category) partition,
// optionally restricted to one state. Order is state then category.
func (t *artifactTable) latestRows(state string) [][]string {
	type partition struct {
		key  string
		row  []string
		date time.Time
	}
	latest := make(map[string]*partition)

	for _, row := range t.Rows {
		rowState := t.cell(row, domain.ColState)
		if state != "" && !strings.EqualFold(rowState, state) {
			continue
		}
		d, ok := t.date(row)
		if !ok {
			continue
		}
		key := rowState + "|" + t.cell(row, domain.ColVehicleCategory)
		if cur, exists := latest[key]; !exists || d.After(cur.date) {
			latest[key] = &partition{key: key, row: row, date: d}
		}
	}

	keys := make([]string, 0, len(latest))
	for key := range latest {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, latest[key].row)
	}
	return rows
}

// latestSnapshots converts the latest partition rows into snapshots.
func (t *artifactTable) latestSnapshots(state string) []domain.StateSnapshot {
	rows := t.latestRows(state)
	snapshots := make([]domain.StateSnapshot, 0, len(rows))
	for _, row := range rows {
		snap := domain.StateSnapshot{
			State:           t.cell(row, domain.ColState),
			VehicleCategory: domain.VehicleCategory(t.cell(row, domain.ColVehicleCategory)),
			Region:          domain.Region(t.cell(row, domain.ColRegion)),
			Stage:           domain.GrowthStage(t.cell(row, domain.ColGrowthStage)),
		}
		if d, ok := t.date(row); ok {
			snap.Date = d
		}
		if pen, ok := t.float(row, domain.ColEVPenetration); ok {
			snap.EVPenetration = &pen
		}
		if rank, ok := t.float(row, domain.ColStateRank); ok {
			snap.StateRank = &rank
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}
