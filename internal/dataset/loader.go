package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts/domain"
)

// Required column names of the state sales input.
const (
	colState    = "state"
	colDate     = "date"
	colCategory = "vehicle_category"
	colElectric = "electric_vehicles_sold"
	colTotal    = "total_vehicles_sold"
	colMaker    = "maker"
)

// dateFormats are the accepted date renderings, tried in order.
var dateFormats = []string{"2006-01-02", "02-Jan-06"}

// Loader reads sales CSVs into validated domain records.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to the default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadSales reads the state sales CSV at path. The load is all-or-nothing:
// the first schema violation aborts it, and a duplicate (state, date,
// category) combination is a violation too.
func (l *Loader) LoadSales(ctx context.Context, path string) ([]domain.SalesRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sales file: %w", err)
	}
	defer f.Close()

	records, err := l.readSales(ctx, f)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded sales records",
		"path", path,
		"rows", len(records),
	)
	return records, nil
}

func (l *Loader) readSales(ctx context.Context, r io.Reader) ([]domain.SalesRecord, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apierrors.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header, colState, colDate, colCategory, colElectric, colTotal)
	if err != nil {
		return nil, err
	}

	var records []domain.SalesRecord
	seen := make(map[string]int)
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		rec, err := parseSalesRow(fields, cols, row)
		if err != nil {
			return nil, err
		}

		key := rec.State + "|" + rec.Date.Format("2006-01-02") + "|" + string(rec.VehicleCategory)
		if prev, dup := seen[key]; dup {
			return nil, apierrors.NewSchemaRowError(colState, row,
				fmt.Sprintf("duplicate observation for %s %s on %s (first at row %d)",
					rec.State, rec.VehicleCategory, rec.Date.Format("2006-01-02"), prev), nil)
		}
		seen[key] = row

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, apierrors.ErrEmptyDataset
	}
	return records, nil
}

func parseSalesRow(fields []string, cols map[string]int, row int) (domain.SalesRecord, error) {
	var rec domain.SalesRecord

	state, err := fieldAt(fields, cols, colState, row)
	if err != nil {
		return rec, err
	}
	if state == "" {
		return rec, apierrors.NewSchemaRowError(colState, row, "state is empty", nil)
	}

	rawDate, err := fieldAt(fields, cols, colDate, row)
	if err != nil {
		return rec, err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return rec, apierrors.NewSchemaRowError(colDate, row, "unparseable date", err)
	}

	rawCat, err := fieldAt(fields, cols, colCategory, row)
	if err != nil {
		return rec, err
	}
	category, ok := NormalizeCategory(rawCat)
	if !ok {
		return rec, apierrors.NewSchemaRowError(colCategory, row,
			fmt.Sprintf("unknown vehicle category %q", rawCat), nil)
	}

	electric, err := parseCount(fields, cols, colElectric, row)
	if err != nil {
		return rec, err
	}
	total, err := parseCount(fields, cols, colTotal, row)
	if err != nil {
		return rec, err
	}
	if total < electric {
		return rec, apierrors.NewSchemaRowError(colTotal, row,
			fmt.Sprintf("total %d is below electric %d", total, electric), nil)
	}

	rec = domain.SalesRecord{
		State:                state,
		Date:                 date,
		VehicleCategory:      category,
		ElectricVehiclesSold: electric,
		TotalVehiclesSold:    total,
	}
	return rec, nil
}

// LoadMakers reads the manufacturer sales CSV at path. Maker data is
// optional for a pipeline run, but when a file is given it is held to the
// same schema strictness as the state input.
func (l *Loader) LoadMakers(ctx context.Context, path string) ([]domain.MakerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open makers file: %w", err)
	}
	defer f.Close()

	records, err := l.readMakers(ctx, f)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded maker records",
		"path", path,
		"rows", len(records),
	)
	return records, nil
}

func (l *Loader) readMakers(ctx context.Context, r io.Reader) ([]domain.MakerRecord, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apierrors.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header, colDate, colCategory, colMaker, colElectric)
	if err != nil {
		return nil, err
	}

	var records []domain.MakerRecord
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		rawDate, err := fieldAt(fields, cols, colDate, row)
		if err != nil {
			return nil, err
		}
		date, err := parseDate(rawDate)
		if err != nil {
			return nil, apierrors.NewSchemaRowError(colDate, row, "unparseable date", err)
		}

		rawCat, err := fieldAt(fields, cols, colCategory, row)
		if err != nil {
			return nil, err
		}
		category, ok := NormalizeCategory(rawCat)
		if !ok {
			return nil, apierrors.NewSchemaRowError(colCategory, row,
				fmt.Sprintf("unknown vehicle category %q", rawCat), nil)
		}

		maker, err := fieldAt(fields, cols, colMaker, row)
		if err != nil {
			return nil, err
		}
		if maker == "" {
			return nil, apierrors.NewSchemaRowError(colMaker, row, "maker is empty", nil)
		}

		electric, err := parseCount(fields, cols, colElectric, row)
		if err != nil {
			return nil, err
		}

		records = append(records, domain.MakerRecord{
			Date:                 date,
			VehicleCategory:      category,
			Maker:                maker,
			ElectricVehiclesSold: electric,
		})
	}

	if len(records) == 0 {
		return nil, apierrors.ErrEmptyDataset
	}
	return records, nil
}

// NormalizeCategory maps the category renderings seen in published data to
// the canonical labels: "2-Wheelers", "2 Wheelers", "2W" and the
// four-wheeler equivalents, case-insensitive.
func NormalizeCategory(raw string) (domain.VehicleCategory, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "-")
	switch cleaned {
	case "2-wheelers", "2-wheeler", "2w", "two-wheelers", "two-wheeler":
		return domain.CategoryTwoWheeler, true
	case "4-wheelers", "4-wheeler", "4w", "four-wheelers", "four-wheeler":
		return domain.CategoryFourWheeler, true
	}
	return "", false
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Some published exports pad rows unevenly.
	reader.FieldsPerRecord = -1
	return reader
}

// mapColumns resolves each required column name to its header position,
// case-insensitive, trimming whitespace and a UTF-8 BOM on the first cell.
func mapColumns(header []string, required ...string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		cleaned := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		if _, exists := positions[cleaned]; !exists {
			positions[cleaned] = i
		}
	}

	cols := make(map[string]int, len(required))
	for _, name := range required {
		idx, ok := positions[name]
		if !ok {
			return nil, apierrors.NewSchemaError(name, "required column is missing from the header")
		}
		cols[name] = idx
	}
	return cols, nil
}

func fieldAt(fields []string, cols map[string]int, name string, row int) (string, error) {
	idx := cols[name]
	if idx >= len(fields) {
		return "", apierrors.NewSchemaRowError(name, row, "row has too few fields", nil)
	}
	return strings.TrimSpace(fields[idx]), nil
}

func parseCount(fields []string, cols map[string]int, name string, row int) (int64, error) {
	raw, err := fieldAt(fields, cols, name, row)
	if err != nil {
		return 0, err
	}
	// Published figures sometimes carry thousands separators.
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, apierrors.NewSchemaRowError(name, row, "count is empty", nil)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierrors.NewSchemaRowError(name, row, "count is not an integer", err)
	}
	if v < 0 {
		return 0, apierrors.NewSchemaRowError(name, row, fmt.Sprintf("count %d is negative", v), nil)
	}
	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
