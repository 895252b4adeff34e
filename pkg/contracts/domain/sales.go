package domain

import (
	"time"
)

// VehicleCategory identifies the vehicle segment a sales record belongs to.
type VehicleCategory string

const (
	CategoryTwoWheeler  VehicleCategory = "2-Wheelers"
	CategoryFourWheeler VehicleCategory = "4-Wheelers"
)

// IsValid reports whether the category is one of the known segments.
func (c VehicleCategory) IsValid() bool {
	return c == CategoryTwoWheeler || c == CategoryFourWheeler
}

// AllCategories returns the known vehicle categories in canonical order.
func AllCategories() []VehicleCategory {
	return []VehicleCategory{CategoryTwoWheeler, CategoryFourWheeler}
}

// SalesRecord is one observed month of vehicle sales for a state and
// category. Records are immutable once loaded; the pipeline never rewrites
// input fields.
type SalesRecord struct {
	State                string          `json:"state" validate:"required"`
	Date                 time.Time       `json:"date" validate:"required"`
	VehicleCategory      VehicleCategory `json:"vehicle_category" validate:"required"`
	ElectricVehiclesSold int64           `json:"electric_vehicles_sold" validate:"min=0"`
	TotalVehiclesSold    int64           `json:"total_vehicles_sold" validate:"min=0,gtefield=ElectricVehiclesSold"`
}

// Key returns the time-series partition key for the record. Temporal
// features are computed within this partition, ordered by date.
func (r SalesRecord) Key() TimeSeriesKey {
	return TimeSeriesKey{State: r.State, VehicleCategory: r.VehicleCategory}
}

// IsValid performs the basic domain checks that do not need the full table:
// non-empty state, known category, non-negative counts, total covering the
// electric subset.
func (r SalesRecord) IsValid() bool {
	if r.State == "" || r.Date.IsZero() {
		return false
	}
	if !r.VehicleCategory.IsValid() {
		return false
	}
	if r.ElectricVehiclesSold < 0 || r.TotalVehiclesSold < 0 {
		return false
	}
	return r.TotalVehiclesSold >= r.ElectricVehiclesSold
}

// TimeSeriesKey is the (state, vehicle category) partition over which
// temporal features are computed.
type TimeSeriesKey struct {
	State           string          `json:"state"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
}

// String renders the key for logs and error messages.
func (k TimeSeriesKey) String() string {
	return k.State + "/" + string(k.VehicleCategory)
}

// MakerRecord is one observed month of electric sales for a manufacturer.
// It feeds the maker insight report only and never joins the state table.
type MakerRecord struct {
	Date                 time.Time       `json:"date" validate:"required"`
	VehicleCategory      VehicleCategory `json:"vehicle_category" validate:"required"`
	Maker                string          `json:"maker" validate:"required"`
	ElectricVehiclesSold int64           `json:"electric_vehicles_sold" validate:"min=0"`
}

// FiscalYear returns the Indian financial year a date falls in: April
// through March, labelled by the calendar year the FY ends in.
func FiscalYear(date time.Time) int {
	if int(date.Month()) < 4 {
		return date.Year()
	}
	return date.Year() + 1
}

// FiscalQuarter returns the quarter of the Indian financial year (1..4)
// for a date. Q1 is April-June; Q4 is January-March.
func FiscalQuarter(date time.Time) int {
	m := int(date.Month())
	if m >= 4 {
		return (m-4)/3 + 1
	}
	return 4
}
