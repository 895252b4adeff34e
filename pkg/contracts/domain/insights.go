package domain

import (
	"time"
)

// MarketInsights is the derived summary report computed from a finished
// enriched table. It is exported alongside the table and served by the
// query API. Every field derives from the table, never from the clock,
// so identical input yields an identical report.
type MarketInsights struct {
	DateFrom    time.Time `json:"date_from"`
	DateTo      time.Time `json:"date_to"`
	RecordCount int       `json:"record_count"`
	StateCount  int       `json:"state_count"`

	TopStatesByPenetration []StateSnapshot    `json:"top_states_by_penetration"`
	TopStatesByCAGR        []CAGREntry        `json:"top_states_by_cagr"`
	PenetrationDeclines    []PenetrationDrop  `json:"penetration_declines"`
	Seasonality            *SeasonalityReport `json:"seasonality,omitempty"`
	MakerLeaders           []MakerShare       `json:"maker_leaders,omitempty"`
}

// StateSnapshot is a state's most recent standing in one category.
type StateSnapshot struct {
	State           string          `json:"state"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
	Region          Region          `json:"region"`
	Date            time.Time       `json:"date"`
	EVPenetration   *float64        `json:"ev_penetration"`
	StateRank       *float64        `json:"state_rank"`
	Stage           GrowthStage     `json:"growth_stage"`
}

// CAGREntry carries a state-category compound annual growth rate between
// its first and last fiscal year with data, plus a projection at that rate.
type CAGREntry struct {
	State           string          `json:"state"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
	StartFiscalYear int             `json:"start_fiscal_year"`
	EndFiscalYear   int             `json:"end_fiscal_year"`
	StartSales      int64           `json:"start_sales"`
	EndSales        int64           `json:"end_sales"`
	CAGRPercent     float64         `json:"cagr_percent"`
	ProjectedSales  float64         `json:"projected_sales"`
	ProjectionYears int             `json:"projection_years"`
}

// PenetrationDrop flags a state whose latest fiscal-year average
// penetration fell below the prior fiscal year's.
type PenetrationDrop struct {
	State           string          `json:"state"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
	FromFiscalYear  int             `json:"from_fiscal_year"`
	ToFiscalYear    int             `json:"to_fiscal_year"`
	FromPenetration float64         `json:"from_penetration"`
	ToPenetration   float64         `json:"to_penetration"`
	Change          float64         `json:"change"`
}

// SeasonalityReport summarises the calendar-month shape of national EV
// sales across the whole dataset.
type SeasonalityReport struct {
	PeakMonth        time.Month         `json:"peak_month"`
	LowMonth         time.Month         `json:"low_month"`
	PeakMeanSales    float64            `json:"peak_mean_sales"`
	LowMeanSales     float64            `json:"low_mean_sales"`
	PeakToLowRatio   float64            `json:"peak_to_low_ratio"`
	PeakVsAvgPercent float64            `json:"peak_vs_avg_percent"`
	MonthScores      []MonthSeasonality `json:"month_scores"`
}

// MonthSeasonality is one calendar month's mean sales and its deviation
// from the overall monthly mean (score 0 = average month).
type MonthSeasonality struct {
	Month     time.Month `json:"month"`
	MeanSales float64    `json:"mean_sales"`
	Score     float64    `json:"seasonality_score"`
}

// MakerShare is a manufacturer's share of electric sales within a category
// and fiscal year.
type MakerShare struct {
	Maker           string          `json:"maker"`
	VehicleCategory VehicleCategory `json:"vehicle_category"`
	FiscalYear      int             `json:"fiscal_year"`
	UnitsSold       int64           `json:"units_sold"`
	SharePercent    float64         `json:"share_percent"`
}
