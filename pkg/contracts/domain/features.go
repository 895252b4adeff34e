package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Region is the geographic bucket a state aggregates under. Assignment is a
// pure function of the state's representative coordinate; RegionUnclassified
// is the zero value used only before the quality pass fills categoricals.
type Region string

const (
	RegionUnclassified Region = "Unclassified"
	RegionNorth        Region = "North"
	RegionSouth        Region = "South"
	RegionEast         Region = "East"
	RegionWest         Region = "West"
	RegionCentral      Region = "Central"
	RegionNortheast    Region = "Northeast"
	RegionNorthwest    Region = "Northwest"
)

// IsValid reports whether the region is one of the seven assignable buckets.
func (r Region) IsValid() bool {
	switch r {
	case RegionNorth, RegionSouth, RegionEast, RegionWest,
		RegionCentral, RegionNortheast, RegionNorthwest:
		return true
	}
	return false
}

// AllRegions returns the assignable regions in canonical order.
func AllRegions() []Region {
	return []Region{
		RegionNorth, RegionSouth, RegionEast, RegionWest,
		RegionCentral, RegionNortheast, RegionNorthwest,
	}
}

// GrowthStage buckets a row by where its penetration sits in the global
// penetration distribution (quartile boundaries computed once per run).
type GrowthStage string

const (
	StageUnclassified GrowthStage = "Unclassified"
	StageEarly        GrowthStage = "Early"
	StageDeveloping   GrowthStage = "Developing"
	StageMaturing     GrowthStage = "Maturing"
	StageAdvanced     GrowthStage = "Advanced"
)

// EnrichedRecord is a SalesRecord plus every derived feature the pipeline
// computes. The schema is fixed: each feature is a struct field, and the
// export column order in Columns() is the only ordering contract consumers
// may rely on.
//
// Numeric features use NaN as the in-flight missing sentinel; JSON
// marshalling turns NaN into null and the CSV exporter writes an empty
// cell. Ranks are float64 so they can carry the same sentinel; defined
// ranks are always whole numbers.
type EnrichedRecord struct {
	SalesRecord

	// Temporal features (per state-category partition, date ascending).
	RollingMeanEV   float64 `json:"rolling_mean_ev"`
	EVGrowthRate    float64 `json:"ev_growth_rate"`
	IsQ4            bool    `json:"is_q4"`
	IsMarch         bool    `json:"is_march"`
	MonthsFromStart int     `json:"months_from_start"`
	FiscalYearID    int     `json:"fiscal_year"`
	Quarter         string  `json:"quarter"`
	YearQuarter     string  `json:"year_quarter"`

	// Penetration and cross-sectional market structure.
	EVPenetration       float64     `json:"ev_penetration"`
	EVPenetrationLog    float64     `json:"ev_penetration_log"`
	NationalMarketShare float64     `json:"national_market_share"`
	StateRank           float64     `json:"state_rank"`
	Stage               GrowthStage `json:"growth_stage"`
	MarketConcentration float64     `json:"market_concentration"`

	// Regional aggregation.
	Region                 Region  `json:"region"`
	RegionalAvgPenetration float64 `json:"regional_avg_penetration"`
	StateToRegionRatio     float64 `json:"state_to_region_ratio"`
	RegionalRank           float64 `json:"regional_rank"`
	MarketMaturityScore    float64 `json:"market_maturity_score"`
	AdoptionVelocity       float64 `json:"adoption_velocity"`
	AdoptionVelocityCapped float64 `json:"adoption_velocity_capped"`

	// Segment comparison (pivoted onto every row of the state-date).
	SegmentPenetration2W         float64 `json:"segment_penetration_2w"`
	SegmentPenetration4W         float64 `json:"segment_penetration_4w"`
	SegmentPreferenceRatio       float64 `json:"segment_preference_ratio"`
	SegmentPreferenceRatioCapped float64 `json:"segment_preference_ratio_capped"`
	SegmentPreferenceRatioLog    float64 `json:"segment_preference_ratio_log"`
	DominantSegment              string  `json:"dominant_segment"`
	SegmentGrowthDiff            float64 `json:"segment_growth_diff"`

	// Missing flags: true exactly when the source computation was undefined
	// before any fill or zero-substitution policy ran.
	IsMissingGrowthRate       bool `json:"is_missing_ev_growth_rate"`
	IsMissingPreferenceRatio  bool `json:"is_missing_segment_preference_ratio"`
	IsMissingSegmentGrowth    bool `json:"is_missing_segment_growth_diff"`
	IsMissingRegionalAvg      bool `json:"is_missing_regional_avg_penetration"`
	IsMissingAdoptionVelocity bool `json:"is_missing_adoption_velocity"`
}

// Column names for the enriched table. These are the header values of the
// CSV export and the keys of the JSON payload.
const (
	ColState                = "state"
	ColDate                 = "date"
	ColVehicleCategory      = "vehicle_category"
	ColElectricVehiclesSold = "electric_vehicles_sold"
	ColTotalVehiclesSold    = "total_vehicles_sold"

	ColRollingMeanEV   = "rolling_mean_ev"
	ColEVGrowthRate    = "ev_growth_rate"
	ColIsQ4            = "is_q4"
	ColIsMarch         = "is_march"
	ColMonthsFromStart = "months_from_start"
	ColFiscalYear      = "fiscal_year"
	ColQuarter         = "quarter"
	ColYearQuarter     = "year_quarter"

	ColEVPenetration       = "ev_penetration"
	ColEVPenetrationLog    = "ev_penetration_log"
	ColNationalMarketShare = "national_market_share"
	ColStateRank           = "state_rank"
	ColGrowthStage         = "growth_stage"
	ColMarketConcentration = "market_concentration"

	ColRegion                 = "region"
	ColRegionalAvgPenetration = "regional_avg_penetration"
	ColStateToRegionRatio     = "state_to_region_ratio"
	ColRegionalRank           = "regional_rank"
	ColMarketMaturityScore    = "market_maturity_score"
	ColAdoptionVelocity       = "adoption_velocity"
	ColAdoptionVelocityCapped = "adoption_velocity_capped"

	ColSegmentPenetration2W         = "segment_penetration_2w"
	ColSegmentPenetration4W         = "segment_penetration_4w"
	ColSegmentPreferenceRatio       = "segment_preference_ratio"
	ColSegmentPreferenceRatioCapped = "segment_preference_ratio_capped"
	ColSegmentPreferenceRatioLog    = "segment_preference_ratio_log"
	ColDominantSegment              = "dominant_segment"
	ColSegmentGrowthDiff            = "segment_growth_diff"

	ColIsMissingGrowthRate       = "is_missing_ev_growth_rate"
	ColIsMissingPreferenceRatio  = "is_missing_segment_preference_ratio"
	ColIsMissingSegmentGrowth    = "is_missing_segment_growth_diff"
	ColIsMissingRegionalAvg      = "is_missing_regional_avg_penetration"
	ColIsMissingAdoptionVelocity = "is_missing_adoption_velocity"
)

// Columns returns the full enriched-table column order: raw input columns
// first, then derived columns in pipeline stage order. Exporters must not
// reorder or omit entries.
func Columns() []string {
	return []string{
		ColState, ColDate, ColVehicleCategory,
		ColElectricVehiclesSold, ColTotalVehiclesSold,

		ColRollingMeanEV, ColEVGrowthRate, ColIsQ4, ColIsMarch,
		ColMonthsFromStart, ColFiscalYear, ColQuarter, ColYearQuarter,

		ColEVPenetration, ColEVPenetrationLog, ColNationalMarketShare,
		ColStateRank, ColGrowthStage, ColMarketConcentration,

		ColRegion, ColRegionalAvgPenetration, ColStateToRegionRatio,
		ColRegionalRank, ColMarketMaturityScore,
		ColAdoptionVelocity, ColAdoptionVelocityCapped,

		ColSegmentPenetration2W, ColSegmentPenetration4W,
		ColSegmentPreferenceRatio, ColSegmentPreferenceRatioCapped,
		ColSegmentPreferenceRatioLog, ColDominantSegment,
		ColSegmentGrowthDiff,

		ColIsMissingGrowthRate, ColIsMissingPreferenceRatio,
		ColIsMissingSegmentGrowth, ColIsMissingRegionalAvg,
		ColIsMissingAdoptionVelocity,
	}
}

// enrichedRecordJSON mirrors EnrichedRecord with pointer numerics so NaN
// sentinels become JSON null instead of breaking encoding/json.
type enrichedRecordJSON struct {
	State                string          `json:"state"`
	Date                 time.Time       `json:"date"`
	VehicleCategory      VehicleCategory `json:"vehicle_category"`
	ElectricVehiclesSold int64           `json:"electric_vehicles_sold"`
	TotalVehiclesSold    int64           `json:"total_vehicles_sold"`

	RollingMeanEV   *float64 `json:"rolling_mean_ev"`
	EVGrowthRate    *float64 `json:"ev_growth_rate"`
	IsQ4            bool     `json:"is_q4"`
	IsMarch         bool     `json:"is_march"`
	MonthsFromStart int      `json:"months_from_start"`
	FiscalYearID    int      `json:"fiscal_year"`
	Quarter         string   `json:"quarter"`
	YearQuarter     string   `json:"year_quarter"`

	EVPenetration       *float64    `json:"ev_penetration"`
	EVPenetrationLog    *float64    `json:"ev_penetration_log"`
	NationalMarketShare *float64    `json:"national_market_share"`
	StateRank           *float64    `json:"state_rank"`
	Stage               GrowthStage `json:"growth_stage"`
	MarketConcentration *float64    `json:"market_concentration"`

	Region                 Region   `json:"region"`
	RegionalAvgPenetration *float64 `json:"regional_avg_penetration"`
	StateToRegionRatio     *float64 `json:"state_to_region_ratio"`
	RegionalRank           *float64 `json:"regional_rank"`
	MarketMaturityScore    *float64 `json:"market_maturity_score"`
	AdoptionVelocity       *float64 `json:"adoption_velocity"`
	AdoptionVelocityCapped *float64 `json:"adoption_velocity_capped"`

	SegmentPenetration2W         *float64 `json:"segment_penetration_2w"`
	SegmentPenetration4W         *float64 `json:"segment_penetration_4w"`
	SegmentPreferenceRatio       *float64 `json:"segment_preference_ratio"`
	SegmentPreferenceRatioCapped *float64 `json:"segment_preference_ratio_capped"`
	SegmentPreferenceRatioLog    *float64 `json:"segment_preference_ratio_log"`
	DominantSegment              string   `json:"dominant_segment"`
	SegmentGrowthDiff            *float64 `json:"segment_growth_diff"`

	IsMissingGrowthRate       bool `json:"is_missing_ev_growth_rate"`
	IsMissingPreferenceRatio  bool `json:"is_missing_segment_preference_ratio"`
	IsMissingSegmentGrowth    bool `json:"is_missing_segment_growth_diff"`
	IsMissingRegionalAvg      bool `json:"is_missing_regional_avg_penetration"`
	IsMissingAdoptionVelocity bool `json:"is_missing_adoption_velocity"`
}

// MarshalJSON renders NaN-bearing numeric features as null so downstream
// consumers see "feature not available" instead of a serialization error.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(enrichedRecordJSON{
		State:                r.State,
		Date:                 r.Date,
		VehicleCategory:      r.VehicleCategory,
		ElectricVehiclesSold: r.ElectricVehiclesSold,
		TotalVehiclesSold:    r.TotalVehiclesSold,

		RollingMeanEV:   Float64Ptr(r.RollingMeanEV),
		EVGrowthRate:    Float64Ptr(r.EVGrowthRate),
		IsQ4:            r.IsQ4,
		IsMarch:         r.IsMarch,
		MonthsFromStart: r.MonthsFromStart,
		FiscalYearID:    r.FiscalYearID,
		Quarter:         r.Quarter,
		YearQuarter:     r.YearQuarter,

		EVPenetration:       Float64Ptr(r.EVPenetration),
		EVPenetrationLog:    Float64Ptr(r.EVPenetrationLog),
		NationalMarketShare: Float64Ptr(r.NationalMarketShare),
		StateRank:           Float64Ptr(r.StateRank),
		Stage:               r.Stage,
		MarketConcentration: Float64Ptr(r.MarketConcentration),

		Region:                 r.Region,
		RegionalAvgPenetration: Float64Ptr(r.RegionalAvgPenetration),
		StateToRegionRatio:     Float64Ptr(r.StateToRegionRatio),
		RegionalRank:           Float64Ptr(r.RegionalRank),
		MarketMaturityScore:    Float64Ptr(r.MarketMaturityScore),
		AdoptionVelocity:       Float64Ptr(r.AdoptionVelocity),
		AdoptionVelocityCapped: Float64Ptr(r.AdoptionVelocityCapped),

		SegmentPenetration2W:         Float64Ptr(r.SegmentPenetration2W),
		SegmentPenetration4W:         Float64Ptr(r.SegmentPenetration4W),
		SegmentPreferenceRatio:       Float64Ptr(r.SegmentPreferenceRatio),
		SegmentPreferenceRatioCapped: Float64Ptr(r.SegmentPreferenceRatioCapped),
		SegmentPreferenceRatioLog:    Float64Ptr(r.SegmentPreferenceRatioLog),
		DominantSegment:              r.DominantSegment,
		SegmentGrowthDiff:            Float64Ptr(r.SegmentGrowthDiff),

		IsMissingGrowthRate:       r.IsMissingGrowthRate,
		IsMissingPreferenceRatio:  r.IsMissingPreferenceRatio,
		IsMissingSegmentGrowth:    r.IsMissingSegmentGrowth,
		IsMissingRegionalAvg:      r.IsMissingRegionalAvg,
		IsMissingAdoptionVelocity: r.IsMissingAdoptionVelocity,
	})
}

// Float64Ptr converts a NaN sentinel to nil for JSON rendering; defined
// values pass through unchanged.
func Float64Ptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
