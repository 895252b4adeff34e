package config

import "time"

// Application constants for the EV market intelligence system.
const (
	// Application info
	AppName    = "EV Market Intelligence"
	AppVersion = "1.2.0"

	// Pipeline tunables. Environment and config may override these; they
	// change how much, never what.
	DefaultRollingWindow   = 3
	DefaultOutlierStdDevs  = 3.0
	DefaultProjectionYears = 5
	DefaultInsightTopN     = 10

	// Rate limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network timeouts
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultServerShutdown = 30 * time.Second

	// File paths (relative to the executable)
	DefaultDataDir    = "data"
	DefaultInputDir   = "data/input"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Artifact refresh: queries re-stat the exported artifacts at most
	// this often before serving from memory.
	ArtifactRefreshInterval = 15 * time.Second

	// Log settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// API endpoints
	APIBasePath      = "/api"
	EnrichedEndpoint = "/api/enriched"
	StatesEndpoint   = "/api/states"
	RegionsEndpoint  = "/api/regions"
	InsightsEndpoint = "/api/insights"
	HealthEndpoint   = "/api/health"
	MetricsEndpoint  = "/metrics"
)

// Canonical file names: inputs inside the input directory, exported
// artifacts inside the reports directory. The query API and the exporter
// agree on these; they are never configurable.
const (
	SalesInputName      = "ev_sales_by_state.csv"
	MakerInputName      = "ev_sales_by_makers.csv"
	EnrichedCSVName     = "ev_enriched.csv"
	EnrichedExcelName   = "ev_enriched.xlsx"
	EnrichedJSONName    = "ev_enriched.json"
	InsightsJSONName    = "ev_insights.json"
	RunSummaryName      = "ev_run_summary.txt"
)
