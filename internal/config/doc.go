// Package config provides centralized configuration management for the EV
// market intelligence system. It handles loading configuration from
// multiple sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern EVI_* for namespacing:
//
//	EVI_SERVER_PORT=8080
//	EVI_LOGGING_LEVEL=info
//	EVI_PIPELINE_ROLLING_WINDOW=3
//	EVI_PIPELINE_OUTLIER_STD_DEVS=3
//
// # Pipeline Tunables
//
// The PipelineConfig section holds the analytical tunables: rolling window,
// outlier cap width, projection horizon, leader-board size and the maturity
// weight triple. These adjust how much, never what: no behavioural branch
// in the analytical logic hangs off configuration.
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	csvPath := paths.EnrichedCSV
//
// The exported artifact names (enriched CSV/Excel/JSON, insights JSON, run
// summary) are fixed constants shared by the exporter and the query API.
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- The maturity weight triple sums to 1
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
