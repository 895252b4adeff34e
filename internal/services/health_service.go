package services

import (
	"context"
	"log/slog"
	"os"
	"time"

	"evintel/internal/config"
	"evintel/internal/infrastructure"
	"evintel/pkg/contracts"
)

// HealthService reports liveness, version info, and artifact freshness.
type HealthService struct {
	paths     *config.Paths
	logger    *slog.Logger
	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
}

// HealthStatus is the full health payload served at /api/health.
type HealthStatus struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	DataFormat    string                 `json:"data_format"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Timestamp     time.Time              `json:"timestamp"`
	Artifacts     []ArtifactStatus       `json:"artifacts"`
	Runtime       map[string]interface{} `json:"runtime,omitempty"`
}

// ArtifactStatus describes one exported artifact on disk.
type ArtifactStatus struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Present    bool      `json:"present"`
	ModTime    time.Time `json:"mod_time,omitempty"`
	AgeSeconds float64   `json:"age_seconds,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
}

// Health states. The server is "degraded" rather than "unavailable" when
// only secondary artifacts are missing: the table still serves.
const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// NewHealthService creates a health service. The metrics collector is
// optional; without one the runtime section is omitted.
func NewHealthService(paths *config.Paths, logger *slog.Logger, collector *infrastructure.SystemMetricsCollector) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		paths:     paths,
		logger:    logger,
		collector: collector,
		startTime: time.Now(),
	}
}

// Check assembles the current health status.
func (hs *HealthService) Check(ctx context.Context) *HealthStatus {
	now := time.Now()

	artifacts := []ArtifactStatus{
		hs.artifactStatus("enriched_csv", hs.paths.EnrichedCSV, now),
		hs.artifactStatus("enriched_json", hs.paths.EnrichedJSON, now),
		hs.artifactStatus("enriched_excel", hs.paths.EnrichedExcel, now),
		hs.artifactStatus("insights_json", hs.paths.InsightsJSON, now),
		hs.artifactStatus("run_summary", hs.paths.RunSummary, now),
	}

	status := &HealthStatus{
		Status:        hs.overallStatus(artifacts),
		Version:       contracts.Version,
		DataFormat:    contracts.DataFormatVersion,
		UptimeSeconds: now.Sub(hs.startTime).Seconds(),
		Timestamp:     now,
		Artifacts:     artifacts,
	}

	if hs.collector != nil {
		status.Runtime = hs.collector.GetCurrentStats(ctx).FormatStats()
	}

	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", status.Status),
		slog.Float64("uptime_seconds", status.UptimeSeconds))

	return status
}

func (hs *HealthService) artifactStatus(name, path string, now time.Time) ArtifactStatus {
	status := ArtifactStatus{Name: name, Path: path}
	info, err := os.Stat(path)
	if err != nil {
		return status
	}
	status.Present = true
	status.ModTime = info.ModTime()
	status.AgeSeconds = now.Sub(info.ModTime()).Seconds()
	status.SizeBytes = info.Size()
	return status
}

// overallStatus: no enriched table means the query surface cannot serve;
// a missing secondary artifact only degrades.
func (hs *HealthService) overallStatus(artifacts []ArtifactStatus) string {
	var tablePresent, allPresent = false, true
	for _, a := range artifacts {
		if a.Name == "enriched_csv" && a.Present {
			tablePresent = true
		}
		if !a.Present {
			allPresent = false
		}
	}
	switch {
	case !tablePresent:
		return StatusUnavailable
	case !allPresent:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// VersionInfo returns the application version descriptor.
func (hs *HealthService) VersionInfo() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}
