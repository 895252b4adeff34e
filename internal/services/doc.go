// Package services contains the business logic layer between the HTTP
// transport and the exported pipeline artifacts.
//
// The query surface is read-only: services never run the pipeline, they
// serve whatever the most recent run exported to the reports directory.
// DataService loads the enriched CSV header-driven, so artifacts written
// by older pipeline versions (with fewer feature columns) remain
// servable — an absent column is reported as unavailable, never an error.
//
// Artifact freshness is handled by mtime polling: each service call may
// trigger a reload when the refresh interval has elapsed and the files
// on disk changed. Reloads of the table and the insights report run in
// parallel via errgroup.
//
// Services:
//   - DataService: enriched rows, column availability, per-state
//     snapshots, regional aggregates, the insight report.
//   - HealthService: liveness, version info, artifact freshness, and
//     runtime statistics.
//
// All services take *slog.Logger via constructor injection and log with
// context-aware methods so trace IDs propagate from the middleware.
package services
