// Package features implements the feature-engineering pipeline for the
// India EV market intelligence dataset.
//
// The pipeline transforms raw monthly sales rows (state, date, vehicle
// category, units sold) into an enriched analytical table by appending
// derived columns stage by stage. Data flows strictly forward; each stage
// reads the table produced by the previous stage and writes only its own
// columns, so earlier features remain available to later stages.
//
// # Architecture
//
// The package follows the partition-then-aggregate design: row groupings
// (time-series partitions, per-date cross-sections, state-date pairs) are
// computed once in grouping.go and reused by every stage that needs the
// same grouping.
//
//   - pipeline.go: Pipeline orchestrator (validate, group, run stages)
//   - grouping.go: grouping structures computed once per run
//   - temporal.go: rolling means, growth rates, calendar attributes
//   - penetration.go: penetration, market share, ranks, concentration
//   - regional.go: region classification, regional aggregates, maturity
//   - segments.go: per-category penetration pivot and preference ratio
//   - quality.go: missing flags, outlier capping, fill policies
//   - insights.go: CAGR, seasonality and decline summaries
//   - maker.go: manufacturer leaders per category and fiscal year
//   - stats.go: shared statistical helpers
//
// # Missing values
//
// Undefined computations (division by zero, log of a missing value) are
// never fatal. Stages record NaN for the affected cell; the quality pass
// emits an is_missing flag for every tracked feature before any fill or
// zero-substitution policy runs. Rows are never deleted.
//
// # Usage Example
//
//	pipe := features.NewPipeline(cfg.Pipeline, slog.Default())
//	table, err := pipe.Run(ctx, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	insights := features.BuildInsights(table, makers, cfg.Pipeline)
//
// The pipeline is single-threaded and batch-oriented: each stage fully
// materialises before the next begins, which is the right shape for tables
// in the tens of thousands of rows. Running it twice over the same input
// produces an identical table.
package features
