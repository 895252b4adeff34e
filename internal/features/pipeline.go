package features

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"evintel/internal/config"
	"evintel/pkg/contracts/domain"
)

// Pipeline orchestrates the feature-engineering stages over one batch of
// sales records. Stages run synchronously in dependency order; each fully
// materialises its columns before the next begins.
type Pipeline struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewPipeline creates a pipeline with the given analytical tunables.
func NewPipeline(cfg config.PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("evintel/internal/features"),
	}
}

// Run executes all stages over the records and returns the enriched
// table. The input is validated up front; an empty batch or an invalid
// weight triple is a hard failure. Run is deterministic: the same input
// always yields the same table.
func (p *Pipeline) Run(ctx context.Context, records []domain.SalesRecord) ([]domain.EnrichedRecord, error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := p.tracer.Start(ctx, "features.Pipeline.Run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("input_rows", len(records)),
		))
	defer span.End()

	p.logger.InfoContext(ctx, "starting feature pipeline",
		"run_id", runID,
		"input_rows", len(records),
		"rolling_window", p.cfg.RollingWindow,
		"outlier_std_devs", p.cfg.OutlierStdDevs,
	)

	if err := p.validateInputs(records); err != nil {
		p.logger.ErrorContext(ctx, "input validation failed", "error", err)
		return nil, fmt.Errorf("validate inputs: %w", err)
	}

	table := NewTable(records)
	grouping := BuildGrouping(table)
	p.logger.InfoContext(ctx, "grouped table",
		"partitions", len(grouping.Partitions),
		"dates", len(grouping.Dates),
		"month_span", grouping.TotalMonths(),
	)

	p.runStage(ctx, "temporal", func() {
		BuildTemporalFeatures(table, grouping, p.cfg.RollingWindow)
	})
	p.runStage(ctx, "penetration", func() {
		BuildPenetrationFeatures(table, grouping)
	})
	p.runStage(ctx, "regional", func() {
		BuildRegionalFeatures(table, grouping, p.cfg.Maturity)
	})
	p.runStage(ctx, "segments", func() {
		BuildSegmentFeatures(table, grouping)
	})
	p.runStage(ctx, "quality", func() {
		ApplyQualityPass(table, grouping, p.cfg.OutlierStdDevs)
	})

	undefined := countMissingFlags(table)
	span.SetAttributes(attribute.Int("undefined_computations", undefined))

	p.logger.InfoContext(ctx, "feature pipeline completed",
		"run_id", runID,
		"duration", time.Since(start),
		"rows", len(table),
		"undefined_computations", undefined,
	)

	return table, nil
}

// runStage wraps one stage in a span and timing log.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func()) {
	_, span := p.tracer.Start(ctx, "features.stage."+name)
	defer span.End()

	start := time.Now()
	fn()
	p.logger.DebugContext(ctx, "stage completed",
		"stage", name,
		"duration", time.Since(start),
	)
}

// validateInputs checks the batch before any stage runs.
func (p *Pipeline) validateInputs(records []domain.SalesRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no sales records provided")
	}
	if !p.cfg.Maturity.IsValid() {
		return fmt.Errorf("maturity weights must be non-negative and sum to 1, got %.4f", p.cfg.Maturity.Sum())
	}
	if p.cfg.RollingWindow < 1 {
		return fmt.Errorf("rolling window must be at least 1, got %d", p.cfg.RollingWindow)
	}
	if p.cfg.OutlierStdDevs <= 0 {
		return fmt.Errorf("outlier cap width must be positive, got %.2f", p.cfg.OutlierStdDevs)
	}

	for i, rec := range records {
		if !rec.IsValid() {
			return fmt.Errorf("invalid sales record at row %d: %s %s on %s",
				i+1, rec.State, rec.VehicleCategory, rec.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// countMissingFlags totals the tracked undefined computations of a run.
func countMissingFlags(table []domain.EnrichedRecord) int {
	count := 0
	for i := range table {
		for _, flagged := range []bool{
			table[i].IsMissingGrowthRate,
			table[i].IsMissingPreferenceRatio,
			table[i].IsMissingSegmentGrowth,
			table[i].IsMissingRegionalAvg,
			table[i].IsMissingAdoptionVelocity,
		} {
			if flagged {
				count++
			}
		}
	}
	return count
}

// MissingPenetrationCount reports how many rows carry an undefined
// penetration; exposed for run summaries and metrics.
func MissingPenetrationCount(table []domain.EnrichedRecord) int {
	count := 0
	for i := range table {
		if math.IsNaN(table[i].EVPenetration) {
			count++
		}
	}
	return count
}
