// Command pipeline runs one feature-engineering batch: load the sales
// CSV, compute the enriched table, build insights, and export every
// artifact sink.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"evintel/internal/config"
	"evintel/internal/dataset"
	apierrors "evintel/internal/errors"
	"evintel/internal/exporter"
	"evintel/internal/features"
	"evintel/internal/infrastructure"
	"evintel/internal/validation"
	"evintel/pkg/contracts"
	"evintel/pkg/contracts/domain"
)

func main() {
	inputPath := flag.String("input", "", "state sales CSV (defaults to data/input/ev_sales_by_state.csv)")
	makersPath := flag.String("makers", "", "optional maker sales CSV for the maker-leaders insight")
	dataRoot := flag.String("data", "", "root directory for data/ and logs/ (defaults to the executable directory)")
	configPath := flag.String("config", "", "optional YAML config file")
	format := flag.String("format", "all", "artifact sinks to write: csv, xlsx, json, or all")
	logLevel := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

	if err := run(*inputPath, *makersPath, *dataRoot, *configPath, *format, *logLevel); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

func run(inputPath, makersPath, dataRoot, configPath, format, logLevel string) error {
	switch format {
	case "csv", "xlsx", "json", "all":
	default:
		return fmt.Errorf("unknown format %q (want csv, xlsx, json, or all)", format)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	paths, err := resolvePaths(dataRoot)
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	if inputPath == "" {
		inputPath = paths.GetInputPath(config.SalesInputName)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputFile(inputPath); err != nil {
		return fmt.Errorf("validate input file: %w", err)
	}

	ctx := context.Background()
	start := time.Now()

	logger.InfoContext(ctx, "pipeline run starting",
		slog.String("version", contracts.Version),
		slog.String("input", inputPath),
		slog.String("reports_dir", paths.ReportsDir))

	loader := dataset.NewLoader(logger)
	sales, err := loader.LoadSales(ctx, inputPath)
	if err != nil {
		return err
	}

	var makers []domain.MakerRecord
	if makersPath != "" {
		if err := validator.ValidateInputFile(makersPath); err != nil {
			return fmt.Errorf("validate makers file: %w", err)
		}
		makers, err = loader.LoadMakers(ctx, makersPath)
		if err != nil {
			return err
		}
	}

	pipeline := features.NewPipeline(cfg.Pipeline, logger)
	table, err := pipeline.Run(ctx, sales)
	if err != nil {
		return err
	}

	insights := features.BuildInsights(table, makers, cfg.Pipeline)

	exp := exporter.New(paths, logger, cfg.Pipeline)
	if err := exportArtifacts(ctx, exp, format, table, insights); err != nil {
		return err
	}

	logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("rows", len(table)),
		slog.Duration("duration", time.Since(start)))

	fmt.Print(exporter.RenderSummary(table, insights))
	return nil
}

// exportArtifacts writes the requested sinks. Single-format runs still
// write the insights report so the query server stays serveable.
func exportArtifacts(ctx context.Context, exp *exporter.Exporter, format string, table []domain.EnrichedRecord, insights domain.MarketInsights) error {
	if format == "all" {
		return exp.ExportAll(ctx, table, insights)
	}

	var err error
	switch format {
	case "csv":
		err = exp.ExportCSV(ctx, table)
	case "xlsx":
		err = exp.ExportExcel(ctx, table, insights)
	case "json":
		err = exp.ExportJSON(ctx, table)
	}
	if err != nil {
		return err
	}
	return exp.ExportInsights(ctx, insights)
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func resolvePaths(dataRoot string) (*config.Paths, error) {
	if dataRoot != "" {
		return config.PathsFromRoot(dataRoot), nil
	}
	return config.GetPaths()
}

// reportFailure prints an operator-facing diagnosis before the non-zero
// exit. Schema and export failures get a pointed message; anything else
// falls through verbatim.
func reportFailure(err error) {
	switch {
	case apierrors.IsSchemaError(err):
		fmt.Fprintf(os.Stderr, "input rejected: %v\n", err)
		fmt.Fprintln(os.Stderr, "fix the input CSV and re-run; no artifacts were written")
	case apierrors.IsExportError(err):
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "check that the reports directory is writable")
	default:
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
	}
}
