package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations: the loader reads
// from InputDir, the exporter writes to ReportsDir, and the query API
// serves the artifacts named below.
type Paths struct {
	ExecutableDir string
	DataDir       string
	InputDir      string
	ReportsDir    string
	LogsDir       string

	// Exported artifacts the query API serves.
	EnrichedCSV   string
	EnrichedExcel string
	EnrichedJSON  string
	InsightsJSON  string
	RunSummary    string
}

// GetPaths returns the application paths relative to the executable
// location, never the current working directory, so every component sees
// the same tree regardless of where it was launched from.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return PathsFromRoot(filepath.Dir(exe)), nil
}

// PathsFromRoot builds the path set under an explicit root directory.
// The CLIs use it when a -data flag overrides the executable-relative
// default, and tests point it at a temp dir.
func PathsFromRoot(root string) *Paths {
	dataDir := filepath.Join(root, "data")
	reportsDir := filepath.Join(dataDir, "reports")

	return &Paths{
		ExecutableDir: root,
		DataDir:       dataDir,
		InputDir:      filepath.Join(dataDir, "input"),
		ReportsDir:    reportsDir,
		LogsDir:       filepath.Join(root, "logs"),

		EnrichedCSV:   filepath.Join(reportsDir, EnrichedCSVName),
		EnrichedExcel: filepath.Join(reportsDir, EnrichedExcelName),
		EnrichedJSON:  filepath.Join(reportsDir, EnrichedJSONName),
		InsightsJSON:  filepath.Join(reportsDir, InsightsJSONName),
		RunSummary:    filepath.Join(reportsDir, RunSummaryName),
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.InputDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}
	return nil
}

// GetInputPath returns the path for an input file.
func (p *Paths) GetInputPath(filename string) string {
	return filepath.Join(p.InputDir, filename)
}

// GetReportPath returns the path for a report file.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs detailed path resolution information for debugging.
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("input", p.InputDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("artifacts",
			slog.String("enriched_csv", p.EnrichedCSV),
			slog.String("enriched_excel", p.EnrichedExcel),
			slog.String("enriched_json", p.EnrichedJSON),
			slog.String("insights_json", p.InsightsJSON),
			slog.String("run_summary", p.RunSummary),
		))
}
