package infrastructure

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evintel/internal/config"
)

func fileLoggingConfig(t *testing.T, level string) (config.LoggingConfig, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	return config.LoggingConfig{
		Level:    level,
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, path
}

func lastLogLine(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	return entry
}

func TestInitializeLoggerWritesJSON(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	cfg, path := fileLoggingConfig(t, "info")
	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("InitializeLogger: %v", err)
	}

	logger.Info("artifact written", "sink", "csv")
	CloseLogFile()

	entry := lastLogLine(t, path)
	if entry["msg"] != "artifact written" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["sink"] != "csv" {
		t.Errorf("sink = %v", entry["sink"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestInitializeLoggerReturnsSameInstance(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	cfg, _ := fileLoggingConfig(t, "info")
	first, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("first init: %v", err)
	}
	second, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if first != second {
		t.Error("second initialization replaced the logger")
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			ResetLoggerForTesting()
			defer ResetLoggerForTesting()

			cfg, path := fileLoggingConfig(t, tt.level)
			logger, err := InitializeLogger(cfg)
			if err != nil {
				t.Fatalf("InitializeLogger: %v", err)
			}

			switch tt.level {
			case "debug":
				logger.Debug("level check")
			case "info":
				logger.Info("level check")
			case "warn":
				logger.Warn("level check")
			case "error":
				logger.Error("level check")
			}
			CloseLogFile()

			if got := lastLogLine(t, path)["level"]; got != tt.want {
				t.Errorf("level = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestTraceIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	cfg, path := fileLoggingConfig(t, "info")
	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("InitializeLogger: %v", err)
	}

	ctx := WithTraceID(context.Background(), "trace-abc-123")
	logger.InfoContext(ctx, "enriched query served")
	CloseLogFile()

	if got := lastLogLine(t, path)["trace_id"]; got != "trace-abc-123" {
		t.Errorf("trace_id = %v", got)
	}
}

func TestGetTraceIDUntaggedContext(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("trace ID on a fresh context = %q", got)
	}
}
