package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"evintel/internal/config"
)

var loggerState struct {
	mu     sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the process logger from the logging section of
// the configuration and installs it as the slog default. Calling it a
// second time returns the logger built by the first call.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()

	if loggerState.logger != nil {
		return loggerState.logger, nil
	}

	sink, file, err := openSink(cfg)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel(cfg.Level),
		AddSource: cfg.Development,
	}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		inner = slog.NewTextHandler(sink, opts)
	} else {
		inner = slog.NewJSONHandler(sink, opts)
	}

	logger := slog.New(&traceIDHandler{inner: inner})
	loggerState.logger = logger
	loggerState.file = file
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the initialized process logger, or the slog default
// before InitializeLogger has run.
func GetLogger() *slog.Logger {
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()
	if loggerState.logger == nil {
		return slog.Default()
	}
	return loggerState.logger
}

// CloseLogFile closes the log file, if the configuration opened one.
func CloseLogFile() error {
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()
	if loggerState.file == nil {
		return nil
	}
	err := loggerState.file.Close()
	loggerState.file = nil
	return err
}

// ResetLoggerForTesting drops the cached logger so a test can initialize
// with its own configuration.
func ResetLoggerForTesting() {
	CloseLogFile()
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()
	loggerState.logger = nil
}

// openSink resolves the configured output mode: stdout, a log file, or
// both at once.
func openSink(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	switch strings.ToLower(cfg.Output) {
	case "file":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return file, file, nil
	case "both":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return io.MultiWriter(os.Stdout, file), file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// traceIDHandler stamps every record with the trace ID carried by the
// context, so request-scoped log lines correlate without each call site
// repeating the attribute.
type traceIDHandler struct {
	inner slog.Handler
}

func (h *traceIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.inner.Handle(ctx, r)
}

func (h *traceIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceIDHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceIDHandler) WithGroup(name string) slog.Handler {
	return &traceIDHandler{inner: h.inner.WithGroup(name)}
}
