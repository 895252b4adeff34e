package testutil

import (
	"log/slog"
	"testing"
)

func TestCaptureHandlerRecordsMessages(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("table enriched", slog.Int("rows", 42))
	logger.Warn("column missing")

	AssertLogContains(t, handler, slog.LevelInfo, "table enriched")
	AssertLogContains(t, handler, slog.LevelWarn, "column missing")
	AssertLogAttr(t, handler, "rows", int64(42))
	AssertNoErrors(t, handler)
}

func TestCaptureHandlerSeesDerivedLoggers(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.With(slog.String("component", "exporter")).Info("artifact written")

	AssertLogContains(t, handler, slog.LevelInfo, "artifact written")
	AssertLogAttr(t, handler, "component", "exporter")
}
