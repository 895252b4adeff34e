package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// logEntry is one captured record.
type logEntry struct {
	level   slog.Level
	message string
	attrs   map[string]any
}

// CaptureHandler is an slog.Handler that records everything logged
// through it, so tests can assert on pipeline log output.
type CaptureHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	entries []logEntry
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.base))
	for _, a := range h.base {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, logEntry{level: r.Level, message: r.Message, attrs: attrs})
	return nil
}

func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Child handlers share the entry slice so assertions see records
	// logged through logger.With(...).
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = append(h.base, attrs...)
	return h
}

func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

func (h *CaptureHandler) snapshot() []logEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]logEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// NewTestLogger returns a logger whose output is captured by the
// returned handler.
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	t.Helper()
	handler := &CaptureHandler{}
	return slog.New(handler), handler
}

// AssertLogContains fails the test unless a record at the given level
// contains message as a substring.
func AssertLogContains(t *testing.T, h *CaptureHandler, level slog.Level, message string) {
	t.Helper()
	for _, e := range h.snapshot() {
		if e.level == level && strings.Contains(e.message, message) {
			return
		}
	}
	t.Errorf("no %s log containing %q", level, message)
}

// AssertLogAttr fails the test unless some record carries key=value.
func AssertLogAttr(t *testing.T, h *CaptureHandler, key string, value any) {
	t.Helper()
	for _, e := range h.snapshot() {
		if got, ok := e.attrs[key]; ok && got == value {
			return
		}
	}
	t.Errorf("no log record with attribute %s=%v", key, value)
}

// AssertNoErrors fails the test if anything was logged at error level.
func AssertNoErrors(t *testing.T, h *CaptureHandler) {
	t.Helper()
	for _, e := range h.snapshot() {
		if e.level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", e.message, e.attrs)
		}
	}
}
