package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSVCreatesNestedDirectory(t *testing.T) {
	w := NewCSVWriter(nil)
	path := filepath.Join(t.TempDir(), "data", "reports", "out.csv")

	require.NoError(t, w.WriteCSV(path, WriteOptions{
		Headers: []string{"state", "date"},
		Records: [][]string{{"Goa", "2023-06-01"}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Goa")
}

func TestWriteCSVLeavesNoTempFiles(t *testing.T) {
	w := NewCSVWriter(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, w.WriteCSV(path, WriteOptions{
		Headers: []string{"state"},
		Records: [][]string{{"Goa"}},
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the artifact may remain")
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestWriteCSVReplacesExistingArtifact(t *testing.T) {
	w := NewCSVWriter(nil)
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale contents"), 0o644))

	require.NoError(t, w.WriteCSV(path, WriteOptions{
		Headers: []string{"state"},
		Records: [][]string{{"Kerala"}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "Kerala")
}

func TestWriteCSVFailureKeepsPreviousArtifact(t *testing.T) {
	w := NewCSVWriter(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous run"), 0o644))

	// Read-only directory: the temp file cannot be created.
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err := w.WriteCSV(path, WriteOptions{Headers: []string{"state"}})
	require.Error(t, err)

	require.NoError(t, os.Chmod(dir, 0o755))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
}
