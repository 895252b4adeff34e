package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evintel/internal/config"
	"evintel/pkg/contracts"
)

func writeAllArtifacts(t *testing.T, paths *config.Paths) {
	t.Helper()
	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0o755))
	for _, path := range []string{
		paths.EnrichedCSV, paths.EnrichedJSON, paths.EnrichedExcel,
		paths.InsightsJSON, paths.RunSummary,
	} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestHealthUnavailableWithoutTable(t *testing.T) {
	paths := config.PathsFromRoot(t.TempDir())
	hs := NewHealthService(paths, nil, nil)

	status := hs.Check(context.Background())
	assert.Equal(t, StatusUnavailable, status.Status)
	assert.Equal(t, contracts.Version, status.Version)
	assert.Len(t, status.Artifacts, 5)
	for _, a := range status.Artifacts {
		assert.False(t, a.Present)
	}
}

func TestHealthDegradedWithTableOnly(t *testing.T) {
	paths := config.PathsFromRoot(t.TempDir())
	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0o755))
	require.NoError(t, os.WriteFile(paths.EnrichedCSV, []byte("state,date\n"), 0o644))

	hs := NewHealthService(paths, nil, nil)
	status := hs.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
}

func TestHealthHealthyWithAllArtifacts(t *testing.T) {
	paths := config.PathsFromRoot(t.TempDir())
	writeAllArtifacts(t, paths)

	hs := NewHealthService(paths, nil, nil)
	status := hs.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)

	for _, a := range status.Artifacts {
		assert.True(t, a.Present, "artifact %s should be present", a.Name)
		assert.False(t, a.ModTime.IsZero())
		assert.GreaterOrEqual(t, a.AgeSeconds, 0.0)
	}
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestHealthVersionInfo(t *testing.T) {
	hs := NewHealthService(config.PathsFromRoot(t.TempDir()), nil, nil)
	info := hs.VersionInfo()
	assert.Equal(t, contracts.Version, info.Version)
	assert.Equal(t, contracts.DataFormatVersion, info.DataFormat)
}
