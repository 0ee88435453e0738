package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfacemetrics/pkg/topology"
)

// TestDefaultConfig verifies the command defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, [3]float64{0.1028, 0.1028, 0.1028}, cfg.Processing.VoxelSize)
	assert.Equal(t, 8.0, cfg.Ridges.Radius)
	assert.Equal(t, 20, cfg.Ridges.SmoothingIterations)
	assert.Equal(t, 0.3, cfg.Ridges.Threshold)
	assert.Equal(t, 10, cfg.Ridges.KNN)
	assert.Equal(t, 110.0, cfg.Voids.Background)
	assert.Equal(t, 4, cfg.Voids.Levels)
	assert.Equal(t, 0.03, cfg.Voids.Drop)
	assert.Equal(t, 15.0, cfg.Intensity.Radius)
	assert.Equal(t, "sRBC", cfg.Topology.Target)
}

// TestLoadMissingConfig verifies that a missing file yields the defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Expected default config (-want +got):\n%s", diff)
	}
}

// TestConfigRoundTrip verifies that a saved config loads back unchanged and
// that partial files keep the defaults of omitted keys
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Expected default config (-want +got):\n%s", diff)
	}

	partial := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(partial, []byte("topology:\n  target: mRBC\nridges:\n  track: true\n"), 0644))
	cfg, err = LoadConfig(partial)
	require.NoError(t, err)
	assert.Equal(t, topology.MRBC, cfg.TopologyParams().Target)
	assert.True(t, cfg.RidgeParams().Track)
	assert.Equal(t, 8.0, cfg.RidgeParams().Radius)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ridges: [1, 2"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

// TestParams verifies that the shared voxel size reaches every pipeline
func TestParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.VoxelSize = [3]float64{0.2, 0.3, 0.4}
	cfg.Output.PlotDir = "plots"

	assert.Equal(t, 0.3, cfg.TopologyParams().VoxelSize.Y)
	assert.Equal(t, 0.4, cfg.RidgeParams().VoxelSize.Z)
	assert.Equal(t, "plots", cfg.RidgeParams().PlotDir)
	assert.Equal(t, 0.88, cfg.VoidParams().Per)
	assert.Equal(t, 1, cfg.IntensityParams().Blob)
}
