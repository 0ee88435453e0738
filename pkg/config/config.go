// Package config provides configuration loading and management for surfacemetrics.
// It handles loading configuration from YAML files and provides default values
// matching the measurement command defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/intensity"
	"surfacemetrics/pkg/ridge"
	"surfacemetrics/pkg/topology"
	"surfacemetrics/pkg/voids"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters shared by every measurement
	Processing struct {
		// NumCores is the number of files loaded in parallel
		NumCores int `yaml:"numCores"`

		// VoxelSize is the physical voxel edge length along x, y and z in microns
		VoxelSize [3]float64 `yaml:"voxelSize"`

		// KNN bounds the neighbours averaged by distance queries
		KNN int `yaml:"knn"`
	} `yaml:"processing"`

	// Topology (areal roughness) parameters
	Topology struct {
		// Radius bounds the search shell around the target centroid
		Radius float64 `yaml:"radius"`

		// Target is the engulfed particle kind, sRBC or mRBC
		Target string `yaml:"target"`

		// PhiLimit is the largest polar angle in degrees counted as the upper cap
		PhiLimit float64 `yaml:"phiLimit"`
	} `yaml:"topology"`

	// Ridge extraction parameters
	Ridges struct {
		Radius              float64 `yaml:"radius"`
		SmoothingIterations int     `yaml:"smoothingIterations"`

		// Threshold is the smoothed convexity above which a vertex is a ridge candidate
		Threshold float64 `yaml:"threshold"`
		KNN       int     `yaml:"knn"`

		// Clip raises the clip plane above the lowest vertex of the band
		Clip float64 `yaml:"clip"`

		// Exclusion is the shortest reported skeleton fragment in microns
		Exclusion float64 `yaml:"exclusion"`
		Track     bool    `yaml:"track"`
	} `yaml:"ridges"`

	// Void segmentation parameters
	Voids struct {
		Background float64 `yaml:"background"`
		SD         float64 `yaml:"sd"`
		STG        float64 `yaml:"stg"`
		Levels     int     `yaml:"levels"`
		Per        float64 `yaml:"per"`
		Drop       float64 `yaml:"drop"`
	} `yaml:"voids"`

	// Intensity projection parameters
	Intensity struct {
		// Radius bounds the membrane voxels averaged per vertex, in microns.
		// Shell voxel indices are scaled by the voxel size before the search,
		// so the same radius covers fewer voxels at a coarser voxel size.
		Radius float64 `yaml:"radius"`
		Blob   int     `yaml:"blob"`
	} `yaml:"intensity"`

	// Output parameters
	Output struct {
		// Dir receives the result tables; measurements run without it
		Dir string `yaml:"dir"`

		// Database optionally names a SQLite results store
		Database string `yaml:"database"`

		// PlotDir receives ridge scatter images when it exists
		PlotDir string `yaml:"plotDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// JSONLogs switches the log handler to JSON
		JSONLogs bool `yaml:"jsonLogs"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.VoxelSize = [3]float64{0.1028, 0.1028, 0.1028}
	cfg.Processing.KNN = topology.DefaultKNN

	top := topology.DefaultParams()
	cfg.Topology.Radius = top.Radius
	cfg.Topology.Target = string(top.Target)
	cfg.Topology.PhiLimit = top.PhiLimit

	rp := ridge.DefaultParams()
	cfg.Ridges.Radius = rp.Radius
	cfg.Ridges.SmoothingIterations = rp.SmoothingIterations
	cfg.Ridges.Threshold = rp.Threshold
	cfg.Ridges.KNN = rp.KNN
	cfg.Ridges.Clip = rp.Clip
	cfg.Ridges.Exclusion = rp.Exclusion

	vp := voids.DefaultParams()
	cfg.Voids.Background = vp.Background
	cfg.Voids.SD = vp.SD
	cfg.Voids.STG = vp.STG
	cfg.Voids.Levels = vp.Levels
	cfg.Voids.Per = vp.Per
	cfg.Voids.Drop = vp.Drop

	ip := intensity.DefaultParams()
	cfg.Intensity.Radius = ip.Radius
	cfg.Intensity.Blob = ip.Blob

	cfg.Output.Verbose = true

	return cfg
}

// VoxelSize returns the configured voxel size.
func (c *Config) VoxelSize() models.VoxelSize {
	v := c.Processing.VoxelSize
	return models.VoxelSize{X: v[0], Y: v[1], Z: v[2]}
}

// TopologyParams returns the areal roughness parameters.
func (c *Config) TopologyParams() topology.Params {
	p := topology.DefaultParams()
	p.Radius = c.Topology.Radius
	p.Target = topology.Target(c.Topology.Target)
	p.PhiLimit = c.Topology.PhiLimit
	p.VoxelSize = c.VoxelSize()
	return p
}

// RidgeParams returns the ridge extraction parameters.
func (c *Config) RidgeParams() ridge.Params {
	p := ridge.DefaultParams()
	p.Radius = c.Ridges.Radius
	p.SmoothingIterations = c.Ridges.SmoothingIterations
	p.Threshold = c.Ridges.Threshold
	p.KNN = c.Ridges.KNN
	p.Clip = c.Ridges.Clip
	p.Exclusion = c.Ridges.Exclusion
	p.Track = c.Ridges.Track
	p.VoxelSize = c.VoxelSize()
	p.PlotDir = c.Output.PlotDir
	return p
}

// VoidParams returns the void segmentation parameters.
func (c *Config) VoidParams() voids.Params {
	p := voids.DefaultParams()
	p.Background = c.Voids.Background
	p.SD = c.Voids.SD
	p.STG = c.Voids.STG
	p.Levels = c.Voids.Levels
	p.Per = c.Voids.Per
	p.Drop = c.Voids.Drop
	return p
}

// IntensityParams returns the intensity projection parameters.
func (c *Config) IntensityParams() intensity.Params {
	p := intensity.DefaultParams()
	p.Radius = c.Intensity.Radius
	p.Blob = c.Intensity.Blob
	return p
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
