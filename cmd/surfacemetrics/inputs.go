package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/meshio"
)

// surfaceSet is a frame-ordered series of surfaces and the files they came from.
type surfaceSet struct {
	paths    []string
	surfaces []*models.Surface
}

func baseName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{meshio.VolumeExt, filepath.Ext(name)} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// loadSurfaces reads every STL file matching pattern, frame i being the i-th
// file in numeric order, together with the measurements stored beside it.
func (e *env) loadSurfaces(pattern string) (*surfaceSet, error) {
	paths, err := meshio.Glob(pattern)
	if err != nil {
		return nil, err
	}
	set := &surfaceSet{paths: paths, surfaces: make([]*models.Surface, len(paths))}

	var g errgroup.Group
	g.SetLimit(max(1, e.cfg.Processing.NumCores))
	for i, path := range paths {
		g.Go(func() error {
			s, err := meshio.LoadSurface(path, baseName(path), i)
			if err != nil {
				return err
			}
			if err := meshio.LoadAttributes(path, s); err != nil {
				return err
			}
			set.surfaces[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Info("loaded surfaces", "pattern", pattern, "frames", len(paths))
	return set, nil
}

// save stores the measurements of every surface beside its file.
func (set *surfaceSet) save() error {
	for i, s := range set.surfaces {
		if err := meshio.SaveAttributes(set.paths[i], s); err != nil {
			return err
		}
	}
	return nil
}

// loadVolumes reads every volume matching pattern in frame order. Matching
// directories are read as slice image stacks with the configured voxel size
// and the given surface level.
func (e *env) loadVolumes(pattern string, level float64) ([]*models.Volume, error) {
	paths, err := meshio.Glob(pattern)
	if err != nil {
		return nil, err
	}
	volumes := make([]*models.Volume, len(paths))

	var g errgroup.Group
	g.SetLimit(max(1, e.cfg.Processing.NumCores))
	for i, path := range paths {
		g.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			var v *models.Volume
			if info.IsDir() {
				v, err = meshio.LoadSlices(path, baseName(path), e.cfg.VoxelSize(), level)
			} else {
				v, err = meshio.LoadVolume(path)
			}
			if err != nil {
				return err
			}
			volumes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Info("loaded volumes", "pattern", pattern, "frames", len(paths))
	return volumes, nil
}

// parseVec reads "x,y,z".
func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("vector %q is not x,y,z", s)
	}
	var c [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("vector %q: %w", s, err)
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

func sameLength(what string, n, m int) error {
	if n != m {
		return fmt.Errorf("%s: %d frames for %d frames", what, n, m)
	}
	return nil
}
