// Package intensity samples a signal volume onto a surface.
//
// The signal is restricted to a membrane shell around the isosurface the
// surface was drawn from. Every vertex takes the mean of the nearest shell
// voxels within a radius, normalized by the mean over all vertices, so a
// uniform signal reads 1.0 everywhere. An optional plane through the centre of
// one surface blob splits the result into two hemispheres.
package intensity

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/ndimage"
	"surfacemetrics/pkg/sink"
	"surfacemetrics/pkg/spatial"
)

const (
	// shellRadius is the diamond radius used to grow and shrink the isosurface mask.
	shellRadius = 2
	// neighbours bounds the shell voxels averaged per vertex.
	neighbours = 200
)

// MaxBlobRank is the largest supported blob rank.
const MaxBlobRank = 4

// Params configures Project.
type Params struct {
	// Radius limits the sampled voxels around each vertex, in microns. Voxel
	// indices are multiplied by the signal voxel size before the search.
	Radius float64
	// Normal enables the hemisphere split when set.
	Normal *r3.Vec
	// Blob selects the surface component split into hemispheres, 1 being
	// the largest by enclosed volume.
	Blob int

	Sink   sink.Appender
	Logger *slog.Logger
}

// DefaultParams returns the defaults of the intensity command.
func DefaultParams() Params {
	return Params{Radius: 15, Blob: 1}
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Result holds the per-vertex relative intensity and, when a hemisphere split
// was requested, its two halves and their sums.
type Result struct {
	Intensity []float64
	Top       []float64
	Bottom    []float64
	TopSum    float64
	BottomSum float64
}

// Shell returns the membrane band of the isosurface of iso at its surface
// level: the voxels reached by growing the inside mask but not by shrinking it.
func Shell(iso *models.Volume) *ndimage.Mask {
	inside := ndimage.Threshold(iso.FullMatrix(), iso.SurfaceLevel)
	d := ndimage.Diamond(shellRadius)
	return ndimage.Xor(ndimage.Dilate(inside, d, 1), ndimage.Erode(inside, d, 1, false))
}

// sample projects signal, restricted to the shell of iso, onto the vertices
// of s. Vertices without shell voxels in range are NaN.
func sample(s *models.Surface, iso, signal *models.Volume, radius float64) ([]float64, error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if err := iso.Validate(); err != nil {
		return nil, err
	}
	if iso.Width != signal.Width || iso.Height != signal.Height || iso.Depth != signal.Depth {
		return nil, fmt.Errorf("signal %q is %dx%dx%d but isosurface volume %q is %dx%dx%d",
			signal.Name, signal.Depth, signal.Height, signal.Width,
			iso.Name, iso.Depth, iso.Height, iso.Width)
	}
	shell := Shell(iso)
	img := signal.FullMatrix()

	var (
		coords []r3.Vec
		values []float64
	)
	for i, in := range shell.Data {
		if !in || img.Data[i] == 0 {
			continue
		}
		z, y, x := img.Coord(i)
		coords = append(coords, r3.Vec{
			X: float64(x) * signal.VoxelSize.X,
			Y: float64(y) * signal.VoxelSize.Y,
			Z: float64(z) * signal.VoxelSize.Z,
		})
		values = append(values, img.Data[i])
	}

	ix, err := spatial.NewIndex(coords)
	if err != nil {
		return nil, fmt.Errorf("no signal in the membrane shell of %q: %w", signal.Name, err)
	}
	sets := ix.Query(s.Vertices, neighbours, radius)
	local := spatial.Floats(spatial.AggregateBy(sets, func(n spatial.Neighbor) float64 {
		return values[n.Index]
	}, spatial.Mean))

	var valid []float64
	for _, v := range local {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return local, nil
	}
	mean := stat.Mean(valid, nil)
	for i := range local {
		local[i] /= mean
	}
	return local, nil
}

// Project writes the relative intensity of signal around s into the
// intensity slot. With p.Normal set it also writes ClipTop and ClipBot for
// the blob selected by p.Blob, restricts intensity to that blob and records
// the hemisphere sums.
func Project(s *models.Surface, iso, signal *models.Volume, p Params) (*Result, error) {
	logger := p.logger()
	if p.Normal != nil && (p.Blob < 1 || p.Blob > MaxBlobRank) {
		return nil, fmt.Errorf("blob rank %d outside 1..%d", p.Blob, MaxBlobRank)
	}

	values, err := sample(s, iso, signal, p.Radius)
	if err != nil {
		return nil, err
	}
	res := &Result{Intensity: values}

	if p.Normal != nil {
		split(s, *p.Normal, p.Blob, res, logger)
		if err := s.SetAttribute(models.AttrClipTop, res.Top); err != nil {
			return nil, err
		}
		if err := s.SetAttribute(models.AttrClipBot, res.Bottom); err != nil {
			return nil, err
		}
	}
	if err := s.SetAttribute(models.AttrIntensity, res.Intensity); err != nil {
		return nil, err
	}

	logger.Info("projected intensity",
		"surface", s.ID,
		"signal", signal.Name,
		"radius", p.Radius,
		"split", p.Normal != nil)

	if p.Normal != nil {
		row := []float64{float64(s.Frame), res.TopSum, res.BottomSum}
		if err := sink.Write(p.Sink, logger, sink.Intensity, row); err != nil {
			return res, fmt.Errorf("failed to record intensity: %w", err)
		}
	}
	return res, nil
}

// split masks res.Intensity to the ranked blob and divides it by the plane
// through the blob's vertex centroid with the given normal. Top holds the
// vertices with normal . (centroid - v) > 0, the side facing away from the
// normal; vertices on the plane belong to neither half.
func split(s *models.Surface, normal r3.Vec, rank int, res *Result, logger *slog.Logger) {
	verts := blobVertices(s, rankedBlob(s, rank))
	if verts.IsEmpty() {
		logger.Warn("no surface blob at rank", "surface", s.ID, "rank", rank)
	}

	var centre r3.Vec
	if n := verts.GetCardinality(); n > 0 {
		verts.Iterate(func(v uint32) bool {
			centre = r3.Add(centre, s.Vertices[v])
			return true
		})
		centre = r3.Scale(1/float64(n), centre)
	}

	masked := make([]float64, len(s.Vertices))
	res.Top = make([]float64, len(s.Vertices))
	res.Bottom = make([]float64, len(s.Vertices))
	verts.Iterate(func(v uint32) bool {
		value := res.Intensity[v]
		masked[v] = value
		side := r3.Dot(normal, r3.Sub(centre, s.Vertices[v]))
		switch {
		case side > 0:
			res.Top[v] = value
		case side < 0:
			res.Bottom[v] = value
		}
		return true
	})
	res.Intensity = masked
	res.TopSum = nanSum(res.Top)
	res.BottomSum = nanSum(res.Bottom)
}

func nanSum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}
