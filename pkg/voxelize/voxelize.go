// Package voxelize rasterizes a selected subset of surface vertices into an
// occupancy grid so that the area of a partial, non-manifold vertex subset
// can be estimated by counting voxels.
package voxelize

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/pkg/ndimage"
)

const (
	// smoothSigma and smoothTruncate close single-voxel gaps before the
	// clean-up erosion.
	smoothSigma    = 0.2
	smoothTruncate = 4.0
)

// Steps returns the number of cells per axis for a cube of half-width
// radius sampled at pitch.
func Steps(radius, pitch float64) int {
	return int(math.Round(math.Abs(2 * radius / pitch)))
}

// Voxelize bins the selected points of a target-centred cloud into a cube of
// half-width radius with Steps(radius, pitch) cells per axis. Grid axes are
// (z, y, x). Points outside the cube are ignored. The occupancy is smoothed,
// thresholded above zero and eroded once with a face-connected element whose
// border counts as foreground. An empty or nil selection gives an all-zero
// grid.
func Voxelize(sel *roaring.Bitmap, pts []r3.Vec, radius, pitch float64) (*ndimage.Grid[int8], error) {
	if radius <= 0 || pitch <= 0 {
		return nil, fmt.Errorf("voxelize: radius %v and pitch %v must be positive", radius, pitch)
	}
	steps := Steps(radius, pitch)
	if steps == 0 {
		return nil, fmt.Errorf("voxelize: pitch %v leaves no cells in radius %v", pitch, radius)
	}
	grid := ndimage.NewGrid[int8](steps, steps, steps)
	if sel == nil || sel.IsEmpty() {
		return grid, nil
	}

	cells := roaring.New()
	it := sel.Iterator()
	for it.HasNext() {
		v := int(it.Next())
		if v >= len(pts) {
			continue
		}
		p := pts[v]
		z, okz := bin(p.Z, radius, steps)
		y, oky := bin(p.Y, radius, steps)
		x, okx := bin(p.X, radius, steps)
		if !okz || !oky || !okx {
			continue
		}
		cells.Add(uint32(grid.Index(z, y, x)))
	}
	if cells.IsEmpty() {
		return grid, nil
	}

	occupied := ndimage.NewGridLike[float64](grid)
	cells.Iterate(func(c uint32) bool {
		occupied.Data[c] = 1
		return true
	})

	smoothed := ndimage.GaussianFilter(occupied, smoothSigma, smoothTruncate, ndimage.Reflect)
	filled := ndimage.NewGridLike[bool](smoothed)
	for i, v := range smoothed.Data {
		filled.Data[i] = v > 0
	}
	return ndimage.ToInt8(ndimage.Erode(filled, ndimage.Cross(), 1, true)), nil
}

// bin maps a coordinate in [-radius, radius] to one of steps intervals.
func bin(v, radius float64, steps int) (int, bool) {
	if math.IsNaN(v) || v < -radius || v > radius {
		return 0, false
	}
	i := int(math.Floor((v + radius) / (2 * radius) * float64(steps)))
	if i == steps {
		i--
	}
	return i, true
}

// Count returns the number of occupied cells.
func Count(g *ndimage.Grid[int8]) int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Area converts the occupied cell count to a physical area using the in-plane
// pitches sx and sy.
func Area(g *ndimage.Grid[int8], sx, sy float64) float64 {
	return float64(Count(g)) * sx * sy
}
