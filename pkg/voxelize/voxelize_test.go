package voxelize

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// TestVoxelizeEmptySelection verifies that no selected points give an
// all-zero grid of the expected shape
func TestVoxelizeEmptySelection(t *testing.T) {
	pts := []r3.Vec{{X: 0.1}, {Y: 0.2}}
	for _, sel := range []*roaring.Bitmap{nil, roaring.New()} {
		g, err := Voxelize(sel, pts, 8, 0.1028)
		require.NoError(t, err)
		steps := Steps(8, 0.1028)
		assert.Equal(t, 156, steps)
		assert.Equal(t, [3]int{steps, steps, steps}, g.Dims)
		assert.Equal(t, 0, Count(g))
		assert.Equal(t, 0.0, Area(g, 0.1028, 0.1028))
	}
}

// TestVoxelizeSinglePoint verifies that an isolated point survives as one voxel
func TestVoxelizeSinglePoint(t *testing.T) {
	pts := []r3.Vec{{X: 0.01, Y: 0.01, Z: 0.01}, {X: 5, Y: 0, Z: 0}}
	g, err := Voxelize(roaring.BitmapOf(0, 1), pts, 1, 0.1)
	require.NoError(t, err)

	// The second point lies outside the cube and is skipped.
	assert.Equal(t, 1, Count(g))
	assert.Equal(t, int8(1), g.At(10, 10, 10))
}

// TestVoxelizeSheet verifies that a one-cell-thick sheet keeps its footprint
func TestVoxelizeSheet(t *testing.T) {
	var pts []r3.Vec
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			pts = append(pts, r3.Vec{X: -0.45 + 0.1*float64(i), Y: -0.45 + 0.1*float64(j)})
		}
	}
	sel := roaring.New()
	sel.AddRange(0, uint64(len(pts)))

	g, err := Voxelize(sel, pts, 1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 100, Count(g))
	assert.InDelta(t, 1.0, Area(g, 0.1, 0.1), 1e-9)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			if g.At(10, y, x) != 1 {
				t.Errorf("Expected voxel (10,%d,%d) to be occupied", y, x)
			}
		}
	}

	// Deselecting half the sheet halves the footprint.
	half := roaring.New()
	half.AddRange(0, 50)
	g, err = Voxelize(half, pts, 1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 50, Count(g))
}

// TestVoxelizeInvalid verifies parameter validation
func TestVoxelizeInvalid(t *testing.T) {
	_, err := Voxelize(nil, nil, 0, 0.1)
	assert.Error(t, err)
	_, err = Voxelize(nil, nil, 1, -0.1)
	assert.Error(t, err)
}
