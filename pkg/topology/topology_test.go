package topology

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/internal/testutil"
	"surfacemetrics/pkg/sink"
	"surfacemetrics/pkg/spatial"
)

// TestToSpherical verifies the azimuth sign convention and undefined angles
func TestToSpherical(t *testing.T) {
	s := ToSpherical([]r3.Vec{
		{X: 1, Y: 1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: 2},
		{X: 0, Y: 0, Z: 0},
	}, r3.Vec{})

	assert.InDelta(t, math.Pi/4, s.Theta[0], 1e-12)
	assert.InDelta(t, -math.Pi/4, s.Theta[1], 1e-12)
	assert.InDelta(t, 90, s.Phi[0], 1e-12)
	assert.InDelta(t, 0, s.Phi[2], 1e-12)
	assert.True(t, math.IsNaN(s.Theta[2]))
	assert.True(t, math.IsNaN(s.Phi[3]))
	assert.Equal(t, 2.0, s.R[2])
}

// TestMeasureSphereEndToEnd verifies the topology metrics of a radius-5 sphere
// around a point target at the origin
func TestMeasureSphereEndToEnd(t *testing.T) {
	dir := t.TempDir()
	surface := testutil.UVSphere("cell", r3.Vec{}, 5, 40, 80)
	target := testutil.Point("sRBC", r3.Vec{})

	p := DefaultParams()
	p.Sink = sink.NewCSV(dir)
	res, ok, err := Measure(surface, target, p)
	require.NoError(t, err)
	require.True(t, ok)

	r, _ := surface.Attribute(models.AttrRadialDistance)
	phi, _ := surface.Attribute(models.AttrPhi)
	rpg, _ := surface.Attribute(models.AttrRadialDistanceAbovePhiLimitXY)
	require.Len(t, r, len(surface.Vertices))

	minPhi, maxPhi := math.Inf(1), math.Inf(-1)
	for i := range r {
		assert.InDelta(t, 5, r[i], 1e-9)
		minPhi = math.Min(minPhi, phi[i])
		maxPhi = math.Max(maxPhi, phi[i])
		if phi[i] <= 90 {
			assert.InDelta(t, 5, rpg[i], 1e-9, "vertex %d in the upper hemisphere", i)
		} else {
			assert.True(t, math.IsNaN(rpg[i]), "vertex %d in the lower hemisphere", i)
		}
	}
	assert.InDelta(t, 0, minPhi, 1e-9)
	assert.InDelta(t, 180, maxPhi, 1e-9)

	assert.InDelta(t, 5, res.MeanRadial, 1e-9)
	assert.InDelta(t, math.Sqrt(25/(2*math.Pi*4)), res.ArealRoughness, 1e-9)
	assert.InDelta(t, 0, res.ArealRoughnessSTD, 1e-9)
	assert.Greater(t, res.Area, 0.0)

	data, err := os.ReadFile(filepath.Join(dir, sink.ArealRoughness.Name))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, sink.ArealRoughness.Header, lines[0])
}

// TestMeasureExcludesInsideTarget verifies that vertices within the target
// radius never join the search cap
func TestMeasureExcludesInsideTarget(t *testing.T) {
	surface := testutil.UVSphere("cell", r3.Vec{}, 1.5, 10, 20)
	res, ok, err := Measure(surface, testutil.Point("t", r3.Vec{}), DefaultParams())
	require.NoError(t, err)
	require.True(t, ok)

	search, _ := surface.Attribute(models.AttrAreaSearch)
	for _, v := range search {
		assert.Equal(t, 0.0, v)
	}
	assert.Equal(t, 0.0, res.Area)
	assert.True(t, math.IsNaN(res.ArealRoughness))
}

// TestMeasureUnknownTarget verifies that an unknown target kind is skipped silently
func TestMeasureUnknownTarget(t *testing.T) {
	surface := testutil.UVSphere("cell", r3.Vec{}, 5, 10, 20)
	p := DefaultParams()
	p.Target = "platelet"

	_, ok, err := Measure(surface, testutil.Point("t", r3.Vec{}), p)
	assert.NoError(t, err)
	assert.False(t, ok)
	_, written := surface.Attribute(models.AttrRadialDistance)
	assert.False(t, written)

	r, known := MRBC.Radius()
	assert.True(t, known)
	assert.Equal(t, 2.7, r)
}

// TestMeasureDistance verifies vertex distances between concentric spheres
func TestMeasureDistance(t *testing.T) {
	inner := testutil.UVSphere("inner", r3.Vec{}, 5, 12, 24)
	outer := testutil.UVSphere("outer", r3.Vec{}, 6, 12, 24)

	values, err := MeasureDistance(inner, outer, 2)
	require.NoError(t, err)
	for _, v := range values {
		assert.InDelta(t, 1, v, 1e-9)
	}
	stored, ok := inner.Attribute(models.AttrDistance)
	require.True(t, ok)
	assert.Equal(t, values, stored)

	empty := models.NewSurface("empty", 0, nil, nil)
	_, err = MeasureDistance(inner, empty, 2)
	assert.True(t, errors.Is(err, spatial.ErrEmptyInput))

	assert.Error(t, DistanceSeries([]*models.Surface{inner}, nil, 2))
}
