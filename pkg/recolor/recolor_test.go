package recolor

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

func threeVertices() *models.Surface {
	return models.NewSurface("s", 0, []r3.Vec{{}, {X: 1}, {Y: 1}}, nil)
}

// TestParseMetric verifies that every metric round-trips through its name
func TestParseMetric(t *testing.T) {
	for m := Intensity; m <= Bottom; m++ {
		got, ok := ParseMetric(m.String())
		require.True(t, ok, m.String())
		assert.Equal(t, m, got)
		assert.NotEmpty(t, m.Slot())
	}
	_, ok := ParseMetric("curvature")
	assert.False(t, ok)
}

// TestDefaultRanges verifies the per-metric default ranges
func TestDefaultRanges(t *testing.T) {
	assert.Equal(t, Range{Min: -math.Pi, Max: math.Pi}, Theta.DefaultRange())
	assert.Equal(t, Range{Max: 180}, Phi.DefaultRange())
	assert.Equal(t, Range{Max: 15}, Distance.DefaultRange())
	assert.Equal(t, BrBG, QueryDistance.Palette())
}

// TestParseRange verifies the accepted colour range forms
func TestParseRange(t *testing.T) {
	spec, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMode, spec.Mode)

	spec, err = ParseRange("full")
	require.NoError(t, err)
	assert.Equal(t, FullMode, spec.Mode)

	spec, err = ParseRange("-1.5, 4")
	require.NoError(t, err)
	assert.Equal(t, RangeSpec{Mode: ExplicitMode, Range: Range{Min: -1.5, Max: 4}}, spec)

	_, err = ParseRange("4")
	assert.Error(t, err)
	_, err = ParseRange("a,b")
	assert.Error(t, err)
}

// TestResolve verifies range resolution and the unknown-metric no-op
func TestResolve(t *testing.T) {
	s := threeVertices()
	require.NoError(t, s.SetAttribute(models.AttrDistance, []float64{1, math.NaN(), 4}))

	c, ok := Resolve(s, "distance", "", RangeSpec{Mode: FullMode})
	require.True(t, ok)
	assert.Equal(t, Range{Min: 1, Max: 4}, c.Range)
	assert.Equal(t, BrBG, c.Palette)

	c, ok = Resolve(s, "distance", Purples, RangeSpec{})
	require.True(t, ok)
	assert.Equal(t, Range{Max: 15}, c.Range)
	assert.Equal(t, Purples, c.Palette)

	_, ok = Resolve(s, "curvature", "", RangeSpec{})
	assert.False(t, ok, "Expected an unknown metric to be skipped")
	_, ok = Resolve(s, "intensity", "", RangeSpec{})
	assert.False(t, ok, "Expected an unmeasured slot to be skipped")
}

// TestResolveAllNaN verifies that an all-NaN measurement is reset to zero
// without touching the stored slot
func TestResolveAllNaN(t *testing.T) {
	s := threeVertices()
	nan := math.NaN()
	require.NoError(t, s.SetAttribute(models.AttrQueryDistance, []float64{nan, nan, nan}))

	c, ok := Resolve(s, "qd", "", RangeSpec{Mode: FullMode})
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0}, c.Values)
	assert.Equal(t, Range{}, c.Range)

	stored, _ := s.Attribute(models.AttrQueryDistance)
	assert.True(t, math.IsNaN(stored[0]))

	require.NoError(t, s.SetAttribute(models.AttrQueryDistance, []float64{1.7, -2.2, nan}))
	c, _ = Resolve(s, "qd", "", RangeSpec{})
	assert.Equal(t, 1.0, c.Values[0])
	assert.Equal(t, -2.0, c.Values[1])
}

// TestCompositeRanges verifies channel ordering and colour ramps
func TestCompositeRanges(t *testing.T) {
	s := threeVertices()
	_, _, ok := CompositeRanges(s, GreenMagenta, RangeSpec{}, RangeSpec{}, DefaultPaletteRange)
	assert.False(t, ok)

	require.NoError(t, s.SetAttribute(models.AttrChannel1, []float64{1, 2, 3}))
	require.NoError(t, s.SetAttribute(models.AttrChannel2, []float64{10, 20, 30}))

	g, m, ok := CompositeRanges(s, MagentaGreen, RangeSpec{Mode: FullMode}, RangeSpec{}, DefaultPaletteRange)
	require.True(t, ok)
	assert.Equal(t, Range{Min: 10, Max: 30}, g.Range)
	assert.Equal(t, DefaultChannelRange, m.Range)
	assert.Equal(t, []float64{1, 2, 3}, m.Values)
	assert.Equal(t, color.RGBA{G: 240, A: 255}, g.Colors[1])
	assert.Equal(t, color.RGBA{R: 40, B: 40, A: 255}, m.Colors[0])

	series := ResolveSeries([]*models.Surface{s, threeVertices()}, "distance", "", RangeSpec{})
	assert.Empty(t, series)
}

// TestColors verifies palette end points, clamping and NaN colouring
func TestColors(t *testing.T) {
	nan := math.NaN()
	c := Coloring{Palette: Purples, Range: Range{Min: 0, Max: 1}, Values: []float64{0, 1, nan, 2, -1}}
	colors, err := c.Colors()
	require.NoError(t, err)
	stops, err := Purples.stops()
	require.NoError(t, err)
	require.Len(t, stops, 9)

	assert.Equal(t, stops[0], colors[0])
	assert.Equal(t, stops[8], colors[1])
	assert.Equal(t, NaNColor, colors[2])
	assert.Equal(t, stops[8], colors[3])
	assert.Equal(t, stops[0], colors[4])

	c = Coloring{Palette: BrBG, Range: Range{Min: 0, Max: 10}, Values: []float64{5}}
	colors, err = c.Colors()
	require.NoError(t, err)
	stops, err = BrBG.stops()
	require.NoError(t, err)
	assert.Equal(t, stops[5], colors[0], "Expected the middle stop of an odd palette")

	_, err = Coloring{Palette: "viridis"}.Colors()
	assert.Error(t, err)
}

// TestBlend verifies that composite channels add up per vertex
func TestBlend(t *testing.T) {
	g := Channel{Range: Range{Max: 10}, Values: []float64{0, 10, math.NaN()}, Colors: [2]color.RGBA{ramp(40, false), ramp(240, false)}}
	m := Channel{Range: Range{Max: 10}, Values: []float64{10, 10, 0}, Colors: [2]color.RGBA{ramp(40, true), ramp(240, true)}}

	got := Blend(g, m)
	assert.Equal(t, color.RGBA{R: 240, G: 40, B: 240, A: 255}, got[0])
	assert.Equal(t, color.RGBA{R: 240, G: 240, B: 240, A: 255}, got[1])
	assert.Equal(t, color.RGBA{R: 40, G: 40, B: 40, A: 255}, got[2])
}
