// Package recolor resolves which measurement a surface should be coloured by
// and over which value range, and maps the values onto brewer palettes.
package recolor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/spatial"
)

// Palette names a built-in colormap of the renderer.
type Palette string

const (
	Purples Palette = "purples"
	BrBG    Palette = "brbg"
)

// Metric is a measurement a surface can be coloured by.
type Metric int

const (
	Intensity Metric = iota
	Distance
	Radial
	Theta
	Phi
	RadialAbovePhi
	RadialCap
	RadialCapNoNaNs
	Area
	Edges
	QueryDistance
	Top
	Bottom
)

type metricInfo struct {
	name    string
	slot    string
	palette Palette
	max     float64
}

var metrics = [...]metricInfo{
	Intensity:       {"intensity", models.AttrIntensity, Purples, 5},
	Distance:        {"distance", models.AttrDistance, BrBG, 15},
	Radial:          {"R", models.AttrRadialDistance, Purples, 100},
	Theta:           {"theta", models.AttrTheta, BrBG, math.Pi},
	Phi:             {"phi", models.AttrPhi, BrBG, 180},
	RadialAbovePhi:  {"Rphi", models.AttrRadialDistanceAbovePhi, Purples, 10},
	RadialCap:       {"rpg", models.AttrRadialDistanceAbovePhiLimitXY, Purples, 10},
	RadialCapNoNaNs: {"rpd", models.AttrRadialDistanceAbovePhiNoNaNs, Purples, 10},
	Area:            {"area", models.AttrAreaSearch, Purples, 1},
	Edges:           {"edges", models.AttrEdges, Purples, 10},
	QueryDistance:   {"qd", models.AttrQueryDistance, BrBG, 10},
	Top:             {"top", models.AttrClipTop, Purples, 5},
	Bottom:          {"bottom", models.AttrClipBot, Purples, 5},
}

// ParseMetric looks a metric up by its command name.
func ParseMetric(name string) (Metric, bool) {
	for m, info := range metrics {
		if info.name == name {
			return Metric(m), true
		}
	}
	return 0, false
}

func (m Metric) String() string { return metrics[m].name }

// Slot returns the surface attribute the metric reads.
func (m Metric) Slot() string { return metrics[m].slot }

// Palette returns the default colormap.
func (m Metric) Palette() Palette { return metrics[m].palette }

// DefaultRange returns the range used when none is given. Theta spans the
// whole circle; every other metric starts at zero.
func (m Metric) DefaultRange() Range {
	if m == Theta {
		return Range{Min: -math.Pi, Max: math.Pi}
	}
	return Range{Max: metrics[m].max}
}

// Range is a closed value interval.
type Range struct {
	Min, Max float64
}

// RangeMode selects how a Range is obtained.
type RangeMode int

const (
	// DefaultMode uses the metric's default range.
	DefaultMode RangeMode = iota
	// FullMode spans the finite values of the measurement.
	FullMode
	// ExplicitMode uses the given bounds.
	ExplicitMode
)

// RangeSpec is a requested colour range.
type RangeSpec struct {
	Mode  RangeMode
	Range Range
}

// ParseRange reads "", "full" or "min,max".
func ParseRange(s string) (RangeSpec, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return RangeSpec{}, nil
	case "full":
		return RangeSpec{Mode: FullMode}, nil
	}
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return RangeSpec{}, fmt.Errorf("color range %q is not full or min,max", s)
	}
	var r Range
	var err error
	if r.Min, err = strconv.ParseFloat(strings.TrimSpace(lo), 64); err != nil {
		return RangeSpec{}, fmt.Errorf("color range %q: %w", s, err)
	}
	if r.Max, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
		return RangeSpec{}, fmt.Errorf("color range %q: %w", s, err)
	}
	return RangeSpec{Mode: ExplicitMode, Range: r}, nil
}

// resolve returns the range of values for spec, falling back to def.
func (spec RangeSpec) resolve(values []float64, def Range) Range {
	switch spec.Mode {
	case ExplicitMode:
		return spec.Range
	case FullMode:
		return fullRange(values)
	default:
		return def
	}
}

// fullRange is the NaN-ignoring extent of values. All-NaN input gives NaN bounds.
func fullRange(values []float64) Range {
	r := Range{Min: math.NaN(), Max: math.NaN()}
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(r.Min) || v < r.Min {
			r.Min = v
		}
		if math.IsNaN(r.Max) || v > r.Max {
			r.Max = v
		}
	}
	return r
}

// Coloring is a resolved recolouring request.
type Coloring struct {
	Metric  Metric
	Palette Palette
	Range   Range
	// Values is a copy of the measurement, reset to zero when it was all NaN.
	Values []float64
}

// Resolve prepares the coloring of s by the named metric. An unknown metric,
// or one the surface was not measured for, gives ok == false. An empty
// palette selects the metric's default.
func Resolve(s *models.Surface, name string, palette Palette, spec RangeSpec) (c Coloring, ok bool) {
	m, ok := ParseMetric(name)
	if !ok {
		return Coloring{}, false
	}
	stored, ok := s.Attribute(m.Slot())
	if !ok {
		return Coloring{}, false
	}
	values := make([]float64, len(stored))
	copy(values, stored)
	if m == QueryDistance {
		for i, v := range values {
			values[i] = math.Trunc(v)
		}
	}
	spatial.ResetAllNaN(values)

	if palette == "" {
		palette = m.Palette()
	}
	return Coloring{
		Metric:  m,
		Palette: palette,
		Range:   spec.resolve(values, m.DefaultRange()),
		Values:  values,
	}, true
}

// ResolveSeries resolves the same request for every surface, skipping the
// ones that cannot be coloured.
func ResolveSeries(surfaces []*models.Surface, name string, palette Palette, spec RangeSpec) []Coloring {
	var out []Coloring
	for _, s := range surfaces {
		if c, ok := Resolve(s, name, palette, spec); ok {
			out = append(out, c)
		}
	}
	return out
}
