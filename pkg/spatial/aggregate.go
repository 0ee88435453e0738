package spatial

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Statistic selects how a neighbour set is reduced to one value.
type Statistic int

const (
	Mean Statistic = iota
	Median
)

func (s Statistic) String() string {
	switch s {
	case Mean:
		return "mean"
	case Median:
		return "median"
	default:
		return "unknown"
	}
}

// Optional is a scalar that may be missing.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a valid Optional holding v.
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

// Float returns the value, or NaN when it is missing.
func (o Optional) Float() float64 {
	if !o.Valid {
		return math.NaN()
	}
	return o.Value
}

// Floats converts optionals to a numeric array with NaN for missing values.
func Floats(values []Optional) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Float()
	}
	return out
}

// Aggregate reduces the neighbour distances of each set. Sets without
// neighbours give an invalid Optional.
func Aggregate(sets []NeighborSet, s Statistic) []Optional {
	return AggregateBy(sets, func(n Neighbor) float64 { return n.Distance }, s)
}

// AggregateBy reduces value(n) over the neighbours of each set. Values that
// are NaN are ignored; a set with no remaining values gives an invalid Optional.
func AggregateBy(sets []NeighborSet, value func(Neighbor) float64, s Statistic) []Optional {
	out := make([]Optional, len(sets))
	var buf []float64
	for i, set := range sets {
		buf = buf[:0]
		for _, n := range set {
			if v := value(n); !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			continue
		}
		switch s {
		case Median:
			out[i] = Some(median(buf))
		default:
			out[i] = Some(stat.Mean(buf, nil))
		}
	}
	return out
}

// median sorts x in place and returns the midpoint, averaging the two central
// values for even lengths.
func median(x []float64) float64 {
	slices.Sort(x)
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}

// NeighborDistances indexes points and reduces, for every query, the
// distances of its nearest kMax-1 points within radius.
func NeighborDistances(queries, pts []r3.Vec, kMax int, radius float64, s Statistic) ([]Optional, error) {
	ix, err := NewIndex(pts)
	if err != nil {
		return nil, err
	}
	return Aggregate(ix.Query(queries, kMax, radius), s), nil
}

// ResetAllNaN zeroes values when every entry is NaN and reports whether it did.
// Empty input is left alone.
func ResetAllNaN(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	for i := range values {
		values[i] = 0
	}
	return true
}
