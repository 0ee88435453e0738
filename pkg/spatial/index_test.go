package spatial

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func randomPoints(rng *rand.Rand, n int, scale float64) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = r3.Vec{
			X: (rng.Float64() - 0.5) * scale,
			Y: (rng.Float64() - 0.5) * scale,
			Z: (rng.Float64() - 0.5) * scale,
		}
	}
	return pts
}

// bruteForce returns the reference neighbour set for q.
func bruteForce(pts []r3.Vec, q r3.Vec, kMax int, radius float64) NeighborSet {
	var all NeighborSet
	for i, p := range pts {
		d := math.Sqrt(r3.Norm2(r3.Sub(q, p)))
		if d <= radius {
			all = append(all, Neighbor{Index: i, Distance: d})
		}
	}
	slices.SortFunc(all, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.Index - b.Index
	})
	if len(all) > kMax-1 {
		all = all[:kMax-1]
	}
	if all == nil {
		all = NeighborSet{}
	}
	return all
}

// TestNewIndexEmpty verifies that an empty point set is rejected with a typed error
func TestNewIndexEmpty(t *testing.T) {
	ix, err := NewIndex(nil)
	assert.Nil(t, ix)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))

	var typed *EmptyInputError
	assert.True(t, errors.As(err, &typed))

	_, err = NeighborDistances([]r3.Vec{{}}, nil, 5, math.Inf(1), Mean)
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

// TestQueryMatchesBruteForce verifies count, radius and ordering limits
// against an exhaustive search
func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	pts := randomPoints(rng, 500, 10)
	queries := randomPoints(rng, 1200, 12)

	ix, err := NewIndex(pts)
	require.NoError(t, err)
	assert.Equal(t, 500, ix.Len())

	for _, tc := range []struct {
		kMax   int
		radius float64
	}{
		{kMax: 10, radius: math.Inf(1)},
		{kMax: 10, radius: 1.5},
		{kMax: 200, radius: 2.5},
		{kMax: 2, radius: 0.75},
	} {
		sets := ix.Query(queries, tc.kMax, tc.radius)
		require.Len(t, sets, len(queries))
		for i, set := range sets {
			if len(set) > tc.kMax-1 {
				t.Fatalf("Expected at most %d neighbours, got %d", tc.kMax-1, len(set))
			}
			want := bruteForce(pts, queries[i], tc.kMax, tc.radius)
			got := set
			if got == nil {
				got = NeighborSet{}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("kMax=%d radius=%v query %d mismatch (-want +got):\n%s", tc.kMax, tc.radius, i, diff)
			}
		}
	}
}

// TestQueryZeroRadius verifies that a zero radius only finds coincident points
func TestQueryZeroRadius(t *testing.T) {
	pts := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0}}
	ix, err := NewIndex(pts)
	require.NoError(t, err)

	sets := ix.Query([]r3.Vec{{X: 0.5}, {X: 1}}, 5, 0)
	assert.Empty(t, sets[0])
	require.Len(t, sets[1], 1)
	assert.Equal(t, Neighbor{Index: 1, Distance: 0}, sets[1][0])
}

// TestQueryInvalidRadius verifies that a negative or NaN radius matches
// nothing, not even coincident points
func TestQueryInvalidRadius(t *testing.T) {
	ix, err := NewIndex([]r3.Vec{{}, {X: 1}})
	require.NoError(t, err)
	for _, radius := range []float64{-2, math.Inf(-1), math.NaN()} {
		sets := ix.Query([]r3.Vec{{}, {X: 1}}, 5, radius)
		require.Len(t, sets, 2)
		for i, set := range sets {
			assert.Empty(t, set, "Expected no neighbours of query %d for radius %v", i, radius)
		}
	}
}

// TestQueryKMaxOne verifies that kMax of one requests no neighbours
func TestQueryKMaxOne(t *testing.T) {
	ix, err := NewIndex([]r3.Vec{{}, {X: 1}})
	require.NoError(t, err)
	for _, set := range ix.Query([]r3.Vec{{}, {X: 3}}, 1, math.Inf(1)) {
		assert.Empty(t, set)
	}
}

// TestAggregate verifies mean and median reduction and missing values
func TestAggregate(t *testing.T) {
	sets := []NeighborSet{
		{{Index: 0, Distance: 1}, {Index: 1, Distance: 2}, {Index: 2, Distance: 6}},
		{{Index: 3, Distance: 1}, {Index: 4, Distance: 3}},
		{},
	}

	mean := Aggregate(sets, Mean)
	assert.Equal(t, Some(3), mean[0])
	assert.Equal(t, Some(2), mean[1])
	assert.False(t, mean[2].Valid)

	med := Aggregate(sets, Median)
	assert.Equal(t, Some(2), med[0])
	assert.Equal(t, Some(2), med[1])

	f := Floats(mean)
	assert.Equal(t, 3.0, f[0])
	assert.True(t, math.IsNaN(f[2]))

	values := []float64{10, 20, math.NaN(), 40, 50}
	byValue := AggregateBy(sets, func(n Neighbor) float64 { return values[n.Index] }, Mean)
	assert.Equal(t, Some(15), byValue[0])
	assert.Equal(t, Some(45), byValue[1])
}

// TestNeighborDistances verifies the index-and-reduce helper on a line of points
func TestNeighborDistances(t *testing.T) {
	pts := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	got, err := NeighborDistances([]r3.Vec{{X: 0}}, pts, 3, math.Inf(1), Mean)
	require.NoError(t, err)
	// The two nearest points are the coincident one and its neighbour.
	assert.InDelta(t, 0.5, got[0].Value, 1e-12)
}

// TestResetAllNaN verifies that only all-NaN arrays are zeroed
func TestResetAllNaN(t *testing.T) {
	all := []float64{math.NaN(), math.NaN()}
	assert.True(t, ResetAllNaN(all))
	assert.Equal(t, []float64{0, 0}, all)

	some := []float64{math.NaN(), 1}
	assert.False(t, ResetAllNaN(some))
	assert.True(t, math.IsNaN(some[0]))

	assert.False(t, ResetAllNaN(nil))
}
