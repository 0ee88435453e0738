// Package spatial provides nearest-neighbour queries over 3D point sets.
//
// An Index is built once over a point set and queried with many points at
// a time. Each query returns a variable-length NeighborSet holding only the
// neighbours that satisfy both the count and the radius limits, so callers
// never see padding entries. Aggregate reduces neighbour sets to one
// optional scalar per query point.
package spatial

import (
	"cmp"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbor is one indexed point found by a query.
type Neighbor struct {
	// Index is the position of the point in the slice given to NewIndex.
	Index int
	// Distance is the Euclidean distance to the query point.
	Distance float64
}

// NeighborSet lists the neighbours of one query point by ascending distance.
type NeighborSet []Neighbor

// Indices returns the point indices of the set in order.
func (s NeighborSet) Indices() []int {
	out := make([]int, len(s))
	for i, n := range s {
		out[i] = n.Index
	}
	return out
}

// Index is a KD-tree over a fixed point set. It is safe for concurrent queries.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// minChunk is the smallest number of query points handed to one worker.
const minChunk = 256

// NewIndex builds an index over pts. It fails with an *EmptyInputError when
// pts is empty.
func NewIndex(pts []r3.Vec) (*Index, error) {
	if len(pts) == 0 {
		return nil, &EmptyInputError{Op: "build index"}
	}
	data := make(points, len(pts))
	for i, p := range pts {
		data[i] = point{pos: p, idx: i}
	}
	return &Index{tree: kdtree.New(data, true), n: len(pts)}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.n }

// Query finds, for every query point, at most kMax-1 indexed points within
// radius (inclusive), sorted by ascending distance with ties broken by
// index. A radius of +Inf removes the distance limit; a negative or NaN
// radius matches nothing.
func (ix *Index) Query(queries []r3.Vec, kMax int, radius float64) []NeighborSet {
	out := make([]NeighborSet, len(queries))
	k := kMax - 1
	if k < 1 || len(queries) == 0 || radius < 0 || math.IsNaN(radius) {
		return out
	}
	if k > ix.n {
		k = ix.n
	}
	limit := radius * radius
	if math.IsInf(radius, 1) {
		limit = math.Inf(1)
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(queries) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(queries); start += chunk {
		end := min(start+chunk, len(queries))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = ix.nearest(queries[i], k, limit)
			}
			return nil
		})
	}
	// Workers never fail; Wait only joins them.
	_ = g.Wait()
	return out
}

func (ix *Index) nearest(q r3.Vec, k int, limit float64) NeighborSet {
	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, point{pos: q, idx: -1})

	set := make(NeighborSet, 0, keeper.Len())
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		if item.Dist > limit {
			continue
		}
		set = append(set, Neighbor{
			Index:    item.Comparable.(point).idx,
			Distance: math.Sqrt(item.Dist),
		})
	}
	slices.SortFunc(set, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return set
}
