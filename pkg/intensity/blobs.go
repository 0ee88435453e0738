package intensity

import (
	"cmp"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

// blob is one triangle-connected component of a surface.
type blob struct {
	triangles *roaring.Bitmap
	volume    float64
}

// vertexGraph links the vertices of every valid triangle of s.
func vertexGraph(s *models.Surface) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		for _, v := range tri {
			if g.Node(int64(v)) == nil {
				g.AddNode(simple.Node(v))
			}
		}
		for _, e := range [3][2]int{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}} {
			if e[0] != e[1] {
				g.SetEdge(simple.Edge{F: simple.Node(e[0]), T: simple.Node(e[1])})
			}
		}
	}
	return g
}

// blobs splits the valid triangles of s into components sharing vertices and
// ranks them by enclosed volume, largest first. Ties keep the order of the
// lowest triangle index.
func blobs(s *models.Surface) []blob {
	component := make(map[int64]int)
	for k, nodes := range topo.ConnectedComponents(vertexGraph(s)) {
		for _, n := range nodes {
			component[n.ID()] = k
		}
	}

	byComponent := make(map[int]int)
	var out []blob
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		c := component[int64(tri[0])]
		k, ok := byComponent[c]
		if !ok {
			k = len(out)
			byComponent[c] = k
			out = append(out, blob{triangles: roaring.New()})
		}
		out[k].triangles.Add(uint32(t))
		a, b, d := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
		out[k].volume += r3.Dot(a, r3.Cross(b, d)) / 6
	}
	for i := range out {
		out[i].volume = math.Abs(out[i].volume)
	}
	slices.SortStableFunc(out, func(x, y blob) int { return cmp.Compare(y.volume, x.volume) })
	return out
}

// rankedBlob returns the triangles of the blob at rank (1 is the largest).
// A rank past the last blob gives an empty set.
func rankedBlob(s *models.Surface, rank int) *roaring.Bitmap {
	all := blobs(s)
	if rank < 1 || rank > len(all) {
		return roaring.New()
	}
	return all[rank-1].triangles
}

// blobVertices returns the vertices of the listed triangles.
func blobVertices(s *models.Surface, triangles *roaring.Bitmap) *roaring.Bitmap {
	verts := roaring.New()
	triangles.Iterate(func(t uint32) bool {
		for _, v := range s.Triangles[t] {
			verts.Add(uint32(v))
		}
		return true
	})
	return verts
}
