package ridge

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

// VertexConvexity scores every vertex by the solid angle of the cone swept
// between its area-weighted normal and its one-ring of triangles, minus 2π.
// A flat vertex scores 0, a convex tip is positive and a concave pit is
// negative. The scores are then averaged with their edge neighbours
// iterations times. Vertices without valid triangles score 0.
func VertexConvexity(s *models.Surface, iterations int) []float64 {
	n := len(s.Vertices)
	normals := make([]r3.Vec, n)
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		a, b, c := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
		// Twice the area times the unit normal.
		w := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, v := range tri {
			normals[v] = r3.Add(normals[v], w)
		}
	}

	omega := make([]float64, n)
	touched := make([]bool, n)
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		for k := 0; k < 3; k++ {
			v, a, b := tri[k], tri[(k+1)%3], tri[(k+2)%3]
			if r3.Norm2(normals[v]) == 0 {
				continue
			}
			nrm := r3.Unit(normals[v])
			ea := r3.Sub(s.Vertices[a], s.Vertices[v])
			eb := r3.Sub(s.Vertices[b], s.Vertices[v])
			if r3.Norm2(ea) == 0 || r3.Norm2(eb) == 0 {
				continue
			}
			ea, eb = r3.Unit(ea), r3.Unit(eb)
			num := r3.Dot(nrm, r3.Cross(ea, eb))
			den := 1 + r3.Dot(nrm, ea) + r3.Dot(nrm, eb) + r3.Dot(ea, eb)
			omega[v] += 2 * math.Atan2(num, den)
			touched[v] = true
		}
	}

	conv := make([]float64, n)
	for v := range conv {
		if touched[v] {
			conv[v] = omega[v] - 2*math.Pi
		}
	}
	return smooth(conv, s.Adjacency(), iterations)
}

// smooth replaces every value by the mean of itself and its neighbours,
// iterations times.
func smooth(values []float64, adj [][]int, iterations int) []float64 {
	cur := values
	next := make([]float64, len(values))
	for it := 0; it < iterations; it++ {
		for v, nbrs := range adj {
			sum := cur[v]
			for _, u := range nbrs {
				sum += cur[u]
			}
			next[v] = sum / float64(len(nbrs)+1)
		}
		cur, next = next, cur
	}
	return cur
}
