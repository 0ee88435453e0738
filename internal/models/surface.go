package models

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// Attribute slot names written onto surfaces by the measurement pipelines.
const (
	AttrDistance                      = "distance"
	AttrIntensity                     = "intensity"
	AttrClipTop                       = "ClipTop"
	AttrClipBot                       = "ClipBot"
	AttrChannel1                      = "ch1"
	AttrChannel2                      = "ch2"
	AttrRadialDistance                = "radialDistance"
	AttrTheta                         = "theta"
	AttrPhi                           = "phi"
	AttrAreaSearch                    = "areasearch"
	AttrRadialDistanceAbovePhi        = "radialDistanceAbovePhi"
	AttrRadialDistanceAbovePhiLimitXY = "radialDistanceAbovePhiLimitxy"
	AttrRadialDistanceAbovePhiNoNaNs  = "radialDistanceAbovePhiNoNans"
	AttrEdges                         = "edges"
	AttrQueryDistance                 = "q_dist"
)

// ErrAttributeLength is returned when an attribute array does not have one
// value per vertex.
var ErrAttributeLength = errors.New("attribute length does not match vertex count")

// Surface is a triangulated surface snapshot owned by the caller. The
// pipelines read Vertices and Triangles and write whole attribute arrays; they
// never resize or reorder vertices.
type Surface struct {
	// ID identifies the surface; Frame is the time point it belongs to.
	ID    string
	Frame int

	Vertices  []r3.Vec
	Triangles [][3]int
	// TriangleMask marks valid triangles. A nil mask means all are valid.
	TriangleMask []bool

	attributes map[string][]float64
}

// NewSurface creates a surface with every triangle marked valid.
func NewSurface(id string, frame int, vertices []r3.Vec, triangles [][3]int) *Surface {
	mask := make([]bool, len(triangles))
	for i := range mask {
		mask[i] = true
	}
	return &Surface{
		ID:           id,
		Frame:        frame,
		Vertices:     vertices,
		Triangles:    triangles,
		TriangleMask: mask,
	}
}

// TriangleValid reports whether triangle t is included by the mask.
func (s *Surface) TriangleValid(t int) bool {
	if s.TriangleMask == nil {
		return true
	}
	return s.TriangleMask[t]
}

// SetAttribute replaces the named slot with a copy of values.
func (s *Surface) SetAttribute(name string, values []float64) error {
	if len(values) != len(s.Vertices) {
		return fmt.Errorf("%w: %s has %d values for %d vertices", ErrAttributeLength, name, len(values), len(s.Vertices))
	}
	if s.attributes == nil {
		s.attributes = make(map[string][]float64)
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	s.attributes[name] = cp
	return nil
}

// Attribute returns the named slot and whether it has been written.
func (s *Surface) Attribute(name string) ([]float64, bool) {
	v, ok := s.attributes[name]
	return v, ok
}

// AttributeNames returns the written slots in sorted order.
func (s *Surface) AttributeNames() []string {
	names := make([]string, 0, len(s.attributes))
	for name := range s.attributes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Centroid returns the mean vertex position.
func (s *Surface) Centroid() r3.Vec {
	var c r3.Vec
	if len(s.Vertices) == 0 {
		return c
	}
	for _, v := range s.Vertices {
		c = r3.Add(c, v)
	}
	return r3.Scale(1/float64(len(s.Vertices)), c)
}

// Adjacency returns, per vertex, the sorted-unique neighbouring vertices
// joined by an edge of a valid triangle.
func (s *Surface) Adjacency() [][]int {
	seen := make([]map[int]struct{}, len(s.Vertices))
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		for i := 0; i < 3; i++ {
			a, b := tri[i], tri[(i+1)%3]
			if seen[a] == nil {
				seen[a] = make(map[int]struct{})
			}
			if seen[b] == nil {
				seen[b] = make(map[int]struct{})
			}
			seen[a][b] = struct{}{}
			seen[b][a] = struct{}{}
		}
	}
	adj := make([][]int, len(s.Vertices))
	for v, set := range seen {
		for n := range set {
			adj[v] = append(adj[v], n)
		}
		slices.Sort(adj[v])
	}
	return adj
}
