// Package meshio loads and stores the surfaces, volumes and tracks the
// measurement commands operate on.
package meshio

import (
	"fmt"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

// stlHeaderSize is the length of the free-form binary STL header.
const stlHeaderSize = 80

// LoadSurface reads an ASCII or binary STL file. Corners with identical
// coordinates are welded into one vertex, so triangles share vertices the way
// the surface was meshed.
func LoadSurface(path, id string, frame int) (*models.Surface, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL %s: %w", path, err)
	}

	index := make(map[stl.Vec3]int)
	var verts []r3.Vec
	tris := make([][3]int, 0, len(solid.Triangles))
	for _, t := range solid.Triangles {
		var tri [3]int
		for k, c := range t.Vertices {
			v, ok := index[c]
			if !ok {
				v = len(verts)
				index[c] = v
				verts = append(verts, r3.Vec{X: float64(c[0]), Y: float64(c[1]), Z: float64(c[2])})
			}
			tri[k] = v
		}
		tris = append(tris, tri)
	}
	return models.NewSurface(id, frame, verts, tris), nil
}

// SaveSurface writes the valid triangles of s as a binary STL file with
// right-handed facet normals.
func SaveSurface(path string, s *models.Surface) error {
	header := make([]byte, stlHeaderSize)
	copy(header, "surfacemetrics "+s.ID)
	solid := &stl.Solid{Name: s.ID, BinaryHeader: header}
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		a, b, c := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if r3.Norm(n) > 0 {
			n = r3.Unit(n)
		}
		solid.Triangles = append(solid.Triangles, stl.Triangle{
			Normal:   vec3(n),
			Vertices: [3]stl.Vec3{vec3(a), vec3(b), vec3(c)},
		})
	}
	if err := solid.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write STL %s: %w", path, err)
	}
	return nil
}

func vec3(v r3.Vec) stl.Vec3 {
	return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}
