// Package testutil builds synthetic surfaces and volumes for tests.
package testutil

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/ndimage"
)

// UVSphere returns a closed latitude/longitude sphere with outward facing,
// counter-clockwise triangles. rings >= 2 and segments >= 3.
func UVSphere(id string, centre r3.Vec, radius float64, rings, segments int) *models.Surface {
	verts := []r3.Vec{r3.Add(centre, r3.Vec{Z: radius})}
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			verts = append(verts, r3.Add(centre, r3.Vec{
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Sin(theta) * math.Sin(phi),
				Z: radius * math.Cos(theta),
			}))
		}
	}
	verts = append(verts, r3.Add(centre, r3.Vec{Z: -radius}))
	south := len(verts) - 1

	ring := func(i, j int) int { return 1 + (i-1)*segments + j%segments }

	var tris [][3]int
	for j := 0; j < segments; j++ {
		tris = append(tris, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			a, b := ring(i, j), ring(i+1, j)
			c, d := ring(i+1, j+1), ring(i, j+1)
			tris = append(tris, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	for j := 0; j < segments; j++ {
		tris = append(tris, [3]int{south, ring(rings-1, j+1), ring(rings-1, j)})
	}
	return models.NewSurface(id, 0, verts, tris)
}

// Point returns a surface made of a single vertex.
func Point(id string, p r3.Vec) *models.Surface {
	return models.NewSurface(id, 0, []r3.Vec{p}, nil)
}

// Translate returns a copy of s moved by d.
func Translate(s *models.Surface, d r3.Vec) *models.Surface {
	verts := make([]r3.Vec, len(s.Vertices))
	for i, v := range s.Vertices {
		verts[i] = r3.Add(v, d)
	}
	tris := make([][3]int, len(s.Triangles))
	copy(tris, s.Triangles)
	return models.NewSurface(s.ID, s.Frame, verts, tris)
}

// BallField returns a depth x height x width field that is inside within
// radius voxels of the grid centre and outside elsewhere.
func BallField(depth, height, width int, radius, inside, outside float64) *ndimage.Field {
	f := ndimage.NewGrid[float64](depth, height, width)
	cz, cy, cx := float64(depth-1)/2, float64(height-1)/2, float64(width-1)/2
	for i := range f.Data {
		z, y, x := f.Coord(i)
		d := math.Sqrt(sq(float64(z)-cz) + sq(float64(y)-cy) + sq(float64(x)-cx))
		if d <= radius {
			f.Data[i] = inside
		} else {
			f.Data[i] = outside
		}
	}
	return f
}

func sq(v float64) float64 { return v * v }
