package meshio

import (
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
)

// faceAxes lists, for a face normal along axis a of (x, y, z), the two
// in-plane axes u and v with u cross v pointing along +a.
var faceAxes = [3][2]int{{1, 2}, {2, 0}, {0, 1}}

// Isosurface builds the closed boundary surface of the voxels of v at or
// above its surface level. Every exposed voxel face becomes two triangles
// facing outwards; voxel centres sit at index times voxel size, so corners
// sit half a voxel off.
func Isosurface(v *models.Volume, id string, frame int) *models.Surface {
	dims := [3]int{v.Width, v.Height, v.Depth}
	inside := func(p [3]int) bool {
		for a := range p {
			if p[a] < 0 || p[a] >= dims[a] {
				return false
			}
		}
		return v.Data[(p[2]*v.Height+p[1])*v.Width+p[0]] >= v.SurfaceLevel
	}

	index := make(map[[3]int]int)
	var verts []r3.Vec
	corner := func(c [3]int) int {
		if i, ok := index[c]; ok {
			return i
		}
		i := len(verts)
		index[c] = i
		verts = append(verts, r3.Vec{
			X: (float64(c[0]) - 0.5) * v.VoxelSize.X,
			Y: (float64(c[1]) - 0.5) * v.VoxelSize.Y,
			Z: (float64(c[2]) - 0.5) * v.VoxelSize.Z,
		})
		return i
	}

	var tris [][3]int
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				p := [3]int{x, y, z}
				if !inside(p) {
					continue
				}
				for a := 0; a < 3; a++ {
					for _, step := range [2]int{1, -1} {
						n := p
						n[a] += step
						if inside(n) {
							continue
						}
						q := face(p, a, step > 0)
						c0, c1, c2, c3 := corner(q[0]), corner(q[1]), corner(q[2]), corner(q[3])
						tris = append(tris, [3]int{c0, c1, c2}, [3]int{c0, c2, c3})
					}
				}
			}
		}
	}
	return models.NewSurface(id, frame, verts, tris)
}

// face returns the four corners of a voxel face in counter-clockwise order
// seen from outside.
func face(p [3]int, axis int, positive bool) [4][3]int {
	u, w := faceAxes[axis][0], faceAxes[axis][1]
	base := p
	if positive {
		base[axis]++
	}
	at := func(du, dw int) [3]int {
		c := base
		c[u] += du
		c[w] += dw
		return c
	}
	if positive {
		return [4][3]int{at(0, 0), at(1, 0), at(1, 1), at(0, 1)}
	}
	return [4][3]int{at(0, 0), at(0, 1), at(1, 1), at(1, 0)}
}
