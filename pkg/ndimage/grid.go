// Package ndimage provides the dense-grid image operations used by the
// measurement pipelines: separable Gaussian filters, binary morphology,
// connected-component labeling, 2D Canny edges and 3D topological thinning.
//
// Grids are stored flat in row-major order with dimensions (depth, height,
// width), so voxel (z, y, x) lives at z*height*width + y*width + x. A 2D
// image is a grid with depth 1.
package ndimage

import "fmt"

// Grid is a dense 3D array of T.
type Grid[T any] struct {
	// Dims holds (depth, height, width).
	Dims [3]int
	Data []T
}

// Mask is a boolean grid.
type Mask = Grid[bool]

// Field is a scalar grid.
type Field = Grid[float64]

// Labels is a component labeling; 0 is background.
type Labels = Grid[int32]

// NewGrid allocates a zeroed grid with the given dimensions.
func NewGrid[T any](depth, height, width int) *Grid[T] {
	if depth < 0 || height < 0 || width < 0 {
		panic(fmt.Sprintf("ndimage: negative grid dimensions %dx%dx%d", depth, height, width))
	}
	return &Grid[T]{
		Dims: [3]int{depth, height, width},
		Data: make([]T, depth*height*width),
	}
}

// NewGridLike allocates a zeroed grid with the same dimensions as g.
func NewGridLike[T, U any](g *Grid[U]) *Grid[T] {
	return NewGrid[T](g.Dims[0], g.Dims[1], g.Dims[2])
}

// Len returns the number of cells.
func (g *Grid[T]) Len() int { return len(g.Data) }

// Index returns the flat index of (z, y, x).
func (g *Grid[T]) Index(z, y, x int) int {
	return (z*g.Dims[1]+y)*g.Dims[2] + x
}

// Coord is the inverse of Index.
func (g *Grid[T]) Coord(i int) (z, y, x int) {
	plane := g.Dims[1] * g.Dims[2]
	z = i / plane
	rem := i % plane
	return z, rem / g.Dims[2], rem % g.Dims[2]
}

// InBounds reports whether (z, y, x) lies inside the grid.
func (g *Grid[T]) InBounds(z, y, x int) bool {
	return z >= 0 && z < g.Dims[0] && y >= 0 && y < g.Dims[1] && x >= 0 && x < g.Dims[2]
}

// At returns the value at (z, y, x).
func (g *Grid[T]) At(z, y, x int) T { return g.Data[g.Index(z, y, x)] }

// Set stores v at (z, y, x).
func (g *Grid[T]) Set(z, y, x int, v T) { g.Data[g.Index(z, y, x)] = v }

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	out := &Grid[T]{Dims: g.Dims, Data: make([]T, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// Slice copies plane z into a new grid of depth 1.
func (g *Grid[T]) Slice(z int) *Grid[T] {
	plane := g.Dims[1] * g.Dims[2]
	out := NewGrid[T](1, g.Dims[1], g.Dims[2])
	copy(out.Data, g.Data[z*plane:(z+1)*plane])
	return out
}

// SetSlice copies a depth-1 grid into plane z.
func (g *Grid[T]) SetSlice(z int, s *Grid[T]) {
	plane := g.Dims[1] * g.Dims[2]
	copy(g.Data[z*plane:(z+1)*plane], s.Data)
}

// SameShape reports whether two grids have identical dimensions.
func SameShape[T, U any](a *Grid[T], b *Grid[U]) bool {
	return a.Dims == b.Dims
}

// Count returns the number of true cells in m.
func Count(m *Mask) int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Threshold returns f >= level.
func Threshold(f *Field, level float64) *Mask {
	out := NewGridLike[bool](f)
	for i, v := range f.Data {
		out.Data[i] = v >= level
	}
	return out
}

// ToField converts a mask into a 0/1 field.
func ToField(m *Mask) *Field {
	out := NewGridLike[float64](m)
	for i, v := range m.Data {
		if v {
			out.Data[i] = 1
		}
	}
	return out
}

// ToInt8 converts a mask into a 0/1 int8 grid.
func ToInt8(m *Mask) *Grid[int8] {
	out := NewGridLike[int8](m)
	for i, v := range m.Data {
		if v {
			out.Data[i] = 1
		}
	}
	return out
}

// FromInt8 returns g != 0.
func FromInt8(g *Grid[int8]) *Mask {
	out := NewGridLike[bool](g)
	for i, v := range g.Data {
		out.Data[i] = v != 0
	}
	return out
}

// And returns a AND b.
func And(a, b *Mask) *Mask {
	mustMatch(a, b)
	out := NewGridLike[bool](a)
	for i := range a.Data {
		out.Data[i] = a.Data[i] && b.Data[i]
	}
	return out
}

// Or returns a OR b.
func Or(a, b *Mask) *Mask {
	mustMatch(a, b)
	out := NewGridLike[bool](a)
	for i := range a.Data {
		out.Data[i] = a.Data[i] || b.Data[i]
	}
	return out
}

// AndNot returns a AND NOT b.
func AndNot(a, b *Mask) *Mask {
	mustMatch(a, b)
	out := NewGridLike[bool](a)
	for i := range a.Data {
		out.Data[i] = a.Data[i] && !b.Data[i]
	}
	return out
}

// Xor returns a XOR b.
func Xor(a, b *Mask) *Mask {
	mustMatch(a, b)
	out := NewGridLike[bool](a)
	for i := range a.Data {
		out.Data[i] = a.Data[i] != b.Data[i]
	}
	return out
}

// Not returns the complement of m.
func Not(m *Mask) *Mask {
	out := NewGridLike[bool](m)
	for i, v := range m.Data {
		out.Data[i] = !v
	}
	return out
}

func mustMatch[T, U any](a *Grid[T], b *Grid[U]) {
	if a.Dims != b.Dims {
		panic(fmt.Sprintf("ndimage: shape mismatch %v vs %v", a.Dims, b.Dims))
	}
}
