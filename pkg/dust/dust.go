// Package dust removes connected components from binary grids by size.
//
// Every policy starts from the same labeling: components are 26-connected in
// 3D and 8-connected within a slice.
package dust

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"surfacemetrics/pkg/ndimage"
)

// Components is a labeling with its size table. Sizes[0] counts background.
type Components struct {
	Labels *ndimage.Labels
	Sizes  []int
}

// Label labels the foreground of m.
func Label(m *ndimage.Mask) Components {
	labels, sizes := ndimage.Label(m, ndimage.Full)
	return Components{Labels: labels, Sizes: sizes}
}

// Len returns the number of foreground components.
func (c Components) Len() int { return len(c.Sizes) - 1 }

// Dominant returns the id of the largest foreground component, the lowest id
// on ties, or 0 when there is none.
func (c Components) Dominant() int32 {
	best, id := 0, int32(0)
	for i := 1; i < len(c.Sizes); i++ {
		if c.Sizes[i] > best {
			best, id = c.Sizes[i], int32(i)
		}
	}
	return id
}

// Mask returns the cells of the listed components.
func (c Components) Mask(ids *roaring.Bitmap) *ndimage.Mask {
	return ndimage.Select(c.Labels, func(id int32) bool { return ids.Contains(uint32(id)) })
}

// fragments lists every foreground component except the dominant one.
func (c Components) fragments() *roaring.Bitmap {
	ids := roaring.New()
	if c.Len() == 0 {
		return ids
	}
	ids.AddRange(1, uint64(len(c.Sizes)))
	ids.Remove(uint32(c.Dominant()))
	return ids
}

// DropDominant keeps every component except the largest one.
func DropDominant(c Components) *ndimage.Mask {
	return c.Mask(c.fragments())
}

// KeepLongerThan drops the dominant component, then keeps the components with
// at least length/pitch cells. It returns the kept cells and the kept
// component sizes in label order.
func KeepLongerThan(c Components, length, pitch float64) (*ndimage.Mask, []int) {
	minSize := length / pitch
	ids := c.fragments()
	kept := roaring.New()
	var sizes []int
	ids.Iterate(func(id uint32) bool {
		if float64(c.Sizes[id]) >= minSize {
			kept.Add(id)
			sizes = append(sizes, c.Sizes[id])
		}
		return true
	})
	return c.Mask(kept), sizes
}

// Default per-slice filter limits.
const (
	DefaultMinRegionSize = 58
	DefaultMinRegions    = 11
)

// SliceFilter decides which regions of a 2D slice are noise. Regions larger
// than MinRegionSize are candidates. A slice with fewer than MinRegions
// candidates, or lying above HeightLimit, is suppressed entirely; otherwise
// only its non-candidate regions are.
type SliceFilter struct {
	MinRegionSize int
	MinRegions    int
	HeightLimit   float64
}

// NewSliceFilter returns the default filter capped at heightLimit.
func NewSliceFilter(heightLimit float64) SliceFilter {
	return SliceFilter{
		MinRegionSize: DefaultMinRegionSize,
		MinRegions:    DefaultMinRegions,
		HeightLimit:   heightLimit,
	}
}

// Unlimited returns a height limit that never suppresses a slice.
func Unlimited() float64 { return math.Inf(1) }

// Candidates returns the ids of the regions of c larger than MinRegionSize.
func (f SliceFilter) Candidates(c Components) *roaring.Bitmap {
	ids := roaring.New()
	for id := 1; id < len(c.Sizes); id++ {
		if c.Sizes[id] > f.MinRegionSize {
			ids.Add(uint32(id))
		}
	}
	return ids
}

// Suppressed returns the suppressed cells of slice z of mask. The result has
// the shape of the slice; a fully suppressed slice is all true.
func (f SliceFilter) Suppressed(slice *ndimage.Mask, z int) *ndimage.Mask {
	c := Label(slice)
	candidates := f.Candidates(c)
	if int(candidates.GetCardinality()) < f.MinRegions || float64(z) > f.HeightLimit {
		out := ndimage.NewGridLike[bool](slice)
		for i := range out.Data {
			out.Data[i] = true
		}
		return out
	}
	return ndimage.AndNot(slice, c.Mask(candidates))
}

// Filter applies the slice filter to every Z slice of m and returns m with
// the suppressed cells removed.
func (f SliceFilter) Filter(m *ndimage.Mask) *ndimage.Mask {
	out := ndimage.NewGridLike[bool](m)
	for z := 0; z < m.Dims[0]; z++ {
		slice := m.Slice(z)
		out.SetSlice(z, ndimage.AndNot(slice, f.Suppressed(slice, z)))
	}
	return out
}
