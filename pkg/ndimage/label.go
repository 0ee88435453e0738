package ndimage

// Connectivity selects which neighbours join a component.
type Connectivity int

const (
	// Full connects every neighbour sharing a face, edge or corner
	// (26 in 3D, 8 within a slice).
	Full Connectivity = iota
	// Face connects neighbours sharing a face (6 in 3D, 4 within a slice).
	Face
)

func (c Connectivity) offsets() Structure {
	var s Structure
	switch c {
	case Face:
		s = Cross()
	default:
		s = Box()
	}
	out := s[:0:0]
	for _, o := range s {
		if o != (Offset{}) {
			out = append(out, o)
		}
	}
	return out
}

// Label assigns component ids 1..n to the true cells of m in raster order.
// sizes[id] is the voxel count of component id; sizes[0] counts background.
func Label(m *Mask, conn Connectivity) (*Labels, []int) {
	labels := NewGridLike[int32](m)
	sizes := []int{0}
	nbrs := conn.offsets()
	queue := make([]int, 0, 64)

	for start, v := range m.Data {
		if !v {
			sizes[0]++
			continue
		}
		if labels.Data[start] != 0 {
			continue
		}
		id := int32(len(sizes))
		sizes = append(sizes, 0)
		labels.Data[start] = id
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			sizes[id]++
			z, y, x := m.Coord(cur)
			for _, o := range nbrs {
				nz, ny, nx := z+o[0], y+o[1], x+o[2]
				if !m.InBounds(nz, ny, nx) {
					continue
				}
				ni := m.Index(nz, ny, nx)
				if m.Data[ni] && labels.Data[ni] == 0 {
					labels.Data[ni] = id
					queue = append(queue, ni)
				}
			}
		}
	}
	return labels, sizes
}

// Select returns the cells whose label is in keep.
func Select(labels *Labels, keep func(id int32) bool) *Mask {
	out := NewGridLike[bool](labels)
	for i, id := range labels.Data {
		if id != 0 && keep(id) {
			out.Data[i] = true
		}
	}
	return out
}
