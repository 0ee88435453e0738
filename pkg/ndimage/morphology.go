package ndimage

// Offset is a (dz, dy, dx) displacement.
type Offset [3]int

// Structure is a symmetric structuring element listed as offsets from its
// centre. The centre itself is included.
type Structure []Offset

// Cross returns the face-connected element (6 neighbours in 3D).
func Cross() Structure {
	return Diamond(1)
}

// Diamond returns all offsets with |dz|+|dy|+|dx| <= r, which equals the
// face-connected element dilated by itself r-1 times.
func Diamond(r int) Structure {
	var s Structure
	for dz := -r; dz <= r; dz++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dz)+abs(dy)+abs(dx) <= r {
					s = append(s, Offset{dz, dy, dx})
				}
			}
		}
	}
	return s
}

// Box returns the full 3x3x3 element.
func Box() Structure {
	var s Structure
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				s = append(s, Offset{dz, dy, dx})
			}
		}
	}
	return s
}

// Planar restricts s to offsets with dz == 0, for slice-wise operations.
func (s Structure) Planar() Structure {
	var out Structure
	for _, o := range s {
		if o[0] == 0 {
			out = append(out, o)
		}
	}
	return out
}

// Dilate applies binary dilation with s, iterations times. Samples outside
// the grid are background.
func Dilate(m *Mask, s Structure, iterations int) *Mask {
	cur := m
	for it := 0; it < iterations; it++ {
		next := NewGridLike[bool](cur)
		for i, v := range cur.Data {
			if !v {
				continue
			}
			z, y, x := cur.Coord(i)
			for _, o := range s {
				nz, ny, nx := z+o[0], y+o[1], x+o[2]
				if cur.InBounds(nz, ny, nx) {
					next.Data[cur.Index(nz, ny, nx)] = true
				}
			}
		}
		cur = next
	}
	if cur == m {
		return m.Clone()
	}
	return cur
}

// Erode applies binary erosion with s, iterations times. Samples outside the
// grid take borderValue.
func Erode(m *Mask, s Structure, iterations int, borderValue bool) *Mask {
	cur := m
	for it := 0; it < iterations; it++ {
		next := NewGridLike[bool](cur)
		for i, v := range cur.Data {
			if !v {
				continue
			}
			z, y, x := cur.Coord(i)
			keep := true
			for _, o := range s {
				nz, ny, nx := z+o[0], y+o[1], x+o[2]
				var nv bool
				if cur.InBounds(nz, ny, nx) {
					nv = cur.Data[cur.Index(nz, ny, nx)]
				} else {
					nv = borderValue
				}
				if !nv {
					keep = false
					break
				}
			}
			next.Data[i] = keep
		}
		cur = next
	}
	if cur == m {
		return m.Clone()
	}
	return cur
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
