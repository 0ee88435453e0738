package ndimage

// Skeletonize thins a 3D mask to a one-voxel-wide skeleton with the
// Lee, Kashyap and Chu (1994) directional thinning scheme. A voxel is
// removed when it is a border voxel for the current direction, is not an
// end point, leaves the 26-connected Euler characteristic unchanged and is
// simple (its foreground neighbours form a single 26-connected component).
// Samples outside the grid are background.
func Skeletonize(m *Mask) *Mask {
	img := m.Clone()
	borders := [6]Offset{
		{0, -1, 0}, // north
		{0, 1, 0},  // south
		{0, 0, 1},  // east
		{0, 0, -1}, // west
		{1, 0, 0},  // up
		{-1, 0, 0}, // bottom
	}

	fg := make([]int, 0, Count(img))
	for i, v := range img.Data {
		if v {
			fg = append(fg, i)
		}
	}

	var nb [27]bool
	unchanged := 0
	for unchanged < 6 {
		unchanged = 0
		for _, dir := range borders {
			var candidates []int
			for _, i := range fg {
				if !img.Data[i] {
					continue
				}
				z, y, x := img.Coord(i)
				if sample(img, z+dir[0], y+dir[1], x+dir[2]) {
					continue
				}
				neighborhood(img, z, y, x, &nb)
				if isEndpoint(&nb) || !eulerInvariant(&nb) || !isSimple(&nb) {
					continue
				}
				candidates = append(candidates, i)
			}

			changed := false
			for _, i := range candidates {
				img.Data[i] = false
				z, y, x := img.Coord(i)
				neighborhood(img, z, y, x, &nb)
				if !isSimple(&nb) {
					img.Data[i] = true
					continue
				}
				changed = true
			}
			if !changed {
				unchanged++
			}
		}

		live := fg[:0]
		for _, i := range fg {
			if img.Data[i] {
				live = append(live, i)
			}
		}
		fg = live
	}
	return img
}

func sample(m *Mask, z, y, x int) bool {
	if !m.InBounds(z, y, x) {
		return false
	}
	return m.Data[m.Index(z, y, x)]
}

// neighborhood fills nb with the 3x3x3 block around (z, y, x); the centre is
// nb[13] and offset (dz, dy, dx) maps to (dz+1)*9 + (dy+1)*3 + dx+1.
func neighborhood(m *Mask, z, y, x int, nb *[27]bool) {
	k := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nb[k] = sample(m, z+dz, y+dy, x+dx)
				k++
			}
		}
	}
}

func nbIndex(dz, dy, dx int) int { return (dz+1)*9 + (dy+1)*3 + dx + 1 }

func isEndpoint(nb *[27]bool) bool {
	n := 0
	for k, v := range nb {
		if v && k != 13 {
			n++
		}
	}
	return n == 1
}

// eulerInvariant reports whether removing the centre voxel keeps the Euler
// characteristic of the union of closed unit cubes, which is the
// characteristic of the 26-connected foreground. The change equals the
// vertices, edges and faces that belong to the centre cube alone, counted
// with alternating signs, minus the cube itself.
func eulerInvariant(nb *[27]bool) bool {
	faces := 0
	for _, o := range [6]Offset{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
		if !nb[nbIndex(o[0], o[1], o[2])] {
			faces++
		}
	}

	edges := 0
	sides := [2]int{-1, 1}
	for axis := 0; axis < 3; axis++ {
		for _, a := range sides {
			for _, b := range sides {
				var o1, o2, o3 Offset
				// The two axes other than the edge direction take sides a and b.
				u, v := (axis+1)%3, (axis+2)%3
				o1[u] = a
				o2[v] = b
				o3[u], o3[v] = a, b
				if !nb[nbIndex(o1[0], o1[1], o1[2])] &&
					!nb[nbIndex(o2[0], o2[1], o2[2])] &&
					!nb[nbIndex(o3[0], o3[1], o3[2])] {
					edges++
				}
			}
		}
	}

	vertices := 0
	for _, sz := range sides {
		for _, sy := range sides {
			for _, sx := range sides {
				alone := true
				for _, dz := range [2]int{0, sz} {
					for _, dy := range [2]int{0, sy} {
						for _, dx := range [2]int{0, sx} {
							if dz == 0 && dy == 0 && dx == 0 {
								continue
							}
							if nb[nbIndex(dz, dy, dx)] {
								alone = false
							}
						}
					}
				}
				if alone {
					vertices++
				}
			}
		}
	}

	return vertices-edges+faces-1 == 0
}

// isSimple reports whether the foreground neighbours of the centre, with the
// centre removed, form exactly one 26-connected component.
func isSimple(nb *[27]bool) bool {
	var seen [27]bool
	components := 0
	stack := make([]int, 0, 26)
	for start := 0; start < 27; start++ {
		if start == 13 || !nb[start] || seen[start] {
			continue
		}
		components++
		if components > 1 {
			return false
		}
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cz, cy, cx := cur/9, (cur/3)%3, cur%3
			for dz := -1; dz <= 1; dz++ {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nz, ny, nx := cz+dz, cy+dy, cx+dx
						if nz < 0 || nz > 2 || ny < 0 || ny > 2 || nx < 0 || nx > 2 {
							continue
						}
						k := nz*9 + ny*3 + nx
						if k == 13 || !nb[k] || seen[k] {
							continue
						}
						seen[k] = true
						stack = append(stack, k)
					}
				}
			}
		}
	}
	return components == 1
}
