package meshio

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"

	"surfacemetrics/internal/models"
)

// WritePLY writes s as an ASCII PLY mesh with one colour per vertex. Invalid
// triangles are left out.
func WritePLY(w io.Writer, s *models.Surface, colors []color.RGBA) error {
	if len(colors) != len(s.Vertices) {
		return fmt.Errorf("%w: %d colours for %d vertices", models.ErrAttributeLength, len(colors), len(s.Vertices))
	}
	faces := 0
	for t := range s.Triangles {
		if s.TriangleValid(t) {
			faces++
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\ncomment %s frame %d\n", s.ID, s.Frame)
	fmt.Fprintf(bw, "element vertex %d\n", len(s.Vertices))
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	bw.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	fmt.Fprintf(bw, "element face %d\n", faces)
	bw.WriteString("property list uchar int vertex_indices\nend_header\n")

	for i, v := range s.Vertices {
		c := colors[i]
		fmt.Fprintf(bw, "%g %g %g %d %d %d\n", v.X, v.Y, v.Z, c.R, c.G, c.B)
	}
	for t, tri := range s.Triangles {
		if !s.TriangleValid(t) {
			continue
		}
		fmt.Fprintf(bw, "3 %d %d %d\n", tri[0], tri[1], tri[2])
	}
	return bw.Flush()
}

// SavePLY writes the coloured mesh to path.
func SavePLY(path string, s *models.Surface, colors []color.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePLY(f, s, colors); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
