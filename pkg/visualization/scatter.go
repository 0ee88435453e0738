// Package visualization renders measurement results as images: skeleton
// scatter plots of ridge fragments and grayscale planes of volumes.
package visualization

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Cell is a (z, y, x) grid position.
type Cell [3]int

// RidgeScatter plots skeleton cells seen from above, X against Y, shading
// each point from light (low Z) to black (high Z), and saves it to filename.
// The image format follows the file extension.
func RidgeScatter(filename, title string, cells []Cell) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X µm 10^-1"
	p.Y.Label.Text = "Y µm 10^-1"

	if len(cells) > 0 {
		pts := make(plotter.XYs, len(cells))
		minZ, maxZ := cells[0][0], cells[0][0]
		for i, c := range cells {
			pts[i] = plotter.XY{X: float64(c[2]), Y: float64(c[1])}
			minZ = min(minZ, c[0])
			maxZ = max(maxZ, c[0])
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build scatter: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			shade := uint8(160)
			if maxZ > minZ {
				shade = uint8(160 * (maxZ - cells[i][0]) / (maxZ - minZ))
			}
			return draw.GlyphStyle{
				Color:  color.Gray{Y: shade},
				Radius: vg.Points(1.5),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}

	if err := p.Save(5.5*vg.Inch, 5.5*vg.Inch, filename); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}
