package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"surfacemetrics/internal/models"
)

// Viewer exports planes of a volume as 16-bit grayscale images. Samples are
// scaled so that the volume maximum maps to white.
type Viewer struct {
	vol   *models.Volume
	scale float64
}

// NewViewer creates a viewer over vol. The volume is read, never modified.
func NewViewer(vol *models.Volume) *Viewer {
	peak := 0.0
	for _, v := range vol.Data {
		if v > peak {
			peak = v
		}
	}
	scale := 0.0
	if peak > 0 {
		scale = 1 / peak
	}
	return &Viewer{vol: vol, scale: scale}
}

func (v *Viewer) gray(z, y, x int) color.Gray16 {
	idx := (z*v.vol.Height+y)*v.vol.Width + x
	value := math.Max(0, math.Min(1, v.vol.Data[idx]*v.scale))
	return color.Gray16{Y: uint16(value * 65535)}
}

// extent returns the number of planes along axis.
func (v *Viewer) extent(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.vol.Width, nil
	case "y", "Y":
		return v.vol.Height, nil
	case "z", "Z":
		return v.vol.Depth, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractSlice extracts the plane at position along axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	n, err := v.extent(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= n {
		return nil, fmt.Errorf("position %d outside [0, %d) along %s", position, n, axis)
	}

	var img *image.Gray16
	switch axis {
	case "x", "X":
		// YZ plane
		img = image.NewGray16(image.Rect(0, 0, v.vol.Depth, v.vol.Height))
		for y := 0; y < v.vol.Height; y++ {
			for z := 0; z < v.vol.Depth; z++ {
				img.SetGray16(z, y, v.gray(z, y, position))
			}
		}
	case "y", "Y":
		// XZ plane
		img = image.NewGray16(image.Rect(0, 0, v.vol.Width, v.vol.Depth))
		for z := 0; z < v.vol.Depth; z++ {
			for x := 0; x < v.vol.Width; x++ {
				img.SetGray16(x, z, v.gray(z, position, x))
			}
		}
	default:
		// XY plane
		img = image.NewGray16(image.Rect(0, 0, v.vol.Width, v.vol.Height))
		for y := 0; y < v.vol.Height; y++ {
			for x := 0; x < v.vol.Width; x++ {
				img.SetGray16(x, y, v.gray(position, y, x))
			}
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along axis into outputDir
// as <prefix>_<axis>_<index>.png.
func (v *Viewer) SaveSliceSequence(axis, outputDir, prefix string) error {
	n, err := v.extent(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%03d.png", prefix, axis, pos))
		if err := SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
