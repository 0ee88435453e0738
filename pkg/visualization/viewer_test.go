package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/ndimage"
)

// testVolume returns a volume whose samples encode their own z index
func testVolume(width, height, depth int) *models.Volume {
	f := ndimage.NewGrid[float64](depth, height, width)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				f.Set(z, y, x, float64(z))
			}
		}
	}
	return models.NewVolume("test", f, models.VoxelSize{X: 1, Y: 1, Z: 1}, 0.5)
}

// TestNewViewer verifies that the volume maximum maps to white
func TestNewViewer(t *testing.T) {
	vol := testVolume(4, 3, 5)
	viewer := NewViewer(vol)

	if viewer.scale != 0.25 {
		t.Errorf("Expected scale 0.25, got %f", viewer.scale)
	}

	empty := NewViewer(testVolume(4, 3, 1))
	if empty.scale != 0 {
		t.Errorf("Expected scale 0 for an all-zero volume, got %f", empty.scale)
	}
}

// TestExtractSlice verifies plane dimensions and values along each axis
func TestExtractSlice(t *testing.T) {
	width, height, depth := 4, 3, 5
	viewer := NewViewer(testVolume(width, height, depth))

	tests := []struct {
		axis   string
		pos    int
		bounds image.Rectangle
	}{
		{"z", 2, image.Rect(0, 0, width, height)},
		{"y", 1, image.Rect(0, 0, width, depth)},
		{"x", 3, image.Rect(0, 0, depth, height)},
	}
	for _, tt := range tests {
		img, err := viewer.ExtractSlice(tt.axis, tt.pos)
		if err != nil {
			t.Fatalf("Failed to extract %s slice: %v", tt.axis, err)
		}
		if img.Bounds() != tt.bounds {
			t.Errorf("Expected %s slice bounds %v, got %v", tt.axis, tt.bounds, img.Bounds())
		}
	}

	img, _ := viewer.ExtractSlice("z", 2)
	got := color.Gray16Model.Convert(img.At(1, 1)).(color.Gray16)
	if want := uint16(32767); got.Y != want {
		t.Errorf("Expected gray level %d, got %d", want, got.Y)
	}

	// Along y the image rows are z planes
	img, _ = viewer.ExtractSlice("y", 0)
	top := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16)
	bottom := color.Gray16Model.Convert(img.At(0, depth-1)).(color.Gray16)
	if top.Y != 0 || bottom.Y != 65535 {
		t.Errorf("Expected rows from black to white, got %d and %d", top.Y, bottom.Y)
	}

	if _, err := viewer.ExtractSlice("w", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of range position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	depth := 3
	viewer := NewViewer(testVolume(5, 5, depth))
	outputDir := filepath.Join(t.TempDir(), "slices")

	if err := viewer.SaveSliceSequence("z", outputDir, "voids"); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("voids_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir, "voids"); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

// TestRidgeScatter verifies that skeleton plots are written, including empty ones
func TestRidgeScatter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	dir := t.TempDir()
	cells := []Cell{{0, 1, 2}, {3, 4, 5}, {6, 4, 2}}
	for name, c := range map[string][]Cell{"ridges.png": cells, "flat.png": cells[:1], "empty.png": nil} {
		filename := filepath.Join(dir, name)
		if err := RidgeScatter(filename, name, c); err != nil {
			t.Fatalf("Failed to plot %s: %v", name, err)
		}
		info, err := os.Stat(filename)
		if err != nil {
			t.Errorf("Expected plot file %s, got %v", filename, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Expected non-empty plot file %s", filename)
		}
	}

	if err := RidgeScatter(filepath.Join(dir, "missing", "x.png"), "x", cells); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}
