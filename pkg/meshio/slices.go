package meshio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/ndimage"
)

var sliceExts = []string{".png", ".jpg", ".jpeg"}

// LoadSlices stacks the grey-scale images of dir into a volume, ordered by
// the number in each file name. Samples are 8-bit grey levels (0-255); 16-bit
// images keep their fraction.
func LoadSlices(dir, name string, size models.VoxelSize, level float64) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && slices.Contains(sliceExts, ext) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}
	slices.SortStableFunc(files, func(a, b string) int {
		return extractNumber(a) - extractNumber(b)
	})

	var field *ndimage.Field
	for z, file := range files {
		img, err := loadImage(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", file, err)
		}
		b := img.Bounds()
		if field == nil {
			field = ndimage.NewGrid[float64](len(files), b.Dy(), b.Dx())
		} else if b.Dy() != field.Dims[1] || b.Dx() != field.Dims[2] {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d", file, b.Dx(), b.Dy(), field.Dims[2], field.Dims[1])
		}
		field.SetSlice(z, imageToField(img))
	}

	slog.Debug("loaded slices", "dir", dir, "depth", field.Dims[0], "height", field.Dims[1], "width", field.Dims[2])
	return models.NewVolume(name, field, size, level), nil
}

// Glob returns the files matching pattern in frame order, sorted by the
// number in each file name like slice images.
func Glob(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %s", pattern)
	}
	slices.Sort(files)
	slices.SortStableFunc(files, func(a, b string) int {
		return extractNumber(a) - extractNumber(b)
	})
	return files, nil
}

// extractNumber reads the digits of a file name as one number; names without
// digits sort first.
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// imageToField converts img into a single-plane field of grey levels.
func imageToField(img image.Image) *ndimage.Field {
	b := img.Bounds()
	out := ndimage.NewGrid[float64](1, b.Dy(), b.Dx())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out.Set(0, y, x, float64(g.Y)/257)
		}
	}
	return out
}
