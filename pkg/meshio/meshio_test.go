package meshio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/internal/testutil"
	"surfacemetrics/pkg/ndimage"
)

func signedVolume(s *models.Surface) float64 {
	var v float64
	for _, t := range s.Triangles {
		a, b, c := s.Vertices[t[0]], s.Vertices[t[1]], s.Vertices[t[2]]
		v += r3.Dot(a, r3.Cross(b, c)) / 6
	}
	return v
}

// TestIsosurfaceSingleVoxel verifies the closed cube around one voxel
func TestIsosurfaceSingleVoxel(t *testing.T) {
	f := ndimage.NewGrid[float64](3, 3, 3)
	f.Set(1, 1, 1, 1)
	v := models.NewVolume("dot", f, models.VoxelSize{X: 1, Y: 2, Z: 3}, 0.5)

	s := Isosurface(v, "dot", 4)
	assert.Equal(t, 4, s.Frame)
	assert.Len(t, s.Triangles, 12)
	assert.Len(t, s.Vertices, 8)
	assert.InDelta(t, 6, signedVolume(s), 1e-12, "Expected an outward facing cube of volume 1*2*3")

	edges := make(map[[2]int]int)
	for _, tri := range s.Triangles {
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int{a, b}]++
		}
	}
	for e, n := range edges {
		assert.Equal(t, 2, n, "edge %v", e)
	}
}

// TestIsosurfaceSphere verifies that the boundary of a ball faces outwards
func TestIsosurfaceSphere(t *testing.T) {
	size := 20
	v := models.NewVolume("ball", testutil.BallField(size, size, size, 5, 1, 0), models.VoxelSize{X: 1, Y: 1, Z: 1}, 0.5)
	s := Isosurface(v, "ball", 0)

	if len(s.Triangles) < 100 {
		t.Errorf("Expected at least 100 triangles for sphere, got %d", len(s.Triangles))
	}
	centre := r3.Vec{X: 9.5, Y: 9.5, Z: 9.5}
	for i, tri := range s.Triangles {
		a, b, c := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
		normal := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		mid := r3.Scale(1.0/3, r3.Add(a, r3.Add(b, c)))
		if dot := r3.Dot(normal, r3.Sub(mid, centre)); dot <= 0 {
			t.Errorf("Triangle %d normal points inward, dot product: %f", i, dot)
		}
	}
}

// TestSurfaceSTLRoundTrip verifies that saved triangles reload with welded vertices
func TestSurfaceSTLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.stl")
	s := testutil.UVSphere("cell", r3.Vec{X: 1, Y: 2, Z: 3}, 4, 8, 16)
	require.NoError(t, SaveSurface(path, s))

	loaded, err := LoadSurface(path, "cell", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Frame)
	assert.Len(t, loaded.Vertices, len(s.Vertices))
	assert.Len(t, loaded.Triangles, len(s.Triangles))
	assert.InDelta(t, signedVolume(s), signedVolume(loaded), 1e-3)

	_, err = LoadSurface(filepath.Join(t.TempDir(), "missing.stl"), "x", 0)
	assert.Error(t, err)
}

// TestVolumeRoundTrip verifies the compressed raw volume format
func TestVolumeRoundTrip(t *testing.T) {
	v := models.NewVolume("cell 1/voids", testutil.BallField(4, 5, 6, 2, 3, 0.25), models.VoxelSize{X: 0.1, Y: 0.2, Z: 0.3}, 0.5)

	var buf bytes.Buffer
	require.NoError(t, WriteVolume(&buf, v))
	got, err := ReadVolume(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(v, got); diff != "" {
		t.Errorf("Expected identical volume (-want +got):\n%s", diff)
	}

	_, err = ReadVolume(strings.NewReader("not a volume"))
	assert.True(t, errors.Is(err, ErrNotVolume), "Expected ErrNotVolume, got %v", err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, DirRegistrar(dir)(v))
	stored, err := LoadVolume(filepath.Join(dir, "cell_1_voids"+VolumeExt))
	require.NoError(t, err)
	assert.Equal(t, v.Data, stored.Data)
}

// TestLoadSlices verifies numeric slice ordering and grey level conversion
func TestLoadSlices(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []uint8{10, 2, 1} {
		img := image.NewGray(image.Rect(0, 0, 3, 2))
		for i := range img.Pix {
			img.Pix[i] = n
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("slice%d.png", n)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	v, err := LoadSlices(dir, "stack", models.VoxelSize{X: 1, Y: 1, Z: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 3}, [3]int{v.Depth, v.Height, v.Width})
	assert.Equal(t, 1.0, v.Data[0])
	assert.Equal(t, 2.0, v.Data[6])
	assert.Equal(t, 10.0, v.Data[12])

	_, err = LoadSlices(t.TempDir(), "empty", models.VoxelSize{X: 1, Y: 1, Z: 1}, 0)
	assert.Error(t, err)
}

// TestReadTracks verifies track grouping and malformed input
func TestReadTracks(t *testing.T) {
	input := `# id x y z
1 0 0 0
2 5 5 5

1 1.5 0 0
`
	tracks, err := ReadTracks(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, 1, tracks[0].ID)
	assert.Equal(t, []r3.Vec{{}, {X: 1.5}}, tracks[0].Coords)
	assert.Equal(t, 1, tracks[1].Frames())

	_, err = ReadTracks(strings.NewReader("1 2 3\n"))
	assert.Error(t, err)
	_, err = ReadTracks(strings.NewReader("a 1 2 3\n"))
	assert.Error(t, err)
}

// TestAttributesRoundTrip verifies that measurements survive the sidecar, NaN included
func TestAttributesRoundTrip(t *testing.T) {
	s := models.NewSurface("cell", 3, []r3.Vec{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	require.NoError(t, s.SetAttribute(models.AttrDistance, []float64{1.5, math.NaN(), -2}))
	require.NoError(t, s.SetAttribute(models.AttrPhi, []float64{0, 90, 180}))

	path := filepath.Join(t.TempDir(), "cell.stl")
	require.NoError(t, SaveAttributes(path, s))

	loaded := models.NewSurface("cell", 3, s.Vertices, s.Triangles)
	require.NoError(t, LoadAttributes(path, loaded))
	assert.Equal(t, []string{models.AttrDistance, models.AttrPhi}, loaded.AttributeNames())
	d, _ := loaded.Attribute(models.AttrDistance)
	assert.Equal(t, 1.5, d[0])
	assert.True(t, math.IsNaN(d[1]), "Expected NaN, got %v", d[1])

	bare := models.NewSurface("other", 0, s.Vertices, s.Triangles)
	require.NoError(t, LoadAttributes(filepath.Join(t.TempDir(), "other.stl"), bare))
	assert.Empty(t, bare.AttributeNames())

	small := models.NewSurface("cell", 3, s.Vertices[:2], nil)
	err := LoadAttributes(path, small)
	assert.True(t, errors.Is(err, models.ErrAttributeLength), "Expected ErrAttributeLength, got %v", err)
}

// TestWritePLY verifies the header counts and skips masked triangles
func TestWritePLY(t *testing.T) {
	s := models.NewSurface("cell", 0, []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}, [][3]int{{0, 1, 2}, {0, 2, 3}})
	s.TriangleMask[1] = false
	colors := []color.RGBA{{R: 255}, {G: 255}, {B: 255}, {}}

	var buf bytes.Buffer
	require.NoError(t, WritePLY(&buf, s, colors))
	out := buf.String()
	assert.Contains(t, out, "element vertex 4\n")
	assert.Contains(t, out, "element face 1\n")
	assert.Contains(t, out, "1 0 0 0 255 0\n")
	assert.True(t, strings.HasSuffix(out, "3 0 1 2\n"))

	assert.Error(t, WritePLY(&buf, s, colors[:2]))
}

// TestGlob verifies numeric frame ordering of matched files
func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cell_10.stl", "cell_2.stl", "cell_1.stl", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	files, err := Glob(filepath.Join(dir, "cell_*.stl"))
	require.NoError(t, err)
	want := []string{filepath.Join(dir, "cell_1.stl"), filepath.Join(dir, "cell_2.stl"), filepath.Join(dir, "cell_10.stl")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Expected frame order (-want +got):\n%s", diff)
	}

	_, err = Glob(filepath.Join(dir, "*.vol.zst"))
	assert.Error(t, err)
}
