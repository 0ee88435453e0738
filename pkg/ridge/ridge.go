// Package ridge finds lamellar ridges on a cell surface wrapping a target.
//
// High-curvature vertices near the target are rasterized together with the
// whole membrane band around it. Removing the dominant connected membrane
// body leaves isolated fragments; the high-curvature voxels among them are
// the ridges. Their skeleton gives the ridge path length.
package ridge

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/dust"
	"surfacemetrics/pkg/ndimage"
	"surfacemetrics/pkg/sink"
	"surfacemetrics/pkg/spatial"
	"surfacemetrics/pkg/topology"
	"surfacemetrics/pkg/visualization"
	"surfacemetrics/pkg/voxelize"
)

// clipPhi is the polar angle, in degrees, below which vertices define the
// clip plane.
const clipPhi = 165

// Params configures Extract.
type Params struct {
	// Radius is the search radius around the target centroid
	Radius              float64
	SmoothingIterations int
	// Threshold is the smoothed convexity above which a vertex is high-curvature
	Threshold float64
	// KNN bounds the neighbours averaged by tracking (KNN-1 per vertex)
	KNN       int
	VoxelSize models.VoxelSize
	// Clip raises the clip plane above the lowest vertex of the band
	Clip float64
	// Exclusion is the shortest skeleton fragment length reported
	Exclusion float64
	Track     bool

	Sink sink.Appender
	// PlotDir receives a skeleton scatter image per frame when it exists
	PlotDir string
	Logger  *slog.Logger
}

// DefaultParams returns the defaults of the ridges command.
func DefaultParams() Params {
	return Params{
		Radius:              8,
		SmoothingIterations: 20,
		Threshold:           0.3,
		KNN:                 10,
		VoxelSize:           models.VoxelSize{X: 0.1028, Y: 0.1028, Z: 0.1028},
		Clip:                0.5,
		Exclusion:           0.5,
	}
}

// Result holds the ridge measurements of one frame.
type Result struct {
	// Area is the high-curvature fragment area
	Area float64
	// PathLength is the length of the whole skeleton
	PathLength float64
	// PathLengthAboveThreshold counts only fragments at least Exclusion long
	PathLengthAboveThreshold float64
	// Histogram lists the voxel sizes of the fragments kept for
	// PathLengthAboveThreshold
	Histogram []int
	// Skeleton holds every skeleton cell as (z, y, x)
	Skeleton []visualization.Cell
	// Displacement is the per-vertex mean distance to the next frame's
	// ridge candidates; nil when tracking was not requested or had no data.
	Displacement []float64
}

// band is the per-vertex masking of one frame.
type band struct {
	sph    topology.Spherical
	inBand *roaring.Bitmap
	ridges *roaring.Bitmap
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// mask computes spherical coordinates, curvature and the in-band selection of
// s around centre.
func (p Params) mask(s *models.Surface, centre r3.Vec) band {
	sph := topology.ToSpherical(s.Vertices, centre)
	conv := VertexConvexity(s, p.SmoothingIterations)

	clipZ := math.Inf(1)
	for i, phi := range sph.Phi {
		if phi < clipPhi {
			clipZ = math.Min(clipZ, sph.Rel[i].Z)
		}
	}
	if math.IsInf(clipZ, 1) {
		p.logger().Debug("no vertex below clip angle, clip disabled", "surface", s.ID)
	}

	b := band{sph: sph, inBand: roaring.New(), ridges: roaring.New()}
	curved := roaring.New()
	for i, r := range sph.R {
		if conv[i] > p.Threshold {
			curved.Add(uint32(i))
		}
		pass := math.IsInf(clipZ, 1) || sph.Rel[i].Z > clipZ+p.Clip
		if r < p.Radius && pass {
			b.inBand.Add(uint32(i))
		}
	}
	b.ridges = roaring.And(curved, b.inBand)
	return b
}

// Extract measures the ridges of cur around the centroid of target and writes
// the radialDistance, theta, phi and edges slots. With p.Track and a next
// frame it also writes the q_dist displacement slot.
func Extract(cur, next, target *models.Surface, p Params) (*Result, error) {
	logger := p.logger()
	centre := target.Centroid()
	b := p.mask(cur, centre)

	edges := make([]float64, len(cur.Vertices))
	b.ridges.Iterate(func(v uint32) bool {
		edges[v] = 1
		return true
	})
	for name, values := range map[string][]float64{
		models.AttrRadialDistance: b.sph.R,
		models.AttrTheta:          b.sph.Theta,
		models.AttrPhi:            b.sph.Phi,
		models.AttrEdges:          edges,
	} {
		if err := cur.SetAttribute(name, values); err != nil {
			return nil, err
		}
	}

	pitch := p.VoxelSize.X
	ridgeGrid, err := voxelize.Voxelize(b.ridges, b.sph.Rel, p.Radius, pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to voxelize ridge candidates: %w", err)
	}
	bandGrid, err := voxelize.Voxelize(b.inBand, b.sph.Rel, p.Radius, pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to voxelize membrane band: %w", err)
	}

	detached := dust.DropDominant(dust.Label(ndimage.FromInt8(bandGrid)))
	ridges := ndimage.And(ndimage.FromInt8(ridgeGrid), detached)

	res := &Result{
		Area: float64(ndimage.Count(ridges)) * p.VoxelSize.X * p.VoxelSize.Y,
	}

	skeleton := ndimage.Skeletonize(ridges)
	res.PathLength = float64(ndimage.Count(skeleton)) * pitch
	kept, hist := dust.KeepLongerThan(dust.Label(skeleton), p.Exclusion, pitch)
	res.PathLengthAboveThreshold = float64(ndimage.Count(kept)) * pitch
	res.Histogram = hist
	for i, v := range skeleton.Data {
		if v {
			z, y, x := skeleton.Coord(i)
			res.Skeleton = append(res.Skeleton, visualization.Cell{z, y, x})
		}
	}

	logger.Info("measured ridges",
		"surface", cur.ID,
		"candidates", b.ridges.GetCardinality(),
		"band", b.inBand.GetCardinality(),
		"area", res.Area,
		"path_length", res.PathLength,
		"path_length_above_threshold", res.PathLengthAboveThreshold)

	if err := p.record(cur, res); err != nil {
		return res, err
	}

	if p.Track && next != nil {
		disp, err := p.track(cur, next, centre, b)
		if err != nil {
			return res, err
		}
		res.Displacement = disp
	}
	return res, nil
}

func (p Params) record(cur *models.Surface, res *Result) error {
	logger := p.logger()
	row := []float64{res.Area, res.PathLength, res.PathLengthAboveThreshold}
	if err := sink.Write(p.Sink, logger, sink.RidgeInfo, row); err != nil {
		return fmt.Errorf("failed to record ridge info: %w", err)
	}
	hist := make([]float64, len(res.Histogram))
	for i, h := range res.Histogram {
		hist[i] = float64(h)
	}
	if err := sink.Write(p.Sink, logger, sink.RidgeHistogram, hist); err != nil {
		return fmt.Errorf("failed to record ridge histogram: %w", err)
	}

	if p.PlotDir == "" {
		return nil
	}
	if info, err := os.Stat(p.PlotDir); err != nil || !info.IsDir() {
		logger.Debug("skipping ridge scatter", "dir", p.PlotDir)
		return nil
	}
	name := filepath.Join(p.PlotDir, fmt.Sprintf("%d.png", cur.Frame))
	return visualization.RidgeScatter(name, "Skeletonized Edges", res.Skeleton)
}

// track averages, for every ridge candidate of cur, the distances to its
// nearest ridge candidates of next. Other vertices get NaN. When either
// frame has no candidates the displacement is undefined and nil is returned.
func (p Params) track(cur, next *models.Surface, centre r3.Vec, b band) ([]float64, error) {
	logger := p.logger()
	nb := p.mask(next, centre)

	from := selected(cur.Vertices, b.ridges)
	to := selected(next.Vertices, nb.ridges)
	ix, err := spatial.NewIndex(to)
	if errors.Is(err, spatial.ErrEmptyInput) || len(from) == 0 {
		logger.Warn("no ridge candidates to track",
			"surface", cur.ID, "next", next.ID,
			"current", len(from), "following", len(to))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sets := ix.Query(from, p.KNN, math.Inf(1))

	means := spatial.Floats(spatial.Aggregate(sets, spatial.Mean))
	disp := make([]float64, len(cur.Vertices))
	for i := range disp {
		disp[i] = math.NaN()
	}
	k := 0
	b.ridges.Iterate(func(v uint32) bool {
		disp[v] = means[k]
		k++
		return true
	})
	if err := cur.SetAttribute(models.AttrQueryDistance, disp); err != nil {
		return nil, err
	}
	return disp, nil
}

func selected(vertices []r3.Vec, sel *roaring.Bitmap) []r3.Vec {
	out := make([]r3.Vec, 0, sel.GetCardinality())
	sel.Iterate(func(v uint32) bool {
		out = append(out, vertices[v])
		return true
	})
	return out
}

// Series runs Extract over consecutive frames; frame i tracks into frame i+1
// when tracking is enabled. targets holds one target per frame.
func Series(surfaces, targets []*models.Surface, p Params) ([]*Result, error) {
	if len(surfaces) != len(targets) {
		return nil, fmt.Errorf("ridge: %d surfaces for %d targets", len(surfaces), len(targets))
	}
	out := make([]*Result, 0, len(surfaces))
	for i, s := range surfaces {
		var next *models.Surface
		if i+1 < len(surfaces) {
			next = surfaces[i+1]
		}
		res, err := Extract(s, next, targets[i], p)
		if err != nil {
			return out, fmt.Errorf("frame %d: %w", s.Frame, err)
		}
		out = append(out, res)
	}
	return out, nil
}
