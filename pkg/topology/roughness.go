// Package topology measures how a cell surface wraps a spherical target:
// spherical coordinates around the target centroid, areal surface roughness
// of the wrapped cap, and vertex-to-surface distances.
package topology

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/sink"
	"surfacemetrics/pkg/voxelize"
)

// Target is the kind of particle being engulfed.
type Target string

const (
	SRBC Target = "sRBC"
	MRBC Target = "mRBC"
)

// Radius returns the target radius in microns and whether the kind is known.
func (t Target) Radius() (float64, bool) {
	switch t {
	case SRBC:
		return 2, true
	case MRBC:
		return 2.7, true
	default:
		return 0, false
	}
}

// Params configures Measure.
type Params struct {
	// Radius bounds the search shell around the target centroid
	Radius float64
	Target Target
	// PhiLimit is the largest polar angle, in degrees, counted as the upper cap
	PhiLimit  float64
	VoxelSize models.VoxelSize

	Sink   sink.Appender
	Logger *slog.Logger
}

// DefaultParams returns the defaults of the topology command.
func DefaultParams() Params {
	return Params{
		Radius:    8,
		Target:    SRBC,
		PhiLimit:  90,
		VoxelSize: models.VoxelSize{X: 0.1028, Y: 0.1028, Z: 0.1028},
	}
}

// Result holds the single-value roughness metrics of one surface.
type Result struct {
	// MeanRadial is the mean radial distance over the search cap
	MeanRadial float64
	SumRadial  float64

	ArealRoughness        float64
	ArealRoughnessSTD     float64
	Area                  float64
	ArealRoughnessPerArea float64
}

// Row returns the values written to the areal roughness table.
func (r Result) Row() []float64 {
	return []float64{r.ArealRoughness, r.ArealRoughnessSTD, r.Area, r.ArealRoughnessPerArea}
}

// Measure computes the spherical coordinates of surface around the centroid
// of target and the areal roughness of the cap between the target radius and
// p.Radius above p.PhiLimit. An unknown target kind is skipped: ok is false
// and nothing is written.
func Measure(surface, target *models.Surface, p Params) (res Result, ok bool, err error) {
	targetR, known := p.Target.Radius()
	if !known {
		return Result{}, false, nil
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sph := ToSpherical(surface.Vertices, target.Centroid())
	n := len(sph.R)

	var (
		abovePhi   = make([]float64, n)
		areaSearch = make([]float64, n)
		noNaNs     = make([]float64, n)
		limitXY    = make([]float64, n)
	)
	search := roaring.New()
	for i, r := range sph.R {
		above := sph.Phi[i] <= p.PhiLimit
		near := r < p.Radius && r > targetR
		if above {
			abovePhi[i] = r
		}
		if above && near {
			search.Add(uint32(i))
			areaSearch[i] = 1
			noNaNs[i] = r
			limitXY[i] = r
		} else {
			limitXY[i] = math.NaN()
		}
	}

	grid, err := voxelize.Voxelize(search, sph.Rel, p.Radius, p.VoxelSize.X)
	if err != nil {
		return Result{}, true, fmt.Errorf("failed to voxelize search cap: %w", err)
	}
	res.Area = voxelize.Area(grid, p.VoxelSize.X, p.VoxelSize.Y)

	capValues := make([]float64, 0, search.GetCardinality())
	for _, v := range limitXY {
		if !math.IsNaN(v) {
			capValues = append(capValues, v)
		}
	}
	targetArea := 2 * math.Pi * targetR * targetR
	if len(capValues) == 0 {
		res.MeanRadial = math.NaN()
		res.ArealRoughnessSTD = math.NaN()
	} else {
		mean, variance := stat.PopMeanVariance(capValues, nil)
		res.MeanRadial = mean
		res.SumRadial = floats.Sum(capValues)
		res.ArealRoughnessSTD = math.Sqrt(variance) / targetArea
	}
	res.ArealRoughness = math.Sqrt(res.MeanRadial * res.MeanRadial / targetArea)
	res.ArealRoughnessPerArea = math.NaN()
	if res.Area > 0 {
		res.ArealRoughnessPerArea = res.ArealRoughness / res.Area
	}

	for name, values := range map[string][]float64{
		models.AttrRadialDistance:                sph.R,
		models.AttrTheta:                         sph.Theta,
		models.AttrPhi:                           sph.Phi,
		models.AttrAreaSearch:                    areaSearch,
		models.AttrRadialDistanceAbovePhi:        abovePhi,
		models.AttrRadialDistanceAbovePhiLimitXY: limitXY,
		models.AttrRadialDistanceAbovePhiNoNaNs:  noNaNs,
	} {
		if err := surface.SetAttribute(name, values); err != nil {
			return Result{}, true, err
		}
	}

	logger.Info("measured topology",
		"surface", surface.ID,
		"target", string(p.Target),
		"cap_vertices", len(capValues),
		"areal_roughness", res.ArealRoughness,
		"area", res.Area)

	if err := sink.Write(p.Sink, logger, sink.ArealRoughness, res.Row()); err != nil {
		return res, true, fmt.Errorf("failed to record areal roughness: %w", err)
	}
	return res, true, nil
}

// MeasureSeries runs Measure over paired frames in order.
func MeasureSeries(surfaces, targets []*models.Surface, p Params) ([]Result, error) {
	if len(surfaces) != len(targets) {
		return nil, fmt.Errorf("topology: %d surfaces for %d targets", len(surfaces), len(targets))
	}
	out := make([]Result, 0, len(surfaces))
	for i := range surfaces {
		res, ok, err := Measure(surfaces[i], targets[i], p)
		if err != nil {
			return out, fmt.Errorf("frame %d: %w", i, err)
		}
		if !ok {
			return nil, nil
		}
		out = append(out, res)
	}
	return out, nil
}
