// Package voids segments internal voids of a volumetric scan.
//
// The foreground is the set of voxels brighter than a statistic of the
// bright voxels. Canny edges of every Z slice outline the membrane; voxels
// next to the outline form a shaved foreground. Two Laplacian-of-Gaussian
// responses, one of the raw scan and one of the scan weighted by the shaved
// foreground, are thresholded against their maxima and combined into a
// candidate-strength field. Voids are the strength levels that survive the
// per-slice region filter, accumulated over up to four descending levels.
package voids

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/dust"
	"surfacemetrics/pkg/ndimage"
)

const (
	cannySigma = 1
	cannyLow   = 0.1
	cannyHigh  = 0.2

	logSigma          = 0.3
	fineTruncate      = 3
	coarseTruncate    = 8
	fineThresholdRate = 0.8125

	// occupancyLimit is the largest shaved-foreground fraction of a slice
	// still counted towards the height cap.
	occupancyLimit = 0.82
	heightFraction = 0.95
)

// MaxLevels is the largest number of strength levels accumulated.
const MaxLevels = 4

// Registrar receives the void volume produced by Segment, typically to store
// or display it next to its source.
type Registrar func(*models.Volume) error

// Params configures Segment.
type Params struct {
	// Background is the intensity above which voxels enter the foreground statistics
	Background float64
	// SD scales the standard deviation subtracted from the mean foreground intensity
	SD float64
	// STG is the coarse response threshold as a fraction of its maximum
	STG float64
	// Levels is the number of strength levels, 1..MaxLevels
	Levels int
	// Per is the first strength level as a fraction of the maximum strength
	Per float64
	// Drop lowers each further level
	Drop float64

	Register Registrar
	Logger   *slog.Logger
}

// DefaultParams returns the defaults of the voids command.
func DefaultParams() Params {
	return Params{
		Background: 110,
		SD:         0.1,
		STG:        0.8,
		Levels:     MaxLevels,
		Per:        0.88,
		Drop:       0.03,
	}
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Segment returns a new volume, shaped like v, holding 1 in void voxels and
// 0 elsewhere, and hands it to p.Register when set. v is not modified.
func Segment(v *models.Volume, p Params) (*models.Volume, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if p.Levels < 1 || p.Levels > MaxLevels {
		return nil, fmt.Errorf("voids: %d levels outside 1..%d", p.Levels, MaxLevels)
	}
	logger := p.logger()
	img := v.FullMatrix()

	fg, err := foreground(img, p.Background, p.SD)
	if err != nil {
		return nil, fmt.Errorf("volume %q: %w", v.Name, err)
	}
	shave := shaved(fg)
	strength := candidateStrength(img, fg, shave, p.STG)
	heightLimit := heightCap(shave)

	if ndimage.Max(strength) <= 0 {
		logger.Warn("no void candidates", "volume", v.Name)
	}
	out := accumulate(strength, dust.NewSliceFilter(heightLimit), p)

	voids := models.NewVolume(v.Name+" voids", ndimage.ToField(out), v.VoxelSize, 0.5)
	logger.Info("segmented voids",
		"volume", v.Name,
		"height_limit", heightLimit,
		"levels", p.Levels,
		"voxels", ndimage.Count(out))

	if p.Register != nil {
		if err := p.Register(voids); err != nil {
			return voids, fmt.Errorf("failed to register %q: %w", voids.Name, err)
		}
	}
	return voids, nil
}

// accumulate thresholds strength at p.Levels descending fractions of its
// maximum, starting at p.Per and lowered by p.Drop per level, and returns the
// union of what filter keeps of each level. A field without positive strength
// gives an empty mask.
func accumulate(strength *ndimage.Field, filter dust.SliceFilter, p Params) *ndimage.Mask {
	out := ndimage.NewGridLike[bool](strength)
	top := ndimage.Max(strength)
	if top <= 0 {
		return out
	}
	for r := 0; r < p.Levels; r++ {
		level := ndimage.Threshold(strength, (p.Per-float64(r)*p.Drop)*top)
		out = ndimage.Or(out, filter.Filter(level))
	}
	return out
}

// foreground thresholds img at mean - sd*std of the voxels brighter than bg.
func foreground(img *ndimage.Field, bg, sd float64) (*ndimage.Mask, error) {
	var bright []float64
	for _, v := range img.Data {
		if v > bg {
			bright = append(bright, v)
		}
	}
	if len(bright) == 0 {
		return nil, fmt.Errorf("no voxel above background %v", bg)
	}
	mean, variance := stat.PopMeanVariance(bright, nil)
	return ndimage.Threshold(img, mean-sd*math.Sqrt(variance)), nil
}

// shaved keeps the foreground voxels near the per-slice outline: within one
// step of an edge, or within three steps of the band two steps out.
func shaved(fg *ndimage.Mask) *ndimage.Mask {
	edges := ndimage.NewGridLike[bool](fg)
	for z := 0; z < fg.Dims[0]; z++ {
		edges.SetSlice(z, ndimage.Canny(ndimage.ToField(fg.Slice(z)), cannySigma, cannyLow, cannyHigh))
	}
	cross := ndimage.Cross()
	d1 := ndimage.Dilate(edges, cross, 1)
	d2 := ndimage.Dilate(edges, cross, 2)
	shell := ndimage.AndNot(d2, d1)
	return ndimage.And(fg, ndimage.Or(ndimage.Dilate(shell, cross, 3), d1))
}

// candidateStrength combines the thresholded coarse and fine responses and
// weights them by the coarse response.
func candidateStrength(img *ndimage.Field, fg, shave *ndimage.Mask, stg float64) *ndimage.Field {
	weighted := ndimage.NewGridLike[float64](img)
	for i, v := range img.Data {
		switch {
		case shave.Data[i]:
			weighted.Data[i] = v
		case !fg.Data[i]:
			weighted.Data[i] = -v
		}
	}
	coarse := ndimage.GaussianLaplace(img, logSigma, coarseTruncate)
	fine := ndimage.GaussianLaplace(weighted, logSigma, fineTruncate)
	coarseMax, fineMax := ndimage.Max(coarse), ndimage.Max(fine)

	out := ndimage.NewGridLike[float64](img)
	for i, c := range coarse.Data {
		if c >= stg*coarseMax || fine.Data[i] >= fineThresholdRate*stg*fineMax {
			out.Data[i] = c
		}
	}
	return out
}

// heightCap returns heightFraction of the highest slice whose shaved
// foreground fraction is at most occupancyLimit. Without such a slice every
// slice lies above the cap.
func heightCap(shave *ndimage.Mask) float64 {
	area := float64(shave.Dims[1] * shave.Dims[2])
	maxZ := -1
	for z := 0; z < shave.Dims[0]; z++ {
		if float64(ndimage.Count(shave.Slice(z)))/area <= occupancyLimit {
			maxZ = z
		}
	}
	return heightFraction * float64(maxZ)
}

// Series segments every volume in order.
func Series(volumes []*models.Volume, p Params) ([]*models.Volume, error) {
	out := make([]*models.Volume, 0, len(volumes))
	for _, v := range volumes {
		voids, err := Segment(v, p)
		if err != nil {
			return out, err
		}
		out = append(out, voids)
	}
	return out, nil
}
