package voids

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/ndimage"
	"surfacemetrics/pkg/sink"
)

// ErrEmptyTrack is returned for tracks without time points.
var ErrEmptyTrack = errors.New("voids: track has no time points")

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Size returns the physical volume of the void component under the frame-tp
// position of track and records it with tp. A position on background gives 0.
func Size(voids *models.Volume, track *models.Track, tp int, out sink.Appender, logger *slog.Logger) (float64, error) {
	logger = orDefault(logger)
	if err := voids.Validate(); err != nil {
		return 0, err
	}
	if tp < 0 || tp >= track.Frames() {
		return 0, fmt.Errorf("track %d has no time point %d", track.ID, tp)
	}
	c := track.Coords[tp]
	vs := voids.VoxelSize
	x := int(math.Round(c.X / vs.X))
	y := int(math.Round(c.Y / vs.Y))
	z := int(math.Round(c.Z / vs.Z))

	grid := voids.FullMatrix()
	if !grid.InBounds(z, y, x) {
		return 0, fmt.Errorf("track %d at time point %d lies outside %q", track.ID, tp, voids.Name)
	}

	labels, sizes := ndimage.Label(ndimage.Threshold(grid, math.SmallestNonzeroFloat64), ndimage.Full)
	var volume float64
	if id := labels.At(z, y, x); id > 0 {
		volume = float64(sizes[id]) * vs.X * vs.Y * vs.Z
	}
	logger.Info("measured void size", "volume", voids.Name, "track", track.ID, "time_point", tp, "size", volume)

	if err := sink.Write(out, logger, sink.VoidVolume, []float64{volume, float64(tp)}); err != nil {
		return volume, fmt.Errorf("failed to record void volume: %w", err)
	}
	return volume, nil
}

// Motion returns the path length of track and that length divided by the
// square root of its frame count, and records both under the track id.
func Motion(track *models.Track, out sink.Appender, logger *slog.Logger) (distance, rms float64, err error) {
	logger = orDefault(logger)
	if track.Frames() == 0 {
		return 0, 0, ErrEmptyTrack
	}
	for i := 1; i < len(track.Coords); i++ {
		distance += r3.Norm(r3.Sub(track.Coords[i], track.Coords[i-1]))
	}
	rms = distance / math.Sqrt(float64(track.Frames()))
	logger.Info("measured track motion", "track", track.ID, "distance", distance, "rms", rms)

	row := []float64{float64(track.ID), distance, rms}
	if err := sink.Write(out, logger, sink.TrackMotion, row); err != nil {
		return distance, rms, fmt.Errorf("failed to record track motion: %w", err)
	}
	return distance, rms, nil
}

// SizeSeries measures the void under every frame of track, pairing voids[i]
// with time point i.
func SizeSeries(voids []*models.Volume, track *models.Track, out sink.Appender, logger *slog.Logger) ([]float64, error) {
	sizes := make([]float64, 0, len(voids))
	for tp, v := range voids {
		size, err := Size(v, track, tp, out, logger)
		if err != nil {
			return sizes, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}
