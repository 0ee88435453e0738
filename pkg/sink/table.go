// Package sink appends measurement rows to named tables.
//
// Tables are identified by a file name and a fixed header line that
// downstream spreadsheets depend on, so headers must never change.
package sink

import (
	"errors"
	"log/slog"
)

// Table names a result table and its column header.
type Table struct {
	Name   string
	Header string
}

// Result tables written by the measurement pipelines.
var (
	ArealRoughness = Table{
		Name:   "Areal Surface Roughness.csv",
		Header: "Areal-Surface-Roughness-S_q STD_Areal-Rougheness Surface_Area ArealRoughness/um^2",
	}
	RidgeInfo = Table{
		Name:   "RidgeInfo.csv",
		Header: "High_Curve_Surface_Area Lamella_pathlength Lamella_pathlength_above_thresh",
	}
	RidgeHistogram = Table{
		Name:   "RidgehistInfo.csv",
		Header: "hist_of_ridge_sizes",
	}
	Intensity = Table{
		Name:   "intensity.csv",
		Header: "Frame Clip_Top Clip_Bot",
	}
	VoidVolume = Table{
		Name:   "volume.csv",
		Header: "volume time_point",
	}
	TrackMotion = Table{
		Name:   "TrackMotion.csv",
		Header: "Track Distance Velocity/Frame",
	}
)

// Tables lists every result table.
var Tables = []Table{ArealRoughness, RidgeInfo, RidgeHistogram, Intensity, VoidVolume, TrackMotion}

// ErrNoDirectory is returned by sinks whose output location does not exist.
var ErrNoDirectory = errors.New("sink: output directory does not exist")

// Appender appends one row to a table.
type Appender interface {
	Append(t Table, row []float64) error
}

// Write appends row to a when a is non-nil. A missing output directory only
// skips the append; it is logged at debug level and not returned.
func Write(a Appender, logger *slog.Logger, t Table, row []float64) error {
	if a == nil {
		return nil
	}
	err := a.Append(t, row)
	if errors.Is(err, ErrNoDirectory) {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Debug("skipping table append", "table", t.Name, "error", err)
		return nil
	}
	return err
}

// Tee appends every row to all sinks in order and stops at the first error.
type Tee []Appender

// Append implements Appender.
func (t Tee) Append(table Table, row []float64) error {
	for _, a := range t {
		if err := a.Append(table, row); err != nil {
			return err
		}
	}
	return nil
}
