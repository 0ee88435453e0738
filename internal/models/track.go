package models

import "gonum.org/v1/gonum/spatial/r3"

// Track is the per-frame centroid trajectory of one tracked object.
type Track struct {
	ID     int
	Coords []r3.Vec
}

// Frames returns the number of recorded time points.
func (t *Track) Frames() int { return len(t.Coords) }
