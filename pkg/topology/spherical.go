package topology

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Spherical holds vertex positions relative to a centre and their spherical
// coordinates. Theta is the signed azimuth in radians, Phi the polar angle in
// degrees from +Z. Angles are NaN where they are undefined.
type Spherical struct {
	Rel   []r3.Vec
	R     []float64
	Theta []float64
	Phi   []float64
}

// ToSpherical re-centres vertices on centre and converts them.
func ToSpherical(vertices []r3.Vec, centre r3.Vec) Spherical {
	n := len(vertices)
	s := Spherical{
		Rel:   make([]r3.Vec, n),
		R:     make([]float64, n),
		Theta: make([]float64, n),
		Phi:   make([]float64, n),
	}
	for i, v := range vertices {
		p := r3.Sub(v, centre)
		s.Rel[i] = p
		r := r3.Norm(p)
		s.R[i] = r
		s.Theta[i] = azimuth(p)
		if r == 0 {
			s.Phi[i] = math.NaN()
		} else {
			s.Phi[i] = math.Acos(clamp(p.Z/r)) * 180 / math.Pi
		}
	}
	return s
}

// azimuth returns sign(y)*acos(x/sqrt(x^2+y^2)). Points on the x axis with
// y == 0 get 0, points on the z axis NaN.
func azimuth(p r3.Vec) float64 {
	xy := math.Hypot(p.X, p.Y)
	if xy == 0 {
		return math.NaN()
	}
	var sign float64
	switch {
	case p.Y > 0:
		sign = 1
	case p.Y < 0:
		sign = -1
	}
	return sign * math.Acos(clamp(p.X/xy))
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
