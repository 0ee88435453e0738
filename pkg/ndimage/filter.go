package ndimage

import "math"

// Mode selects how samples outside the grid are extended.
type Mode int

const (
	// Reflect mirrors about the edge of the last sample (d c b a | a b c d | d c b a).
	Reflect Mode = iota
	// Constant pads with zero.
	Constant
)

// GaussianKernel returns the 1D Gaussian kernel of the given derivative
// order (0 or 2) sampled on [-radius, radius] with
// radius = int(truncate*sigma + 0.5).
func GaussianKernel(sigma, truncate float64, order int) []float64 {
	radius := int(truncate*sigma + 0.5)
	s2 := sigma * sigma
	phi := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range phi {
		x := float64(i - radius)
		phi[i] = math.Exp(-0.5 * x * x / s2)
		sum += phi[i]
	}
	for i := range phi {
		phi[i] /= sum
	}
	switch order {
	case 0:
		return phi
	case 2:
		for i := range phi {
			x := float64(i - radius)
			phi[i] *= x*x/(s2*s2) - 1/s2
		}
		return phi
	default:
		panic("ndimage: unsupported Gaussian derivative order")
	}
}

// Correlate1D correlates f with kernel along axis (0 = z, 1 = y, 2 = x).
func Correlate1D(f *Field, axis int, kernel []float64, mode Mode) *Field {
	out := NewGridLike[float64](f)
	n := f.Dims[axis]
	if n == 0 {
		return out
	}
	radius := len(kernel) / 2
	stride := 1
	for a := axis + 1; a < 3; a++ {
		stride *= f.Dims[a]
	}
	line := make([]float64, n)
	for i := range f.Data {
		// Visit each line once, starting from its first sample.
		if (i/stride)%n != 0 {
			continue
		}
		for k := 0; k < n; k++ {
			line[k] = f.Data[i+k*stride]
		}
		for k := 0; k < n; k++ {
			acc := 0.0
			for j, w := range kernel {
				src := k + j - radius
				if src < 0 || src >= n {
					if mode == Constant {
						continue
					}
					src = reflectIndex(src, n)
				}
				acc += w * line[src]
			}
			out.Data[i+k*stride] = acc
		}
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// GaussianFilter smooths f with an isotropic Gaussian of the given sigma.
func GaussianFilter(f *Field, sigma, truncate float64, mode Mode) *Field {
	k := GaussianKernel(sigma, truncate, 0)
	out := f
	for axis := 0; axis < 3; axis++ {
		if f.Dims[axis] == 1 && mode == Reflect {
			// A reflected singleton axis is scaled by the kernel sum, which is 1.
			continue
		}
		out = Correlate1D(out, axis, k, mode)
	}
	if out == f {
		return f.Clone()
	}
	return out
}

// GaussianLaplace computes the Laplacian of Gaussian of f: the sum over axes
// of the second Gaussian derivative along that axis, smoothed along the others.
func GaussianLaplace(f *Field, sigma, truncate float64) *Field {
	k0 := GaussianKernel(sigma, truncate, 0)
	k2 := GaussianKernel(sigma, truncate, 2)
	out := NewGridLike[float64](f)
	for axis := 0; axis < 3; axis++ {
		g := f
		for a := 0; a < 3; a++ {
			if a == axis {
				g = Correlate1D(g, a, k2, Reflect)
			} else {
				g = Correlate1D(g, a, k0, Reflect)
			}
		}
		for i, v := range g.Data {
			out.Data[i] += v
		}
	}
	return out
}

// Max returns the largest value in f, or -Inf when f is empty.
func Max(f *Field) float64 {
	m := math.Inf(-1)
	for _, v := range f.Data {
		if v > m {
			m = v
		}
	}
	return m
}
