package ndimage

import "math"

// Canny detects edges in a single-plane field (depth 1). The image is
// smoothed with a Gaussian of the given sigma (normalised for the zero
// padded border), differentiated with Sobel operators, thinned by
// non-maximum suppression and linked by hysteresis between low and high.
// The outermost pixel ring never carries an edge.
func Canny(img *Field, sigma, low, high float64) *Mask {
	if img.Dims[0] != 1 {
		panic("ndimage: Canny expects a single plane")
	}
	h, w := img.Dims[1], img.Dims[2]
	out := NewGridLike[bool](img)
	if h < 3 || w < 3 {
		return out
	}

	ones := NewGridLike[float64](img)
	for i := range ones.Data {
		ones.Data[i] = 1
	}
	smoothed := GaussianFilter(img, sigma, 4, Constant)
	norm := GaussianFilter(ones, sigma, 4, Constant)
	for i := range smoothed.Data {
		if norm.Data[i] > 0 {
			smoothed.Data[i] /= norm.Data[i]
		}
	}

	deriv := []float64{-1, 0, 1}
	smooth := []float64{1, 2, 1}
	gx := Correlate1D(Correlate1D(smoothed, 2, deriv, Reflect), 1, smooth, Reflect)
	gy := Correlate1D(Correlate1D(smoothed, 1, deriv, Reflect), 2, smooth, Reflect)
	mag := NewGridLike[float64](img)
	for i := range mag.Data {
		mag.Data[i] = math.Hypot(gx.Data[i], gy.Data[i])
	}

	strong := NewGridLike[bool](img)
	weak := NewGridLike[bool](img)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag.Data[i]
			if m < low || m == 0 {
				continue
			}
			// Quantise the gradient direction to one of four neighbour pairs.
			angle := math.Atan2(gy.Data[i], gx.Data[i]) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			var dy, dx int
			switch {
			case angle < 22.5 || angle >= 157.5:
				dy, dx = 0, 1
			case angle < 67.5:
				dy, dx = 1, 1
			case angle < 112.5:
				dy, dx = 1, 0
			default:
				dy, dx = 1, -1
			}
			a := mag.Data[(y+dy)*w+x+dx]
			b := mag.Data[(y-dy)*w+x-dx]
			if m < a || m < b {
				continue
			}
			weak.Data[i] = true
			if m >= high {
				strong.Data[i] = true
			}
		}
	}

	labels, sizes := Label(weak, Full)
	keep := make([]bool, len(sizes))
	for i, s := range strong.Data {
		if s {
			keep[labels.Data[i]] = true
		}
	}
	for i, id := range labels.Data {
		if id != 0 && keep[id] {
			out.Data[i] = true
		}
	}
	return out
}
