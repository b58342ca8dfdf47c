package starfield

import "math"

const (
	diskColorExponent  = 0.7
	bulgeColorExponent = 0.6
	ditherAmplitude    = 1.0 / 255
)

// colorIndex maps an intensity onto [0, 1] through a contrast curve, with
// one quantization step of dither to break up banding. The bulge uses a
// lower exponent than the disk, which renders it hotter.
func colorIndex(r *Rand, intensity, exponent float64) float64 {
	c := math.Pow(intensity, exponent) + r.Uniform(-ditherAmplitude, ditherAmplitude)
	return clamp(c, 0, 1)
}

// radialFalloff is max(0, base)^exponent, except that a star sitting on the
// rim gets no light when the exponent is negative instead of +Inf.
func radialFalloff(base, exponent float64) float64 {
	if base <= 0 {
		if exponent < 0 {
			return 0
		}
		base = 0
	}
	return math.Pow(base, exponent)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
