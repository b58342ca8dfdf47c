package starfield

import "math"

// Rand is a Mulberry32 generator. It uses only uint32 arithmetic, so a seed
// yields the same sequence on every platform.
type Rand struct {
	state uint32
}

// NewRand returns a stream positioned at the start of seed's sequence.
func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Uint32 advances the stream by one step.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Uniform returns a uniform value in [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Gaussian returns a standard normal deviate via Box–Muller. It consumes
// exactly two values from the stream and caches nothing.
func (r *Rand) Gaussian() float64 {
	u1 := 1 - r.Float64()
	u2 := r.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
