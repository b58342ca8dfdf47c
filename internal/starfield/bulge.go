package starfield

import (
	"context"
	"math"
)

const (
	bulgeMinRadius    = 0.1
	bulgeIntensityJit = 0.04
	bulgeMinIntensity = 0.05
)

// sampleBulge places p.BulgeStarCount stars with a density proportional to
// 1/r² between bulgeMinRadius and p.BulgeRadius. It draws from the stream
// seeded with p.Seed+1 so the disk stream is never disturbed.
func sampleBulge(ctx context.Context, p Parameters, out *assembler) error {
	r := NewRand(p.Seed + 1)

	rMin := bulgeMinRadius
	rMax := math.Max(bulgeMinRadius, p.BulgeRadius)
	invMin, invMax := 1/rMin, 1/rMax

	for i := 0; i < p.BulgeStarCount; i++ {
		if isDone(ctx) {
			return ErrCancelled
		}
		if err := out.add(bulgeStar(r, p, rMin, rMax, invMin, invMax)); err != nil {
			return err
		}
	}
	return nil
}

func bulgeStar(r *Rand, p Parameters, rMin, rMax, invMin, invMax float64) Star {
	// Inverse CDF of the 1/r² profile, linear in 1/r.
	invR := invMin - r.Float64()*(invMin-invMax)
	radius := clamp(1/invR, rMin, rMax)

	angle := r.Float64() * 2 * math.Pi
	z := r.Gaussian() * p.VerticalThickness * p.BulgeVerticalScale

	falloff := radialFalloff(1-radius/p.BulgeRadius, p.BulgeFalloff)
	intensity := p.BulgeBrightness*falloff + r.Uniform(-bulgeIntensityJit, bulgeIntensityJit)
	intensity = math.Max(intensity, bulgeMinIntensity)

	return Star{
		X:          radius * math.Cos(angle),
		Y:          radius * math.Sin(angle),
		Z:          z,
		Intensity:  intensity,
		ColorIndex: colorIndex(r, intensity, bulgeColorExponent),
	}
}
