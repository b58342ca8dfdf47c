package starfield

import (
	"context"
	"math"
)

const (
	diskRadiusExponent = 1.6
	diskRadialNoise    = 0.25
	diskMinRadius      = 0.05
	diskEdgeFactor     = 0.98
	diskIntensityJit   = 0.02
	diskMinIntensity   = 0.003
)

// sampleDisk places p.StarCount stars along the spiral arms using the stream
// seeded with p.Seed. p must already be normalized.
func sampleDisk(ctx context.Context, p Parameters, out *assembler) error {
	r := NewRand(p.Seed)
	arms := float64(p.ArmCount)

	for i := 0; i < p.StarCount; i++ {
		if isDone(ctx) {
			return ErrCancelled
		}
		if err := out.add(diskStar(r, p, arms)); err != nil {
			return err
		}
	}
	return nil
}

func diskStar(r *Rand, p Parameters, arms float64) Star {
	armIndex := math.Floor(r.Float64() * arms)
	if armIndex >= arms {
		armIndex = arms - 1
	}
	armAngle := armIndex * 2 * math.Pi / arms

	// An exponent above one concentrates stars toward the core.
	baseRadius := p.DiskRadius * math.Pow(r.Float64(), diskRadiusExponent)
	twist := p.ArmTwist * (baseRadius / p.DiskRadius)

	angle := armAngle + twist + r.Gaussian()*p.ArmSpread

	radialNoise := r.Gaussian() * p.Noise * p.DiskRadius * diskRadialNoise
	// Stopping short of the rim avoids a bright ring where the clamp piles stars up.
	radius := clamp(baseRadius+radialNoise, diskMinRadius, p.DiskRadius*diskEdgeFactor)

	z := r.Gaussian() * p.VerticalThickness

	falloff := radialFalloff(1-radius/p.DiskRadius, p.CoreFalloff)
	intensity := p.Brightness*falloff + r.Uniform(-diskIntensityJit, diskIntensityJit)
	intensity = math.Max(intensity, diskMinIntensity)

	return Star{
		X:          radius * math.Cos(angle),
		Y:          radius * math.Sin(angle),
		Z:          z,
		Intensity:  intensity,
		ColorIndex: colorIndex(r, intensity, diskColorExponent),
	}
}

func isDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
