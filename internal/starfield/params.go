package starfield

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"starfield-server/internal/shared/errors"
)

// AlgorithmVersion identifies the sampling algorithm and stream layout.
// Bump it whenever generated output for a fixed parameter set changes.
const AlgorithmVersion = 1

// HardMaxStars bounds a single generation regardless of configuration.
const HardMaxStars = 20_000_000

const (
	minDiskRadius  = 1.0
	minBulgeRadius = 0.1
	minArmCount    = 1
)

// Parameters is the numeric description of one galaxy. A Parameters value is
// its own snapshot: copying it isolates a generation from later edits.
type Parameters struct {
	StarCount         int     `json:"star_count" yaml:"star_count"`
	ArmCount          int     `json:"arm_count" yaml:"arm_count"`
	ArmTwist          float64 `json:"arm_twist" yaml:"arm_twist"`
	ArmSpread         float64 `json:"arm_spread" yaml:"arm_spread"`
	DiskRadius        float64 `json:"disk_radius" yaml:"disk_radius"`
	VerticalThickness float64 `json:"vertical_thickness" yaml:"vertical_thickness"`
	Noise             float64 `json:"noise" yaml:"noise"`
	CoreFalloff       float64 `json:"core_falloff" yaml:"core_falloff"`
	Brightness        float64 `json:"brightness" yaml:"brightness"`

	BulgeRadius        float64 `json:"bulge_radius" yaml:"bulge_radius"`
	BulgeStarCount     int     `json:"bulge_star_count" yaml:"bulge_star_count"`
	BulgeFalloff       float64 `json:"bulge_falloff" yaml:"bulge_falloff"`
	BulgeVerticalScale float64 `json:"bulge_vertical_scale" yaml:"bulge_vertical_scale"`
	BulgeBrightness    float64 `json:"bulge_brightness" yaml:"bulge_brightness"`

	Seed uint32 `json:"seed" yaml:"seed"`
}

// Normalize returns a copy with degenerate values coerced to their minimums.
func (p Parameters) Normalize() Parameters {
	if p.StarCount < 0 {
		p.StarCount = 0
	}
	if p.BulgeStarCount < 0 {
		p.BulgeStarCount = 0
	}
	if p.ArmCount < minArmCount {
		p.ArmCount = minArmCount
	}
	if p.DiskRadius < minDiskRadius {
		p.DiskRadius = minDiskRadius
	}
	if p.BulgeRadius < minBulgeRadius {
		p.BulgeRadius = minBulgeRadius
	}
	return p
}

// Validate rejects values that cannot be coerced safely. Everything else is
// left to Normalize.
func (p Parameters) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"arm_twist", p.ArmTwist},
		{"arm_spread", p.ArmSpread},
		{"disk_radius", p.DiskRadius},
		{"vertical_thickness", p.VerticalThickness},
		{"noise", p.Noise},
		{"core_falloff", p.CoreFalloff},
		{"brightness", p.Brightness},
		{"bulge_radius", p.BulgeRadius},
		{"bulge_falloff", p.BulgeFalloff},
		{"bulge_vertical_scale", p.BulgeVerticalScale},
		{"bulge_brightness", p.BulgeBrightness},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Validationf("%s must be a finite number", f.name)
		}
	}

	// Counts are checked after coercion and one at a time, so neither a
	// negative partner nor int overflow can hide an oversized count.
	n := p.Normalize()
	if n.StarCount > HardMaxStars || n.BulgeStarCount > HardMaxStars-n.StarCount {
		return errors.Validationf("star_count + bulge_star_count must not exceed %d, got %d + %d",
			HardMaxStars, n.StarCount, n.BulgeStarCount)
	}
	return nil
}

// TotalStars is the number of rows a successful generation produces. It
// saturates at math.MaxInt for parameters that fail Validate.
func (p Parameters) TotalStars() int {
	n := p.Normalize()
	if n.StarCount > math.MaxInt-n.BulgeStarCount {
		return math.MaxInt
	}
	return n.StarCount + n.BulgeStarCount
}

// Fingerprint identifies the generated output of p. Two parameter sets with
// equal fingerprints produce bit-identical buffers. p must have passed Validate.
func (p Parameters) Fingerprint() string {
	data, err := json.Marshal(p.Normalize())
	if err != nil {
		// Only NaN and Inf make Marshal fail, and Validate rejects both.
		panic(fmt.Sprintf("starfield: marshal parameters: %v", err))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("v%d:%s", AlgorithmVersion, hex.EncodeToString(sum[:]))
}
