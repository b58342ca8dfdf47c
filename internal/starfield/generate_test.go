package starfield_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/stat"

	"starfield-server/internal/shared/errors"
	"starfield-server/internal/starfield"
)

const epsilon = 1e-3

// GenerateSuite checks the generator's invariants on small galaxies.
type GenerateSuite struct {
	suite.Suite
	ctx    context.Context
	params starfield.Parameters
}

func (s *GenerateSuite) SetupTest() {
	s.ctx = context.Background()
	s.params = starfield.Parameters{
		StarCount:          2000,
		ArmCount:           4,
		ArmTwist:           5,
		ArmSpread:          0.35,
		DiskRadius:         40,
		VerticalThickness:  1.2,
		Noise:              0.3,
		CoreFalloff:        1.5,
		Brightness:         1,
		BulgeRadius:        6,
		BulgeStarCount:     500,
		BulgeFalloff:       1.2,
		BulgeVerticalScale: 2,
		BulgeBrightness:    1.4,
		Seed:               12345,
	}
}

func (s *GenerateSuite) generate(p starfield.Parameters) *starfield.StarBuffer {
	buf, err := starfield.Generate(s.ctx, p)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), buf)
	return buf
}

// TestDeterministic: same parameters produce bit-identical buffers.
func (s *GenerateSuite) TestDeterministic() {
	a := s.generate(s.params)
	b := s.generate(s.params)
	require.Equal(s.T(), a.Data, b.Data)
}

// TestSeedsDiffer: seed 1 and seed 2 differ.
func (s *GenerateSuite) TestSeedsDiffer() {
	p1, p2 := s.params, s.params
	p1.Seed, p2.Seed = 1, 2
	require.NotEqual(s.T(), s.generate(p1).Data, s.generate(p2).Data)
}

// TestCount: count is starCount + bulgeStarCount and the data matches it.
func (s *GenerateSuite) TestCount() {
	buf := s.generate(s.params)
	require.Equal(s.T(), 2500, buf.Count)
	require.Len(s.T(), buf.Data, 2500*starfield.Stride)
}

// TestBulgeEditsLeaveDiskUntouched: bulge-only edits keep the disk rows.
func (s *GenerateSuite) TestBulgeEditsLeaveDiskUntouched() {
	base := s.generate(s.params)

	edited := s.params
	edited.BulgeRadius = 9
	edited.BulgeStarCount = 1200
	edited.BulgeFalloff = 3
	edited.BulgeVerticalScale = 0.5
	edited.BulgeBrightness = 0.2
	changed := s.generate(edited)

	diskValues := s.params.StarCount * starfield.Stride
	require.Equal(s.T(), base.Data[:diskValues], changed.Data[:diskValues])
	require.Equal(s.T(), 2200, changed.Count)
	require.NotEqual(s.T(), base.Data[diskValues:], changed.Data[diskValues:])
}

// TestDiskEditsLeaveBulgeUntouched: disk-only edits keep the bulge rows.
func (s *GenerateSuite) TestDiskEditsLeaveBulgeUntouched() {
	base := s.generate(s.params)

	edited := s.params
	edited.ArmTwist = 1
	edited.ArmSpread = 0.9
	edited.Noise = 0.05
	edited.Brightness = 0.4
	changed := s.generate(edited)

	diskValues := s.params.StarCount * starfield.Stride
	require.Equal(s.T(), base.Data[diskValues:], changed.Data[diskValues:])
	require.NotEqual(s.T(), base.Data[:diskValues], changed.Data[:diskValues])
}

// TestRanges: color index, disk radius, bulge radius and intensity floors.
func (s *GenerateSuite) TestRanges() {
	buf := s.generate(s.params)

	for i := 0; i < buf.Count; i++ {
		star := buf.Star(i)
		r := math.Hypot(star.X, star.Y)

		require.GreaterOrEqual(s.T(), star.ColorIndex, 0.0)
		require.LessOrEqual(s.T(), star.ColorIndex, 1.0)

		if i < s.params.StarCount {
			require.LessOrEqual(s.T(), r, s.params.DiskRadius*0.98+epsilon, "disk star %d", i)
			require.GreaterOrEqual(s.T(), star.Intensity, 0.003-epsilon, "disk star %d", i)
		} else {
			require.GreaterOrEqual(s.T(), r, 0.1-epsilon, "bulge star %d", i)
			require.LessOrEqual(s.T(), r, s.params.BulgeRadius+epsilon, "bulge star %d", i)
			require.GreaterOrEqual(s.T(), star.Intensity, 0.05-epsilon, "bulge star %d", i)
		}
	}
}

// TestArmCountZeroActsAsOne: degenerate arm counts are coerced.
func (s *GenerateSuite) TestArmCountZeroActsAsOne() {
	one, zero, negative := s.params, s.params, s.params
	one.ArmCount, zero.ArmCount, negative.ArmCount = 1, 0, -3

	want := s.generate(one).Data
	require.Equal(s.T(), want, s.generate(zero).Data)
	require.Equal(s.T(), want, s.generate(negative).Data)
}

// TestDegenerateRadii: tiny radii are raised to their minimums.
func (s *GenerateSuite) TestDegenerateRadii() {
	p := s.params
	p.DiskRadius = 0
	p.BulgeRadius = -4
	buf := s.generate(p)

	for i := 0; i < buf.Count; i++ {
		star := buf.Star(i)
		r := math.Hypot(star.X, star.Y)
		if i < p.StarCount {
			require.LessOrEqual(s.T(), r, 0.98+epsilon)
		} else {
			require.InDelta(s.T(), 0.1, r, epsilon)
		}
	}
}

// TestEmpty: zero counts give an empty buffer and no error.
func (s *GenerateSuite) TestEmpty() {
	p := s.params
	p.StarCount, p.BulgeStarCount = 0, 0
	buf := s.generate(p)
	require.Zero(s.T(), buf.Count)
	require.Empty(s.T(), buf.Data)

	p.StarCount, p.BulgeStarCount = -10, -1
	require.Zero(s.T(), s.generate(p).Count)
}

// TestReferenceGalaxy: the documented reference configuration.
func (s *GenerateSuite) TestReferenceGalaxy() {
	p := s.params
	p.Seed = 12345
	p.StarCount = 1000
	p.ArmCount = 4
	p.DiskRadius = 40
	p.BulgeStarCount = 0
	buf := s.generate(p)

	require.Equal(s.T(), 1000, buf.Count)
	zs := make([]float64, buf.Count)
	for i := 0; i < buf.Count; i++ {
		star := buf.Star(i)
		require.GreaterOrEqual(s.T(), star.Intensity, 0.003-epsilon)
		zs[i] = star.Z
	}
	require.InDelta(s.T(), p.VerticalThickness, stat.StdDev(zs, nil), p.VerticalThickness*0.15)
}

// TestInvalidParameters: NaN and oversized counts are rejected, not coerced.
func (s *GenerateSuite) TestInvalidParameters() {
	nan := s.params
	nan.ArmSpread = math.NaN()
	buf, err := starfield.Generate(s.ctx, nan)
	require.Nil(s.T(), buf)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(err))

	inf := s.params
	inf.BulgeBrightness = math.Inf(1)
	_, err = starfield.Generate(s.ctx, inf)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(err))

	huge := s.params
	huge.StarCount = starfield.HardMaxStars
	huge.BulgeStarCount = 1
	_, err = starfield.Generate(s.ctx, huge)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(err))

	// The sum of these wraps negative.
	wrapping := s.params
	wrapping.StarCount = math.MaxInt
	wrapping.BulgeStarCount = math.MaxInt
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(wrapping.Validate()))
	require.Equal(s.T(), math.MaxInt, wrapping.TotalStars())
	buf, err = starfield.Generate(s.ctx, wrapping)
	require.Nil(s.T(), buf)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(err))

	// A negative disk count is coerced to zero, leaving the bulge oversized.
	offset := s.params
	offset.StarCount = -starfield.HardMaxStars
	offset.BulgeStarCount = 2 * starfield.HardMaxStars
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(offset.Validate()))
	_, err = starfield.Generate(s.ctx, offset)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(err))

	atLimit := s.params
	atLimit.StarCount = -5
	atLimit.BulgeStarCount = starfield.HardMaxStars
	require.NoError(s.T(), atLimit.Validate())
}

// TestNegativeFalloffOnRim: a collapsed bulge with a negative falloff
// exponent is coerced, not failed.
func (s *GenerateSuite) TestNegativeFalloffOnRim() {
	p := s.params
	p.BulgeRadius = 0
	p.BulgeFalloff = -1.5
	p.CoreFalloff = -0.5

	buf := s.generate(p)
	require.Equal(s.T(), p.StarCount+p.BulgeStarCount, buf.Count)
	for i := p.StarCount; i < buf.Count; i++ {
		star := buf.Star(i)
		require.False(s.T(), math.IsInf(star.Intensity, 0))
		require.GreaterOrEqual(s.T(), star.Intensity, 0.05-epsilon)
		require.LessOrEqual(s.T(), star.Intensity, 0.05+epsilon)
	}
}

// TestOverflowIsInternal: values that overflow float32 fail the whole run.
func (s *GenerateSuite) TestOverflowIsInternal() {
	p := s.params
	p.Brightness = 1e300
	buf, err := starfield.Generate(s.ctx, p)
	require.Nil(s.T(), buf)
	require.Equal(s.T(), errors.ErrorTypeInternal, errors.GetType(err))
}

// TestCancelledBeforeStart: a done context yields ErrCancelled.
func (s *GenerateSuite) TestCancelledBeforeStart() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	buf, err := starfield.Generate(ctx, s.params)
	require.Nil(s.T(), buf)
	require.ErrorIs(s.T(), err, starfield.ErrCancelled)
	require.True(s.T(), errors.IsCancelled(err))
}

// TestCancelledMidDisk and TestCancelledMidBulge: cancellation is observed
// within one star and discards everything sampled so far.
func (s *GenerateSuite) TestCancelledMidDisk() {
	ctx := newCountdownContext(s.params.StarCount / 2)
	buf, err := starfield.Generate(ctx, s.params)
	require.Nil(s.T(), buf)
	require.ErrorIs(s.T(), err, starfield.ErrCancelled)
	require.Equal(s.T(), 0, ctx.polls)
}

func (s *GenerateSuite) TestCancelledMidBulge() {
	ctx := newCountdownContext(s.params.StarCount + 10)
	buf, err := starfield.Generate(ctx, s.params)
	require.Nil(s.T(), buf)
	require.ErrorIs(s.T(), err, starfield.ErrCancelled)
}

func TestGenerateSuite(t *testing.T) {
	suite.Run(t, new(GenerateSuite))
}

// countdownContext reports done on its n-th Done call.
type countdownContext struct {
	context.Context
	polls int
	done  chan struct{}
}

func newCountdownContext(n int) *countdownContext {
	return &countdownContext{Context: context.Background(), polls: n, done: make(chan struct{})}
}

func (c *countdownContext) Done() <-chan struct{} {
	c.polls--
	if c.polls == 0 {
		close(c.done)
	}
	return c.done
}
