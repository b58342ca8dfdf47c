// Package starfield synthesizes reproducible galaxy point clouds: a
// spiral-arm disk plus a central bulge, packed into one interleaved buffer.
//
// Generation is deterministic. The disk and bulge draw from two independent
// Mulberry32 streams seeded with Seed and Seed+1, so edits to bulge-only
// parameters leave every disk row bit-identical, and vice versa.
package starfield

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"starfield-server/internal/shared/errors"
)

// ErrCancelled is returned when ctx is done before generation finishes.
// No partial buffer accompanies it.
var ErrCancelled = errors.Cancelled("star field generation cancelled")

// Generate samples the disk and then the bulge described by p.
//
// The result is nil with ErrCancelled when ctx ends mid-run, nil with a
// validation error when p holds values that cannot be coerced, and nil with
// an internal error when sampling faults. ctx is polled once per star.
func Generate(ctx context.Context, p Parameters) (buf *StarBuffer, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Normalize()

	logger := slog.With(
		"component", "starfield",
		"operation", "generate",
		"seed", p.Seed,
		"star_count", p.StarCount,
		"bulge_star_count", p.BulgeStarCount,
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Star field generation panicked", "panic", rec)
			buf, err = nil, errors.WrapInternal("star field generation failed", fmt.Errorf("%v", rec))
		}
	}()

	start := time.Now()
	out := newAssembler(p.StarCount + p.BulgeStarCount)

	if err := sampleDisk(ctx, p, out); err != nil {
		return nil, err
	}
	if err := sampleBulge(ctx, p, out); err != nil {
		return nil, err
	}

	buf = out.buffer()
	logger.Debug("Star field generated", "stars", buf.Count, "duration", time.Since(start))
	return buf, nil
}
