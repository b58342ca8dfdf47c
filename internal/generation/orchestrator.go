// Package generation runs star field generations off the caller's goroutine.
//
// An Orchestrator accepts a stream of parameter edits. Every Submit gets a
// larger request id and cancels whatever was in flight; when a generation
// finishes, its result is delivered only if its id is still the newest. A
// superseded run that completes anyway is dropped.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"starfield-server/internal/shared/errors"
	"starfield-server/internal/starfield"
)

type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// GenerateFunc produces a buffer for one parameter snapshot.
type GenerateFunc func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error)

// Result is what a consumer receives for a request that was not superseded.
// Exactly one of Buffer and Err is set.
type Result struct {
	RequestID  uint64
	Parameters starfield.Parameters
	Buffer     *starfield.StarBuffer
	Err        error
	Duration   time.Duration
}

// Status is a point-in-time view of an Orchestrator.
type Status struct {
	State       State  `json:"state"`
	LastOutcome State  `json:"last_outcome,omitempty"`
	LatestID    uint64 `json:"latest_request_id"`
	DeliveredID uint64 `json:"delivered_request_id"`
	LastError   string `json:"last_error,omitempty"`
}

// Orchestrator owns at most one current generation.
//
// Deliver is called with the orchestrator's lock held, which is what makes
// the id comparison and the hand-off atomic. It must return quickly and must
// not call back into the Orchestrator.
type Orchestrator struct {
	generate GenerateFunc
	deliver  func(Result)
	logger   *slog.Logger

	mu          sync.Mutex
	wg          sync.WaitGroup
	latestID    uint64
	deliveredID uint64
	cancel      context.CancelFunc
	state       State
	lastOutcome State
	lastErr     error
	closed      bool
}

func NewOrchestrator(generate GenerateFunc, deliver func(Result), logger *slog.Logger) *Orchestrator {
	if generate == nil {
		generate = starfield.Generate
	}
	return &Orchestrator{
		generate: generate,
		deliver:  deliver,
		logger:   logger.With("component", "generation_orchestrator"),
		state:    StateIdle,
	}
}

// Submit starts a generation for p and returns its request id. Any
// generation still running is cancelled. Submit never blocks on generation.
// After Close it returns 0 and starts nothing.
func (o *Orchestrator) Submit(p starfield.Parameters) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0
	}

	if o.cancel != nil {
		o.cancel()
	}

	o.latestID++
	id := o.latestID
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.state = StateGenerating

	o.logger.Debug("Generation submitted", "request_id", id, "seed", p.Seed, "stars", p.TotalStars())

	o.wg.Add(1)
	go o.run(ctx, cancel, id, p)
	return id
}

// Cancel aborts the current generation, if any. The cancelled request
// delivers nothing.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
}

// Close cancels the current generation and waits for every goroutine the
// Orchestrator started to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()

	o.wg.Wait()
}

// Status reports the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		State:       o.state,
		LastOutcome: o.lastOutcome,
		LatestID:    o.latestID,
		DeliveredID: o.deliveredID,
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	return s
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, id uint64, p starfield.Parameters) {
	defer o.wg.Done()
	defer cancel()

	logger := o.logger.With("operation", "run", "request_id", id)
	start := time.Now()
	buf, err := o.safeGenerate(ctx, p)
	if err == nil && ctx.Err() != nil {
		// Cancelled runs never deliver, even when the generator ignored ctx.
		buf, err = nil, starfield.ErrCancelled
	}
	elapsed := time.Since(start)

	o.mu.Lock()
	defer o.mu.Unlock()

	if id != o.latestID {
		logger.Debug("Dropping superseded generation", "latest_request_id", o.latestID, "duration", elapsed)
		return
	}

	o.cancel = nil
	o.state = StateIdle

	switch {
	case err == nil:
		o.lastOutcome = StateCompleted
		o.lastErr = nil
		o.deliveredID = id
		logger.Info("Generation completed", "stars", buf.Count, "duration", elapsed)
	case errors.IsCancelled(err):
		o.lastOutcome = StateCancelled
		logger.Debug("Generation cancelled", "duration", elapsed)
		return
	default:
		o.lastOutcome = StateFailed
		o.lastErr = err
		logger.Error("Generation failed", "error", err, "error_type", errors.GetType(err))
	}

	if o.deliver != nil {
		o.deliver(Result{
			RequestID:  id,
			Parameters: p,
			Buffer:     buf,
			Err:        err,
			Duration:   elapsed,
		})
	}
}

// safeGenerate turns a panic in a custom GenerateFunc into an internal error.
func (o *Orchestrator) safeGenerate(ctx context.Context, p starfield.Parameters) (buf *starfield.StarBuffer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			buf, err = nil, errors.WrapInternal("generation panicked", fmt.Errorf("%v", rec))
		}
	}()

	buf, err = o.generate(ctx, p)
	if err == nil && buf == nil {
		err = errors.Internalf("generation returned no buffer")
	}
	if err != nil {
		buf = nil
	}
	return buf, err
}
