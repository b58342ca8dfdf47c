package generation_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"starfield-server/internal/generation"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/starfield"
)

const waitFor = 5 * time.Second

type OrchestratorSuite struct {
	suite.Suite
	logger    *slog.Logger
	results   chan generation.Result
	collected []generation.Result
	mu        sync.Mutex
}

func (s *OrchestratorSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.results = make(chan generation.Result, 64)
	s.collected = nil
}

func (s *OrchestratorSuite) deliver(r generation.Result) {
	s.mu.Lock()
	s.collected = append(s.collected, r)
	s.mu.Unlock()
	s.results <- r
}

func (s *OrchestratorSuite) delivered() []generation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]generation.Result(nil), s.collected...)
}

func (s *OrchestratorSuite) next() generation.Result {
	select {
	case r := <-s.results:
		return r
	case <-time.After(waitFor):
		s.Require().FailNow("timed out waiting for a delivered result")
		return generation.Result{}
	}
}

func smallParams(seed uint32) starfield.Parameters {
	p := starfield.DefaultParameters()
	p.StarCount, p.BulgeStarCount = 200, 50
	p.Seed = seed
	return p
}

func fixedBuffer(count int) *starfield.StarBuffer {
	return &starfield.StarBuffer{Count: count, Data: make([]float32, count*starfield.Stride)}
}

// TestCompletes: one request, one delivered buffer.
func (s *OrchestratorSuite) TestCompletes() {
	o := generation.NewOrchestrator(nil, s.deliver, s.logger)
	defer o.Close()

	id := o.Submit(smallParams(1))
	require.Equal(s.T(), uint64(1), id)

	r := s.next()
	require.Equal(s.T(), id, r.RequestID)
	require.NoError(s.T(), r.Err)
	require.Equal(s.T(), 250, r.Buffer.Count)

	status := o.Status()
	require.Equal(s.T(), generation.StateIdle, status.State)
	require.Equal(s.T(), generation.StateCompleted, status.LastOutcome)
	require.Equal(s.T(), id, status.DeliveredID)
}

// TestStaleCompletionIsDropped: a superseded run that ignores cancellation
// and finishes late is never delivered.
func (s *OrchestratorSuite) TestStaleCompletionIsDropped() {
	started := make(chan struct{})
	release := make(chan struct{})

	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		if p.Seed == 1 {
			close(started)
			<-release
			return fixedBuffer(1), nil
		}
		return fixedBuffer(2), nil
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)

	first := o.Submit(smallParams(1))
	<-started
	second := o.Submit(smallParams(2))

	r := s.next()
	require.Equal(s.T(), second, r.RequestID)
	require.Equal(s.T(), 2, r.Buffer.Count)

	close(release)
	o.Close()

	got := s.delivered()
	require.Len(s.T(), got, 1)
	require.NotEqual(s.T(), first, got[0].RequestID)
}

// TestSupersedingCancelsInFlight: the older run's context is cancelled.
func (s *OrchestratorSuite) TestSupersedingCancelsInFlight() {
	started := make(chan struct{})
	sawCancel := make(chan struct{})

	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		if p.Seed == 1 {
			close(started)
			<-ctx.Done()
			close(sawCancel)
			return nil, starfield.ErrCancelled
		}
		return fixedBuffer(3), nil
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)
	defer o.Close()

	o.Submit(smallParams(1))
	<-started
	second := o.Submit(smallParams(2))

	select {
	case <-sawCancel:
	case <-time.After(waitFor):
		s.Require().FailNow("superseded generation was not cancelled")
	}

	r := s.next()
	require.Equal(s.T(), second, r.RequestID)
}

// TestCancelDeliversNothing: Cancel yields a cancelled outcome, not an error.
func (s *OrchestratorSuite) TestCancelDeliversNothing() {
	started := make(chan struct{})
	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		close(started)
		<-ctx.Done()
		return nil, starfield.ErrCancelled
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)
	o.Submit(smallParams(1))
	<-started
	o.Cancel()

	require.Eventually(s.T(), func() bool {
		return o.Status().LastOutcome == generation.StateCancelled
	}, waitFor, 5*time.Millisecond)

	o.Close()
	require.Empty(s.T(), s.delivered())
	require.Empty(s.T(), o.Status().LastError)
	require.Equal(s.T(), generation.StateIdle, o.Status().State)
}

// TestCancelIgnoredByGenerator: a run that finishes after Cancel still
// delivers nothing.
func (s *OrchestratorSuite) TestCancelIgnoredByGenerator() {
	started := make(chan struct{})
	release := make(chan struct{})
	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		close(started)
		<-release
		return fixedBuffer(1), nil
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)
	o.Submit(smallParams(1))
	<-started
	o.Cancel()
	close(release)
	o.Close()

	require.Empty(s.T(), s.delivered())
	require.Equal(s.T(), generation.StateCancelled, o.Status().LastOutcome)
}

// TestFailureIsDelivered: failures reach the consumer as typed errors.
func (s *OrchestratorSuite) TestFailureIsDelivered() {
	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		return nil, errors.Validation("arm_spread must be a finite number")
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)
	defer o.Close()
	o.Submit(smallParams(1))

	r := s.next()
	require.Nil(s.T(), r.Buffer)
	require.Equal(s.T(), errors.ErrorTypeValidation, errors.GetType(r.Err))

	status := o.Status()
	require.Equal(s.T(), generation.StateFailed, status.LastOutcome)
	require.Contains(s.T(), status.LastError, "arm_spread")
	require.Zero(s.T(), status.DeliveredID)
}

// TestPanicBecomesInternalError: a panicking generator fails its request only.
func (s *OrchestratorSuite) TestPanicBecomesInternalError() {
	generate := func(ctx context.Context, p starfield.Parameters) (*starfield.StarBuffer, error) {
		panic("out of stars")
	}

	o := generation.NewOrchestrator(generate, s.deliver, s.logger)
	defer o.Close()
	o.Submit(smallParams(1))

	r := s.next()
	require.Error(s.T(), r.Err)
	require.Equal(s.T(), errors.ErrorTypeInternal, errors.GetType(r.Err))
}

// TestScrubbing: rapid edits deliver increasing ids and always the last one.
func (s *OrchestratorSuite) TestScrubbing() {
	o := generation.NewOrchestrator(nil, s.deliver, s.logger)

	var last uint64
	for seed := uint32(1); seed <= 20; seed++ {
		last = o.Submit(smallParams(seed))
	}

	require.Eventually(s.T(), func() bool {
		return o.Status().DeliveredID == last
	}, waitFor, 5*time.Millisecond)
	o.Close()

	got := s.delivered()
	require.NotEmpty(s.T(), got)
	for i := 1; i < len(got); i++ {
		require.Greater(s.T(), got[i].RequestID, got[i-1].RequestID)
	}
	final := got[len(got)-1]
	require.Equal(s.T(), last, final.RequestID)
	require.Equal(s.T(), uint32(20), final.Parameters.Seed)

	want, err := starfield.Generate(context.Background(), smallParams(20))
	require.NoError(s.T(), err)
	require.Equal(s.T(), want.Data, final.Buffer.Data)
}

// TestSubmitAfterClose starts nothing.
func (s *OrchestratorSuite) TestSubmitAfterClose() {
	o := generation.NewOrchestrator(nil, s.deliver, s.logger)
	o.Close()
	require.Zero(s.T(), o.Submit(smallParams(1)))
	require.Empty(s.T(), s.delivered())
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}
