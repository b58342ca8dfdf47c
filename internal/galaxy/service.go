package galaxy

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"starfield-server/internal/generation"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/starfield"
)

const maxNameLength = 100

// Store persists galaxies and their parameters.
type Store interface {
	CreateGalaxy(ctx context.Context, name, description string, params starfield.Parameters) (*Galaxy, error)
	GetGalaxyByID(ctx context.Context, galaxyID int) (*Galaxy, error)
	GetAllGalaxies(ctx context.Context) ([]Galaxy, error)
	UpdateParameters(ctx context.Context, galaxyID int, params starfield.Parameters) (*Galaxy, error)
	DeleteGalaxy(ctx context.Context, galaxyID int) error
}

// session holds the live-edit state of one galaxy.
type session struct {
	orchestrator *generation.Orchestrator

	mu     sync.RWMutex
	latest *generation.Result
}

func (s *session) latestResult() *generation.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

type Service struct {
	repo     Store
	cache    BufferCache
	defaults starfield.Parameters
	maxStars int
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[int]*session
	deleted  map[int]struct{}
	closed   bool
	writes   sync.WaitGroup
}

func NewService(repo Store, cache BufferCache, defaults starfield.Parameters, maxStars int, logger *slog.Logger) *Service {
	logger.Debug("Initializing galaxy service", "max_stars", maxStars)

	return &Service{
		repo:     repo,
		cache:    cache,
		defaults: defaults,
		maxStars: maxStars,
		logger:   logger,
		sessions: make(map[int]*session),
		deleted:  make(map[int]struct{}),
	}
}

func (s *Service) validate(params starfield.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if total := params.TotalStars(); total > s.maxStars {
		return errors.Validationf("star_count + bulge_star_count must not exceed %d, got %d", s.maxStars, total)
	}
	return nil
}

func (s *Service) CreateGalaxy(ctx context.Context, req CreateGalaxyRequest) (*Galaxy, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.Validation("name is required")
	}
	if len(name) > maxNameLength {
		return nil, errors.Validationf("name must be at most %d characters", maxNameLength)
	}

	params := s.defaults
	if req.Parameters != nil {
		params = *req.Parameters
	}
	if err := s.validate(params); err != nil {
		return nil, err
	}

	return s.repo.CreateGalaxy(ctx, name, strings.TrimSpace(req.Description), params)
}

func (s *Service) GetGalaxy(ctx context.Context, galaxyID int) (*Galaxy, error) {
	return s.repo.GetGalaxyByID(ctx, galaxyID)
}

func (s *Service) ListGalaxies(ctx context.Context) ([]Galaxy, error) {
	return s.repo.GetAllGalaxies(ctx)
}

func (s *Service) DeleteGalaxy(ctx context.Context, galaxyID int) error {
	if err := s.repo.DeleteGalaxy(ctx, galaxyID); err != nil {
		return err
	}

	// Galaxy ids are never reused, so a deleted id can be refused forever.
	s.mu.Lock()
	sess := s.sessions[galaxyID]
	delete(s.sessions, galaxyID)
	s.deleted[galaxyID] = struct{}{}
	s.mu.Unlock()

	if sess != nil {
		sess.orchestrator.Close()
	}
	return nil
}

// UpdateParameters stores params and starts regenerating the galaxy in the
// background. Edits arriving faster than generation supersede each other;
// only the newest one's buffer is ever published.
func (s *Service) UpdateParameters(ctx context.Context, galaxyID int, params starfield.Parameters) (*UpdateAccepted, error) {
	logger := s.logger.With("component", "galaxy_service", "operation", "update_parameters", "galaxy_id", galaxyID)

	if err := s.validate(params); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateParameters(ctx, galaxyID, params); err != nil {
		return nil, err
	}

	sess, err := s.session(galaxyID)
	if err != nil {
		return nil, err
	}
	requestID := sess.orchestrator.Submit(params)
	if requestID == 0 {
		return nil, errors.Internalf("galaxy service is shutting down")
	}

	logger.Debug("Parameter update accepted", "request_id", requestID, "seed", params.Seed)
	return &UpdateAccepted{
		GalaxyID:    galaxyID,
		RequestID:   requestID,
		Fingerprint: params.Fingerprint(),
		TotalStars:  params.TotalStars(),
	}, nil
}

// Stars returns the buffer for the galaxy's stored parameters. It prefers the
// live session's latest delivery, then the cache, and otherwise generates
// with ctx; a client that disconnects cancels that generation.
func (s *Service) Stars(ctx context.Context, galaxyID int) (*StarField, error) {
	logger := s.logger.With("component", "galaxy_service", "operation", "stars", "galaxy_id", galaxyID)

	galaxy, err := s.repo.GetGalaxyByID(ctx, galaxyID)
	if err != nil {
		return nil, err
	}

	field := &StarField{
		GalaxyID:    galaxyID,
		Parameters:  galaxy.Parameters,
		Fingerprint: galaxy.Parameters.Fingerprint(),
	}

	if sess := s.existingSession(galaxyID); sess != nil {
		if latest := sess.latestResult(); latest != nil && latest.Parameters.Fingerprint() == field.Fingerprint {
			field.Buffer = latest.Buffer
			field.RequestID = latest.RequestID
			field.Source = SourceLive
			return field, nil
		}
	}

	cached, err := s.cache.Get(ctx, field.Fingerprint)
	if err != nil {
		logger.Warn("Star buffer cache read failed, generating instead", "error", err)
	}
	if cached != nil {
		field.Buffer = cached
		field.Source = SourceCache
		return field, nil
	}

	buf, err := starfield.Generate(ctx, galaxy.Parameters)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, field.Fingerprint, buf); err != nil {
		logger.Warn("Failed to cache star buffer", "error", err)
	}

	field.Buffer = buf
	field.Source = SourceGenerated
	return field, nil
}

func (s *Service) Stats(ctx context.Context, galaxyID int) (*StarFieldStats, error) {
	field, err := s.Stars(ctx, galaxyID)
	if err != nil {
		return nil, err
	}
	return &StarFieldStats{
		GalaxyID:    galaxyID,
		Fingerprint: field.Fingerprint,
		Summary:     starfield.Summarize(field.Buffer, field.DiskCount()),
	}, nil
}

func (s *Service) GenerationStatus(ctx context.Context, galaxyID int) (*GenerationStatus, error) {
	if _, err := s.repo.GetGalaxyByID(ctx, galaxyID); err != nil {
		return nil, err
	}

	status := &GenerationStatus{GalaxyID: galaxyID, Status: generation.Status{State: generation.StateIdle}}
	if sess := s.existingSession(galaxyID); sess != nil {
		status.Status = sess.orchestrator.Status()
	}
	return status, nil
}

// Close stops every live session and waits for pending cache writes.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[int]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.orchestrator.Close()
	}
	s.writes.Wait()
}

func (s *Service) existingSession(galaxyID int) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[galaxyID]
}

func (s *Service) session(galaxyID int) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.Internalf("galaxy service is shutting down")
	}
	if _, gone := s.deleted[galaxyID]; gone {
		return nil, errors.NotFoundf("galaxy not found with id: %d", galaxyID)
	}
	if sess, ok := s.sessions[galaxyID]; ok {
		return sess, nil
	}

	sess := &session{}
	logger := s.logger.With("galaxy_id", galaxyID)
	sess.orchestrator = generation.NewOrchestrator(starfield.Generate, s.deliver(galaxyID, sess), logger)
	s.sessions[galaxyID] = sess
	return sess, nil
}

// deliver publishes a finished generation. It runs under the orchestrator's
// lock, so the cache write happens on its own goroutine.
func (s *Service) deliver(galaxyID int, sess *session) func(generation.Result) {
	return func(r generation.Result) {
		if r.Err != nil {
			return
		}

		sess.mu.Lock()
		sess.latest = &r
		sess.mu.Unlock()

		s.writes.Add(1)
		go func() {
			defer s.writes.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := s.cache.Set(ctx, r.Parameters.Fingerprint(), r.Buffer); err != nil {
				s.logger.Warn("Failed to cache delivered star buffer",
					"galaxy_id", galaxyID, "request_id", r.RequestID, "error", err)
			}
		}()
	}
}
