// Package service owns the duel sessions behind the HTTP API: the shared pool
// cache, request idempotency and the session registry.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gifduel/internal/domain/dedupe"
	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pairing"
	"github.com/okian/gifduel/internal/domain/pool"
	"github.com/okian/gifduel/internal/domain/types"
	"github.com/okian/gifduel/pkg/logger"
	"github.com/okian/gifduel/pkg/metrics"
)

// Result is the outcome of a vote or undo request.
type Result = types.Result

type session struct {
	id       string
	machine  *duel.Machine
	created  time.Time
	lastSeen atomic.Int64 // unix nanos
}

func (s *session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// Service implements the API dependencies for duel sessions.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher  pool.Fetcher
	pools    *pool.Cache
	deduper  dedupe.Deduper
	sessions map[string]*session

	// Configuration
	rating       model.Rating
	defaultTheme string
	dedupeSize   int
	maxSessions  int
	idleTTL      time.Duration
	source       pairing.Source
	now          func() time.Time
	newID        func() string

	// State
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rating:       model.RatingPG,
		defaultTheme: model.DefaultTheme,
		dedupeSize:   10_000,
		maxSessions:  1_000,
		idleTTL:      time.Hour,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pool cache and session registry and starts the idle
// session janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.fetcher == nil {
		return ErrNoFetcher
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		s.source = pairing.NewTimeSource()
	}

	s.logger.Info(ctx, "starting duel service...")

	s.pools = pool.New(s.fetcher, pool.WithLogger(s.logger.Named("pool")))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.sessions = make(map[string]*session)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.janitor(s.stopCh, s.doneCh)

	s.started = true
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "duel service started",
		logger.String("rating", string(s.rating)),
		logger.String("defaultTheme", s.defaultTheme),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("idleTTL", s.idleTTL),
	)
	return nil
}

// Stop shuts down the janitor and drops all sessions.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping duel service...")
	close(s.stopCh)
	done := s.doneCh
	s.sessions = nil
	s.started = false
	s.mu.Unlock()

	<-done
	metrics.UpdateActiveSessions(0)
	s.logger.Info(context.Background(), "duel service stopped")
}

// CreateSession starts a session on theme (blank means the default theme) and
// loads its first pair. The session exists even when the load fails; the
// returned state then carries the error.
func (s *Service) CreateSession(ctx context.Context, theme string) (string, duel.State, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return "", duel.State{}, ErrNotStarted
	}
	m := duel.New(s.pools,
		duel.WithRating(s.rating),
		duel.WithDefaultTheme(s.defaultTheme),
		duel.WithSource(s.source),
		duel.WithClock(s.now),
		duel.WithLogger(s.logger.Named("duel")),
	)
	sess := &session{id: s.newID(), machine: m, created: s.now()}
	sess.touch(sess.created)
	if s.maxSessions > 0 {
		for len(s.sessions) >= s.maxSessions {
			s.evictOldestLocked(ctx)
		}
	}
	s.sessions[sess.id] = sess
	active := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateActiveSessions(active)
	s.logger.Debug(ctx, "session created", logger.String("session", sess.id))

	m.SetTheme(theme)
	st, err := s.load(ctx, m)
	return sess.id, st, err
}

// evictOldestLocked drops the session created first. Must be called with
// s.mu held.
func (s *Service) evictOldestLocked(ctx context.Context) {
	var oldest *session
	for _, sess := range s.sessions {
		if oldest == nil || sess.created.Before(oldest.created) {
			oldest = sess
		}
	}
	if oldest == nil {
		return
	}
	delete(s.sessions, oldest.id)
	s.logger.Info(ctx, "session evicted at capacity", logger.String("session", oldest.id))
}

// Session returns the current state of session id.
func (s *Service) Session(_ context.Context, id string) (duel.State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return duel.State{}, err
	}
	return sess.machine.Snapshot(), nil
}

// SetTheme switches session id to theme, resets it and loads one pair.
func (s *Service) SetTheme(ctx context.Context, id, theme string) (duel.State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return duel.State{}, err
	}
	sess.machine.SetTheme(theme)
	return s.load(ctx, sess.machine)
}

// Next loads a fresh pair without voting.
func (s *Service) Next(ctx context.Context, id string) (duel.State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return duel.State{}, err
	}
	return s.load(ctx, sess.machine)
}

// Vote applies a vote and, when it took effect, loads the next pair. A
// non-empty requestID makes the call idempotent per session.
func (s *Service) Vote(ctx context.Context, id string, vt model.VoteType, side model.Side, requestID string) (Result, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Result{}, err
	}
	key := requestKey(id, requestID)
	if s.seen(ctx, key) {
		return Result{State: sess.machine.Snapshot(), Duplicate: true}, nil
	}

	st, applied := sess.machine.Vote(vt, side)
	if !applied {
		s.forget(ctx, key)
		return Result{State: st}, nil
	}
	s.logger.Debug(ctx, "vote applied",
		logger.String("session", id),
		logger.String("voteType", string(vt)),
		logger.String("side", string(side)),
	)

	st, err = s.load(ctx, sess.machine)
	return Result{State: st, Applied: true}, err
}

// Undo reverts the most recent vote of session id.
func (s *Service) Undo(ctx context.Context, id, requestID string) (Result, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Result{}, err
	}
	key := requestKey(id, requestID)
	if s.seen(ctx, key) {
		return Result{State: sess.machine.Snapshot(), Duplicate: true}, nil
	}

	st, applied := sess.machine.Undo()
	if !applied {
		s.forget(ctx, key)
	}
	return Result{State: st, Applied: applied}, nil
}

// Reset clears session id's score and history and loads a new pair.
func (s *Service) Reset(ctx context.Context, id string) (duel.State, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return duel.State{}, err
	}
	sess.machine.Reset()
	return s.load(ctx, sess.machine)
}

// DeleteSession removes session id.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	active := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateActiveSessions(active)
	s.logger.Debug(ctx, "session deleted", logger.String("session", id))
	return nil
}

// PruneIdle drops sessions untouched for longer than the idle TTL and
// returns how many were dropped.
func (s *Service) PruneIdle(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL).UnixNano()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0
	}
	pruned := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			pruned++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	if pruned > 0 {
		metrics.UpdateActiveSessions(active)
		s.logger.Info(ctx, "pruned idle sessions", logger.Int("count", pruned))
	}
	return pruned
}

func (s *Service) janitor(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if s.idleTTL <= 0 {
		<-stop
		return
	}
	interval := s.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.PruneIdle(context.Background())
		}
	}
}

// load runs one pair load. A load superseded by a newer one is not an error
// for this caller; it gets the current state.
func (s *Service) load(ctx context.Context, m *duel.Machine) (duel.State, error) {
	st, err := m.LoadNextPair(ctx)
	if duel.IsStale(err) {
		return m.Snapshot(), nil
	}
	return st, err
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *Service) seen(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicateRequest()
		s.logger.Debug(ctx, "duplicate request ignored", logger.String("request", key))
		return true
	}
	return false
}

func (s *Service) forget(ctx context.Context, key string) {
	if key != "" {
		s.deduper.Unrecord(ctx, key)
	}
}

func requestKey(sessionID, requestID string) string {
	if requestID == "" {
		return ""
	}
	return sessionID + "/" + requestID
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"rating":       string(s.rating),
		"defaultTheme": s.defaultTheme,
		"dedupeSize":   s.dedupeSize,
		"maxSessions":  s.maxSessions,
	}
	if s.started {
		stats["activeSessions"] = len(s.sessions)
		stats["cachedPools"] = s.pools.Len()
		stats["poolKeys"] = s.pools.Keys()
		stats["trackedRequests"] = s.deduper.Size()
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	return stats
}
