// Package duel implements the vote-tallying state machine of a GIF duel
// session: round loading, voting, undo and reset.
package duel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/pairing"
	"github.com/okian/gifduel/internal/domain/pool"
	"github.com/okian/gifduel/pkg/logger"
	"github.com/okian/gifduel/pkg/metrics"
)

// Phase is the load state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseErrored Phase = "errored"
)

// State is a point-in-time copy of a session. History is newest first.
type State struct {
	Theme     string             `json:"theme"`
	Rating    model.Rating       `json:"rating"`
	Round     int                `json:"round"`
	Left      *model.Item        `json:"left"`
	Right     *model.Item        `json:"right"`
	PoolCount int                `json:"pool_count"`
	Score     Score              `json:"score"`
	History   []model.VoteRecord `json:"history"`
	Phase     Phase              `json:"phase"`
	Loading   bool               `json:"loading"`
	Error     string             `json:"error,omitempty"`
	ErrorCode string             `json:"error_code,omitempty"`
}

// CanVote reports whether both sides are set and no load is in flight.
func (s State) CanVote() bool {
	return s.Left != nil && s.Right != nil && !s.Loading
}

// Machine owns one session's State. All methods are safe for concurrent
// use; pool lookups run outside the lock.
type Machine struct {
	mu    sync.Mutex
	state State
	// seq identifies the most recent load; completions carrying an older
	// token are dropped.
	seq uint64

	pools        pool.Provider
	rng          pairing.Source
	rating       model.Rating
	defaultTheme string
	now          func() time.Time
	logger       logger.Logger
}

// New creates a machine in the idle phase on the default theme.
func New(pools pool.Provider, opts ...Option) *Machine {
	m := &Machine{
		pools:        pools,
		rng:          pairing.NewTimeSource(),
		rating:       model.RatingPG,
		defaultTheme: model.DefaultTheme,
		now:          time.Now,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = State{
		Theme:  model.NormalizeTheme(m.defaultTheme),
		Rating: m.rating,
		Round:  1,
		Phase:  PhaseIdle,
	}
	return m
}

// SetTheme switches to name (blank means the default theme) and resets the
// session. It does not load; the caller requests the next pair exactly once.
func (m *Machine) SetTheme(name string) State {
	theme := model.NormalizeTheme(name)
	if theme == "" {
		theme = model.NormalizeTheme(m.defaultTheme)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(theme)
	return m.snapshotLocked()
}

// Reset clears round, score and history, keeping the current theme.
func (m *Machine) Reset() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(m.state.Theme)
	return m.snapshotLocked()
}

func (m *Machine) resetLocked(theme string) {
	// Invalidate any in-flight load for the previous board.
	m.seq++
	m.state = State{
		Theme:  theme,
		Rating: m.rating,
		Round:  1,
		Phase:  PhaseIdle,
	}
}

// LoadNextPair fetches the theme's pool and draws a new pair. On failure the
// session moves to the errored phase with a readable message and keeps its
// previous pair. If a newer load, reset or theme change started while this
// one was waiting, its result is discarded and ErrStaleLoad is returned.
func (m *Machine) LoadNextPair(ctx context.Context) (State, error) {
	m.mu.Lock()
	m.seq++
	token := m.seq
	theme := m.state.Theme
	m.state.Phase = PhaseLoading
	m.state.Loading = true
	m.mu.Unlock()

	items, err := m.pools.Ensure(ctx, theme, m.rating)
	var left, right model.Item
	if err == nil {
		var ok bool
		left, right, ok = pairing.PickTwoDistinct(m.rng, items)
		if !ok {
			err = model.ErrInsufficientResults
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.seq {
		metrics.RecordLoad("stale")
		m.logger.Debug(ctx, "discarding stale load", logger.String("theme", theme))
		return m.snapshotLocked(), ErrStaleLoad
	}

	m.state.Loading = false
	if err != nil {
		m.state.Phase = PhaseErrored
		m.state.Error = model.UserMessage(err)
		m.state.ErrorCode = model.ErrorCode(err)
		metrics.RecordLoad("errored")
		m.logger.Warn(ctx, "round load failed", logger.String("theme", theme), logger.Error(err))
		return m.snapshotLocked(), err
	}

	m.state.Left = &left
	m.state.Right = &right
	m.state.PoolCount = len(items)
	m.state.Phase = PhaseReady
	m.state.Error = ""
	m.state.ErrorCode = ""
	metrics.RecordLoad("ready")
	return m.snapshotLocked(), nil
}

// Vote credits side with one vote of type vt, records it and advances the
// round. It is a no-op (applied=false) for an unknown vote type or side, and
// unless both sides are set and no load is in flight. Vote never loads; the
// caller requests the next pair.
func (m *Machine) Vote(vt model.VoteType, side model.Side) (s State, applied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !vt.Valid() || !side.Valid() || !m.state.CanVote() {
		return m.snapshotLocked(), false
	}

	m.state.Score.inc(vt, side)
	rec := model.VoteRecord{
		Round:      m.state.Round,
		Theme:      m.state.Theme,
		VoteType:   vt,
		WinnerSide: side,
		LeftID:     m.state.Left.ID,
		RightID:    m.state.Right.ID,
		Timestamp:  m.now(),
	}
	history := make([]model.VoteRecord, 0, len(m.state.History)+1)
	history = append(history, rec)
	m.state.History = append(history, m.state.History...)
	m.state.Round++

	metrics.RecordVote(string(vt), string(side))
	return m.snapshotLocked(), true
}

// Undo reverts the most recent vote. It is a no-op (applied=false) on an
// empty history.
func (m *Machine) Undo() (s State, applied bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.state.History) == 0 {
		return m.snapshotLocked(), false
	}

	last := m.state.History[0]
	m.state.History = append([]model.VoteRecord(nil), m.state.History[1:]...)
	m.state.Score.dec(last.VoteType, last.WinnerSide)
	if m.state.Round > 1 {
		m.state.Round--
	}

	metrics.RecordUndo()
	return m.snapshotLocked(), true
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() State {
	s := m.state
	if s.Left != nil {
		l := *s.Left
		s.Left = &l
	}
	if s.Right != nil {
		r := *s.Right
		s.Right = &r
	}
	s.History = append([]model.VoteRecord{}, m.state.History...)
	return s
}

// IsStale reports whether err means the load result was discarded.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleLoad)
}
