// Package simulate drives a running duel server with concurrent scripted
// players and checks every session's tally against its history.
package simulate

import (
	"time"

	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Sessions  int           // Number of concurrent sessions to play
	Actions   int           // Actions per session
	Workers   int           // Maximum sessions in flight
	Theme     string        // Theme for every session; blank means server default
	UndoRate  float64       // Fraction of actions that are undos
	RetryRate float64       // Fraction of votes re-sent with the same request ID
	Timeout   time.Duration // HTTP request timeout
	Seed      int64         // Seed for action selection; 0 means time-based
	Verbose   bool          // Log every session result
}

// Stats holds run statistics.
type Stats struct {
	SessionsPlayed   int
	SessionsVerified int
	VotesApplied     int
	VotesIgnored     int
	Duplicates       int
	Undos            int
	LoadErrors       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

func (s *Stats) add(o Stats) {
	s.SessionsPlayed += o.SessionsPlayed
	s.SessionsVerified += o.SessionsVerified
	s.VotesApplied += o.VotesApplied
	s.VotesIgnored += o.VotesIgnored
	s.Duplicates += o.Duplicates
	s.Undos += o.Undos
	s.LoadErrors += o.LoadErrors
}

// sessionState is the subset of the session response the simulator reads.
type sessionState struct {
	ID        string             `json:"id"`
	Theme     string             `json:"theme"`
	Round     int                `json:"round"`
	Score     duel.Score         `json:"score"`
	History   []model.VoteRecord `json:"history"`
	CanVote   bool               `json:"can_vote"`
	ErrorCode string             `json:"error_code"`
	Applied   bool               `json:"applied"`
	Duplicate bool               `json:"duplicate"`
}
