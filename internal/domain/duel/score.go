package duel

import "github.com/okian/gifduel/internal/domain/model"

// Tally counts votes per side for one vote type.
type Tally struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Score holds a Tally per vote type. Cells never go below zero.
type Score struct {
	Like  Tally `json:"like"`
	Funny Tally `json:"funny"`
}

// cell returns the counter for (vt, side), or nil for unknown values.
func (s *Score) cell(vt model.VoteType, side model.Side) *int {
	var t *Tally
	switch vt {
	case model.VoteLike:
		t = &s.Like
	case model.VoteFunny:
		t = &s.Funny
	default:
		return nil
	}
	switch side {
	case model.SideLeft:
		return &t.Left
	case model.SideRight:
		return &t.Right
	default:
		return nil
	}
}

// Get returns the count for one (vote type, side) cell. Unknown values
// count zero.
func (s Score) Get(vt model.VoteType, side model.Side) int {
	if c := s.cell(vt, side); c != nil {
		return *c
	}
	return 0
}

func (s *Score) inc(vt model.VoteType, side model.Side) {
	if c := s.cell(vt, side); c != nil {
		*c++
	}
}

// dec decrements a cell, floored at zero.
func (s *Score) dec(vt model.VoteType, side model.Side) {
	if c := s.cell(vt, side); c != nil && *c > 0 {
		*c--
	}
}

// Total returns the number of votes across all cells.
func (s Score) Total() int {
	return s.Like.Left + s.Like.Right + s.Funny.Left + s.Funny.Right
}

// TallyHistory recomputes a Score from vote records. Records with an
// unknown vote type or side are not counted.
func TallyHistory(history []model.VoteRecord) Score {
	var s Score
	for _, rec := range history {
		s.inc(rec.VoteType, rec.WinnerSide)
	}
	return s
}
