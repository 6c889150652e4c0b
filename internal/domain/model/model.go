// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTheme replaces blank themes.
const DefaultTheme = "cats"

// Item is one candidate GIF. Immutable once fetched.
type Item struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DisplayURL string `json:"display_url"`
}

// VoteType is the category of judgment cast.
type VoteType string

const (
	VoteLike  VoteType = "like"
	VoteFunny VoteType = "funny"
)

// VoteTypes lists every vote type in display order.
var VoteTypes = []VoteType{VoteLike, VoteFunny}

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool { return v == VoteLike || v == VoteFunny }

// ParseVoteType accepts "like" or "funny" in any case.
func ParseVoteType(s string) (VoteType, error) {
	switch v := VoteType(strings.ToLower(strings.TrimSpace(s))); v {
	case VoteLike, VoteFunny:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVoteType, s)
	}
}

// Side is which of the two presented items a vote is for.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Sides lists both sides in display order.
var Sides = []Side{SideLeft, SideRight}

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == SideLeft || s == SideRight }

// ParseSide accepts "left" or "right" in any case.
func ParseSide(s string) (Side, error) {
	switch v := Side(strings.ToLower(strings.TrimSpace(s))); v {
	case SideLeft, SideRight:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Rating is the upstream content rating filter.
type Rating string

const (
	RatingG    Rating = "g"
	RatingPG   Rating = "pg"
	RatingPG13 Rating = "pg-13"
	RatingR    Rating = "r"
)

// ParseRating accepts the four upstream content ratings.
func ParseRating(s string) (Rating, error) {
	switch v := Rating(strings.ToLower(strings.TrimSpace(s))); v {
	case RatingG, RatingPG, RatingPG13, RatingR:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
}

// VoteRecord captures one cast vote. Immutable once created.
type VoteRecord struct {
	Round      int       `json:"round"`
	Theme      string    `json:"theme"`
	VoteType   VoteType  `json:"vote_type"`
	WinnerSide Side      `json:"winner_side"`
	LeftID     string    `json:"left_id"`
	RightID    string    `json:"right_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NormalizeTheme trims and lowercases a theme. It may return "".
func NormalizeTheme(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
