package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/gifduel/internal/domain/duel"
)

// ErrInconsistent is returned when a session's state disagrees with itself
// or with the votes the client saw applied.
var ErrInconsistent = errors.New("inconsistent session state")

// verifySession checks that st's score is the tally of its history, that the
// round follows the history length and that the history, newest first,
// matches moves.
func verifySession(st sessionState, moves []move) error {
	if want := duel.TallyHistory(st.History); st.Score != want {
		return fmt.Errorf("%w: session %s: score %+v, history tallies to %+v", ErrInconsistent, st.ID, st.Score, want)
	}
	if st.Round != len(st.History)+1 {
		return fmt.Errorf("%w: session %s: round %d with %d votes", ErrInconsistent, st.ID, st.Round, len(st.History))
	}
	if len(st.History) != len(moves) {
		return fmt.Errorf("%w: session %s: %d votes recorded, %d applied", ErrInconsistent, st.ID, len(st.History), len(moves))
	}
	for i, rec := range st.History {
		m := moves[len(moves)-1-i]
		if rec.VoteType != m.voteType || rec.WinnerSide != m.side {
			return fmt.Errorf("%w: session %s: vote %d is %s/%s, want %s/%s",
				ErrInconsistent, st.ID, i, rec.VoteType, rec.WinnerSide, m.voteType, m.side)
		}
	}
	return nil
}
