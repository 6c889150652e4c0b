// Package pairing picks the two items shown in a round.
package pairing

import (
	"math/rand"
	"sync"
	"time"

	"github.com/okian/gifduel/internal/domain/model"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Intn(n int) int
}

// lockedSource makes a *rand.Rand safe to share between sessions.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// NewSource returns a goroutine-safe Source seeded with seed.
func NewSource(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // not security sensitive
}

// NewTimeSource returns a goroutine-safe Source seeded from the clock.
func NewTimeSource() Source {
	return NewSource(time.Now().UnixNano())
}

// PickTwoDistinct returns two items at different positions of items, or
// ok=false when fewer than two are supplied. The first index is uniform; the
// second is redrawn until it differs from the first. The returned order is
// the left/right assignment.
func PickTwoDistinct(src Source, items []model.Item) (left, right model.Item, ok bool) {
	n := len(items)
	if n < 2 {
		return model.Item{}, model.Item{}, false
	}
	i := src.Intn(n)
	j := src.Intn(n)
	for j == i {
		j = src.Intn(n)
	}
	return items[i], items[j], true
}
