// Package dedupe tracks client request IDs so that retried mutations are
// applied at most once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen request IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a request that failed before taking effect can
	// be retried with the same ID.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps at most maxSize IDs and evicts the oldest first.
// A non-positive maxSize disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64 // id -> insertion sequence
	order   []string          // insertion order, may hold unrecorded IDs
	seqs    []uint64          // sequence per order entry
	next    uint64
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
	}

	d.next++
	d.seen[id] = d.next
	d.order = append(d.order, id)
	d.seqs = append(d.seqs, d.next)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The order entry stays behind; evictOldest skips it by sequence.
	delete(d.seen, id)
	d.compact()
}

// evictOldest drops the oldest live ID. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for len(d.order) > 0 {
		id, seq := d.order[0], d.seqs[0]
		d.order[0] = ""
		d.order, d.seqs = d.order[1:], d.seqs[1:]
		if cur, ok := d.seen[id]; ok && cur == seq {
			delete(d.seen, id)
			return
		}
	}
}

// compact rebuilds the order queue once dead entries dominate it.
func (d *inMemoryDeduper) compact() {
	if len(d.order) < 64 || len(d.order) < 2*len(d.seen) {
		return
	}
	order := make([]string, 0, len(d.seen))
	seqs := make([]uint64, 0, len(d.seen))
	for i, id := range d.order {
		if cur, ok := d.seen[id]; ok && cur == d.seqs[i] {
			order = append(order, id)
			seqs = append(seqs, d.seqs[i])
		}
	}
	d.order, d.seqs = order, seqs
}

// Size returns the number of IDs currently tracked.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
