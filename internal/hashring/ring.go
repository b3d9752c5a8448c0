// Package hashring implements the ordered start->client structure the Shard
// Client Manager uses to route a hashed identifier to the shard that owns
// it, one ring per (DataElement, Operation) pair.
//
// Lookup is "largest start <= h, or the largest start overall if none is
// <= h" — a wrap-around range partition of the signed 32-bit space, not a
// classic consistent-hash ring with virtual nodes. The teacher repo's own
// registry used a flat modulo; this ring generalizes that idea to
// non-uniform, explicitly-assigned ranges as spec'd.
package hashring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// entry is one (start, value) pair in the ring, where value is opaque to
// the ring itself (the Shard Client Manager stores a (ShardClient,
// ShardDescription) pair here).
type entry struct {
	start domain.HashRangeStart
	value any
}

// Ring is an ordered mapping from HashRangeStart to an arbitrary value.
// Every method takes the ring's RWMutex: Lookup and Enumerate share the read
// lock and Insert takes the write lock, so all three are safe for concurrent
// use. The Shard Client Manager only inserts while building a ring, before
// publishing it to readers.
type Ring struct {
	mu      sync.RWMutex
	entries []entry // kept sorted ascending by start
}

// New returns an empty ring.
func New() *Ring {
	return &Ring{}
}

// Insert adds a (start, value) pair. It fails if start is already present.
func (r *Ring) Insert(start domain.HashRangeStart, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].start >= start })
	if i < len(r.entries) && r.entries[i].start == start {
		return fmt.Errorf("hashring: start %d already present", start)
	}
	r.entries = append(r.entries, entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = entry{start: start, value: value}
	return nil
}

// Lookup returns the value whose start is the greatest value <= h. If no
// such start exists (h is smaller than every start present), it wraps to
// the value with the greatest start overall. Lookup is O(log N) and safe
// for concurrent use.
//
// ok is false only when the ring is empty.
func (r *Ring) Lookup(h int32) (value any, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, false
	}

	target := domain.HashRangeStart(h)
	// Find the first entry with start > target; the owner is the one
	// immediately before it.
	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].start > target })
	if i == 0 {
		// h is smaller than every start: wrap to the largest start.
		return r.entries[len(r.entries)-1].value, true
	}
	return r.entries[i-1].value, true
}

// Enumerate returns every (start, value) pair in ascending start order.
func (r *Ring) Enumerate() []struct {
	Start domain.HashRangeStart
	Value any
} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]struct {
		Start domain.HashRangeStart
		Value any
	}, len(r.entries))
	for i, e := range r.entries {
		out[i].Start = e.start
		out[i].Value = e.value
	}
	return out
}

// Len returns the number of entries in the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
