package solver

import "fmt"

// DefaultMaxArenaEntries caps a single arena at 256Mi item ids (512 MiB).
const DefaultMaxArenaEntries = 1 << 28

// Arena is a bump allocator over one flat buffer of item ids. Init sizes it up front from the
// exact assignment count, so Alloc running out means the count was wrong and the search must stop.
// An Arena belongs to one Solver and is not safe for concurrent use.
type Arena struct {
	buf        []ItemID
	next       int
	maxEntries int
}

// NewArena returns an empty arena limited to maxEntries ids (DefaultMaxArenaEntries if <= 0).
func NewArena(maxEntries int) *Arena {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxArenaEntries
	}
	return &Arena{maxEntries: maxEntries}
}

// Init resets the cursor and makes room for exactly capacity ids. The backing array is reused
// when it is already large enough.
func (a *Arena) Init(capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("arena: negative capacity %d", capacity)
	}
	if capacity > a.maxEntries {
		return fmt.Errorf("%w: %d > %d", ErrArenaTooLarge, capacity, a.maxEntries)
	}
	if cap(a.buf) < capacity {
		a.buf = make([]ItemID, capacity)
	} else {
		a.buf = a.buf[:capacity]
	}
	a.next = 0
	return nil
}

// Alloc hands out the next n ids. The returned slice is capacity-capped so appending to it can
// never spill into a neighbour.
func (a *Arena) Alloc(n int) ([]ItemID, error) {
	if n < 0 || a.next+n > len(a.buf) {
		return nil, fmt.Errorf("%w: alloc %d at %d of %d", ErrArenaExhausted, n, a.next, len(a.buf))
	}
	s := a.buf[a.next : a.next+n : a.next+n]
	a.next += n
	return s, nil
}

// Cap is the size set by the last Init.
func (a *Arena) Cap() int { return len(a.buf) }

// Used is the number of ids handed out since the last Init.
func (a *Arena) Used() int { return a.next }
