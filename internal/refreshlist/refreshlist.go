// Package refreshlist is C2: the set of locos currently being refreshed
// on the track, with purge deadlines/age counters and hand-over-hand
// consist-ring traversal (spec.md 4.2).
package refreshlist

import (
	"sync"
	"time"

	"github.com/railcore/mc2core/internal/decoderdb"
)

// entry is one refreshed loco.
type entry struct {
	addr     uint16
	deadline time.Time
	age      uint64
	next     *entry
	prev     *entry

	// consistIdx is the member index this entry will emit on its next
	// consist-ring visit; -1 means the ring hasn't been entered (or just
	// completed a lap) and the next visit should start at addr's own
	// position.
	consistIdx int
}

// List is C2.
type List struct {
	mu      sync.Mutex
	entries map[uint16]*entry
	order   []*entry // insertion-ish order for the hand-over-hand cursor
	cursor  int

	idleTimeout time.Duration
	db          *decoderdb.DB
}

// New creates a refresh list. idleTimeout is the purge deadline window
// (spec.md 3: "purged after an idle interval configurable in minutes").
func New(db *decoderdb.DB, idleTimeout time.Duration) *List {
	return &List{
		entries:     make(map[uint16]*entry),
		idleTimeout: idleTimeout,
		db:          db,
	}
}

// Touch adds addr if absent and resets its purge deadline (spec.md 4.2).
func (l *List) Touch(addr uint16, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[addr]
	if !ok {
		e = &entry{addr: addr, consistIdx: -1}
		l.entries[addr] = e
		l.order = append(l.order, e)
	}
	e.deadline = now.Add(l.idleTimeout)
	e.age++
}

// Remove unlinks addr, breaking any consist linkage first (spec.md 4.2).
func (l *List) Remove(addr uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(addr)
}

func (l *List) removeLocked(addr uint16) {
	if _, ok := l.entries[addr]; !ok {
		return
	}
	delete(l.entries, addr)
	for i, e := range l.order {
		if e.addr == addr {
			l.order = append(l.order[:i], l.order[i+1:]...)
			if l.cursor > i {
				l.cursor--
			}
			break
		}
	}
}

// Next returns the next loco address for a refresh packet, hand-over-
// hand, advancing through a consist's ring one member at a time (its own
// address included) before moving to the next refresh-list entry
// (spec.md 4.2; spec.md 8 scenario #5: "refresh emits speed commands for
// 5 then for 7").
func (l *List) Next() (uint16, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return 0, false
	}
	if l.cursor >= len(l.order) {
		l.cursor = 0
	}
	e := l.order[l.cursor]

	if l.db != nil {
		if c, ok := l.db.GetConsist(e.addr); ok && len(c.Members) > 0 {
			start := c.IndexOf(e.addr)
			if start < 0 {
				start = 0
			}
			if e.consistIdx < 0 || e.consistIdx >= len(c.Members) {
				e.consistIdx = start
			}
			member := c.Members[e.consistIdx]
			next := (e.consistIdx + 1) % len(c.Members)
			if next == start {
				// Full lap: reset for the entry's next visit and only
				// now advance to the next refresh-list entry.
				e.consistIdx = -1
				l.cursor = (l.cursor + 1) % len(l.order)
			} else {
				e.consistIdx = next
			}
			return member.Addr(), true
		}
	}

	l.cursor = (l.cursor + 1) % len(l.order)
	return e.addr, true
}

// Purge unlinks every entry whose deadline has passed (spec.md 4.2:
// "on every tick of a slow periodic task").
func (l *List) Purge(now time.Time) []uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var purged []uint16
	for _, e := range append([]*entry{}, l.order...) {
		if now.After(e.deadline) {
			purged = append(purged, e.addr)
			l.removeLocked(e.addr)
		}
	}
	return purged
}

// Age returns the refresh count for addr, used by external UIs to hide
// stale controls.
func (l *List) Age(addr uint16) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[addr]
	if !ok {
		return 0, false
	}
	return e.age, true
}

// Len reports how many entries are currently tracked.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
