// Package cmdqueue is C3: a single FIFO of packet descriptors with
// per-decoder coalescing, refresh synthesis, and flush/idle queries
// (spec.md 4.3).
package cmdqueue

import (
	"sync"

	"github.com/railcore/mc2core/internal/model"
)

// RefreshSource synthesises a refresh packet when the queue is empty and
// the caller allows it (spec.md 4.3: "a refresh packet is synthesised
// from C2's next entry").
type RefreshSource interface {
	NextRefreshPacket() (*model.Packet, bool)
}

// IdleProbe reports whether the ISR's ring is drained, so is_idle() can
// combine "queue empty" with "ISR idle" (spec.md 4.3).
type IdleProbe interface {
	ISRIdle() bool
}

// Queue is C3.
type Queue struct {
	mu      sync.Mutex
	packets []*model.Packet

	refresh RefreshSource
	isr     IdleProbe
}

func New(refresh RefreshSource, isr IdleProbe) *Queue {
	return &Queue{refresh: refresh, isr: isr}
}

// Dequeue pops the head packet; if the queue is empty and allowRefresh,
// a refresh packet is synthesised instead (spec.md 4.3).
func (q *Queue) Dequeue(allowRefresh bool) (*model.Packet, bool) {
	q.mu.Lock()
	if len(q.packets) > 0 {
		p := q.packets[0]
		q.packets = q.packets[1:]
		q.mu.Unlock()
		return p, true
	}
	q.mu.Unlock()
	if allowRefresh && q.refresh != nil {
		return q.refresh.NextRefreshPacket()
	}
	return nil, false
}

// Enqueue appends p, replacing any pending packet that is Equivalent to
// it rather than duplicating (spec.md 4.3 coalescing rule). Explicit
// commands are appended after any existing refresh-synthesised entries
// only in the sense that the queue never holds refresh packets itself --
// refresh is synthesised on demand, so explicit commands always outrank
// it (spec.md 4.3: "Priority: explicit commands outrank refresh").
func (q *Queue) Enqueue(p *model.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.packets {
		if existing.Equivalent(p) {
			q.packets[i] = p
			return
		}
	}
	q.packets = append(q.packets, p)
}

// PushBack puts p at the head, used by the encoder when a multi-stage
// command (POM write then verify read) must continue (spec.md 4.3).
func (q *Queue) PushBack(p *model.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.packets = append([]*model.Packet{p}, q.packets...)
}

// Flush drops queued packets; an in-flight bit-buffer is not aborted
// (spec.md 4.3).
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.packets = nil
}

// IsIdle reports whether the queue is empty and the ISR's ring is
// drained (spec.md 4.3).
func (q *Queue) IsIdle() bool {
	q.mu.Lock()
	empty := len(q.packets) == 0
	q.mu.Unlock()
	if !empty {
		return false
	}
	if q.isr == nil {
		return true
	}
	return q.isr.ISRIdle()
}

// Len reports the number of queued (non-refresh) packets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}
