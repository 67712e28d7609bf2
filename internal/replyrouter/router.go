// Package replyrouter implements C9: the registry and bounded queue
// that dispatches decoder reply messages (from C7/C8) to the originating
// packet's direct callback and to any registered wildcard listeners
// (spec.md 4.9).
package replyrouter

import (
	"sync"
	"time"

	"github.com/railcore/mc2core/internal/model"
)

// pendingCallback is one direct, packet-bound callback queued for
// off-ISR delivery.
type pendingCallback struct {
	cb  model.ReplyCallback
	ctx any
	msg model.ReplyMessage
}

// listener is one registered wildcard subscription.
type listener struct {
	id       uint64
	filter   model.ListenerFilter
	ctx      any
	cb       model.ReplyCallback
	deadline time.Time // zero = no timeout
}

// Router is C9. It owns a bounded callback queue (drained by a single
// worker goroutine, standing in for the "slightly-elevated-priority
// worker" the source dedicates to this so callbacks never run in ISR
// context) plus the listener registry.
type Router struct {
	queue chan pendingCallback

	mu        sync.Mutex
	listeners []*listener
	nextID    uint64

	stop    chan struct{}
	stopped chan struct{}
}

// QueueDepth is the bounded direct-callback queue capacity (spec.md 5:
// "a dedicated bounded queue").
const QueueDepth = 64

// New creates a Router; Run must be started in its own goroutine.
func New() *Router {
	return &Router{
		queue:   make(chan pendingCallback, QueueDepth),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run drains the direct-callback queue until Stop is called.
func (r *Router) Run() {
	defer close(r.stopped)
	for {
		select {
		case pc := <-r.queue:
			pc.cb(pc.msg, pc.ctx)
		case <-r.stop:
			return
		}
	}
}

func (r *Router) Stop() {
	close(r.stop)
	<-r.stopped
}

// Dispatch is called by C7/C8 for every decoded reply fragment. It
// enqueues the direct callback (if the originating buffer carried one)
// and walks the listener snapshot, firing and removing matches
// (spec.md 4.9: "re-entrancy-safe... restart-on-removal semantics").
func (r *Router) Dispatch(msg model.ReplyMessage, directCB model.ReplyCallback, directCtx any) {
	if directCB != nil {
		select {
		case r.queue <- pendingCallback{cb: directCB, ctx: directCtx, msg: msg}:
		default:
			// Queue full: the source explicitly allows dropping a
			// callback here rather than stalling the signal generator
			// (spec.md 7: "allocation failure in the ISR-callback path
			// drops the callback silently").
		}
	}

	r.mu.Lock()
	snapshot := make([]*listener, len(r.listeners))
	copy(snapshot, r.listeners)
	r.mu.Unlock()

	var fired []uint64
	for _, l := range snapshot {
		if !l.filter.Matches(msg) {
			continue
		}
		if l.cb(msg, l.ctx) == model.Deregister {
			fired = append(fired, l.id)
		}
	}
	if len(fired) > 0 {
		r.removeIDs(fired)
	}
}

// Register adds a listener and returns its id (for explicit
// cancellation). A zero timeout means no timeout.
func (r *Router) Register(filter model.ListenerFilter, cb model.ReplyCallback, ctx any, timeout time.Duration) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	l := &listener{id: id, filter: filter, ctx: ctx, cb: cb}
	if timeout > 0 {
		l.deadline = time.Now().Add(timeout)
	}
	r.listeners = append(r.listeners, l)
	return id
}

// Cancel removes a listener by id without firing it.
func (r *Router) Cancel(id uint64) {
	r.removeIDs([]uint64{id})
}

func (r *Router) removeIDs(ids []uint64) {
	drop := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.listeners[:0]
	for _, l := range r.listeners {
		if !drop[l.id] {
			kept = append(kept, l)
		}
	}
	r.listeners = kept
}

// PollTimeouts delivers a synthesised MsgTimeout to every listener whose
// deadline has passed and removes them; a slow periodic task (spec.md
// 5's "one normal-priority reply-delivery worker") calls this instead of
// the single-timer-per-deadline scheme the source uses, since Go's timer
// heap already gives equivalent behaviour at the granularity this core
// needs (see DESIGN.md).
func (r *Router) PollTimeouts(now time.Time) {
	r.mu.Lock()
	var expired []*listener
	kept := r.listeners[:0]
	for _, l := range r.listeners {
		if !l.deadline.IsZero() && now.After(l.deadline) {
			expired = append(expired, l)
			continue
		}
		kept = append(kept, l)
	}
	r.listeners = kept
	r.mu.Unlock()

	for _, l := range expired {
		msg := model.ReplyMessage{DecoderType: l.filter.DecoderType, Addr: l.filter.Addr, Type: model.MsgTimeout}
		l.cb(msg, l.ctx)
	}
}
