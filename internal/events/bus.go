// Package events is the core's internal publish/subscribe bus. External
// control surfaces (the CLI, a future UI) subscribe to it instead of
// polling the decoder DB/telemetry/live-list directly, the way the
// teacher's CLI prints through a single output.Printer rather than each
// command formatting its own text (pkgs/output/printer.go).
package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind is the closed set of event topics the core publishes.
type Kind int

const (
	SysStatus Kind = iota
	LocoSpeed
	LocoFunction
	LocoParameter
	LocoDB
	Turnout
	Feedback
	FeedbackNew
	Consist
	Current
	RailCom
	ModelTime
	LogMessage
	AccessoryFormat
)

func (k Kind) String() string {
	names := [...]string{
		"SYS_STATUS", "LOCO_SPEED", "LOCO_FUNCTION", "LOCO_PARAMETER",
		"LOCO_DB", "TURNOUT", "FEEDBACK", "FBNEW", "CONSIST", "CURRENT",
		"RAILCOM", "MODELTIME", "LOGMSG", "ACCFMT",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "UNKNOWN"
	}
	return names[k]
}

// Event is one published notification; Payload's concrete type depends
// on Kind (documented alongside each publishing call site).
type Event struct {
	Kind    Kind
	Payload any
}

// Handler receives published events; it must not block for long since
// it runs synchronously in the publisher's goroutine (callers that need
// to do slow work should hand off to their own worker).
type Handler func(Event)

// Bus is a simple fan-out dispatcher, safe for concurrent Publish and
// Subscribe.
type Bus struct {
	log *logrus.Entry

	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

func New(log *logrus.Entry) *Bus {
	return &Bus{log: log, handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h for kind and returns an unsubscribe function.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
	idx := len(b.handlers[kind]) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.handlers[kind]
		if idx < len(hs) {
			hs[idx] = nil
		}
	}
}

// Publish fans ev out to every live subscriber of ev.Kind.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if h == nil {
			continue
		}
		h(ev)
	}
	if b.log != nil {
		b.log.WithField("kind", ev.Kind.String()).Debug("event published")
	}
}
