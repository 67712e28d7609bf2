// Package signalgen is the deterministic consumer of bit buffers that
// drives the physical output -- the Go stand-in for the source's
// microsecond-timer hardware ISR (spec.md 4.6/C6). It cannot be a real
// interrupt handler in this runtime, so it is modeled as a dedicated
// goroutine that sleeps exactly one half-period at a time against a
// trackio.Clock, mirroring the bit-bang pattern the example pack uses
// for GPIO timing (periph.io host + gpio.PinIO.Out, see tve-devices'
// pwm-bb and google-periph's experimental cmd tools).
package signalgen

import (
	"sync"
	"time"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/trackio"
)

// State is the ISR's state machine (spec.md 4.6).
type State int

const (
	StateIdle State = iota
	StateSending
	StateCutoutDelay
	StateCutoutW1
	StateCutoutW2
	StatePostCutoutAck
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSending:
		return "SENDING"
	case StateCutoutDelay:
		return "CUTOUT_DELAY"
	case StateCutoutW1:
		return "CUTOUT_W1"
	case StateCutoutW2:
		return "CUTOUT_W2"
	case StatePostCutoutAck:
		return "POST_CUTOUT_ACK"
	default:
		return "?"
	}
}

// WindowHook is notified at each cutout window boundary so the RailCom
// receiver (C7) can arm/disarm its per-byte symbol decode (spec.md 4.6:
// "At each window boundary, the RailCom receiver is signalled").
type WindowHook interface {
	OnCutoutWindow(state State, buf *bitbuffer.Buffer)
}

// M3ReplyHook is notified once per M3 reply bit slot so C8 can sample
// the decoder current pulse (spec.md 4.8).
type M3ReplyHook interface {
	OnM3ReplySlot(buf *bitbuffer.Buffer, slot int, present bool)
}

// Source is the single-producer side of the SPSC ring between the
// encoder (C5) and the ISR (C6): Next blocks (with an internal timeout)
// until a buffer is ready, or returns nil if none is pending -- the
// fetch path spec.md 4.6 calls "ISR-safe: a single-producer / single-
// consumer ring".
type Source interface {
	Next() *bitbuffer.Buffer
}

// Generator drives one physical output from a stream of bit buffers.
// One Generator per power district; it owns the Driver exclusively
// while running.
type Generator struct {
	driver trackio.Driver
	clock  trackio.Clock
	source Source
	fmt    bitbuffer.FmtConfig

	railcom WindowHook
	m3reply M3ReplyHook

	mu      sync.Mutex
	state   State
	current *bitbuffer.Buffer
	level   bool

	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Generator; Run must be called to start consuming.
func New(driver trackio.Driver, clock trackio.Clock, source Source, cfg bitbuffer.FmtConfig, railcom WindowHook, m3reply M3ReplyHook) *Generator {
	return &Generator{
		driver:  driver,
		clock:   clock,
		source:  source,
		fmt:     cfg,
		railcom: railcom,
		m3reply: m3reply,
		state:   StateIdle,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// State reports the ISR's current state (for telemetry/tests).
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Run executes the ISR-equivalent loop until Stop is called. It is meant
// to run in its own goroutine for the lifetime of the Core.
func (g *Generator) Run() {
	defer close(g.stopped)
	for {
		select {
		case <-g.stop:
			return
		default:
		}
		g.tick()
	}
}

// Stop requests the loop to exit and waits for it to do so. Drain
// should be called first if an in-flight buffer must finish before
// switching track modes (spec.md 9: "before switching modes... the ISR
// is drained").
func (g *Generator) Stop() {
	close(g.stop)
	<-g.stopped
}

// Drain blocks until the ISR returns to IDLE with no buffer in flight,
// used by the mode/power interlock before ramping the power stage.
func (g *Generator) Drain() {
	for {
		g.mu.Lock()
		idle := g.state == StateIdle && g.current == nil
		g.mu.Unlock()
		if idle {
			return
		}
		g.clock.Sleep(100 * time.Microsecond)
	}
}

func (g *Generator) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// tick runs exactly one half-period step of the state machine.
func (g *Generator) tick() {
	g.mu.Lock()
	state := g.state
	buf := g.current
	g.mu.Unlock()

	switch state {
	case StateIdle:
		next := g.source.Next()
		if next == nil {
			g.clock.Sleep(100 * time.Microsecond)
			return
		}
		g.mu.Lock()
		g.current = next
		g.state = StateSending
		g.mu.Unlock()
	case StateSending:
		g.stepSending(buf)
	case StateCutoutDelay:
		g.clock.Sleep(bitbuffer.RailComCutoutDelayUs * time.Microsecond)
		g.driver.SetRailComUART(true)
		if g.railcom != nil {
			g.railcom.OnCutoutWindow(StateCutoutW1, buf)
		}
		g.setState(StateCutoutW1)
	case StateCutoutW1:
		g.clock.Sleep(bitbuffer.RailComW1MaxUs * time.Microsecond)
		if g.railcom != nil {
			g.railcom.OnCutoutWindow(StateCutoutW2, buf)
		}
		g.setState(StateCutoutW2)
	case StateCutoutW2:
		g.clock.Sleep(bitbuffer.RailComW2OffsetAfterW1Us * time.Microsecond)
		g.driver.SetRailComUART(false)
		g.setState(StatePostCutoutAck)
	case StatePostCutoutAck:
		g.clock.Sleep(bitbuffer.RailComBiDiAckSampleUs * time.Microsecond)
		g.finishBuffer(buf)
	}
}

func (g *Generator) stepSending(buf *bitbuffer.Buffer) {
	if buf.Tag == bitbuffer.TagM3 {
		g.stepM3(buf)
		return
	}

	bit := buf.Bit()
	g.level = !g.level
	g.driver.SetTrackLevel(g.level)

	half := g.halfPeriod(buf, bit)
	g.clock.Sleep(half)

	// Second half-period of the same bit, opposite level (spec.md 3: a
	// bit is a pair of half-periods).
	g.level = !g.level
	g.driver.SetTrackLevel(g.level)
	g.clock.Sleep(half)

	more := buf.Advance()
	if !more {
		if buf.DCC.RailComCutout {
			g.setState(StateCutoutDelay)
			return
		}
		g.finishBuffer(buf)
	}
}

func (g *Generator) halfPeriod(buf *bitbuffer.Buffer, bit bool) time.Duration {
	switch buf.Tag {
	case bitbuffer.TagMMSlow, bitbuffer.TagMMFast:
		return time.Duration(g.fmt.MMBitHalfPeriodUs) * time.Microsecond
	default:
		if bit {
			return time.Duration(g.fmt.DCCOneHalfPeriodUs) * time.Microsecond
		}
		return time.Duration(g.fmt.DCCZeroHalfPeriodUs) * time.Microsecond
	}
}

// stepM3 clocks out M3's L/S half-periods and, once the data bits are
// exhausted, samples the reply window bit slots hardware hands it
// (spec.md 4.8).
func (g *Generator) stepM3(buf *bitbuffer.Buffer) {
	bit := buf.Bit()
	half := g.fmt.M3ShortHalfUs
	if bit {
		half = g.fmt.M3LongHalfUs
	}
	g.level = !g.level
	g.driver.SetTrackLevel(g.level)
	g.clock.Sleep(time.Duration(half) * time.Microsecond)

	more := buf.Advance()
	if !more {
		if buf.M3.ReplyBitBudget > 0 {
			g.sampleM3Reply(buf)
		}
		g.finishBuffer(buf)
	}
}

func (g *Generator) sampleM3Reply(buf *bitbuffer.Buffer) {
	for slot := 0; slot < buf.M3.ReplyBitBudget; slot++ {
		present, _ := g.driver.SampleM3Pulse()
		if g.m3reply != nil {
			g.m3reply.OnM3ReplySlot(buf, slot, present)
		}
		g.clock.Sleep(time.Duration(g.fmt.M3ShortHalfUs) * time.Microsecond)
	}
}

func (g *Generator) finishBuffer(buf *bitbuffer.Buffer) {
	g.mu.Lock()
	g.current = nil
	g.state = StateIdle
	g.mu.Unlock()
}
