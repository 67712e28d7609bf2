// Package progtrack is the programming-track (service-mode) task: one
// short-lived operation per CV read/write on the dedicated prog output,
// with the internal 5 ms / 50 ms / 5000 ms timeouts and up to three
// full power-cycle retries spec.md 5/7/8 require.
package progtrack

import (
	"fmt"
	"time"

	"github.com/railcore/mc2core/internal/cmdqueue"
	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/packetbuilder"
	"github.com/railcore/mc2core/internal/telemetry"
	"github.com/railcore/mc2core/internal/trackio"
	"github.com/railcore/mc2core/internal/trackmode"
)

// Timing constants fixed by spec.md 5/8.
const (
	BaseCurrentSettleTimeout = 50 * time.Millisecond
	AckSampleTimeout         = 5 * time.Millisecond
	OuterTimeout             = 5000 * time.Millisecond

	BaseCurrentToleranceMA = 3
	AckCurrentDeltaMA      = 60
	AckMinDuration         = 1900 * time.Microsecond

	MaxPowerCycleRetries = 3
)

// Result is the outcome of one programming-track operation.
type Result struct {
	Acked bool
	Value byte // only meaningful for verify/read
}

// Task drives the DCC-PROG/TAMS-PROG track mode, the command queue and
// telemetry together for one operation at a time; callers serialize
// their own access (spec.md 5: "one programming-track task spawned per
// operation").
type Task struct {
	mode   *trackmode.Interlock
	queue  *cmdqueue.Queue
	driver trackio.Driver
	tele   *telemetry.Store
	clock  trackio.Clock
}

func New(mode *trackmode.Interlock, queue *cmdqueue.Queue, driver trackio.Driver, tele *telemetry.Store, clock trackio.Clock) *Task {
	return &Task{mode: mode, queue: queue, driver: driver, tele: tele, clock: clock}
}

// WriteByte enters DCC-PROG, waits for stable base current, writes cv
// with the configured repeat count, and samples the ACK pulse, retrying
// the whole power cycle up to MaxPowerCycleRetries times on a missing
// ACK (spec.md 8's worked example: "WriteByte(1, 42) with 10 repeats,
// sample ACK pulse window... on missing ACK retry up to 3 full
// power-cycles").
func (t *Task) WriteByte(cv uint16, value byte, repeat int) (Result, error) {
	return t.runWithRetries(func() (Result, error) {
		pkt := packetbuilder.BuildProgDirectWriteByte(cv, value, repeat)
		return t.sendAndSampleAck(pkt)
	})
}

// VerifyByte issues a direct-mode verify and reports whether the
// decoder ACKed (confirming the CV equals value).
func (t *Task) VerifyByte(cv uint16, value byte, repeat int) (Result, error) {
	return t.runWithRetries(func() (Result, error) {
		pkt := packetbuilder.BuildProgDirectVerifyByte(cv, value, repeat)
		return t.sendAndSampleAck(pkt)
	})
}

// ReadByte determines a CV's value by bit-verify, one bit at a time,
// since direct-mode service packets have no dedicated read instruction
// (spec.md 4.4: programming-track ops are write/verify only).
func (t *Task) ReadByte(cv uint16, repeat int) (Result, error) {
	return t.runWithRetries(func() (Result, error) {
		var value byte
		for bit := uint8(0); bit < 8; bit++ {
			pkt := packetbuilder.BuildProgDirectVerifyBit(cv, bit, true, repeat)
			res, err := t.sendAndSampleAck(pkt)
			if err != nil {
				return Result{}, err
			}
			if res.Acked {
				value |= 1 << bit
			}
		}
		return Result{Acked: true, Value: value}, nil
	})
}

// WriteBit/VerifyBit expose the single-bit direct-mode instructions.
func (t *Task) WriteBit(cv uint16, bitPos uint8, bitVal bool, repeat int) (Result, error) {
	return t.runWithRetries(func() (Result, error) {
		pkt := packetbuilder.BuildProgDirectWriteBit(cv, bitPos, bitVal, repeat)
		return t.sendAndSampleAck(pkt)
	})
}

func (t *Task) VerifyBit(cv uint16, bitPos uint8, bitVal bool, repeat int) (Result, error) {
	return t.runWithRetries(func() (Result, error) {
		pkt := packetbuilder.BuildProgDirectVerifyBit(cv, bitPos, bitVal, repeat)
		return t.sendAndSampleAck(pkt)
	})
}

// runWithRetries wraps op in the DCC-PROG power cycle: ramp into
// programming mode, wait for base current to settle, run op, then
// return to STOP. On a non-ACKed result it power-cycles and retries up
// to MaxPowerCycleRetries times (spec.md 7: "programming-track
// operations retry up to three times with full power-cycle between
// attempts").
func (t *Task) runWithRetries(op func() (Result, error)) (Result, error) {
	deadline := time.Now().Add(OuterTimeout)
	var lastErr error
	for attempt := 0; attempt < MaxPowerCycleRetries; attempt++ {
		if time.Now().After(deadline) {
			return Result{}, fmt.Errorf("progtrack: outer timeout: %w", model.ErrTimeout)
		}
		if err := t.mode.SetMode(trackmode.ModeDCCProg); err != nil {
			return Result{}, fmt.Errorf("progtrack: enter DCC-PROG: %w", err)
		}
		if err := t.waitBaseCurrentStable(); err != nil {
			lastErr = err
			t.mode.SetMode(trackmode.ModeStop)
			continue
		}
		res, err := op()
		t.mode.SetMode(trackmode.ModeStop)
		if err != nil {
			return Result{}, err
		}
		if res.Acked {
			return res, nil
		}
		lastErr = model.ErrNoAnswer
	}
	if lastErr == nil {
		lastErr = model.ErrNoAnswer
	}
	return Result{}, fmt.Errorf("progtrack: no ack after %d power cycles: %w", MaxPowerCycleRetries, lastErr)
}

// waitBaseCurrentStable polls the programming-track current every 2 ms
// until two consecutive readings differ by at most BaseCurrentToleranceMA,
// failing with ErrUnstableBaseCurrent once BaseCurrentSettleTimeout has
// passed (spec.md 8).
func (t *Task) waitBaseCurrentStable() error {
	deadline := time.Now().Add(BaseCurrentSettleTimeout)
	var last int32
	haveLast := false
	for time.Now().Before(deadline) {
		cur := t.tele.Read().ProgCurrentMA
		if haveLast {
			delta := cur - last
			if delta < 0 {
				delta = -delta
			}
			if delta <= BaseCurrentToleranceMA {
				return nil
			}
		}
		last = cur
		haveLast = true
		t.clock.Sleep(2 * time.Millisecond)
	}
	return fmt.Errorf("progtrack: %w", model.ErrUnstableBaseCurrent)
}

// sendAndSampleAck enqueues pkt directly (bypassing the normal refresh
// cadence, since programming-track packets own the track exclusively)
// and samples the ACK current pulse: +60 mA sustained for >=1.9 ms
// within the 5 ms sample window (spec.md 8).
func (t *Task) sendAndSampleAck(pkt *model.Packet) (Result, error) {
	t.queue.PushBack(pkt)

	base := t.tele.Read().ProgCurrentMA
	deadline := time.Now().Add(AckSampleTimeout)
	var pulseStart time.Time
	inPulse := false

	for time.Now().Before(deadline) {
		cur := t.tele.Read().ProgCurrentMA
		if cur-base >= AckCurrentDeltaMA {
			if !inPulse {
				inPulse = true
				pulseStart = time.Now()
			}
			if time.Since(pulseStart) >= AckMinDuration {
				return Result{Acked: true}, nil
			}
		} else {
			inPulse = false
		}
		t.clock.Sleep(200 * time.Microsecond)
	}
	return Result{Acked: false}, nil
}
