// Package trackio abstracts the physical output stage (track driver
// H-bridge, RailCom UART) behind a small interface so the signal
// generator (internal/signalgen) can be driven by a real GPIO backend
// (periph.io) or a simulation in tests, the way the teacher's
// commandstation.Interface abstracts the Z21 transport (pkgs/
// commandstation/interface.go).
package trackio

import "time"

// Driver is the hardware boundary the signal generator (C6) drives: one
// differential track output plus the RailCom back-channel UART that is
// exclusively owned by the cutout receiver during W1/W2 (spec.md 4.6/
// 4.7/9).
type Driver interface {
	// SetTrackLevel drives the track output high or low for the next
	// half-period; called once per half-period boundary.
	SetTrackLevel(high bool) error

	// SetRailComUART enables or disables the RailCom receive UART. It is
	// disabled outside of cutout windows (spec.md 9).
	SetRailComUART(enabled bool) error

	// SampleM3Pulse reports whether a decoder current pulse is present in
	// the current M3 reply bit slot (spec.md 4.8).
	SampleM3Pulse() (bool, error)

	// ReadRailComByte reads one byte received on the RailCom UART since
	// the last call, and whether one was available.
	ReadRailComByte() (b byte, ok bool, err error)

	// SetPowerStage ramps the track power stage on/off; used by the
	// mode/power interlock (spec.md 4.6/9: 100 mV per 5 ms ramp, 1000 ms
	// discharge interval, 50 ms relay settle -- the driver implements the
	// physical ramp, the interlock only calls SetPowerStage(false/true)
	// and waits out the settle timing itself).
	SetPowerStage(on bool) error

	// TrackCurrentMA and TrackVoltageMV give lock-free telemetry reads
	// (spec.md 9: "telemetry ADC values are snapshot-readable lock-free").
	TrackCurrentMA() int32
	TrackVoltageMV() int32
}

// Clock abstracts the microsecond timer the ISR-equivalent loop sleeps
// against, so tests can use a virtual clock instead of real time.Sleep.
type Clock interface {
	Sleep(d time.Duration)
}

// RealClock is the production Clock, a thin wrapper over time.Sleep.
type RealClock struct{}

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }
