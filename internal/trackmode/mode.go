// Package trackmode is the track-power/mode interlock (spec.md 4.6/9):
// before switching between STOP/GO/HALT/DCC-PROG/TAMS-PROG/TESTDRIVE/
// OVERTEMP/SHORT/POWERFAIL, the signal generator is drained and the
// power stage is ramped with the timings spec.md 4.6 fixes (100 mV per
// 5 ms, 1000 ms OFF->ON discharge interval, 50 ms relay settle).
package trackmode

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/internal/events"
	"github.com/railcore/mc2core/internal/telemetry"
	"github.com/railcore/mc2core/internal/trackio"
)

// Mode is the closed set of track modes spec.md 4.6 names.
type Mode int

const (
	ModeStop Mode = iota
	ModeGo
	ModeHalt
	ModeDCCProg
	ModeTamsProg
	ModeTestDrive
	ModeOverTemp
	ModeShort
	ModePowerFail
)

func (m Mode) String() string {
	switch m {
	case ModeStop:
		return "STOP"
	case ModeGo:
		return "GO"
	case ModeHalt:
		return "HALT"
	case ModeDCCProg:
		return "DCC-PROG"
	case ModeTamsProg:
		return "TAMS-PROG"
	case ModeTestDrive:
		return "TESTDRIVE"
	case ModeOverTemp:
		return "OVERTEMP"
	case ModeShort:
		return "SHORT"
	case ModePowerFail:
		return "POWERFAIL"
	default:
		return "?"
	}
}

// poweredModes is the set of modes that drive the track stage; all
// others leave the power stage off.
func (m Mode) powered() bool {
	switch m {
	case ModeGo, ModeHalt, ModeDCCProg, ModeTamsProg, ModeTestDrive:
		return true
	default:
		return false
	}
}

// Drainable is the subset of signalgen.Generator the interlock needs --
// modeled as an interface so tests can substitute a fake without pulling
// in the whole ISR loop (spec.md 9: "before switching modes... the ISR
// is drained").
type Drainable interface {
	Drain()
}

// Ramp timing constants, fixed by spec.md 4.6.
const (
	RampStepMilliVolt   = 100
	RampStepInterval    = 5 * time.Millisecond
	DischargeInterval   = 1000 * time.Millisecond
	RelaySettleInterval = 50 * time.Millisecond
	FullTrackVoltageMV  = 16000 // nominal rail voltage the ramp climbs to
)

// Interlock owns the Mode transitions and the power stage; it is the
// only component permitted to call Driver.SetPowerStage (spec.md 9:
// "The power stage is owned by the mode machine").
type Interlock struct {
	log    *logrus.Entry
	driver trackio.Driver
	isr    Drainable
	clock  trackio.Clock
	tele   *telemetry.Store
	bus    *events.Bus

	mu   sync.Mutex
	mode Mode
}

func New(log *logrus.Entry, driver trackio.Driver, isr Drainable, clock trackio.Clock, tele *telemetry.Store, bus *events.Bus) *Interlock {
	return &Interlock{
		log:    log,
		driver: driver,
		isr:    isr,
		clock:  clock,
		tele:   tele,
		bus:    bus,
		mode:   ModeStop,
	}
}

func (i *Interlock) Mode() Mode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

// SetMode drains the ISR, ramps the power stage down/up as required by
// the target mode, and publishes a SysStatus event once settled
// (spec.md 4.6/9).
func (i *Interlock) SetMode(target Mode) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	from := i.mode
	if from == target {
		return nil
	}

	i.isr.Drain()

	wasPowered := from.powered()
	willPower := target.powered()

	if wasPowered && !willPower {
		if err := i.rampDown(); err != nil {
			return fmt.Errorf("trackmode: ramp down %s->%s: %w", from, target, err)
		}
	}

	if !wasPowered && willPower {
		i.clock.Sleep(DischargeInterval)
		if err := i.rampUp(); err != nil {
			return fmt.Errorf("trackmode: ramp up %s->%s: %w", from, target, err)
		}
		i.clock.Sleep(RelaySettleInterval)
	}

	i.mode = target
	if i.log != nil {
		i.log.WithFields(logrus.Fields{"from": from.String(), "to": target.String()}).Info("trackmode: transition")
	}
	if i.bus != nil {
		i.bus.Publish(events.Event{Kind: events.SysStatus, Payload: target})
	}
	return nil
}

// rampDown brings the stage to OFF at RampStepInterval cadence; the
// driver is responsible for the actual analog ramp, this just paces the
// request and the settle wait around it (spec.md 4.6).
func (i *Interlock) rampDown() error {
	steps := FullTrackVoltageMV / RampStepMilliVolt
	for s := 0; s < steps; s++ {
		i.clock.Sleep(RampStepInterval)
	}
	return i.driver.SetPowerStage(false)
}

func (i *Interlock) rampUp() error {
	if err := i.driver.SetPowerStage(true); err != nil {
		return err
	}
	steps := FullTrackVoltageMV / RampStepMilliVolt
	for s := 0; s < steps; s++ {
		i.clock.Sleep(RampStepInterval)
	}
	return nil
}

// CheckFault inspects the telemetry snapshot and forces an interlock
// transition into SHORT or OVERTEMP when a fault threshold is crossed
// (it never selects POWERFAIL), called by the slow periodic task (spec.md 5's "slow periodic
// task for refresh-list aging").
func (i *Interlock) CheckFault(shortThresholdMA int32, overTempThresholdDC int32) error {
	snap := i.tele.Read()
	switch {
	case snap.TrackCurrentMA >= shortThresholdMA:
		return i.SetMode(ModeShort)
	case snap.TemperatureDC >= overTempThresholdDC:
		return i.SetMode(ModeOverTemp)
	case !snap.PhyLinkUp:
		return nil
	}
	return nil
}
