package trackmode

import (
	"errors"
	"testing"
	"time"

	"github.com/railcore/mc2core/internal/events"
	"github.com/railcore/mc2core/internal/telemetry"
)

type fakeDriver struct {
	powerCalls []bool
	failSet    bool
}

func (d *fakeDriver) SetTrackLevel(high bool) error { return nil }
func (d *fakeDriver) SetRailComUART(enabled bool) error { return nil }
func (d *fakeDriver) SampleM3Pulse() (bool, error) { return false, nil }
func (d *fakeDriver) ReadRailComByte() (byte, bool, error) { return 0, false, nil }
func (d *fakeDriver) SetPowerStage(on bool) error {
	d.powerCalls = append(d.powerCalls, on)
	if d.failSet {
		return errors.New("power stage fault")
	}
	return nil
}
func (d *fakeDriver) TrackCurrentMA() int32 { return 0 }
func (d *fakeDriver) TrackVoltageMV() int32 { return 0 }

type fakeISR struct{ drains int }

func (f *fakeISR) Drain() { f.drains++ }

type noSleepClock struct{}

func (noSleepClock) Sleep(time.Duration) {}

func TestSetMode_StopToGoRampsUpPowerStage(t *testing.T) {
	driver := &fakeDriver{}
	isr := &fakeISR{}
	i := New(nil, driver, isr, noSleepClock{}, telemetry.NewStore(), events.New(nil))

	if err := i.SetMode(ModeGo); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if i.Mode() != ModeGo {
		t.Fatalf("expected mode GO, got %v", i.Mode())
	}
	if len(driver.powerCalls) != 1 || !driver.powerCalls[0] {
		t.Fatalf("expected a single SetPowerStage(true) call, got %v", driver.powerCalls)
	}
	if isr.drains != 1 {
		t.Fatalf("expected the ISR drained once, got %d", isr.drains)
	}
}

func TestSetMode_GoToStopRampsDownPowerStage(t *testing.T) {
	driver := &fakeDriver{}
	isr := &fakeISR{}
	i := New(nil, driver, isr, noSleepClock{}, telemetry.NewStore(), events.New(nil))
	if err := i.SetMode(ModeGo); err != nil {
		t.Fatal(err)
	}

	if err := i.SetMode(ModeStop); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if len(driver.powerCalls) != 2 || driver.powerCalls[1] {
		t.Fatalf("expected a SetPowerStage(false) call on the way down, got %v", driver.powerCalls)
	}
}

func TestSetMode_SameModeIsANoOp(t *testing.T) {
	driver := &fakeDriver{}
	isr := &fakeISR{}
	i := New(nil, driver, isr, noSleepClock{}, telemetry.NewStore(), events.New(nil))

	if err := i.SetMode(ModeStop); err != nil {
		t.Fatal(err)
	}
	if isr.drains != 0 {
		t.Fatalf("expected no drain when the target mode equals the current mode, got %d", isr.drains)
	}
}

func TestSetMode_HaltToTestDriveStaysPoweredNoRamp(t *testing.T) {
	driver := &fakeDriver{}
	isr := &fakeISR{}
	i := New(nil, driver, isr, noSleepClock{}, telemetry.NewStore(), events.New(nil))
	if err := i.SetMode(ModeHalt); err != nil {
		t.Fatal(err)
	}
	driver.powerCalls = nil

	if err := i.SetMode(ModeTestDrive); err != nil {
		t.Fatal(err)
	}
	if len(driver.powerCalls) != 0 {
		t.Fatalf("expected no power-stage calls between two powered modes, got %v", driver.powerCalls)
	}
}

func TestCheckFault_ShortCurrentForcesModeShort(t *testing.T) {
	driver := &fakeDriver{}
	isr := &fakeISR{}
	tele := telemetry.NewStore()
	i := New(nil, driver, isr, noSleepClock{}, tele, events.New(nil))
	if err := i.SetMode(ModeGo); err != nil {
		t.Fatal(err)
	}

	tele.Update(telemetry.Snapshot{TrackCurrentMA: 5000})
	if err := i.CheckFault(3000, 800); err != nil {
		t.Fatalf("CheckFault: %v", err)
	}
	if i.Mode() != ModeShort {
		t.Fatalf("expected mode SHORT after an overcurrent snapshot, got %v", i.Mode())
	}
}
