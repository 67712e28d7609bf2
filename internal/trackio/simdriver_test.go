package trackio

import (
	"testing"
	"time"
)

func TestSimDriver_RecordsTrackLevelAndRailComTransitions(t *testing.T) {
	d := NewSimDriver()
	d.SetTrackLevel(true)
	d.SetTrackLevel(false)
	if len(d.Levels) != 2 || d.Levels[0] != true || d.Levels[1] != false {
		t.Fatalf("expected recorded levels [true false], got %v", d.Levels)
	}

	d.SetRailComUART(true)
	if !d.RailComOn {
		t.Fatal("expected RailComOn to be true after SetRailComUART(true)")
	}
}

func TestSimDriver_DrainsQueuedRailComBytesInOrder(t *testing.T) {
	d := NewSimDriver()
	d.NextRailCom = []byte{0x0F, 0x17}

	b, ok, err := d.ReadRailComByte()
	if err != nil || !ok || b != 0x0F {
		t.Fatalf("expected (0x0F, true, nil), got (0x%02X, %v, %v)", b, ok, err)
	}
	b, ok, err = d.ReadRailComByte()
	if err != nil || !ok || b != 0x17 {
		t.Fatalf("expected (0x17, true, nil), got (0x%02X, %v, %v)", b, ok, err)
	}
	_, ok, _ = d.ReadRailComByte()
	if ok {
		t.Fatal("expected no more bytes once the queue is drained")
	}
}

func TestSimDriver_DrainsQueuedM3Pulses(t *testing.T) {
	d := NewSimDriver()
	d.NextM3Pulses = []bool{true, false}

	v, _ := d.SampleM3Pulse()
	if !v {
		t.Fatal("expected first queued pulse true")
	}
	v, _ = d.SampleM3Pulse()
	if v {
		t.Fatal("expected second queued pulse false")
	}
	v, _ = d.SampleM3Pulse()
	if v {
		t.Fatal("expected absent pulse once the queue is drained")
	}
}

func TestSimDriver_SetTelemetryIsLockFreeReadable(t *testing.T) {
	d := NewSimDriver()
	d.SetTelemetry(1500, 18500)
	if d.TrackCurrentMA() != 1500 || d.TrackVoltageMV() != 18500 {
		t.Fatalf("expected (1500, 18500), got (%d, %d)", d.TrackCurrentMA(), d.TrackVoltageMV())
	}
}

func TestSimDriver_PowerStageToggles(t *testing.T) {
	d := NewSimDriver()
	d.SetPowerStage(true)
	if !d.PowerOn {
		t.Fatal("expected PowerOn true")
	}
	d.SetPowerStage(false)
	if d.PowerOn {
		t.Fatal("expected PowerOn false")
	}
}

func TestSimClock_RecordsEverySleepDuration(t *testing.T) {
	c := &SimClock{}
	c.Sleep(10 * time.Millisecond)
	c.Sleep(20 * time.Millisecond)
	if len(c.Slept) != 2 || c.Slept[0] != 10*time.Millisecond || c.Slept[1] != 20*time.Millisecond {
		t.Fatalf("expected recorded sleeps, got %v", c.Slept)
	}
}
