package core

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/railcore/mc2core/internal/events"
	"github.com/railcore/mc2core/internal/model"
)

type fakeDriver struct{}

func (fakeDriver) SetTrackLevel(bool) error           { return nil }
func (fakeDriver) SetRailComUART(bool) error           { return nil }
func (fakeDriver) SampleM3Pulse() (bool, error)        { return false, nil }
func (fakeDriver) ReadRailComByte() (byte, bool, error) { return 0, false, nil }
func (fakeDriver) SetPowerStage(bool) error            { return nil }
func (fakeDriver) TrackCurrentMA() int32               { return 0 }
func (fakeDriver) TrackVoltageMV() int32               { return 0 }

type noSleepClock struct{}

func (noSleepClock) Sleep(time.Duration) {}

func newTestCore(t *testing.T) *Core {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loco.ini")
	return New(nil, fakeDriver{}, noSleepClock{}, path, model.FormatDCC28, time.Minute)
}

func TestSetSpeed_UnknownAddrReturnsErrNoDecoder(t *testing.T) {
	c := newTestCore(t)
	if err := c.SetSpeed(99, 50, true); err == nil {
		t.Fatal("expected ErrNoDecoder for an unregistered address")
	}
}

func TestSetSpeed_KnownAddrUpdatesLiveStateAndPublishes(t *testing.T) {
	c := newTestCore(t)
	c.DB().GetOrCreate(3)

	var published []uint16
	c.Events().Subscribe(events.LocoSpeed, func(ev events.Event) {
		published = append(published, ev.Payload.(uint16))
	})

	if err := c.SetSpeed(3, 70, false); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	step, forward, ok := c.LiveSpeed(3)
	if !ok {
		t.Fatal("expected live speed state after SetSpeed")
	}
	if step != 70 || forward {
		t.Fatalf("expected step=70 forward=false, got step=%d forward=%v", step, forward)
	}
	if len(published) != 1 || published[0] != 3 {
		t.Fatalf("expected a single LocoSpeed event for addr 3, got %v", published)
	}
	if c.queue.Len() != 1 {
		t.Fatalf("expected 1 packet enqueued, got %d", c.queue.Len())
	}
}

func TestToggleFunction_UnknownAddrReturnsErrNoDecoder(t *testing.T) {
	c := newTestCore(t)
	if err := c.ToggleFunction(99, 0); err == nil {
		t.Fatal("expected ErrNoDecoder for an unregistered address")
	}
}

func TestToggleFunction_TogglesAndTracksActiveFunctions(t *testing.T) {
	c := newTestCore(t)
	def := c.DB().GetOrCreate(5)
	def.MaxFunc = 4

	if err := c.ToggleFunction(5, 2); err != nil {
		t.Fatalf("ToggleFunction: %v", err)
	}
	active := c.ActiveFunctions(5)
	if len(active) != 1 || active[0] != 2 {
		t.Fatalf("expected [2] active after first toggle, got %v", active)
	}

	if err := c.ToggleFunction(5, 2); err != nil {
		t.Fatalf("ToggleFunction: %v", err)
	}
	active = c.ActiveFunctions(5)
	if len(active) != 0 {
		t.Fatalf("expected no active functions after the second toggle, got %v", active)
	}
}

func TestActiveFunctions_UnknownAddrReturnsNil(t *testing.T) {
	c := newTestCore(t)
	if got := c.ActiveFunctions(123); got != nil {
		t.Fatalf("expected nil for an address with no live state, got %v", got)
	}
}

func TestEmergencyStopAll_EnqueuesAndPublishesSysStatus(t *testing.T) {
	c := newTestCore(t)
	var kinds []events.Kind
	c.Events().Subscribe(events.SysStatus, func(ev events.Event) {
		kinds = append(kinds, ev.Kind)
	})

	c.EmergencyStopAll()

	if c.queue.Len() != 1 {
		t.Fatalf("expected 1 packet enqueued, got %d", c.queue.Len())
	}
	if len(kinds) != 1 {
		t.Fatalf("expected 1 SysStatus event, got %d", len(kinds))
	}
}

func TestThrowTurnout_EnqueuesAndPublishesTurnout(t *testing.T) {
	c := newTestCore(t)
	var addrs []uint16
	c.Events().Subscribe(events.Turnout, func(ev events.Event) {
		addrs = append(addrs, ev.Payload.(uint16))
	})

	c.ThrowTurnout(12, model.FormatDCC28, true, true)

	if c.queue.Len() != 1 {
		t.Fatalf("expected 1 packet enqueued, got %d", c.queue.Len())
	}
	if len(addrs) != 1 || addrs[0] != 12 {
		t.Fatalf("expected a single Turnout event for addr 12, got %v", addrs)
	}
}

func TestProgramTask_ExposesTheProgrammingTrackTask(t *testing.T) {
	c := newTestCore(t)
	if c.ProgramTask() == nil {
		t.Fatal("expected a non-nil programming-track task")
	}
}

func TestPomWriteByte_Enqueues(t *testing.T) {
	c := newTestCore(t)
	c.PomWriteByte(3, 29, 6, 3)
	if c.queue.Len() != 1 {
		t.Fatalf("expected 1 packet enqueued, got %d", c.queue.Len())
	}
}

func TestPomReadByte_TimesOutWithoutAReply(t *testing.T) {
	c := newTestCore(t)
	_, err := c.PomReadByte(3, 29, 3, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected ErrTimeout when nothing services the queued POM read")
	}
}

// TestCouple_LinksMembersAndTouchesRefresh exercises spec.md 8 scenario #5
// ("Consist couple (5, -7)") end to end through the Core, the control
// path the DB-level consist methods previously had no caller for.
func TestCouple_LinksMembersAndTouchesRefresh(t *testing.T) {
	c := newTestCore(t)
	c.DB().GetOrCreate(5)
	c.DB().GetOrCreate(7)

	if err := c.Couple(5, -7); err != nil {
		t.Fatalf("Couple: %v", err)
	}

	consist, ok := c.DB().GetConsist(5)
	if !ok {
		t.Fatal("expected a consist led by 5")
	}
	if len(consist.Members) != 2 || consist.Members[0].Addr() != 5 || consist.Members[1].Addr() != 7 {
		t.Fatalf("unexpected consist members: %v", consist.Members)
	}
	if !consist.Members[1].Reversed() {
		t.Fatal("expected member 7 to be marked reversed")
	}
	if _, ok := c.refresh.Age(5); !ok {
		t.Fatal("expected Couple to touch the lead address into the refresh list")
	}
}

func TestCouple_MM1MemberRejected(t *testing.T) {
	c := newTestCore(t)
	def := c.DB().GetOrCreate(5)
	def.Format = model.FormatMM1_14
	c.DB().GetOrCreate(7)

	if err := c.Couple(5, 7); err == nil {
		t.Fatal("expected an error coupling an MM1 loco into a consist")
	}
}

func TestUncouple_DissolvesBelowTwoMembers(t *testing.T) {
	c := newTestCore(t)
	c.DB().GetOrCreate(5)
	c.DB().GetOrCreate(7)
	if err := c.Couple(5, 7); err != nil {
		t.Fatalf("Couple: %v", err)
	}

	if err := c.Uncouple(5, 7); err != nil {
		t.Fatalf("Uncouple: %v", err)
	}
	if _, ok := c.DB().GetConsist(5); ok {
		t.Fatal("expected the consist to be dissolved once fewer than 2 members remain")
	}
}

func TestDissolve_RemovesConsistRegardlessOfMemberCount(t *testing.T) {
	c := newTestCore(t)
	c.DB().GetOrCreate(5)
	c.DB().GetOrCreate(7)
	if err := c.Couple(5, 7); err != nil {
		t.Fatalf("Couple: %v", err)
	}

	c.Dissolve(5)
	if _, ok := c.DB().GetConsist(5); ok {
		t.Fatal("expected Dissolve to remove the consist")
	}
}
