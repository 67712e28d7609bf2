package progtrack

import (
	"testing"
	"time"

	"github.com/railcore/mc2core/internal/cmdqueue"
	"github.com/railcore/mc2core/internal/events"
	"github.com/railcore/mc2core/internal/telemetry"
	"github.com/railcore/mc2core/internal/trackmode"
)

type fakeDriver struct{}

func (fakeDriver) SetTrackLevel(high bool) error             { return nil }
func (fakeDriver) SetRailComUART(enabled bool) error          { return nil }
func (fakeDriver) SampleM3Pulse() (bool, error)                { return false, nil }
func (fakeDriver) ReadRailComByte() (byte, bool, error)        { return 0, false, nil }
func (fakeDriver) SetPowerStage(on bool) error                 { return nil }
func (fakeDriver) TrackCurrentMA() int32                       { return 0 }
func (fakeDriver) TrackVoltageMV() int32                       { return 0 }

type fakeISR struct{}

func (fakeISR) Drain() {}

type noSleepClock struct{}

func (noSleepClock) Sleep(time.Duration) {}

func newTestTask(tele *telemetry.Store) *Task {
	mode := trackmode.New(nil, fakeDriver{}, fakeISR{}, noSleepClock{}, tele, events.New(nil))
	queue := cmdqueue.New(nil, nil)
	return New(mode, queue, fakeDriver{}, tele, noSleepClock{})
}

func TestWriteByte_NoCurrentPulseReturnsErrAfterRetries(t *testing.T) {
	tele := telemetry.NewStore()
	tele.Update(telemetry.Snapshot{ProgCurrentMA: 100})
	task := newTestTask(tele)

	_, err := task.WriteByte(29, 3, 10)
	if err == nil {
		t.Fatal("expected an error when no ACK current pulse is ever observed")
	}
}

func TestReadByte_AllBitsUnackedResolvesToZero(t *testing.T) {
	tele := telemetry.NewStore()
	tele.Update(telemetry.Snapshot{ProgCurrentMA: 100})
	task := newTestTask(tele)

	res, err := task.ReadByte(29, 6)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if res.Value != 0 {
		t.Fatalf("expected value 0 when no bit is ever ACKed, got %d", res.Value)
	}
}

func TestResult_ZeroValueNotAcked(t *testing.T) {
	var r Result
	if r.Acked {
		t.Fatal("expected the zero-value Result to report Acked=false")
	}
}
