package trackio

import (
	"sync/atomic"
	"time"
)

// SimDriver is an in-memory Driver for tests and for the CLI's offline
// simulation mode, recording every level transition instead of wiggling
// a real pin.
type SimDriver struct {
	Levels       []bool
	RailComOn    bool
	PowerOn      bool
	NextRailCom  []byte
	NextM3Pulses []bool

	current int32
	voltage int32
}

func NewSimDriver() *SimDriver {
	return &SimDriver{voltage: 18000}
}

func (s *SimDriver) SetTrackLevel(high bool) error {
	s.Levels = append(s.Levels, high)
	return nil
}

func (s *SimDriver) SetRailComUART(enabled bool) error {
	s.RailComOn = enabled
	return nil
}

func (s *SimDriver) SampleM3Pulse() (bool, error) {
	if len(s.NextM3Pulses) == 0 {
		return false, nil
	}
	v := s.NextM3Pulses[0]
	s.NextM3Pulses = s.NextM3Pulses[1:]
	return v, nil
}

func (s *SimDriver) ReadRailComByte() (byte, bool, error) {
	if len(s.NextRailCom) == 0 {
		return 0, false, nil
	}
	b := s.NextRailCom[0]
	s.NextRailCom = s.NextRailCom[1:]
	return b, true, nil
}

func (s *SimDriver) SetPowerStage(on bool) error {
	s.PowerOn = on
	return nil
}

func (s *SimDriver) TrackCurrentMA() int32 { return atomic.LoadInt32(&s.current) }
func (s *SimDriver) TrackVoltageMV() int32 { return atomic.LoadInt32(&s.voltage) }

// SetTelemetry lets tests inject a current/voltage reading.
func (s *SimDriver) SetTelemetry(currentMA, voltageMV int32) {
	atomic.StoreInt32(&s.current, currentMA)
	atomic.StoreInt32(&s.voltage, voltageMV)
}

// SimClock is a Clock that records sleeps instead of blocking, for
// deterministic tests of the signal generator's timing sequence.
type SimClock struct {
	Slept []time.Duration
}

func (c *SimClock) Sleep(d time.Duration) {
	c.Slept = append(c.Slept, d)
}
