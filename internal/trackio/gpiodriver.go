package trackio

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// GPIODriver drives the track output directly via host GPIO pins, the
// way the reference pwm/ws2812b bit-bang tools in the example pack
// toggle a gpio.PinIO with p.Out(gpio.High/Low) after host.Init()
// (tve-devices cmd/pwm-bb, google-periph experimental/cmd).
type GPIODriver struct {
	track    gpio.PinIO
	railcom  gpio.PinIO
	power    gpio.PinIO
	uart     RailComUART
	currentMA int32
	voltageMV int32
}

// NewGPIODriver initializes the host GPIO subsystem and binds the named
// pins used for the track signal, RailCom UART enable, and power stage
// relay.
func NewGPIODriver(trackPin, railcomEnablePin, powerPin string, uart RailComUART) (*GPIODriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("trackio: gpio host init: %w", err)
	}
	track := gpioreg.ByName(trackPin)
	if track == nil {
		return nil, fmt.Errorf("trackio: unknown track pin %q", trackPin)
	}
	rc := gpioreg.ByName(railcomEnablePin)
	if rc == nil {
		return nil, fmt.Errorf("trackio: unknown railcom-enable pin %q", railcomEnablePin)
	}
	pw := gpioreg.ByName(powerPin)
	if pw == nil {
		return nil, fmt.Errorf("trackio: unknown power pin %q", powerPin)
	}
	if err := track.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("trackio: init track pin: %w", err)
	}
	return &GPIODriver{track: track, railcom: rc, power: pw, uart: uart}, nil
}

func (d *GPIODriver) SetTrackLevel(high bool) error {
	if high {
		return d.track.Out(gpio.High)
	}
	return d.track.Out(gpio.Low)
}

func (d *GPIODriver) SetRailComUART(enabled bool) error {
	level := gpio.Low
	if enabled {
		level = gpio.High
	}
	if err := d.railcom.Out(level); err != nil {
		return err
	}
	if d.uart != nil {
		return d.uart.SetEnabled(enabled)
	}
	return nil
}

func (d *GPIODriver) SampleM3Pulse() (bool, error) {
	return d.track.Read() == gpio.High, nil
}

func (d *GPIODriver) ReadRailComByte() (byte, bool, error) {
	if d.uart == nil {
		return 0, false, nil
	}
	return d.uart.ReadByte()
}

func (d *GPIODriver) SetPowerStage(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return d.power.Out(level)
}

func (d *GPIODriver) TrackCurrentMA() int32 { return d.currentMA }
func (d *GPIODriver) TrackVoltageMV() int32 { return d.voltageMV }
