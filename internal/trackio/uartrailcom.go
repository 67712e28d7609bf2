package trackio

import (
	"fmt"

	serial "github.com/daedaluz/goserial"
)

// RailComUART is the narrow interface C7 needs from the back-channel
// receive UART; GPIODriver delegates to it so the RailCom wiring can be
// swapped independently of the track-output GPIO pin.
type RailComUART interface {
	SetEnabled(enabled bool) error
	ReadByte() (b byte, ok bool, err error)
}

// SerialRailComUART drives the RailCom receive UART over a termios
// serial port at the 250 kBaud 8-N-1 framing spec.md 4.7 requires,
// grounded on the teacher's own serial dependency (daedaluz/goserial)
// used the way its Termios2.SetCustomSpeed/MakeRaw helpers are designed
// to be: open once, configure raw mode and a custom baud rate, then
// poll for bytes only while the cutout window is open.
type SerialRailComUART struct {
	port    *serial.Port
	enabled bool
}

// OpenSerialRailComUART opens devicePath (e.g. "/dev/ttyRailCom0") and
// configures it for 250000 8-N-1 raw reception.
func OpenSerialRailComUART(devicePath string) (*SerialRailComUART, error) {
	port, err := serial.Open(devicePath, serial.NewOptions().SetReadTimeout(0))
	if err != nil {
		return nil, fmt.Errorf("trackio: open railcom uart: %w", err)
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, fmt.Errorf("trackio: railcom uart raw mode: %w", err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("trackio: railcom uart get attrs: %w", err)
	}
	attrs.SetCustomSpeed(250000)
	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("trackio: railcom uart set speed: %w", err)
	}
	return &SerialRailComUART{port: port}, nil
}

func (u *SerialRailComUART) SetEnabled(enabled bool) error {
	u.enabled = enabled
	return nil
}

func (u *SerialRailComUART) ReadByte() (byte, bool, error) {
	if !u.enabled {
		return 0, false, nil
	}
	var buf [1]byte
	n, err := u.port.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

func (u *SerialRailComUART) Close() error { return u.port.Close() }
