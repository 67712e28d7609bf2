package model

import "time"

// TurnoutFormat selects the wire protocol a turnout/accessory decoder is
// addressed with.
type TurnoutFormat int

const (
	TurnoutMM TurnoutFormat = iota
	TurnoutDCC
	TurnoutBiDiB
)

// Turnout is a stationary accessory decoder controlling a switch or
// signal (spec.md 3).
type Turnout struct {
	Addr   uint16
	Format TurnoutFormat

	// BiDiB-only fields.
	NodeUID [7]byte
	Aspect  uint8

	// Runtime state.
	Direction      bool // false = straight/red, true = thrown/green, by convention
	Energized      bool
	EnergizeStart  time.Time
}

// ExtAccessory is an extended accessory decoder (DCC only, spec.md 3).
type ExtAccessory struct {
	Addr   uint16
	Format TurnoutFormat // always TurnoutDCC in practice, kept for symmetry
}
