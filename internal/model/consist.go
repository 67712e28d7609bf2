package model

import "fmt"

// ConsistMember is a signed address: negative means the loco runs reversed
// relative to the consist's lead orientation (spec.md 3).
type ConsistMember int32

func (m ConsistMember) Addr() uint16   { return uint16(abs32(int32(m))) }
func (m ConsistMember) Reversed() bool { return m < 0 }

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Consist is a set of 2..MaxConsistLength loco addresses.
type Consist struct {
	Members    []ConsistMember
	SpeedSteps uint8
}

// Validate enforces spec.md 3/8: 2..MAX_CONSISTLENGTH members, unique by
// absolute address, shared speed-step count, no MM1 member (the caller
// supplies each member's format via formatOf since Consist itself doesn't
// own LocoDefs).
func (c *Consist) Validate(formatOf func(addr uint16) (Format, bool)) error {
	if len(c.Members) < 2 || len(c.Members) > MaxConsistLength {
		return fmt.Errorf("%w: consist length %d out of [2,%d]", ErrInternal, len(c.Members), MaxConsistLength)
	}
	stepCount := map[Format]int{FormatMM2_14: 14, FormatMM2_27A: 27, FormatMM2_27B: 27, FormatDCC14: 14, FormatDCC28: 28, FormatDCC126: 126, FormatDCCSDF: 126, FormatM3_126: 126}
	steps := 0
	seen := make(map[uint16]struct{}, len(c.Members))
	for _, m := range c.Members {
		a := m.Addr()
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate member address %d", ErrInternal, a)
		}
		seen[a] = struct{}{}
		if formatOf != nil {
			if f, ok := formatOf(a); ok {
				if f == FormatMM1_14 {
					return fmt.Errorf("%w: MM1 loco %d cannot join a consist", ErrInternal, a)
				}
				if s := stepCount[f]; s != 0 && steps != 0 && s != steps {
					return fmt.Errorf("%w: loco %d has %d speed steps, consist has %d", ErrInternal, a, s, steps)
				} else if s != 0 {
					steps = s
				}
			}
		}
	}
	return nil
}

// IndexOf returns the member index for addr, or -1.
func (c *Consist) IndexOf(addr uint16) int {
	for i, m := range c.Members {
		if m.Addr() == addr {
			return i
		}
	}
	return -1
}

// Next returns the member that follows idx, ring-wrapping to 0.
func (c *Consist) Next(idx int) (ConsistMember, int) {
	n := (idx + 1) % len(c.Members)
	return c.Members[n], n
}
