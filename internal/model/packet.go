package model

// Packet is the queued-command descriptor: the output of C3/input of C4
// (spec.md 3). Target fields form a tagged union keyed by Opcode; unused
// fields are left at their zero value rather than modelled as a Go union,
// matching the closed-enum/switch style the packet builder already uses.
type Packet struct {
	Opcode Opcode
	Format Format

	Addr    uint16 // loco, turnout or accessory address
	CV      uint16 // CV number, 0-based on the wire (CVNum-1)
	Value   uint16
	Aspect  uint8 // accessory aspect / direction
	Step    uint8
	Forward bool

	FuncBits FuncBits // snapshot of function state at enqueue time

	// VID/UID select a DCC-A candidate instead of an address.
	VID uint8
	UID uint32

	Repeat int

	Callback ReplyCallback
	CbCtx    any
}

// Equivalent reports whether two packets target the same logical update
// for coalescing purposes (spec.md 4.3): same opcode, same address, and
// neither is a bit-write (bit-writes are never coalesced).
func (p *Packet) Equivalent(o *Packet) bool {
	if p.Opcode.IsBitWrite() || o.Opcode.IsBitWrite() {
		return false
	}
	return p.Opcode == o.Opcode && p.Addr == o.Addr
}
