// Package packetbuilder is C4: turns a logical command (set speed,
// toggle function, throw turnout, ...) aimed at a live loco or accessory
// into a format-tagged Packet descriptor, and separately (encode.go)
// dispatches an already-built Packet to the right per-format encoder in
// internal/bitbuffer/{mmenc,dccenc,m3enc} (spec.md 4.4).
package packetbuilder

import (
	"fmt"

	"github.com/railcore/mc2core/internal/model"
)

// BuildSpeed builds the generic OpSetSpeed packet for a live loco; the
// repeat count and any format-specific step-folding (MM half-steps,
// DCC 14-step F0 folding) are resolved at encode time since they depend
// on fmtconfig, not on the logical intent (spec.md 4.4).
func BuildSpeed(live *model.LiveLoco, repeat int) *model.Packet {
	return &model.Packet{
		Opcode:  model.OpSetSpeed,
		Format:  live.Def.Format,
		Addr:    live.Def.Addr,
		Step:    live.Speed.Step(),
		Forward: live.EffectiveDirection(),
		FuncBits: live.Funcs,
		Repeat:  repeat,
	}
}

// BuildFunction builds the generic OpSetFunction packet.
func BuildFunction(live *model.LiveLoco, fn int, on bool, repeat int) *model.Packet {
	funcs := live.Funcs
	funcs.Set(fn, on)
	return &model.Packet{
		Opcode:   model.OpSetFunction,
		Format:   live.Def.Format,
		Addr:     live.Def.Addr,
		Value:    uint16(fn),
		FuncBits: funcs,
		Repeat:   repeat,
	}
}

// BuildEmergencyStopAll builds the broadcast e-stop packet (format-
// independent; the encoder dispatcher emits one per active track
// format).
func BuildEmergencyStopAll() *model.Packet {
	return &model.Packet{Opcode: model.OpEmergencyStopAll, Repeat: 1}
}

// BuildAccessory builds a basic accessory (turnout) packet.
func BuildAccessory(addr uint16, format model.Format, direction, activate bool, repeat int) *model.Packet {
	aspect := uint8(0)
	if direction {
		aspect |= 0x01
	}
	if activate {
		aspect |= 0x02
	}
	return &model.Packet{Opcode: model.OpAccessory, Format: format, Addr: addr, Aspect: aspect, Repeat: repeat}
}

// BuildExtAccessory builds an extended (signal) accessory packet.
func BuildExtAccessory(addr uint16, aspect uint8, repeat int) *model.Packet {
	return &model.Packet{Opcode: model.OpExtAccessory, Format: model.FormatDCC28, Addr: addr, Aspect: aspect, Repeat: repeat}
}

// BuildPomReadByte/BuildPomWriteByte build DCC programming-on-main
// packets targeting a live loco's current address.
func BuildPomReadByte(addr uint16, cv uint16, cb model.ReplyCallback, ctx any, repeat int) *model.Packet {
	return &model.Packet{Opcode: model.OpPomReadByte, Format: model.FormatDCC126, Addr: addr, CV: cv, Repeat: repeat, Callback: cb, CbCtx: ctx}
}

func BuildPomWriteByte(addr uint16, cv uint16, value byte, cb model.ReplyCallback, ctx any, repeat int) *model.Packet {
	return &model.Packet{Opcode: model.OpPomWriteByte, Format: model.FormatDCC126, Addr: addr, CV: cv, Value: uint16(value), Repeat: repeat, Callback: cb, CbCtx: ctx}
}

// BuildProgDirectWriteByte/BuildProgDirectVerifyByte build programming-
// track (service-mode) packets; these carry no address (spec.md 4.4).
func BuildProgDirectWriteByte(cv uint16, value byte, repeat int) *model.Packet {
	return &model.Packet{Opcode: model.OpProgDirectWriteByte, CV: cv, Value: uint16(value), Repeat: repeat}
}

func BuildProgDirectVerifyByte(cv uint16, value byte, repeat int) *model.Packet {
	return &model.Packet{Opcode: model.OpProgDirectVerifyByte, CV: cv, Value: uint16(value), Repeat: repeat}
}

func BuildProgDirectWriteBit(cv uint16, bitPos uint8, bitVal bool, repeat int) *model.Packet {
	p := &model.Packet{Opcode: model.OpProgDirectWriteBit, CV: cv, Value: uint16(bitPos), Repeat: repeat}
	if bitVal {
		p.Aspect = 1
	}
	return p
}

func BuildProgDirectVerifyBit(cv uint16, bitPos uint8, bitVal bool, repeat int) *model.Packet {
	p := &model.Packet{Opcode: model.OpProgDirectVerifyBit, CV: cv, Value: uint16(bitPos), Repeat: repeat}
	if bitVal {
		p.Aspect = 1
	}
	return p
}

// ErrUnsupported is returned when an opcode/format pair has no encoder
// (e.g. M3 CV write on an MM loco). Packet builders that cannot produce
// a packet return this rather than panicking, per spec.md 7: "packet
// builders that cannot allocate return a negative code to their caller,
// never panicking the ISR path."
var ErrUnsupported = fmt.Errorf("packetbuilder: opcode unsupported for format")
