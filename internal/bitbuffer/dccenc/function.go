package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// EncodeFunctionGroup1 builds the Function Group One instruction
// (100 S FFFF): S is F0 (only meaningful for formats that don't fold F0
// into the speed byte), FFFF is F4..F1.
func EncodeFunctionGroup1(cfg bitbuffer.FmtConfig, addr uint16, f0, f1, f2, f3, f4 bool, repeat int) *bitbuffer.Buffer {
	b := byte(0x80)
	if f0 {
		b |= 0x10
	}
	if f4 {
		b |= 0x08
	}
	if f3 {
		b |= 0x04
	}
	if f2 {
		b |= 0x02
	}
	if f1 {
		b |= 0x01
	}
	data := append(AddressBytes(addr, false), b)
	return BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
}

// EncodeFunctionGroup2 builds Function Group Two, F5..F8 (1011 FFFF).
func EncodeFunctionGroup2(cfg bitbuffer.FmtConfig, addr uint16, f5, f6, f7, f8 bool, repeat int) *bitbuffer.Buffer {
	b := byte(0xB0)
	if f8 {
		b |= 0x08
	}
	if f7 {
		b |= 0x04
	}
	if f6 {
		b |= 0x02
	}
	if f5 {
		b |= 0x01
	}
	data := append(AddressBytes(addr, false), b)
	return BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
}

// EncodeFunctionGroup3 builds Function Group Three, F9..F12 (1010 FFFF).
func EncodeFunctionGroup3(cfg bitbuffer.FmtConfig, addr uint16, f9, f10, f11, f12 bool, repeat int) *bitbuffer.Buffer {
	b := byte(0xA0)
	if f12 {
		b |= 0x08
	}
	if f11 {
		b |= 0x04
	}
	if f10 {
		b |= 0x02
	}
	if f9 {
		b |= 0x01
	}
	data := append(AddressBytes(addr, false), b)
	return BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
}

// EncodeFunctionExpansion builds a Feature Expansion instruction for
// F13..F20 (0xDE) or F21..F28 (0xDF), each an 8-bit mask in a single
// follow-up byte, per NMRA S-9.2.1.
func EncodeFunctionExpansion(cfg bitbuffer.FmtConfig, addr uint16, opcode byte, mask byte, repeat int) *bitbuffer.Buffer {
	data := append(AddressBytes(addr, false), opcode, mask)
	return BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
}

const (
	FeatureExpansionF13F20 = 0xDE
	FeatureExpansionF21F28 = 0xDF
	// FeatureExpansionF29F31 is not part of the NMRA-standard expansion
	// set; this implementation reserves 0xD8 for it to reach the
	// DCC MaxFunc ceiling of 31 functions described in spec.md 3 while
	// keeping the wire opcode space distinct from the standard groups.
	FeatureExpansionF29F31 = 0xD8
)
