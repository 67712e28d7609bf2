package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// humanToDecoderPair converts a 1-based "human" accessory/turnout address
// (spec.md 3: 1..2047) into the NMRA 9-bit decoder address (0-based) and
// 2-bit output-pair select, so that addr = decoder*4+pair+1 (RCN-213's
// convention).
func humanToDecoderPair(addr uint16) (decoder uint16, pair byte) {
	zero := addr - 1
	return zero >> 2, byte(zero & 0x3)
}

// EncodeBasicAccessory builds a basic accessory decoder packet (turnout):
// byte1 10AAAAAA, byte2 1AAACDDD (A8..A6 one's-complemented, C=activate,
// DD=output pair, D=direction), matching the widely deployed NMRA RP-9.2.1
// layout.
func EncodeBasicAccessory(cfg bitbuffer.FmtConfig, addr uint16, direction, activate bool, repeat int) *bitbuffer.Buffer {
	decoder, pair := humanToDecoderPair(addr)
	b1 := byte(0x80) | byte(decoder&0x3F)
	hi := byte(^(decoder >> 6) & 0x07)
	b2 := byte(0x80) | (hi << 4) | boolBit(activate, 0x08) | (pair << 1) | boolBit(direction, 0x01)
	data := []byte{b1, b2}
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
	buf.RB = bitbuffer.Readback{DecoderType: 2, Addr: addr, Type: bitbuffer.ReadbackAccessorySRQ}
	return buf
}

// EncodeExtendedAccessory builds an extended (signal) accessory packet:
// byte1 10AAAAAA, byte2 0AAA0AA1, byte3 aspect (RCN-213).
func EncodeExtendedAccessory(cfg bitbuffer.FmtConfig, addr uint16, aspect byte, repeat int) *bitbuffer.Buffer {
	decoder, pair := humanToDecoderPair(addr)
	b1 := byte(0x80) | byte(decoder&0x3F)
	hi := byte(^(decoder >> 6) & 0x07)
	b2 := byte(0x01) | (hi << 4) | (pair << 1)
	data := []byte{b1, b2, aspect}
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
	buf.RB = bitbuffer.Readback{DecoderType: 2, Addr: addr, Type: bitbuffer.ReadbackAccessorySRQ}
	return buf
}

func boolBit(v bool, mask byte) byte {
	if v {
		return mask
	}
	return 0
}
