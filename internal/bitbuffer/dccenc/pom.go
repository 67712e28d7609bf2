package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// CV access instruction "CC" operation codes (NMRA S-9.2.3 / the
// teacher's own z21_proto.go 0xE4/0xEC opcodes, reused here for the raw
// wire instruction instead of the Z21 LAN wrapper).
const (
	ccVerifyByte = 0x01
	ccWriteByte  = 0x03
	ccBitManip   = 0x02
)

// wireCV translates a 1-based CV number to its 10-bit wire value
// (cv-1), matching the teacher's CV.Translate (pkgs/commandstation/
// interface.go).
func wireCV(cvNum uint16) uint16 { return cvNum - 1 }

// EncodePomReadByte builds a "programming on main" CV read instruction
// (ops-mode CV access, opcode prefix 1110), addressed to a live loco.
func EncodePomReadByte(cfg bitbuffer.FmtConfig, addr uint16, cvNum uint16, repeat int) *bitbuffer.Buffer {
	data := pomInstruction(addr, cvNum, ccVerifyByte, 0)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
	buf.RB = bitbuffer.Readback{DecoderType: 1, Addr: addr, CV: cvNum, Type: bitbuffer.ReadbackPOM}
	return buf
}

// EncodePomWriteByte builds a POM CV write instruction.
func EncodePomWriteByte(cfg bitbuffer.FmtConfig, addr uint16, cvNum uint16, value byte, repeat int) *bitbuffer.Buffer {
	data := pomInstruction(addr, cvNum, ccWriteByte, value)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, true)
	buf.RB = bitbuffer.Readback{DecoderType: 1, Addr: addr, CV: cvNum, Param: uint32(value), Type: bitbuffer.ReadbackPOMWriteVerify}
	buf.DCC.ExpectedValue = value
	return buf
}

func pomInstruction(addr uint16, cvNum uint16, cc byte, value byte) []byte {
	data := AddressBytes(addr, false)
	cv := wireCV(cvNum)
	b1 := byte(0xE0) | (cc << 2) | byte((cv>>8)&0x03)
	b2 := byte(cv & 0xFF)
	return append(data, b1, b2, value)
}

// EncodeProgDirectWriteByte builds a service-mode (programming track)
// direct CV write instruction: address-less, prefix 0111 (spec.md 4.4/8
// scenario 6).
func EncodeProgDirectWriteByte(cfg bitbuffer.FmtConfig, cvNum uint16, value byte, repeat int) *bitbuffer.Buffer {
	data := directInstruction(cvNum, ccWriteByte, value)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, false)
	buf.RB = bitbuffer.Readback{CV: cvNum, Param: uint32(value), Type: bitbuffer.ReadbackProgAck}
	buf.DCC.ExpectedValue = value
	return buf
}

// EncodeProgDirectVerifyByte builds a service-mode direct CV verify-byte
// instruction (compares against expected, decoder ACKs by current pulse).
func EncodeProgDirectVerifyByte(cfg bitbuffer.FmtConfig, cvNum uint16, value byte, repeat int) *bitbuffer.Buffer {
	data := directInstruction(cvNum, ccVerifyByte, value)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, false)
	buf.RB = bitbuffer.Readback{CV: cvNum, Param: uint32(value), Type: bitbuffer.ReadbackProgAck}
	return buf
}

// EncodeProgDirectWriteBit builds a service-mode direct CV bit-write
// instruction: 111KDBBB where K=write(1)/verify(0), D=bit value, BBB=bit
// position.
func EncodeProgDirectWriteBit(cfg bitbuffer.FmtConfig, cvNum uint16, bitPos uint8, bitVal bool, repeat int) *bitbuffer.Buffer {
	data := directBitInstruction(cvNum, true, bitPos, bitVal)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, false)
	buf.RB = bitbuffer.Readback{CV: cvNum, Param: uint32(bitPos), Type: bitbuffer.ReadbackProgAck}
	return buf
}

// EncodeProgDirectVerifyBit builds a service-mode direct CV bit-verify
// instruction.
func EncodeProgDirectVerifyBit(cfg bitbuffer.FmtConfig, cvNum uint16, bitPos uint8, bitVal bool, repeat int) *bitbuffer.Buffer {
	data := directBitInstruction(cvNum, false, bitPos, bitVal)
	buf := BuildFrame(cfg, bitbuffer.TagDCC, data, repeat, false)
	buf.RB = bitbuffer.Readback{CV: cvNum, Param: uint32(bitPos), Type: bitbuffer.ReadbackProgAck}
	return buf
}

func directInstruction(cvNum uint16, cc byte, value byte) []byte {
	cv := wireCV(cvNum)
	b1 := byte(0x70) | (cc << 2) | byte((cv>>8)&0x03)
	b2 := byte(cv & 0xFF)
	return []byte{b1, b2, value}
}

func directBitInstruction(cvNum uint16, write bool, bitPos uint8, bitVal bool) []byte {
	cv := wireCV(cvNum)
	b1 := byte(0x78) | byte((cv>>8)&0x03)
	b2 := byte(cv & 0xFF)
	b3 := byte(0xE0) | boolBit(write, 0x10) | boolBit(bitVal, 0x08) | (bitPos & 0x07)
	return []byte{b1, b2, b3}
}
