package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// xpomSubTag maps an XPOM sub-command (0..3) to its buffer Tag, so the
// reply router (C9) knows which of the four possible XPOM answers a
// pending buffer expects without re-parsing the instruction bytes.
func xpomSubTag(sub byte) bitbuffer.Tag {
	switch sub & 0x03 {
	case 0:
		return bitbuffer.TagDCCXPOM00
	case 1:
		return bitbuffer.TagDCCXPOM01
	case 2:
		return bitbuffer.TagDCCXPOM10
	default:
		return bitbuffer.TagDCCXPOM11
	}
}

// EncodeXPomRead builds an Extended POM read instruction (RCN-214):
// 1110_01SS CVh CVm CVl, where SS selects which of four 4-byte slots the
// decoder answers with over RailCom channel 2. sub is 0..3.
func EncodeXPomRead(cfg bitbuffer.FmtConfig, addr uint16, cv24 uint32, sub byte, repeat int) *bitbuffer.Buffer {
	data := AddressBytes(addr, false)
	b1 := byte(0xE4) | (sub & 0x03)
	b2 := byte(cv24 >> 16)
	b3 := byte(cv24 >> 8)
	b4 := byte(cv24)
	data = append(data, b1, b2, b3, b4)
	buf := BuildFrame(cfg, xpomSubTag(sub), data, repeat, true)
	buf.RB = bitbuffer.Readback{DecoderType: 1, Addr: addr, Type: bitbuffer.ReadbackXPOM, Param: uint32(sub)}
	return buf
}
