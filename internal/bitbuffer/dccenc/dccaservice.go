package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// DCC-A (RCN-218) reserved address bytes. The protocol reserves a block
// of the 0xF8..0xFF "broadcast/service" address space outside normal
// loco/accessory addressing for auto-logon traffic; this implementation
// picks 0xFD for the broadcast LOGON_ENABLE group and 0xFE for
// UID-selected LOGON_SELECT/ASSIGN/read-data instructions, which was not
// recoverable byte-exact from the (empty) original source and is
// documented in DESIGN.md as a structural reconstruction rather than a
// verified wire constant.
const (
	logonEnableAddr byte = 0xFD
	logonSelectAddr byte = 0xFE
)

const (
	logonGroupAll  = 0x00
	logonGroupLoco = 0x01
	logonGroupAcc  = 0x02
	logonGroupNow  = 0x03
)

func dccaFrame(cfg bitbuffer.FmtConfig, payload []byte, repeat int) *bitbuffer.Buffer {
	full := append(append([]byte{}, payload...), CRC8DccA(payload))
	buf := &bitbuffer.Buffer{Tag: bitbuffer.TagDCCA}
	buf.AppendBits(true, cfg.DCCPreambleBits)
	for _, b := range full {
		buf.AppendBit(false)
		buf.AppendByteMSBFirst(b)
	}
	buf.AppendBit(true)
	buf.Repeat = repeat
	buf.DCC = bitbuffer.DCCSubState{PreambleBits: cfg.DCCPreambleBits, RailComCutout: true, StartBit: true}
	return buf
}

func uidBytes(vid byte, uid uint32) []byte {
	return []byte{vid, byte(uid >> 24), byte(uid >> 16), byte(uid >> 8), byte(uid)}
}

// EncodeLogonEnable builds a LOGON_ENABLE broadcast for one of the four
// decoder groups (all/loco/accessory/now), carrying the session id (CID)
// and range-restricting group id used to stagger collisions across
// polling rounds (spec.md 4.4's DCC-A logon description).
func EncodeLogonEnable(cfg bitbuffer.FmtConfig, group byte, cid uint16, rangeID byte, repeat int) *bitbuffer.Buffer {
	payload := []byte{logonEnableAddr, group, byte(cid >> 8), byte(cid), rangeID}
	return dccaFrame(cfg, payload, repeat)
}

// EncodeLogonSelectShortInfo builds a LOGON_SELECT carrying the
// GET_SHORT_INFO instruction for a specific 40-bit VID+UID.
func EncodeLogonSelectShortInfo(cfg bitbuffer.FmtConfig, vid byte, uid uint32, repeat int) *bitbuffer.Buffer {
	payload := append([]byte{logonSelectAddr}, uidBytes(vid, uid)...)
	payload = append(payload, 0x00)
	return dccaFrame(cfg, payload, repeat)
}

// EncodeLogonSelectBlock builds a LOGON_SELECT GET_DATA instruction for
// data-space block k (0-based) of the selected decoder's CV/info table.
func EncodeLogonSelectBlock(cfg bitbuffer.FmtConfig, vid byte, uid uint32, block byte, repeat int) *bitbuffer.Buffer {
	payload := append([]byte{logonSelectAddr}, uidBytes(vid, uid)...)
	payload = append(payload, 0x01, block)
	return dccaFrame(cfg, payload, repeat)
}

// EncodeLogonSelectCVBlock builds a LOGON_SELECT instruction requesting a
// block of raw CV values (as opposed to the manufacturer info table).
func EncodeLogonSelectCVBlock(cfg bitbuffer.FmtConfig, vid byte, uid uint32, cvBlock uint16, repeat int) *bitbuffer.Buffer {
	payload := append([]byte{logonSelectAddr}, uidBytes(vid, uid)...)
	payload = append(payload, 0x02, byte(cvBlock>>8), byte(cvBlock))
	return dccaFrame(cfg, payload, repeat)
}

// EncodeLogonSelectDecoderState builds a LOGON_SELECT GET_DECODER_STATE
// instruction (queries online/flags/capacity before assignment).
func EncodeLogonSelectDecoderState(cfg bitbuffer.FmtConfig, vid byte, uid uint32, repeat int) *bitbuffer.Buffer {
	payload := append([]byte{logonSelectAddr}, uidBytes(vid, uid)...)
	payload = append(payload, 0x03)
	return dccaFrame(cfg, payload, repeat)
}

// EncodeLogonAssign builds the LOGON_ASSIGN instruction binding the
// selected decoder's 40-bit VID+UID to a new 14-bit operational address,
// after which the decoder answers using normal DCC addressing.
func EncodeLogonAssign(cfg bitbuffer.FmtConfig, vid byte, uid uint32, newAddr uint16, repeat int) *bitbuffer.Buffer {
	payload := append([]byte{logonSelectAddr}, uidBytes(vid, uid)...)
	payload = append(payload, 0x04, byte(newAddr>>8)&0x3F, byte(newAddr))
	return dccaFrame(cfg, payload, repeat)
}

// EncodeGetDataStart/EncodeGetDataCont drive the data-space block reader
// sub-state-machine (spec.md 9): Start opens a block transfer at the
// decoder's already-assigned address, Cont requests the next chunk of
// the same block.
func EncodeGetDataStart(cfg bitbuffer.FmtConfig, addr uint16, block byte, repeat int) *bitbuffer.Buffer {
	data := append(AddressBytes(addr, true), 0xEE, block)
	return BuildFrame(cfg, bitbuffer.TagDCCA, data, repeat, true)
}

func EncodeGetDataCont(cfg bitbuffer.FmtConfig, addr uint16, repeat int) *bitbuffer.Buffer {
	data := append(AddressBytes(addr, true), 0xEF)
	return BuildFrame(cfg, bitbuffer.TagDCCA, data, repeat, true)
}
