package dccenc

import "github.com/railcore/mc2core/internal/bitbuffer"

// xorChecksum is the DCC packet checksum: XOR of every data byte
// (address bytes included), appended as the final byte (spec.md 3/8).
func xorChecksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
	}
	return c
}

// BuildFrame appends the XOR checksum of data and assembles a full DCC
// bit-buffer: preamble of N one-bits, then for each byte a 0 start-bit
// followed by the 8 data bits MSB-first, then a final 1-bit, then any
// configured tail bits. If withCutout, a RailCom cutout is requested
// after the frame (spec.md 4.5/4.6).
func BuildFrame(cfg bitbuffer.FmtConfig, tag bitbuffer.Tag, bytesWithoutChecksum []byte, repeat int, withCutout bool) *bitbuffer.Buffer {
	data := append(append([]byte{}, bytesWithoutChecksum...), xorChecksum(bytesWithoutChecksum))

	buf := &bitbuffer.Buffer{Tag: tag}
	buf.AppendBits(true, cfg.DCCPreambleBits)
	for _, b := range data {
		buf.AppendBit(false)
		buf.AppendByteMSBFirst(b)
	}
	buf.AppendBit(true)
	if cfg.DCCTailBits > 0 {
		buf.AppendBits(true, cfg.DCCTailBits)
	}

	buf.Repeat = repeat
	buf.DCC = bitbuffer.DCCSubState{
		PreambleBits:  cfg.DCCPreambleBits,
		TailBits:      cfg.DCCTailBits,
		RailComCutout: withCutout && cfg.DCCRailComEnabled,
		StartBit:      true,
	}
	return buf
}
