package dccenc

import (
	"testing"

	"github.com/railcore/mc2core/internal/bitbuffer"
)

func decodeByteMSBFirst(buf *bitbuffer.Buffer, startBit int) byte {
	var v byte
	for i := 0; i < 8; i++ {
		if buf.Bits[startBit+i] {
			v |= 1 << uint(7-i)
		}
	}
	return v
}

func TestEncodeSpeed126_DirectionAndStepBits(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := EncodeSpeed126(cfg, 3, 64, true, 3)

	// data: [addr(1)] [0x3F] [speedByte] [checksum] -- each preceded by a start bit.
	after := cfg.DCCPreambleBits
	addrByte := decodeByteMSBFirst(buf, after+1)
	if addrByte != 3 {
		t.Fatalf("expected address byte 3, got %d", addrByte)
	}
	instrByte := decodeByteMSBFirst(buf, after+1+9)
	if instrByte != 0x3F {
		t.Fatalf("expected instruction byte 0x3F, got %02X", instrByte)
	}
	speedByte := decodeByteMSBFirst(buf, after+1+18)
	if speedByte&0x80 == 0 {
		t.Fatal("expected direction bit set for forward")
	}
	if speedByte&0x7F != 64 {
		t.Fatalf("expected step 64 in low 7 bits, got %d", speedByte&0x7F)
	}
	if buf.RB.Type != bitbuffer.ReadbackNone {
		t.Fatalf("expected ReadbackNone for a plain speed packet, got %v", buf.RB.Type)
	}
	if buf.RB.Addr != 3 {
		t.Fatalf("expected RB.Addr 3, got %d", buf.RB.Addr)
	}
}

func TestEncodeSpeed14_F0FoldedIntoSpeedByte(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := EncodeSpeed14(cfg, 3, 5, true, true, 0)

	after := cfg.DCCPreambleBits
	speedByte := decodeByteMSBFirst(buf, after+1+9)
	if speedByte&0x01 == 0 {
		t.Fatal("expected F0 bit set in the speed byte")
	}
	if speedByte&0x40 == 0 {
		t.Fatal("expected the 01xxxxxx instruction marker bits set")
	}
}

func TestEncodeSpeed28_UsesLongAddressForm(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := EncodeSpeed28(cfg, 1234, 10, false, 0)

	after := cfg.DCCPreambleBits
	hiByte := decodeByteMSBFirst(buf, after+1)
	if hiByte&0xC0 != 0xC0 {
		t.Fatalf("expected long-address marker on first byte, got %08b", hiByte)
	}
}
