package dccenc

import (
	"testing"

	"github.com/railcore/mc2core/internal/bitbuffer"
)

func TestXorChecksum_XorsAllBytes(t *testing.T) {
	got := xorChecksum([]byte{0x03, 0x3F, 0x50})
	want := byte(0x03) ^ byte(0x3F) ^ byte(0x50)
	if got != want {
		t.Fatalf("xorChecksum = %02X, want %02X", got, want)
	}
}

func TestBuildFrame_PreambleAndChecksumAppended(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := BuildFrame(cfg, bitbuffer.TagDCC, []byte{0x03, 0x3F, 0x50}, 2, true)

	for i := 0; i < cfg.DCCPreambleBits; i++ {
		if !buf.Bits[i] {
			t.Fatalf("expected preamble bit %d to be 1", i)
		}
	}
	if buf.Repeat != 2 {
		t.Fatalf("expected Repeat 2, got %d", buf.Repeat)
	}
	if !buf.DCC.RailComCutout {
		t.Fatal("expected RailCom cutout requested when withCutout=true and cfg enables it")
	}

	// Total bits: preamble + 4 bytes (3 data + 1 checksum) * (1 start + 8 data) + final 1 + tail.
	expected := cfg.DCCPreambleBits + 4*9 + 1 + cfg.DCCTailBits
	if buf.NBits != expected {
		t.Fatalf("expected %d bits, got %d", expected, buf.NBits)
	}
}

func TestBuildFrame_NoCutoutWhenWithCutoutFalse(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := BuildFrame(cfg, bitbuffer.TagDCC, []byte{0x03}, 0, false)
	if buf.DCC.RailComCutout {
		t.Fatal("expected no cutout when withCutout is false")
	}
}
