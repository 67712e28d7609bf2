package dccenc

import (
	"testing"

	"github.com/railcore/mc2core/internal/bitbuffer"
)

func TestWireCV_IsOneBasedToZeroBased(t *testing.T) {
	if got := wireCV(1); got != 0 {
		t.Fatalf("wireCV(1) = %d, want 0", got)
	}
	if got := wireCV(29); got != 28 {
		t.Fatalf("wireCV(29) = %d, want 28", got)
	}
}

func TestEncodePomReadByte_SetsReadbackPOM(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := EncodePomReadByte(cfg, 3, 29, 4)
	if buf.RB.Type != bitbuffer.ReadbackPOM {
		t.Fatalf("expected ReadbackPOM, got %v", buf.RB.Type)
	}
	if buf.RB.CV != 29 {
		t.Fatalf("expected RB.CV 29, got %d", buf.RB.CV)
	}
	if !buf.DCC.RailComCutout {
		t.Fatal("expected a RailCom cutout requested for a POM read")
	}
}

func TestEncodePomWriteByte_RecordsExpectedValueForVerify(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	buf := EncodePomWriteByte(cfg, 3, 29, 200, 4)
	if buf.RB.Type != bitbuffer.ReadbackPOMWriteVerify {
		t.Fatalf("expected ReadbackPOMWriteVerify, got %v", buf.RB.Type)
	}
	if buf.DCC.ExpectedValue != 200 {
		t.Fatalf("expected DCC.ExpectedValue 200, got %d", buf.DCC.ExpectedValue)
	}
}

func TestEncodeProgDirectWriteByte_NoRailComCutoutOnServiceTrack(t *testing.T) {
	cfg := bitbuffer.ServiceModeFmtConfig()
	buf := EncodeProgDirectWriteByte(cfg, 29, 3, 10)
	if buf.DCC.RailComCutout {
		t.Fatal("expected no RailCom cutout on the programming track")
	}
	if buf.RB.Type != bitbuffer.ReadbackProgAck {
		t.Fatalf("expected ReadbackProgAck, got %v", buf.RB.Type)
	}
}

func TestEncodeProgDirectWriteBit_EncodesBitPositionAndValue(t *testing.T) {
	data := directBitInstruction(29, true, 5, true)
	// b3 = 0xE0 | write(0x10) | bitVal(0x08) | bitPos
	want := byte(0xE0 | 0x10 | 0x08 | 5)
	if data[2] != want {
		t.Fatalf("directBitInstruction byte3 = %08b, want %08b", data[2], want)
	}
}
