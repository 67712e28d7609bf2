package packetbuilder

import (
	"testing"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/model"
)

func TestEncode_CarriesCallbackOntoBufferReadback(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	cb := func(msg model.ReplyMessage, ctx any) model.Disposition { return model.Deregister }
	ctx := "marker"

	p := &model.Packet{
		Opcode:   model.OpPomReadByte,
		Format:   model.FormatDCC28,
		Addr:     3,
		CV:       29,
		Repeat:   1,
		Callback: cb,
		CbCtx:    ctx,
	}

	buf, err := Encode(p, cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.RB.Callback == nil {
		t.Fatal("expected buf.RB.Callback to be populated from the packet")
	}
	if buf.RB.CbCtx != ctx {
		t.Fatalf("expected buf.RB.CbCtx %q, got %v", ctx, buf.RB.CbCtx)
	}
}

func TestEncode_NilCallbackLeavesReadbackEmpty(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	p := &model.Packet{
		Opcode: model.OpSetSpeed,
		Format: model.FormatDCC28,
		Addr:   3,
		Step:   50,
		Repeat: 1,
	}

	buf, err := Encode(p, cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.RB.Callback != nil {
		t.Fatal("expected no callback on a packet that set none")
	}
}

func TestEncode_UnsupportedOpcodeReturnsErrUnsupported(t *testing.T) {
	cfg := bitbuffer.DefaultFmtConfig()
	p := &model.Packet{
		Opcode: model.Opcode(9999),
		Format: model.FormatDCC28,
	}

	if _, err := Encode(p, cfg); err == nil {
		t.Fatal("expected an error for an unsupported opcode")
	}
}
