package packetbuilder

import (
	"fmt"

	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/bitbuffer/dccenc"
	"github.com/railcore/mc2core/internal/bitbuffer/m3enc"
	"github.com/railcore/mc2core/internal/bitbuffer/mmenc"
	"github.com/railcore/mc2core/internal/model"
)

// Encode is C5's entry point: it dispatches an already-built Packet to
// the per-format encoder that matches p.Format, producing a timed
// bit-buffer ready for the signal generator (spec.md 4.4/4.5).
func Encode(p *model.Packet, cfg bitbuffer.FmtConfig) (*bitbuffer.Buffer, error) {
	var buf *bitbuffer.Buffer
	var err error
	switch {
	case p.Format.IsMM():
		buf, err = encodeMM(p, cfg)
	case p.Format.IsDCC():
		buf, err = encodeDCC(p, cfg)
	case p.Format.IsM3():
		buf, err = encodeM3(p, cfg)
	default:
		return nil, fmt.Errorf("%w: format %s", ErrUnsupported, p.Format)
	}
	if err != nil {
		return nil, err
	}
	// The per-opcode encoders build a bare Buffer; the originating
	// packet's reply callback rides along separately so C7/C8/C9 can
	// still correlate a decoder reply back to the command that caused it
	// (spec.md 4.9).
	buf.RB.Callback = p.Callback
	buf.RB.CbCtx = p.CbCtx
	return buf, nil
}

func encodeMM(p *model.Packet, cfg bitbuffer.FmtConfig) (*bitbuffer.Buffer, error) {
	switch p.Opcode {
	case model.OpSetSpeed:
		f0 := p.FuncBits.Get(0)
		halfStep2 := p.Format == model.FormatMM2_27B && p.Step%2 == 1
		return mmenc.EncodeSpeed(cfg, p.Addr, p.Format, int(p.Step), f0, halfStep2, p.Repeat), nil
	case model.OpSetFunction:
		on := p.FuncBits.Get(int(p.Value))
		return mmenc.EncodeFunction(p.Addr, int(p.Value), on, p.Repeat), nil
	case model.OpAccessory:
		return mmenc.EncodeTurnout(p.Addr, p.Aspect&0x01 != 0, p.Aspect&0x02 != 0, p.Repeat), nil
	default:
		return nil, fmt.Errorf("%w: MM opcode %d", ErrUnsupported, p.Opcode)
	}
}

func encodeDCC(p *model.Packet, cfg bitbuffer.FmtConfig) (*bitbuffer.Buffer, error) {
	switch p.Opcode {
	case model.OpSetSpeed:
		switch p.Format {
		case model.FormatDCC14:
			return dccenc.EncodeSpeed14(cfg, p.Addr, p.Step, p.Forward, p.FuncBits.Get(0), p.Repeat), nil
		case model.FormatDCC28:
			return dccenc.EncodeSpeed28(cfg, p.Addr, p.Step, p.Forward, p.Repeat), nil
		default:
			return dccenc.EncodeSpeed126(cfg, p.Addr, p.Step, p.Forward, p.Repeat), nil
		}
	case model.OpSetFunction:
		return encodeDCCFunctionGroup(p, cfg)
	case model.OpAccessory:
		return dccenc.EncodeBasicAccessory(cfg, p.Addr, p.Aspect&0x01 != 0, p.Aspect&0x02 != 0, p.Repeat), nil
	case model.OpExtAccessory:
		return dccenc.EncodeExtendedAccessory(cfg, p.Addr, p.Aspect, p.Repeat), nil
	case model.OpPomReadByte:
		return dccenc.EncodePomReadByte(cfg, p.Addr, p.CV+1, p.Repeat), nil
	case model.OpPomWriteByte:
		return dccenc.EncodePomWriteByte(cfg, p.Addr, p.CV+1, byte(p.Value), p.Repeat), nil
	case model.OpXPomRead:
		return dccenc.EncodeXPomRead(cfg, p.Addr, uint32(p.CV)<<8|uint32(p.Value), byte(p.Aspect), p.Repeat), nil
	case model.OpProgDirectWriteByte:
		return dccenc.EncodeProgDirectWriteByte(cfg, p.CV+1, byte(p.Value), p.Repeat), nil
	case model.OpProgDirectVerifyByte:
		return dccenc.EncodeProgDirectVerifyByte(cfg, p.CV+1, byte(p.Value), p.Repeat), nil
	case model.OpProgDirectWriteBit:
		return dccenc.EncodeProgDirectWriteBit(cfg, p.CV+1, uint8(p.Value), p.Aspect != 0, p.Repeat), nil
	case model.OpProgDirectVerifyBit:
		return dccenc.EncodeProgDirectVerifyBit(cfg, p.CV+1, uint8(p.Value), p.Aspect != 0, p.Repeat), nil
	case model.OpDccaLogonEnableAll:
		return dccenc.EncodeLogonEnable(cfg, 0x00, uint16(p.Value), uint8(p.Aspect), p.Repeat), nil
	case model.OpDccaLogonEnableLoco:
		return dccenc.EncodeLogonEnable(cfg, 0x01, uint16(p.Value), uint8(p.Aspect), p.Repeat), nil
	case model.OpDccaLogonEnableAcc:
		return dccenc.EncodeLogonEnable(cfg, 0x02, uint16(p.Value), uint8(p.Aspect), p.Repeat), nil
	case model.OpDccaLogonEnableNow:
		return dccenc.EncodeLogonEnable(cfg, 0x03, uint16(p.Value), uint8(p.Aspect), p.Repeat), nil
	case model.OpDccaSelectShortInfo:
		return dccenc.EncodeLogonSelectShortInfo(cfg, p.VID, p.UID, p.Repeat), nil
	case model.OpDccaSelectBlock:
		return dccenc.EncodeLogonSelectBlock(cfg, p.VID, p.UID, byte(p.Value), p.Repeat), nil
	case model.OpDccaSelectCVBlock:
		return dccenc.EncodeLogonSelectCVBlock(cfg, p.VID, p.UID, p.CV, p.Repeat), nil
	case model.OpDccaDecoderState:
		return dccenc.EncodeLogonSelectDecoderState(cfg, p.VID, p.UID, p.Repeat), nil
	case model.OpDccaLogonAssign:
		return dccenc.EncodeLogonAssign(cfg, p.VID, p.UID, p.Addr, p.Repeat), nil
	case model.OpDccaGetDataStart:
		return dccenc.EncodeGetDataStart(cfg, p.Addr, byte(p.Value), p.Repeat), nil
	case model.OpDccaGetDataCont:
		return dccenc.EncodeGetDataCont(cfg, p.Addr, p.Repeat), nil
	default:
		return nil, fmt.Errorf("%w: DCC opcode %d", ErrUnsupported, p.Opcode)
	}
}

// encodeDCCFunctionGroup picks the NMRA function-group instruction whose
// range covers p.Value (the function number just toggled), always
// sending the full current bitmap for that group (spec.md 4.4).
func encodeDCCFunctionGroup(p *model.Packet, cfg bitbuffer.FmtConfig) (*bitbuffer.Buffer, error) {
	fn := int(p.Value)
	get := func(n int) bool { return p.FuncBits.Get(n) }
	switch {
	case fn <= 4:
		return dccenc.EncodeFunctionGroup1(cfg, p.Addr, get(0), get(1), get(2), get(3), get(4), p.Repeat), nil
	case fn <= 8:
		return dccenc.EncodeFunctionGroup2(cfg, p.Addr, get(5), get(6), get(7), get(8), p.Repeat), nil
	case fn <= 12:
		return dccenc.EncodeFunctionGroup3(cfg, p.Addr, get(9), get(10), get(11), get(12), p.Repeat), nil
	case fn <= 20:
		return dccenc.EncodeFunctionExpansion(cfg, p.Addr, dccenc.FeatureExpansionF13F20, maskRange(p.FuncBits, 13, 20), p.Repeat), nil
	case fn <= 28:
		return dccenc.EncodeFunctionExpansion(cfg, p.Addr, dccenc.FeatureExpansionF21F28, maskRange(p.FuncBits, 21, 28), p.Repeat), nil
	default:
		return dccenc.EncodeFunctionExpansion(cfg, p.Addr, dccenc.FeatureExpansionF29F31, maskRange(p.FuncBits, 29, 31), p.Repeat), nil
	}
}

func maskRange(bits model.FuncBits, lo, hi int) byte {
	var m byte
	for i := lo; i <= hi; i++ {
		if bits.Get(i) {
			m |= 1 << uint(i-lo)
		}
	}
	return m
}

func encodeM3(p *model.Packet, cfg bitbuffer.FmtConfig) (*bitbuffer.Buffer, error) {
	switch p.Opcode {
	case model.OpSetSpeed:
		return m3enc.EncodeCombinedSpeedF0F15(cfg, p.Addr, p.Step, p.Forward, uint16(p.FuncBits[0]&0xFFFF), p.Repeat), nil
	case model.OpSetFunction:
		on := p.FuncBits.Get(int(p.Value))
		return m3enc.EncodeSingleFunction(cfg, p.Addr, uint8(p.Value), on, p.Repeat), nil
	case model.OpM3Beacon:
		return m3enc.EncodeBeacon(cfg, p.Repeat), nil
	case model.OpM3Search:
		return m3enc.EncodeSearch(cfg, byte(p.Value), uint64(p.UID), p.Repeat), nil
	case model.OpM3SetNewAddress:
		return m3enc.EncodeSetNewAddress(cfg, uint64(p.UID), p.Addr, p.Repeat), nil
	case model.OpM3Ping:
		return m3enc.EncodePing(cfg, p.Addr, p.Repeat), nil
	case model.OpM3ShortSpeed:
		return m3enc.EncodeShortSpeed(cfg, p.Addr, p.Step, p.Forward, p.Repeat), nil
	case model.OpM3CombinedSpeedF0F15:
		return m3enc.EncodeCombinedSpeedF0F15(cfg, p.Addr, p.Step, p.Forward, uint16(p.FuncBits[0]&0xFFFF), p.Repeat), nil
	case model.OpM3SingleFunction:
		return m3enc.EncodeSingleFunction(cfg, p.Addr, uint8(p.Value), p.Aspect != 0, p.Repeat), nil
	case model.OpM3CVRead:
		return m3enc.EncodeCVRead(cfg, p.Addr, p.CV, p.Repeat), nil
	case model.OpM3CVWrite:
		return m3enc.EncodeCVWrite(cfg, p.Addr, p.CV, byte(p.Value), p.Repeat), nil
	default:
		return nil, fmt.Errorf("%w: M3 opcode %d", ErrUnsupported, p.Opcode)
	}
}
