// Package m3reply implements C8: sampling the bit-slotted reply window
// of an M3 frame and assembling either a binary presence/absence reply
// or an up-to-8-byte data reply with CRC validation (spec.md 4.8).
package m3reply

import (
	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/bitbuffer/m3enc"
	"github.com/railcore/mc2core/internal/model"
)

// Dispatcher is the narrow slice of replyrouter.Router this receiver
// needs.
type Dispatcher interface {
	Dispatch(msg model.ReplyMessage, directCB model.ReplyCallback, directCtx any)
}

// Receiver accumulates M3 reply bit slots across one frame's window.
type Receiver struct {
	dispatch Dispatcher

	bits    []bool
	nSlots  int
}

func New(dispatch Dispatcher) *Receiver {
	return &Receiver{dispatch: dispatch}
}

// OnM3ReplySlot implements signalgen.M3ReplyHook.
func (r *Receiver) OnM3ReplySlot(buf *bitbuffer.Buffer, slot int, present bool) {
	if slot == 0 {
		r.bits = r.bits[:0]
	}
	r.bits = append(r.bits, present)
	r.nSlots = slot + 1
	if r.nSlots == buf.M3.ReplyBitBudget {
		r.finish(buf)
	}
}

func (r *Receiver) finish(buf *bitbuffer.Buffer) {
	if buf.M3.ReplyBitBudget <= 1 {
		r.finishBinary(buf)
		return
	}
	r.finishData(buf)
}

// finishBinary yields DECODERMSG_M3BIN: a single-bit presence reply,
// used for collision/ack-style M3 queries (e.g. search arbitration).
func (r *Receiver) finishBinary(buf *bitbuffer.Buffer) {
	present := len(r.bits) > 0 && r.bits[0]
	msg := model.ReplyMessage{
		DecoderType: buf.RB.DecoderType,
		Addr:        buf.RB.Addr,
		Type:        model.MsgM3Bin,
	}
	if present {
		msg.Param = 1
	}
	r.dispatch.Dispatch(msg, buf.RB.Callback, buf.RB.CbCtx)
}

// finishData packs up to 8 accumulated bytes and validates them against
// the M3 CRC-8 before yielding DECODERMSG_M3DATA (spec.md 4.8).
func (r *Receiver) finishData(buf *bitbuffer.Buffer) {
	nBytes := len(r.bits) / 8
	if nBytes > 8 {
		nBytes = 8
	}
	data := make([]byte, nBytes)
	for i := 0; i < nBytes; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if r.bits[i*8+j] {
				b |= 1
			}
		}
		data[i] = b
	}

	msg := model.ReplyMessage{
		DecoderType: buf.RB.DecoderType,
		Addr:        buf.RB.Addr,
		CV:          buf.RB.CV,
	}
	if nBytes >= 2 && m3enc.CRC8(data[:nBytes-1]) == data[nBytes-1] {
		msg.Type = model.MsgM3Data
		msg.Length = copy(msg.Data[:], data[:nBytes-1])
	} else {
		msg.Type = model.MsgERR
	}
	r.dispatch.Dispatch(msg, buf.RB.Callback, buf.RB.CbCtx)
}
