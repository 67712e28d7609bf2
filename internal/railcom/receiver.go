package railcom

import (
	"github.com/railcore/mc2core/internal/bitbuffer"
	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/signalgen"
)

// Dispatcher is the narrow slice of replyrouter.Router the receiver
// needs, kept as an interface so railcom never imports the router
// package directly (avoids an import cycle with packetbuilder/core).
type Dispatcher interface {
	Dispatch(msg model.ReplyMessage, directCB model.ReplyCallback, directCtx any)
}

// idLength maps a W2 leading nibble ("ID") to the bit length of its
// message and the MessageType it decodes to, per spec.md 4.7's
// "top 4 bits... select a per-ID length (12/18/24/36 bits)".
type idEntry struct {
	bits int
	typ  model.MessageType
}

var idTable = map[byte]idEntry{
	0x0: {12, model.MsgPOM},
	0x1: {12, model.MsgADRHigh},
	0x2: {12, model.MsgADRLow},
	0x3: {12, model.MsgEXT},
	0x4: {18, model.MsgDYN},
	0x5: {18, model.MsgXPOM0},
	0x6: {18, model.MsgXPOM1},
	0x7: {18, model.MsgXPOM2},
	0x8: {18, model.MsgXPOM3},
	0x9: {24, model.MsgSTAT1},
	0xA: {24, model.MsgTIME},
	0xC: {36, model.MsgERR},
	0xD: {36, model.MsgDccaBlock}, // ID13: combined 8-byte payload
	0xF: {36, model.MsgDccaBlock}, // ID15: combined 8-byte payload (SHORTINFO uses the same combine path)
}

// pomWriteFilter discards replies equal to oldValue until a matching
// newValue is seen or the repeat budget is exhausted (spec.md 4.7's
// write-verify filtering note).
type pomWriteFilter struct {
	addr     uint16
	cv       uint16
	oldValue byte
	newValue byte
	repeatsLeft int
	lastSeen    byte
	sawAny      bool
}

// Receiver is C7: one instance owns the decode state for the cutout
// window currently open on a given Generator.
type Receiver struct {
	dispatch Dispatcher

	w1        [2]byte
	w1Count   int
	w2buf     []byte
	abandoned bool

	filter *pomWriteFilter
}

func New(dispatch Dispatcher) *Receiver {
	return &Receiver{dispatch: dispatch}
}

// ArmPOMWriteFilter installs a discard filter for the next cutout this
// receiver processes.
func (r *Receiver) ArmPOMWriteFilter(addr uint16, cv uint16, oldValue, newValue byte, repeatBudget int) {
	r.filter = &pomWriteFilter{addr: addr, cv: cv, oldValue: oldValue, newValue: newValue, repeatsLeft: repeatBudget}
}

// OnCutoutWindow implements signalgen.WindowHook: called at W1 open and
// W2 open. It resets per-window decode state at W1.
func (r *Receiver) OnCutoutWindow(state signalgen.State, buf *bitbuffer.Buffer) {
	if state == signalgen.StateCutoutW1 {
		r.w1Count = 0
		r.w2buf = r.w2buf[:0]
		r.abandoned = false
	}
}

// FeedByte is called by the UART poll loop for every byte read while a
// cutout window is open; window indicates which sub-window the byte
// arrived in.
func (r *Receiver) FeedByte(buf *bitbuffer.Buffer, window signalgen.State, raw byte) {
	if r.abandoned {
		return
	}
	sym, datum := Decode(raw)
	switch sym {
	case SymData:
		if window == signalgen.StateCutoutW1 {
			if r.w1Count < 2 {
				r.w1[r.w1Count] = datum
				r.w1Count++
				if r.w1Count == 2 {
					r.deliverAdrMessage(buf)
				}
			}
		} else {
			r.w2buf = append(r.w2buf, datum)
			r.tryParseW2(buf)
		}
	case SymACK1, SymACK2:
		r.deliver(buf, model.MsgACK, nil)
	case SymNACK:
		r.deliver(buf, model.MsgNACK, nil)
	default:
		r.abandoned = true
	}
}

func (r *Receiver) deliverAdrMessage(buf *bitbuffer.Buffer) {
	combined := uint16(r.w1[0])<<6 | uint16(r.w1[1])
	msg := model.ReplyMessage{
		DecoderType: buf.RB.DecoderType,
		Addr:        buf.RB.Addr,
		Type:        model.MsgADRHigh,
		Param:       uint32(combined),
		Length:      2,
	}
	r.dispatch.Dispatch(msg, buf.RB.Callback, buf.RB.CbCtx)
}

// tryParseW2 greedily consumes as many complete W2 messages as the
// buffered datum bits allow (spec.md 4.7: "parsed greedily... then the
// next message in the same window is attempted").
func (r *Receiver) tryParseW2(buf *bitbuffer.Buffer) {
	for len(r.w2buf) > 0 {
		id := (r.w2buf[0] >> 2) & 0x0F
		entry, ok := idTable[id]
		if !ok {
			r.abandoned = true
			return
		}
		needDatums := entry.bits / 6
		if len(r.w2buf) < needDatums {
			return
		}
		payload := r.w2buf[:needDatums]
		r.w2buf = r.w2buf[needDatums:]
		r.deliverW2(buf, entry.typ, payload)
	}
}

func (r *Receiver) deliverW2(buf *bitbuffer.Buffer, typ model.MessageType, payload []byte) {
	msg := model.ReplyMessage{
		DecoderType: buf.RB.DecoderType,
		Addr:        buf.RB.Addr,
		CV:          buf.RB.CV,
		Type:        typ,
		Length:      len(payload),
	}
	copy(msg.Data[:], payload)

	if typ == model.MsgPOM || typ == model.MsgXPOM0 || typ == model.MsgXPOM1 || typ == model.MsgXPOM2 || typ == model.MsgXPOM3 {
		if len(payload) > 0 {
			msg.Param = uint32(payload[len(payload)-1])
		}
		if r.filter != nil && r.applyFilter(byte(msg.Param)) {
			return
		}
	}
	r.dispatch.Dispatch(msg, buf.RB.Callback, buf.RB.CbCtx)
}

func (r *Receiver) deliver(buf *bitbuffer.Buffer, typ model.MessageType, payload []byte) {
	msg := model.ReplyMessage{DecoderType: buf.RB.DecoderType, Addr: buf.RB.Addr, CV: buf.RB.CV, Type: typ}
	r.dispatch.Dispatch(msg, buf.RB.Callback, buf.RB.CbCtx)
}

// applyFilter reports whether value should be discarded under the
// installed POM-write filter.
func (r *Receiver) applyFilter(value byte) bool {
	f := r.filter
	f.sawAny = true
	f.lastSeen = value
	if value == f.newValue {
		r.filter = nil
		return false
	}
	if f.repeatsLeft > 0 {
		f.repeatsLeft--
		return true
	}
	r.filter = nil
	return false
}
