// Package bitbuffer holds the format-independent bit-buffer container that
// the per-format encoders (mmenc, dccenc, m3enc) fill in, and that the
// signal generator (internal/signalgen) clocks out bit by bit. See
// spec.md 3 ("Bit-buffer") and 4.5 (C5).
package bitbuffer

import "github.com/railcore/mc2core/internal/model"

// MaxBits is the largest bit count a single buffer can hold (spec.md 3).
const MaxBits = 160

// Tag identifies the wire format (and DCC sub-variant) a buffer was built
// for. POM/XPOM variants are split out because the signal generator and
// the RailCom receiver need to know, without inspecting payload bytes,
// which cutout reply shape to expect.
type Tag int

const (
	TagDCC Tag = iota
	TagDCCXPOM00
	TagDCCXPOM01
	TagDCCXPOM10
	TagDCCXPOM11
	TagDCCA
	TagMMSlow
	TagMMFast
	TagM3
)

// ReadbackType is the read-back classification the encoder assigns so C9
// knows how to interpret whatever C7/C8 deliver (spec.md 4.5).
type ReadbackType int

const (
	ReadbackNone ReadbackType = iota
	ReadbackPOM
	ReadbackPOMWriteVerify
	ReadbackXPOM
	ReadbackDccaID
	ReadbackDccaData
	ReadbackDccaShortInfo
	ReadbackDccaAck
	ReadbackAccessorySRQ
	ReadbackProgAck
	ReadbackM3Binary
	ReadbackM3Data
)

// DCCSubState carries the DCC-family encoder bookkeeping the ISR needs to
// resume mid-buffer (spec.md 3/4.5).
type DCCSubState struct {
	PreambleBits   int
	TailBits       int
	RailComCutout  bool
	ExpectedValue  byte
	LastPOMValue   byte
	StartBit       bool
	ValueReceived  bool
}

// MMSubState carries the MM encoder's inter-block/inter-packet gap timing.
type MMSubState struct {
	IntraBlockGapUs int // 1250 (slow) or 625 (fast)
	InterPacketGapUs int // 1500 (short) or 4025 (long)
	SecondBlock      bool
}

// M3SubState carries the M3 encoder's flag-phase/bit-stuffing bookkeeping.
type M3SubState struct {
	FlagPhase      int
	OneRunLength   int // consecutive 1-bits emitted, for bit-stuffing
	ReplyBitBudget int // half-sync pulses requested after the frame
}

// Readback is the metadata a buffer carries so the reply path can route
// an asynchronous decoder answer back to its originator (spec.md 3).
type Readback struct {
	DecoderType model.DecoderType
	Type        ReadbackType
	Addr        uint16
	CV          uint16
	Param       uint32
	Callback    model.ReplyCallback
	CbCtx       any
}

// Buffer is a ready-to-clock bit stream plus all the side-channel state
// the ISR (C6), the RailCom receiver (C7) and the M3 reply receiver (C8)
// need. It is fixed-size and reusable from a pool -- see Pool below --
// mirroring the source's "bit-buffers are pooled" lifecycle (spec.md 3).
type Buffer struct {
	Tag    Tag
	Bits   [MaxBits]bool
	NBits  int
	Pos    int
	Repeat int

	Acknowledged bool

	DCC DCCSubState
	MM  MMSubState
	M3  M3SubState

	RB Readback
}

// Reset clears a buffer for reuse from the pool.
func (b *Buffer) Reset() {
	*b = Buffer{}
}

// AppendBit appends a single logical bit (true=1, false=0), panicking if
// the buffer would overflow -- a programmer error in an encoder, never a
// runtime condition driven by external input.
func (b *Buffer) AppendBit(v bool) {
	if b.NBits >= MaxBits {
		panic("bitbuffer: overflow")
	}
	b.Bits[b.NBits] = v
	b.NBits++
}

// AppendBits appends n copies of bit.
func (b *Buffer) AppendBits(bit bool, n int) {
	for i := 0; i < n; i++ {
		b.AppendBit(bit)
	}
}

// AppendByteMSBFirst appends the 8 bits of v, most significant first --
// the DCC/DCC-A/M3 byte order.
func (b *Buffer) AppendByteMSBFirst(v byte) {
	for i := 7; i >= 0; i-- {
		b.AppendBit(v&(1<<uint(i)) != 0)
	}
}

// Bit returns the bit at the buffer's current cursor.
func (b *Buffer) Bit() bool {
	return b.Bits[b.Pos]
}

// Advance moves the cursor forward one bit, wrapping and decrementing the
// repeat counter at buffer end. Returns true if the buffer has more work
// (either more bits or a fresh repeat), false once fully consumed.
func (b *Buffer) Advance() bool {
	b.Pos++
	if b.Pos < b.NBits {
		return true
	}
	b.Pos = 0
	if b.Repeat > 0 {
		b.Repeat--
		return b.Repeat >= 0 && b.NBits > 0
	}
	return false
}

// Pool is a trivial free-list of *Buffer, standing in for the source's
// fixed-region pool (spec.md 3/9): no heap allocation on the ISR path once
// warmed up, and the ISR returns buffers when consumed.
type Pool struct {
	free []*Buffer
}

func NewPool(capacity int) *Pool {
	p := &Pool{free: make([]*Buffer, 0, capacity)}
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, &Buffer{})
	}
	return p
}

func (p *Pool) Get() *Buffer {
	if len(p.free) == 0 {
		return &Buffer{}
	}
	b := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return b
}

func (p *Pool) Put(b *Buffer) {
	b.Reset()
	if len(p.free) < cap(p.free) {
		p.free = append(p.free, b)
	}
}
