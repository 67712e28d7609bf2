package model

// DecoderType distinguishes mobile (loco) decoders from accessory
// decoders for reply routing/filtering purposes.
type DecoderType int

const (
	DecoderAny DecoderType = iota
	DecoderMobile
	DecoderAccessory
	DecoderM3
)

// MessageType is the closed enum of decoder reply kinds (spec.md 3).
type MessageType int

const (
	MsgAny MessageType = iota
	MsgPOM
	MsgXPOM0
	MsgXPOM1
	MsgXPOM2
	MsgXPOM3
	MsgDYN
	MsgADRHigh
	MsgADRLow
	MsgEXT
	MsgSTAT1
	MsgTIME
	MsgERR
	MsgDccaBlock
	MsgDccaShortInfo
	MsgACK
	MsgNACK
	MsgCollision
	MsgTimeout
	MsgM3Bin
	MsgM3Data
)

// ReplyMessage is a decoded decoder reply, produced by C7 or C8 and
// consumed by C9.
type ReplyMessage struct {
	DecoderType DecoderType
	Addr        uint16
	Type        MessageType
	CV          uint16
	Param       uint32
	Length      int
	Data        [16]byte
}

// Disposition tells the router what to do with a listener/callback after
// it has been invoked once.
type Disposition int

const (
	KeepListening Disposition = iota
	Deregister
)

// ReplyCallback is the direct, packet-bound callback signature.
type ReplyCallback func(msg ReplyMessage, ctx any) Disposition

// ListenerFilter selects which replies a registered listener is woken for.
// Zero-value fields act as wildcards.
type ListenerFilter struct {
	DecoderType DecoderType
	Addr        uint16 // 0 = wildcard
	Type        MessageType
}

func (f ListenerFilter) Matches(msg ReplyMessage) bool {
	if f.DecoderType != DecoderAny && f.DecoderType != msg.DecoderType {
		return false
	}
	if f.Addr != 0 && f.Addr != msg.Addr {
		return false
	}
	if f.Type != MsgAny && f.Type != msg.Type {
		return false
	}
	return true
}
