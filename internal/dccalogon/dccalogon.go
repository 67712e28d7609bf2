// Package dccalogon implements C10, the RCN-218 DCC-A auto-logon state
// machine: STARTUP -> LOGON_IDLE -> SHORTINFO -> ASSIGN -> DATASPACE ->
// CLEAR_CHGFLAGS -> LOGON_IDLE, with an ISOLATION side-branch on
// collision and a block-reader sub-state-machine for each advertised
// data space (spec.md 4.10).
package dccalogon

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/internal/bitbuffer/dccenc"
	"github.com/railcore/mc2core/internal/decoderdb"
	"github.com/railcore/mc2core/internal/model"
)

// State is C10's top-level state.
type State int

const (
	StateStartup State = iota
	StateLogonIdle
	StateShortInfo
	StateAssign
	StateDataspace
	StateClearChgFlags
	StateIsolation
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "STARTUP"
	case StateLogonIdle:
		return "LOGON_IDLE"
	case StateShortInfo:
		return "SHORTINFO"
	case StateAssign:
		return "ASSIGN"
	case StateDataspace:
		return "DATASPACE"
	case StateClearChgFlags:
		return "CLEAR_CHGFLAGS"
	case StateIsolation:
		return "ISOLATION"
	default:
		return "?"
	}
}

// Timing/retry constants fixed by spec.md 4.10.
const (
	StepTimeout          = 1000 * time.Millisecond
	MaxStepRetries       = 5
	IsolationMaxAttempts = 200
	IsolationMinDelay    = 20 * time.Millisecond
	IsolationMaxDelay    = 40 * time.Millisecond
	MaxBlockRetries      = 5

	FreeAddressBase = 1000
)

// Address-space prefixes a decoder's logon-assign wish is coded with
// (spec.md 4.10: "one of five prefixes"). Exact bit layout was not
// recoverable byte-exact from the (empty) original source; this is a
// structural reconstruction documented in DESIGN.md, internally
// consistent with AddressBytes' own long/short DCC split.
const (
	prefixLongLoco        = 0x0000 // top 2 bits 00: plain 14-bit loco address
	prefixExtAccessory    = 0x2800
	prefixBasicAccessory  = 0x3000
	prefixShortLoco       = 0x3800
	prefixFirmwareUpdate  = 0x3F00
	prefixMask            = 0x3F00
)

// Sender is the minimal queue surface C10 needs: push a service packet
// with a direct, once-invoked callback.
type Sender interface {
	PushBack(p *model.Packet)
}

// Candidate is one decoder mid-logon, identified by its 40-bit VID+UID.
type Candidate struct {
	VID uint8
	UID uint32

	// WishedAddr is the raw, prefixed address the decoder proposed in its
	// SelectShortInfo reply (spec.md 4.10: "one of five prefixes"); 0 if
	// no short-info reply has been parsed yet.
	WishedAddr uint16
}

// wishPrefix and wishAddr split a raw wished address into its prefix
// (one of prefixLongLoco/prefixExtAccessory/prefixBasicAccessory/
// prefixShortLoco/prefixFirmwareUpdate) and semantic address.
func wishPrefix(raw uint16) uint16 {
	return raw & prefixMask
}

func wishAddr(raw uint16) uint16 {
	return raw &^ prefixMask
}

// assignAddrValue re-prefixes a resolved loco address for the
// LOGON_ASSIGN packet: short-form addresses (spec.md 4.10: "short-form
// stays short if <=127") keep the short-loco prefix, everything else
// goes out as a plain long-form address.
func assignAddrValue(addr uint16) uint16 {
	if addr <= 127 {
		return prefixShortLoco | addr
	}
	return prefixLongLoco | addr
}

// Machine is C10.
type Machine struct {
	log   *logrus.Entry
	db    *decoderdb.DB
	queue Sender
	rng   *rand.Rand

	sessionCID uint16
}

func New(log *logrus.Entry, db *decoderdb.DB, queue Sender, seed int64) *Machine {
	return &Machine{log: log, db: db, queue: queue, rng: rand.New(rand.NewSource(seed)), sessionCID: uint16(seed)}
}

// waiter is a one-shot channel-backed direct callback used to await a
// single reply synchronously inside the state machine's own goroutine
// (spec.md 4.9's "direct (packet-bound) callback" path).
type waiter struct {
	ch chan model.ReplyMessage
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan model.ReplyMessage, 1)}
}

func (w *waiter) callback(msg model.ReplyMessage, ctx any) model.Disposition {
	select {
	case w.ch <- msg:
	default:
	}
	return model.Deregister
}

func (w *waiter) wait(timeout time.Duration) (model.ReplyMessage, bool) {
	select {
	case msg := <-w.ch:
		return msg, true
	case <-time.After(timeout):
		return model.ReplyMessage{}, false
	}
}

// sendAndWait pushes pkt with a fresh waiter wired as its direct
// callback and blocks for at most StepTimeout.
func (m *Machine) sendAndWait(pkt *model.Packet) (model.ReplyMessage, bool) {
	w := newWaiter()
	pkt.Callback = w.callback
	m.queue.PushBack(pkt)
	return w.wait(StepTimeout)
}

// RunOneRound drives a full logon round for one freshly-appeared
// candidate group: broadcast enable, select short info, assign an
// address, then pull every advertised data space. It returns the
// assigned loco definition on success.
func (m *Machine) RunOneRound() (*model.LocoDef, error) {
	state := StateStartup
	retries := 0
	var cand Candidate

	for {
		switch state {
		case StateStartup:
			state = StateLogonIdle

		case StateLogonIdle:
			msg, ok := m.sendAndWait(m.buildLogonEnable(0x00))
			if !ok {
				retries++
				if retries > MaxStepRetries {
					return nil, fmt.Errorf("dccalogon: %w: no decoder answered LOGON_ENABLE", model.ErrTimeout)
				}
				continue
			}
			retries = 0
			if msg.Type == model.MsgCollision {
				dec, err := m.isolate()
				if err != nil {
					return nil, err
				}
				cand = dec
				state = StateShortInfo
				continue
			}
			cand = Candidate{VID: uint8(msg.Data[0]), UID: uint32(msg.Param)}
			state = StateShortInfo

		case StateShortInfo:
			msg, ok := m.sendAndWait(m.buildSelectShortInfo(cand))
			if !ok {
				if !m.retryOrIdle(&retries) {
					state = StateLogonIdle
					continue
				}
				continue
			}
			retries = 0
			cand.WishedAddr = uint16(msg.Param)
			state = StateAssign

		case StateAssign:
			def := m.resolveAddress(cand)
			msg, ok := m.sendAndWait(m.buildAssign(cand, assignAddrValue(def.Addr)))
			if !ok {
				if !m.retryOrIdle(&retries) {
					state = StateLogonIdle
					continue
				}
				continue
			}
			if msg.Type == model.MsgNACK {
				return nil, fmt.Errorf("dccalogon: %w: decoder NACKed address assign", model.ErrNACK)
			}
			retries = 0
			state = StateDataspace

		case StateDataspace:
			def, err := m.pullDataSpaces(cand)
			if err != nil {
				return nil, err
			}
			state = StateClearChgFlags
			_ = def

		case StateClearChgFlags:
			def, _ := m.db.FindByVidUid(cand.VID, cand.UID)
			state = StateLogonIdle
			return def, nil

		case StateIsolation:
			dec, err := m.isolate()
			if err != nil {
				return nil, err
			}
			cand = dec
			state = StateShortInfo
		}
	}
}

// retryOrIdle increments retries and reports whether the caller should
// keep retrying (true) or fall back to LOGON_IDLE (false), per spec.md
// 4.10: "on timeout retry up to five times then fall back to
// LOGON_IDLE".
func (m *Machine) retryOrIdle(retries *int) bool {
	*retries++
	return *retries <= MaxStepRetries
}

// isolate runs the collision-resolution branch: LOGON_ENABLE repeated
// with the same range (0x00) on every attempt, each followed by a random
// 20-40 ms delay, up to IsolationMaxAttempts attempts (spec.md 4.10).
func (m *Machine) isolate() (Candidate, error) {
	for i := 0; i < IsolationMaxAttempts; i++ {
		msg, ok := m.sendAndWait(m.buildLogonEnable(0x00))
		delay := IsolationMinDelay + time.Duration(m.rng.Int63n(int64(IsolationMaxDelay-IsolationMinDelay)))
		time.Sleep(delay)
		if !ok {
			continue
		}
		if msg.Type == model.MsgCollision {
			continue
		}
		return Candidate{VID: uint8(msg.Data[0]), UID: uint32(msg.Param)}, nil
	}
	return Candidate{}, fmt.Errorf("dccalogon: %w: isolation exhausted %d attempts", model.ErrCollision, IsolationMaxAttempts)
}

// resolveAddress implements spec.md 4.10's address-assignment rule: reuse
// the existing record for this VID+UID if one is already known, else
// grant the decoder's own wished address if that address is free, else
// allocate a fresh one starting at FreeAddressBase (spec.md 8 scenario
// #4: wish 0x3803/addr 3 is already held by a different UID, so the core
// falls through to allocating 1000).
func (m *Machine) resolveAddress(cand Candidate) *model.LocoDef {
	if def, ok := m.db.FindByVidUid(cand.VID, cand.UID); ok {
		return def
	}

	if def, ok := m.resolveWish(cand); ok {
		return def
	}

	def := m.db.AllocateFree(FreeAddressBase)
	m.db.SetVid(def.Addr, cand.VID)
	m.db.SetUid(def.Addr, cand.UID)
	return def
}

// resolveWish grants the decoder's own wished address when it decodes to
// a loco-address prefix (long or short form) and nothing else occupies
// it. Extended/basic-accessory and firmware-update wishes address a
// different decoder class the loco DB doesn't model, so those are left
// for the caller to fall back to a fresh allocation.
func (m *Machine) resolveWish(cand Candidate) (*model.LocoDef, bool) {
	prefix := wishPrefix(cand.WishedAddr)
	wish := wishAddr(cand.WishedAddr)
	if wish == 0 {
		return nil, false
	}
	switch prefix {
	case prefixLongLoco, prefixShortLoco:
	default:
		if m.log != nil {
			m.log.WithField("prefix", fmt.Sprintf("0x%04X", prefix)).Debug("dccalogon: wished address outside the loco address space, allocating instead")
		}
		return nil, false
	}

	if existing, occupied := m.db.Lookup(wish); occupied && (existing.VID != cand.VID || existing.UID != cand.UID) {
		return nil, false
	}

	def := m.db.GetOrCreate(wish)
	m.db.SetVid(def.Addr, cand.VID)
	m.db.SetUid(def.Addr, cand.UID)
	return def, true
}

func (m *Machine) buildLogonEnable(rangeID byte) *model.Packet {
	return &model.Packet{
		Opcode: model.OpDccaLogonEnableAll,
		Format: model.FormatDCC126,
		Value:  m.sessionCID,
		Aspect: rangeID,
		Repeat: 1,
	}
}

func (m *Machine) buildSelectShortInfo(c Candidate) *model.Packet {
	return &model.Packet{
		Opcode: model.OpDccaSelectShortInfo,
		Format: model.FormatDCC126,
		VID:    c.VID,
		UID:    c.UID,
		Repeat: 3,
	}
}

func (m *Machine) buildAssign(c Candidate, addr uint16) *model.Packet {
	return &model.Packet{
		Opcode: model.OpDccaLogonAssign,
		Format: model.FormatDCC126,
		VID:    c.VID,
		UID:    c.UID,
		Addr:   addr,
		Repeat: 3,
	}
}

// dataSpace IDs spec.md 4.10 names as parsed.
const (
	SpaceCapabilities = 0
	SpaceBitmap       = 1
	SpaceShortGUI     = 2
	SpaceFuncIcons    = 4
	SpaceLongName     = 5
	SpaceVendorInfo   = 6
)

// pullDataSpaces reads the space bitmap then every advertised space via
// the block-reader sub-state-machine, applying parsed fields to the DB
// (spec.md 4.10).
func (m *Machine) pullDataSpaces(cand Candidate) (*model.LocoDef, error) {
	def, ok := m.db.FindByVidUid(cand.VID, cand.UID)
	if !ok {
		return nil, fmt.Errorf("dccalogon: %w", model.ErrNoDecoder)
	}
	def.Origin = model.OriginDCCA

	bitmapBlock, err := m.readBlock(def.Addr, SpaceBitmap)
	if err != nil {
		return nil, err
	}
	if len(bitmapBlock) == 0 {
		bitmapBlock = []byte{1 << SpaceCapabilities}
	}

	for space := 0; space < 8; space++ {
		if !spaceAdvertised(bitmapBlock, space) {
			continue
		}
		block, err := m.readBlock(def.Addr, space)
		if err != nil {
			if m.log != nil {
				m.log.WithError(err).WithField("space", space).Warn("dccalogon: data space read failed, skipping")
			}
			continue
		}
		m.applySpace(def, space, block)
	}
	return def, nil
}

func spaceAdvertised(bitmap []byte, space int) bool {
	byteIdx := space / 8
	if byteIdx >= len(bitmap) {
		return false
	}
	return bitmap[byteIdx]&(1<<uint(space%8)) != 0
}

// readBlock runs BLOCK_REQUEST -> BLOCK_START -> BLOCK_CONT... -> OK,
// validating the DCC-A CRC-8 seeded with the space id, retrying the
// whole space up to MaxBlockRetries times on CRC failure (spec.md
// 4.10).
func (m *Machine) readBlock(addr uint16, space int) ([]byte, error) {
	for attempt := 0; attempt < MaxBlockRetries; attempt++ {
		data, ok := m.readBlockOnce(addr, space)
		if ok {
			return data, nil
		}
	}
	return nil, fmt.Errorf("dccalogon: %w: space %d CRC failed after %d retries", model.ErrReadError, space, MaxBlockRetries)
}

func (m *Machine) readBlockOnce(addr uint16, space int) ([]byte, bool) {
	var collected []byte
	pkt := &model.Packet{Opcode: model.OpDccaGetDataStart, Format: model.FormatDCC126, Addr: addr, Value: uint16(space), Repeat: 1}
	msg, ok := m.sendAndWait(pkt)
	if !ok || msg.Type != model.MsgDccaBlock {
		return nil, false
	}
	collected = append(collected, msg.Data[:msg.Length]...)

	for !blockComplete(msg) {
		cont := &model.Packet{Opcode: model.OpDccaGetDataCont, Format: model.FormatDCC126, Addr: addr, Repeat: 1}
		msg, ok = m.sendAndWait(cont)
		if !ok || msg.Type != model.MsgDccaBlock {
			return nil, false
		}
		collected = append(collected, msg.Data[:msg.Length]...)
	}

	if len(collected) < 1 {
		return nil, false
	}
	payload, crc := collected[:len(collected)-1], collected[len(collected)-1]
	seeded := append([]byte{byte(space)}, payload...)
	if dccenc.CRC8DccA(seeded) != crc {
		return nil, false
	}
	return payload, true
}

// blockComplete reports whether msg's Param carries the "last fragment"
// flag the GET_DATA continuation protocol uses (bit 0 of Param, by this
// reconstruction's convention).
func blockComplete(msg model.ReplyMessage) bool {
	return msg.Param&0x01 != 0
}

// applySpace maps one decoded data-space payload onto the DB record
// (spec.md 4.10's parsed-space list).
func (m *Machine) applySpace(def *model.LocoDef, space int, block []byte) {
	if def.DCCA == nil {
		def.DCCA = &model.DccaInfo{}
	}
	switch space {
	case SpaceShortGUI:
		if len(block) >= 10 {
			def.DCCA.ShortName = trimNulls(block[:8])
			def.DCCA.PictureIndex = block[8]
			def.DCCA.Symbol = block[9]
		}
	case SpaceFuncIcons:
		for fn, icon := range block {
			if fn > def.MaxFunc {
				break
			}
			def.SetFuncIcon(fn, icon)
		}
	case SpaceLongName:
		if len(block) > 0 {
			def.Name = trimNulls(block)
		}
	case SpaceVendorInfo:
		if len(block) >= 4 {
			def.DCCA.Vendor = trimNulls(block[0:1])
			def.DCCA.Product = trimNulls(block[1:2])
			def.DCCA.HW = trimNulls(block[2:3])
			def.DCCA.FW = trimNulls(block[3:4])
		}
	}
	m.db.SetName(def.Addr, def.Name)
}

func trimNulls(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}
