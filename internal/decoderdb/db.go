// Package decoderdb is C1: the persistent catalogue of loco, turnout and
// extended-accessory definitions plus consists, keyed by address and
// protected by a single reader/writer mutex (spec.md 4.1/5).
package decoderdb

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/internal/model"
)

// StoreTrigger is fired on every successful mutation so a debounced
// persistence layer (internal/config's loco.ini writer) can schedule a
// coalesced save (spec.md 4.1: "a debounced store (3s coalescing
// window)").
type StoreTrigger interface {
	RequestSave()
}

// ParamChanged is fired on every successful mutation (spec.md 4.1:
// "all mutations also fire a parameter-changed event on success").
type ParamChanged func(addr uint16)

// DB is C1.
type DB struct {
	log *logrus.Entry

	mu        sync.RWMutex
	locos     map[uint16]*model.LocoDef
	turnouts  map[uint16]*model.Turnout
	extAccs   map[uint16]*model.ExtAccessory
	consists  map[uint16]*model.Consist // keyed by the consist's lead address

	store    StoreTrigger
	onChange ParamChanged

	defaultFormat model.Format
}

// New creates an empty DB. defaultFormat seeds get_or_create's choice
// for addresses that don't otherwise imply a format (spec.md 4.1).
func New(log *logrus.Entry, store StoreTrigger, onChange ParamChanged, defaultFormat model.Format) *DB {
	return &DB{
		log:           log,
		locos:         make(map[uint16]*model.LocoDef),
		turnouts:      make(map[uint16]*model.Turnout),
		extAccs:       make(map[uint16]*model.ExtAccessory),
		consists:      make(map[uint16]*model.Consist),
		store:         store,
		onChange:      onChange,
		defaultFormat: defaultFormat,
	}
}

// Lookup returns the definition for adr, or the process-wide default
// template when adr is 0 (spec.md 4.1).
func (d *DB) Lookup(adr uint16) (*model.LocoDef, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if adr == 0 {
		return &model.LocoDef{Addr: 0, Format: d.defaultFormat, MaxFunc: 31}, true
	}
	def, ok := d.locos[adr]
	return def, ok
}

// GetOrCreate returns the existing definition for adr, or creates one
// with a default format chosen by address range (spec.md 4.1: MM for
// <=255 if the default format is MM-family, else DCC/28 up to 10239,
// else M3).
func (d *DB) GetOrCreate(adr uint16) *model.LocoDef {
	d.mu.Lock()
	defer d.mu.Unlock()
	if def, ok := d.locos[adr]; ok {
		return def
	}
	format := model.DefaultFormatForAddress(adr, d.defaultFormat.IsMM())
	def := &model.LocoDef{Addr: adr, Format: format, MaxFunc: 4}
	if format.IsDCC() {
		def.MaxFunc = 31
	}
	if format.IsM3() {
		def.MaxFunc = 127
	}
	d.locos[adr] = def
	d.fireLocked(adr)
	return def
}

// AllocateFree returns the first unused address >= base, creating it
// with GetOrCreate semantics -- used by DCC-A and M3 auto-registration
// (spec.md 4.1/4.10: "a freshly allocated free address starting at
// 1000").
func (d *DB) AllocateFree(base uint16) *model.LocoDef {
	d.mu.Lock()
	defer d.mu.Unlock()
	adr := base
	for {
		if _, used := d.locos[adr]; !used {
			break
		}
		adr++
	}
	format := model.DefaultFormatForAddress(adr, d.defaultFormat.IsMM())
	def := &model.LocoDef{Addr: adr, Format: format, MaxFunc: 4}
	if format.IsDCC() {
		def.MaxFunc = 31
	}
	if format.IsM3() {
		def.MaxFunc = 127
	}
	d.locos[adr] = def
	d.fireLocked(adr)
	return def
}

// FindByVidUid does a linear search; uid=0 never matches (spec.md 4.1).
func (d *DB) FindByVidUid(vid byte, uid uint32) (*model.LocoDef, bool) {
	if uid == 0 {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, def := range d.locos {
		if def.VID == vid && def.UID == uid {
			return def, true
		}
	}
	return nil, false
}

func (d *DB) mutate(adr uint16, fn func(def *model.LocoDef) error) error {
	d.mu.Lock()
	def, ok := d.locos[adr]
	if !ok {
		d.mu.Unlock()
		return model.ErrNoDecoder
	}
	err := fn(def)
	if err == nil {
		d.sanitizeLocked(adr)
	}
	d.mu.Unlock()
	if err == nil {
		d.fireLocked(adr)
	}
	return err
}

func (d *DB) SetFormat(adr uint16, f model.Format) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.Format = f; return nil })
}

func (d *DB) SetVid(adr uint16, vid byte) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.VID = vid; return nil })
}

func (d *DB) SetUid(adr uint16, uid uint32) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.UID = uid; return nil })
}

func (d *DB) SetMaxFunc(adr uint16, maxFunc int) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.MaxFunc = maxFunc; return nil })
}

func (d *DB) SetName(adr uint16, name string) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.Name = name; return nil })
}

func (d *DB) SetFuncIcon(adr uint16, fn int, icon int) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.SetFuncIcon(fn, uint8(icon)); return nil })
}

func (d *DB) SetFuncTiming(adr uint16, fn int, timing model.FuncTiming) error {
	return d.mutate(adr, func(def *model.LocoDef) error { def.SetFuncTiming(fn, timing); return nil })
}

// Delete removes a loco definition entirely (user-initiated, spec.md 3's
// "destroyed explicitly by the user").
func (d *DB) Delete(adr uint16) {
	d.mu.Lock()
	delete(d.locos, adr)
	d.mu.Unlock()
	d.requestSave()
	d.fireLocked(adr)
}

// sanitizeLocked enforces spec.md 4.1's post-mutation invariants,
// deleting the definition if it cannot be legalised (e.g. an MM loco at
// address > 255). Caller must hold d.mu.
func (d *DB) sanitizeLocked(adr uint16) {
	def, ok := d.locos[adr]
	if !ok {
		return
	}
	if err := def.Validate(); err != nil {
		if d.log != nil {
			d.log.WithField("addr", adr).WithError(err).Warn("decoderdb: deleting unsanitizable definition")
		}
		delete(d.locos, adr)
		return
	}
	d.requestSaveLocked()
}

func (d *DB) requestSaveLocked() {
	if d.store != nil {
		d.store.RequestSave()
	}
}

func (d *DB) requestSave() {
	if d.store != nil {
		d.store.RequestSave()
	}
}

func (d *DB) fireLocked(adr uint16) {
	if d.onChange != nil {
		d.onChange(adr)
	}
}

// Named is a (address, name) pair for the sorted_by_name snapshot.
type Named struct {
	Addr uint16
	Name string
}

// SortedByName produces a snapshot ordered by name then address, for
// cursor navigation from external UIs (spec.md 4.1).
func (d *DB) SortedByName() []Named {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Named, 0, len(d.locos))
	for adr, def := range d.locos {
		out = append(out, Named{Addr: adr, Name: def.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Addr < out[j].Addr
	})
	return out
}

// Iterate visits every loco definition, for snapshots and persistence
// (spec.md 4.1). The visitor must not mutate the DB.
func (d *DB) Iterate(visit func(def *model.LocoDef)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, def := range d.locos {
		visit(def)
	}
}

// IterateTurnouts/IterateExtAcc/IterateConsists mirror Iterate for the
// other persisted collections (spec.md 4.1's `T<adr>`/`X<adr>`/
// `Consists` INI sections).
func (d *DB) IterateTurnouts(visit func(t *model.Turnout)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.turnouts {
		visit(t)
	}
}

func (d *DB) IterateExtAcc(visit func(x *model.ExtAccessory)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, x := range d.extAccs {
		visit(x)
	}
}

func (d *DB) IterateConsists(visit func(lead uint16, c *model.Consist)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for lead, c := range d.consists {
		visit(lead, c)
	}
}

// Turnout/ExtAccessory accessors, used by both the control surfaces and
// the INI loader.
func (d *DB) GetOrCreateTurnout(adr uint16, format model.TurnoutFormat) *model.Turnout {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.turnouts[adr]
	if !ok {
		t = &model.Turnout{Addr: adr, Format: format}
		d.turnouts[adr] = t
	}
	return t
}

func (d *DB) GetOrCreateExtAcc(adr uint16) *model.ExtAccessory {
	d.mu.Lock()
	defer d.mu.Unlock()
	x, ok := d.extAccs[adr]
	if !ok {
		x = &model.ExtAccessory{Addr: adr, Format: model.TurnoutDCC}
		d.extAccs[adr] = x
	}
	return x
}

func (d *DB) PutConsist(lead uint16, c *model.Consist) {
	d.mu.Lock()
	d.consists[lead] = c
	d.mu.Unlock()
	d.requestSave()
}

func (d *DB) GetConsist(lead uint16) (*model.Consist, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.consists[lead]
	return c, ok
}

// RemoveConsistMember drops one member from the consist led by lead; the
// ring survives unless fewer than 2 members remain, in which case the
// whole consist is dissolved. This is distinct from DissolveConsist
// (spec.md's flagged remove/dissolve ambiguity -- resolved in DESIGN.md).
func (d *DB) RemoveConsistMember(lead uint16, addr uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.consists[lead]
	if !ok {
		return model.ErrNoDecoder
	}
	idx := c.IndexOf(addr)
	if idx < 0 {
		return model.ErrNoDecoder
	}
	c.Members = append(c.Members[:idx], c.Members[idx+1:]...)
	if len(c.Members) < 2 {
		delete(d.consists, lead)
	}
	d.requestSaveLocked()
	return nil
}

// DissolveConsist removes the whole consist regardless of member count.
func (d *DB) DissolveConsist(lead uint16) {
	d.mu.Lock()
	delete(d.consists, lead)
	d.mu.Unlock()
	d.requestSave()
}

// MutexCeiling is the 20 ms acquire ceiling spec.md 5 assigns to the DB
// mutex; the DB's methods take their sync.RWMutex without a timeout and
// do not enforce this ceiling.
const MutexCeiling = 20 * time.Millisecond
