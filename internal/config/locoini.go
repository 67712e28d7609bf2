package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	ini "gopkg.in/ini.v1"

	"github.com/railcore/mc2core/internal/decoderdb"
	"github.com/railcore/mc2core/internal/model"
)

// SaveDebounce is the coalescing window decoderdb.StoreTrigger waits
// before flushing loco.ini to disk (spec.md 4.1: "a debounced store
// (3s coalescing window)").
const SaveDebounce = 3 * time.Second

// LocoStore owns loco.ini: it loads the DB at startup and implements
// decoderdb.StoreTrigger, debouncing writes the way the teacher debounces
// nothing directly but mirrors its functional-options pattern for
// configuring the timer (pkgs/decoders/rb23xx.go's Option funcs).
type LocoStore struct {
	log  *logrus.Entry
	path string
	db   *decoderdb.DB

	mu    sync.Mutex
	timer *time.Timer
}

// Option configures a LocoStore at construction time.
type Option func(*LocoStore)

// WithLogger overrides the default nil logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *LocoStore) { s.log = log }
}

func NewLocoStore(path string, db *decoderdb.DB, opts ...Option) *LocoStore {
	s := &LocoStore{path: path, db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestSave implements decoderdb.StoreTrigger: it (re)arms a single
// SaveDebounce timer rather than writing synchronously on every
// mutation.
func (s *LocoStore) RequestSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(SaveDebounce, func() {
		if err := s.Save(); err != nil && s.log != nil {
			s.log.WithError(err).Error("locoini: debounced save failed")
		}
	})
}

// Flush cancels any pending debounce and saves immediately, for use at
// shutdown (spec.md's supplemented debounced-store feature).
func (s *LocoStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Save()
}

// Load reads loco.ini into db, sections [L<adr>], [T<adr>], [X<adr>],
// [Consists] (spec.md 6).
func (s *LocoStore) Load() error {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, s.path)
	if err != nil {
		if strings.Contains(err.Error(), "no such file") {
			return nil
		}
		return fmt.Errorf("locoini: load %s: %w", s.path, err)
	}

	for _, sec := range cfg.Sections() {
		name := sec.Name()
		switch {
		case strings.HasPrefix(name, "L"):
			if adr, ok := parseAddrSection(name, "L"); ok {
				s.loadLoco(sec, adr)
			}
		case strings.HasPrefix(name, "T"):
			if adr, ok := parseAddrSection(name, "T"); ok {
				s.loadTurnout(sec, adr)
			}
		case strings.HasPrefix(name, "X"):
			if adr, ok := parseAddrSection(name, "X"); ok {
				s.loadExtAcc(sec, adr)
			}
		case name == "Consists":
			s.loadConsists(sec)
		}
	}
	return nil
}

func parseAddrSection(name, prefix string) (uint16, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return uint16(n), true
}

func (s *LocoStore) loadLoco(sec *ini.Section, adr uint16) {
	def := s.db.GetOrCreate(adr)
	if f, err := strconv.Atoi(sec.Key("fmt").String()); err == nil {
		def.Format = model.Format(f)
	}
	if mf, err := strconv.Atoi(sec.Key("maxfunc").String()); err == nil {
		def.MaxFunc = mf
	}
	def.Name = sec.Key("name").String()
	if vid, err := strconv.ParseUint(sec.Key("vid").String(), 16, 8); err == nil {
		def.VID = uint8(vid)
	}
	if uid, err := strconv.ParseUint(sec.Key("uid").String(), 16, 32); err == nil {
		def.UID = uint32(uid)
	}
	for _, k := range sec.Keys() {
		if !strings.HasPrefix(k.Name(), "icon[") {
			continue
		}
		fn, icon, ok := parseIndexedKey(k)
		if ok {
			def.SetFuncIcon(fn, uint8(icon))
		}
	}
	for _, k := range sec.Keys() {
		if !strings.HasPrefix(k.Name(), "ftime[") {
			continue
		}
		fn, val, ok := parseIndexedKey(k)
		if ok {
			def.SetFuncTiming(fn, model.FuncTiming(val))
		}
	}
	if sec.HasKey("shortname") || sec.HasKey("vendor") {
		if def.DCCA == nil {
			def.DCCA = &model.DccaInfo{}
		}
		def.DCCA.ShortName = sec.Key("shortname").String()
		def.DCCA.Vendor = sec.Key("vendor").String()
		def.DCCA.Product = sec.Key("product").String()
		def.DCCA.HW = sec.Key("HW").String()
		def.DCCA.FW = sec.Key("FW").String()
	}
}

// parseIndexedKey parses a key named "name[N]" into (N, integer value).
func parseIndexedKey(k *ini.Key) (int, int, bool) {
	name := k.Name()
	open := strings.IndexByte(name, '[')
	shut := strings.IndexByte(name, ']')
	if open < 0 || shut < open {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(name[open+1 : shut])
	if err != nil {
		return 0, 0, false
	}
	val, err := strconv.Atoi(k.String())
	if err != nil {
		return 0, 0, false
	}
	return idx, val, true
}

func (s *LocoStore) loadTurnout(sec *ini.Section, adr uint16) {
	format := model.TurnoutMM
	if f, err := strconv.Atoi(sec.Key("fmt").String()); err == nil {
		format = model.TurnoutFormat(f)
	}
	t := s.db.GetOrCreateTurnout(adr, format)
	if uidHex := sec.Key("uid").String(); len(uidHex) == 14 {
		var raw [7]byte
		for i := 0; i < 7; i++ {
			v, err := strconv.ParseUint(uidHex[i*2:i*2+2], 16, 8)
			if err == nil {
				raw[i] = byte(v)
			}
		}
		t.NodeUID = raw
	}
	if a, err := strconv.Atoi(sec.Key("aspect").String()); err == nil {
		t.Aspect = uint8(a)
	}
}

func (s *LocoStore) loadExtAcc(sec *ini.Section, adr uint16) {
	s.db.GetOrCreateExtAcc(adr)
}

// loadConsists parses the repeated, comma-or-space-separated key
// [Consists] uses (spec.md 6); each value's first entry is the lead
// address, remaining entries are members.
func (s *LocoStore) loadConsists(sec *ini.Section) {
	for _, k := range sec.Keys() {
		fields := strings.FieldsFunc(k.String(), func(r rune) bool { return r == ',' || r == ' ' })
		var members []model.ConsistMember
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				continue
			}
			members = append(members, model.ConsistMember(n))
		}
		if len(members) < 2 {
			continue
		}
		lead := members[0].Addr()
		s.db.PutConsist(lead, &model.Consist{Members: members})
	}
}

// Save writes the whole DB to loco.ini in canonical section/key order,
// so repeated Save calls with no intervening mutation are byte-for-byte
// identical (spec.md 8: "DB save -> load -> save produces an identical
// canonical INI byte sequence").
func (s *LocoStore) Save() error {
	cfg := ini.Empty()

	var locos []*model.LocoDef
	s.db.Iterate(func(def *model.LocoDef) { locos = append(locos, def) })
	sortLocos(locos)
	for _, def := range locos {
		sec, _ := cfg.NewSection(fmt.Sprintf("L%d", def.Addr))
		sec.Key("fmt").SetValue(strconv.Itoa(int(def.Format)))
		sec.Key("maxfunc").SetValue(strconv.Itoa(def.MaxFunc))
		sec.Key("name").SetValue(def.Name)
		sec.Key("vid").SetValue(fmt.Sprintf("%02X", def.VID))
		sec.Key("uid").SetValue(fmt.Sprintf("%08X", def.UID))
		if def.DCCA != nil {
			sec.Key("shortname").SetValue(def.DCCA.ShortName)
			sec.Key("vendor").SetValue(def.DCCA.Vendor)
			sec.Key("product").SetValue(def.DCCA.Product)
			sec.Key("HW").SetValue(def.DCCA.HW)
			sec.Key("FW").SetValue(def.DCCA.FW)
		}
		for _, fn := range def.Funcs {
			sec.Key(fmt.Sprintf("icon[%d]", fn.Num)).SetValue(strconv.Itoa(int(fn.Icon)))
			sec.Key(fmt.Sprintf("ftime[%d]", fn.Num)).SetValue(strconv.Itoa(int(fn.Timing)))
		}
	}

	var turnoutAddrs []uint16
	turnouts := map[uint16]*model.Turnout{}
	s.db.IterateTurnouts(func(t *model.Turnout) { turnoutAddrs = append(turnoutAddrs, t.Addr); turnouts[t.Addr] = t })
	sortU16(turnoutAddrs)
	for _, adr := range turnoutAddrs {
		t := turnouts[adr]
		sec, _ := cfg.NewSection(fmt.Sprintf("T%d", t.Addr))
		sec.Key("fmt").SetValue(strconv.Itoa(int(t.Format)))
		sec.Key("uid").SetValue(fmt.Sprintf("%014X", t.NodeUID[:]))
		sec.Key("aspect").SetValue(strconv.Itoa(int(t.Aspect)))
	}

	s.db.IterateExtAcc(func(x *model.ExtAccessory) {
		sec, _ := cfg.NewSection(fmt.Sprintf("X%d", x.Addr))
		sec.Key("fmt").SetValue(strconv.Itoa(int(x.Format)))
	})

	consistsSec, _ := cfg.NewSection("Consists")
	idx := 0
	s.db.IterateConsists(func(lead uint16, c *model.Consist) {
		idx++
		parts := make([]string, len(c.Members))
		for i, m := range c.Members {
			parts[i] = strconv.Itoa(int(m))
		}
		consistsSec.Key(fmt.Sprintf("c%d", idx)).SetValue(strings.Join(parts, ","))
	})

	if err := cfg.SaveTo(s.path); err != nil {
		return fmt.Errorf("locoini: save %s: %w", s.path, err)
	}
	return nil
}

func sortLocos(locos []*model.LocoDef) {
	for i := 1; i < len(locos); i++ {
		for j := i; j > 0 && locos[j].Addr < locos[j-1].Addr; j-- {
			locos[j], locos[j-1] = locos[j-1], locos[j]
		}
	}
}

func sortU16(addrs []uint16) {
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && addrs[j] < addrs[j-1]; j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
}
