package config

import (
	"os"
	"path/filepath"
	"testing"

	ini "gopkg.in/ini.v1"

	"github.com/railcore/mc2core/internal/decoderdb"
	"github.com/railcore/mc2core/internal/model"
)

type fakeTrigger struct{ calls int }

func (f *fakeTrigger) RequestSave() { f.calls++ }

func TestParseAddrSection_ValidAndInvalidNames(t *testing.T) {
	if adr, ok := parseAddrSection("L42", "L"); !ok || adr != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", adr, ok)
	}
	if _, ok := parseAddrSection("Lx", "L"); ok {
		t.Fatal("expected a non-numeric suffix to fail")
	}
	if _, ok := parseAddrSection("L0", "L"); ok {
		t.Fatal("expected address 0 to be rejected")
	}
}

func TestParseIndexedKey_ExtractsIndexAndValue(t *testing.T) {
	cfg := ini.Empty()
	sec, _ := cfg.NewSection("L1")
	k, _ := sec.NewKey("icon[3]", "7")

	idx, val, ok := parseIndexedKey(k)
	if !ok || idx != 3 || val != 7 {
		t.Fatalf("expected (3, 7, true), got (%d, %d, %v)", idx, val, ok)
	}
}

func TestSortLocos_OrdersByAddress(t *testing.T) {
	locos := []*model.LocoDef{{Addr: 30}, {Addr: 3}, {Addr: 17}}
	sortLocos(locos)
	want := []uint16{3, 17, 30}
	for i, w := range want {
		if locos[i].Addr != w {
			t.Fatalf("position %d: got addr %d, want %d", i, locos[i].Addr, w)
		}
	}
}

func TestLocoStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loco.ini")

	db1 := decoderdb.New(nil, &fakeTrigger{}, nil, model.FormatDCC28)
	def := db1.GetOrCreate(3)
	def.Name = "BR 01"
	def.MaxFunc = 20
	def.VID = 0x0D
	def.UID = 0xABCD1234
	db1.SetFuncIcon(3, 2, 9)

	store1 := NewLocoStore(path, db1)
	if err := store1.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	db2 := decoderdb.New(nil, &fakeTrigger{}, nil, model.FormatDCC28)
	store2 := NewLocoStore(path, db2)
	if err := store2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := db2.Lookup(3)
	if !ok {
		t.Fatal("expected loco 3 to load back")
	}
	if got.Name != "BR 01" || got.MaxFunc != 20 || got.VID != 0x0D || got.UID != 0xABCD1234 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestLocoStore_SaveIsIdempotentAcrossLoadSaveCycles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loco.ini")

	db1 := decoderdb.New(nil, &fakeTrigger{}, nil, model.FormatDCC28)
	db1.GetOrCreate(5).Name = "E94"
	store1 := NewLocoStore(path, db1)
	if err := store1.Save(); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	db2 := decoderdb.New(nil, &fakeTrigger{}, nil, model.FormatDCC28)
	store2 := NewLocoStore(path, db2)
	if err := store2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store2.Save(); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatalf("expected a save->load->save cycle to be idempotent:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}
}
