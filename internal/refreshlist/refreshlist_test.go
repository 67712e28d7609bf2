package refreshlist

import (
	"testing"
	"time"

	"github.com/railcore/mc2core/internal/decoderdb"
	"github.com/railcore/mc2core/internal/model"
)

func TestTouch_AddsAndTracksAge(t *testing.T) {
	l := New(nil, time.Minute)
	now := time.Unix(0, 0)

	l.Touch(5, now)
	l.Touch(5, now.Add(time.Second))

	age, ok := l.Age(5)
	if !ok || age != 2 {
		t.Fatalf("expected age 2, got %d (ok=%v)", age, ok)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked entry, got %d", l.Len())
	}
}

func TestNext_CyclesRoundRobin(t *testing.T) {
	l := New(nil, time.Minute)
	now := time.Unix(0, 0)
	l.Touch(1, now)
	l.Touch(2, now)
	l.Touch(3, now)

	seen := map[uint16]int{}
	for i := 0; i < 6; i++ {
		addr, ok := l.Next()
		if !ok {
			t.Fatal("expected Next to find an entry")
		}
		seen[addr]++
	}
	for _, addr := range []uint16{1, 2, 3} {
		if seen[addr] != 2 {
			t.Fatalf("expected address %d visited twice over two full cycles, got %d", addr, seen[addr])
		}
	}
}

// TestNext_ConsistRingAlternatesAllMembers pins spec.md 8 scenario #5
// ("refresh emits speed commands for 5 then for 7") and its generalization
// to 3+ member consists: every member, including the lead's own address,
// must come up in ring order before the outer cursor moves on.
func TestNext_ConsistRingAlternatesAllMembers(t *testing.T) {
	db := decoderdb.New(nil, noopTrigger{}, func(uint16) {}, model.FormatDCC28)
	db.PutConsist(5, &model.Consist{Members: []model.ConsistMember{5, 7}})

	l := New(db, time.Minute)
	now := time.Unix(0, 0)
	l.Touch(5, now)

	var got []uint16
	for i := 0; i < 4; i++ {
		addr, ok := l.Next()
		if !ok {
			t.Fatal("expected Next to find an entry")
		}
		got = append(got, addr)
	}
	want := []uint16{5, 7, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Next() sequence = %v, want %v", got, want)
		}
	}
}

// TestNext_ConsistRingCoversThirdMember guards against a fix that only
// alternates between the first two ring members.
func TestNext_ConsistRingCoversThirdMember(t *testing.T) {
	db := decoderdb.New(nil, noopTrigger{}, func(uint16) {}, model.FormatDCC28)
	db.PutConsist(5, &model.Consist{Members: []model.ConsistMember{5, 7, 9}})

	l := New(db, time.Minute)
	now := time.Unix(0, 0)
	l.Touch(5, now)
	l.Touch(11, now)

	var gotForLead []uint16
	for i := 0; i < 3; i++ {
		addr, ok := l.Next()
		if !ok {
			t.Fatal("expected Next to find an entry")
		}
		if addr == 11 {
			continue
		}
		gotForLead = append(gotForLead, addr)
	}
	want := []uint16{5, 7, 9}
	if len(gotForLead) != len(want) {
		t.Fatalf("expected the ring to complete before moving on, got %v", gotForLead)
	}
	for i := range want {
		if gotForLead[i] != want[i] {
			t.Fatalf("got %v, want %v", gotForLead, want)
		}
	}
}

type noopTrigger struct{}

func (noopTrigger) RequestSave() {}

func TestNext_EmptyListReturnsFalse(t *testing.T) {
	l := New(nil, time.Minute)
	if _, ok := l.Next(); ok {
		t.Fatal("expected Next to report false on an empty list")
	}
}

func TestPurge_RemovesExpiredEntries(t *testing.T) {
	l := New(nil, time.Second)
	base := time.Unix(0, 0)
	l.Touch(1, base)
	l.Touch(2, base)

	purged := l.Purge(base.Add(2 * time.Second))
	if len(purged) != 2 {
		t.Fatalf("expected both entries purged, got %v", purged)
	}
	if l.Len() != 0 {
		t.Fatalf("expected list empty after purge, got len %d", l.Len())
	}
}

func TestPurge_KeepsFreshEntries(t *testing.T) {
	l := New(nil, time.Minute)
	base := time.Unix(0, 0)
	l.Touch(1, base)

	purged := l.Purge(base.Add(time.Second))
	if len(purged) != 0 {
		t.Fatalf("expected nothing purged within the idle window, got %v", purged)
	}
}

func TestRemove_UnlinksEntry(t *testing.T) {
	l := New(nil, time.Minute)
	now := time.Unix(0, 0)
	l.Touch(1, now)
	l.Touch(2, now)

	l.Remove(1)
	if l.Len() != 1 {
		t.Fatalf("expected 1 entry after Remove, got %d", l.Len())
	}
	if _, ok := l.Age(1); ok {
		t.Fatal("expected removed entry to be gone")
	}
}
