package events

import "testing"

func TestPublish_FansOutToAllSubscribersOfKind(t *testing.T) {
	b := New(nil)
	var a, bCount int
	b.Subscribe(LocoSpeed, func(Event) { a++ })
	b.Subscribe(LocoSpeed, func(Event) { bCount++ })
	b.Subscribe(Turnout, func(Event) { t.Fatal("turnout handler should not fire for a LocoSpeed event") })

	b.Publish(Event{Kind: LocoSpeed, Payload: uint16(3)})

	if a != 1 || bCount != 1 {
		t.Fatalf("expected both LocoSpeed subscribers to fire once, got a=%d b=%d", a, bCount)
	}
}

func TestSubscribe_UnsubscribeStopsFurtherDelivery(t *testing.T) {
	b := New(nil)
	count := 0
	unsub := b.Subscribe(SysStatus, func(Event) { count++ })

	b.Publish(Event{Kind: SysStatus})
	unsub()
	b.Publish(Event{Kind: SysStatus})

	if count != 1 {
		t.Fatalf("expected exactly 1 delivery before unsubscribe, got %d", count)
	}
}

func TestKind_StringNamesEveryDefinedKind(t *testing.T) {
	cases := map[Kind]string{
		SysStatus:       "SYS_STATUS",
		LocoSpeed:       "LOCO_SPEED",
		AccessoryFormat: "ACCFMT",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestKind_StringUnknownValue(t *testing.T) {
	if got := Kind(999).String(); got != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN for an out-of-range Kind, got %q", got)
	}
}
