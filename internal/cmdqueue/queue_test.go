package cmdqueue

import (
	"testing"

	"github.com/railcore/mc2core/internal/model"
)

type fakeRefresh struct {
	pkt   *model.Packet
	found bool
}

func (f *fakeRefresh) NextRefreshPacket() (*model.Packet, bool) { return f.pkt, f.found }

type fakeIdleProbe struct{ idle bool }

func (f *fakeIdleProbe) ISRIdle() bool { return f.idle }

func TestEnqueue_CoalescesEquivalentPackets(t *testing.T) {
	q := New(nil, nil)
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 3, Step: 10})
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 3, Step: 50})

	if q.Len() != 1 {
		t.Fatalf("expected coalescing to leave exactly 1 packet, got %d", q.Len())
	}
	p, ok := q.Dequeue(false)
	if !ok || p.Step != 50 {
		t.Fatalf("expected the later speed (50) to have replaced the earlier one, got %+v ok=%v", p, ok)
	}
}

func TestEnqueue_KeepsDistinctAddresses(t *testing.T) {
	q := New(nil, nil)
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 3})
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 4})

	if q.Len() != 2 {
		t.Fatalf("expected 2 distinct packets, got %d", q.Len())
	}
}

func TestDequeue_FallsBackToRefreshWhenEmpty(t *testing.T) {
	refreshPkt := &model.Packet{Opcode: model.OpSetSpeed, Addr: 9}
	q := New(&fakeRefresh{pkt: refreshPkt, found: true}, nil)

	p, ok := q.Dequeue(true)
	if !ok || p != refreshPkt {
		t.Fatalf("expected the refresh packet, got %+v ok=%v", p, ok)
	}
}

func TestDequeue_NoRefreshWhenDisallowed(t *testing.T) {
	q := New(&fakeRefresh{pkt: &model.Packet{}, found: true}, nil)
	if _, ok := q.Dequeue(false); ok {
		t.Fatal("expected Dequeue(false) on an empty queue to report false")
	}
}

func TestPushBack_PutsPacketAtHead(t *testing.T) {
	q := New(nil, nil)
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 1})
	q.PushBack(&model.Packet{Opcode: model.OpPomReadByte, Addr: 2})

	p, ok := q.Dequeue(false)
	if !ok || p.Opcode != model.OpPomReadByte {
		t.Fatalf("expected the pushed-back packet first, got %+v", p)
	}
}

func TestIsIdle_TrueWhenEmptyAndNoISRProbe(t *testing.T) {
	q := New(nil, nil)
	if !q.IsIdle() {
		t.Fatal("expected IsIdle to default to true with an empty queue and no ISR probe")
	}
}

func TestIsIdle_FalseWhenISRBusy(t *testing.T) {
	probe := &fakeIdleProbe{idle: false}
	q := New(nil, probe)
	if q.IsIdle() {
		t.Fatal("expected IsIdle to be false while the ISR ring is still draining")
	}
}

func TestFlush_DropsQueuedPackets(t *testing.T) {
	q := New(nil, nil)
	q.Enqueue(&model.Packet{Opcode: model.OpSetSpeed, Addr: 1})
	q.Flush()
	if q.Len() != 0 {
		t.Fatalf("expected Flush to empty the queue, got len %d", q.Len())
	}
}

func TestBitWritePackets_NeverCoalesce(t *testing.T) {
	q := New(nil, nil)
	q.Enqueue(&model.Packet{Opcode: model.OpProgDirectWriteBit, CV: 29, Value: 0})
	q.Enqueue(&model.Packet{Opcode: model.OpProgDirectWriteBit, CV: 29, Value: 1})

	if q.Len() != 2 {
		t.Fatalf("expected bit-write packets to never coalesce, got len %d", q.Len())
	}
}
