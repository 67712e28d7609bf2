package bitbuffer

import "testing"

func TestAppendBit_AndBitReadsBackInOrder(t *testing.T) {
	var b Buffer
	b.AppendBit(true)
	b.AppendBit(false)
	b.AppendBit(true)

	if b.NBits != 3 {
		t.Fatalf("expected NBits=3, got %d", b.NBits)
	}
	want := []bool{true, false, true}
	for i, w := range want {
		b.Pos = i
		if b.Bit() != w {
			t.Fatalf("bit %d: got %v, want %v", i, b.Bit(), w)
		}
	}
}

func TestAppendBits_AppendsNCopies(t *testing.T) {
	var b Buffer
	b.AppendBits(true, 5)
	if b.NBits != 5 {
		t.Fatalf("expected NBits=5, got %d", b.NBits)
	}
	for i := 0; i < 5; i++ {
		if !b.Bits[i] {
			t.Fatalf("bit %d: expected true", i)
		}
	}
}

func TestAppendByteMSBFirst_EncodesMostSignificantBitFirst(t *testing.T) {
	var b Buffer
	b.AppendByteMSBFirst(0b10110000)
	want := []bool{true, false, true, true, false, false, false, false}
	if b.NBits != 8 {
		t.Fatalf("expected 8 bits, got %d", b.NBits)
	}
	for i, w := range want {
		if b.Bits[i] != w {
			t.Fatalf("bit %d: got %v, want %v", i, b.Bits[i], w)
		}
	}
}

func TestAppendBit_PanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when appending past MaxBits")
		}
	}()
	var b Buffer
	b.AppendBits(true, MaxBits)
	b.AppendBit(true)
}

func TestAdvance_MovesThroughBufferThenConsumesRepeat(t *testing.T) {
	var b Buffer
	b.AppendBits(true, 2)
	b.Repeat = 1

	if !b.Advance() {
		t.Fatal("expected more work after first bit")
	}
	if b.Pos != 1 {
		t.Fatalf("expected Pos=1, got %d", b.Pos)
	}
	// End of bits with one repeat left: wraps, consumes the repeat, still
	// more work.
	if !b.Advance() {
		t.Fatal("expected more work: one repeat remains")
	}
	if b.Pos != 0 || b.Repeat != 0 {
		t.Fatalf("expected wrap to Pos=0 with Repeat consumed to 0, got Pos=%d Repeat=%d", b.Pos, b.Repeat)
	}
	// Second bit of the repeat pass.
	if !b.Advance() {
		t.Fatal("expected more work for the second bit of the repeat pass")
	}
	// End of the repeat pass with no repeats left: done.
	if b.Advance() {
		t.Fatal("expected no more work once bits and repeats are exhausted")
	}
}

func TestAdvance_NoRepeatEndsAfterOnePass(t *testing.T) {
	var b Buffer
	b.AppendBits(true, 1)
	if b.Advance() {
		t.Fatal("expected a single-bit, zero-repeat buffer to finish after one Advance")
	}
}

func TestReset_ClearsAllState(t *testing.T) {
	b := Buffer{Tag: TagM3, NBits: 4, Pos: 2, Repeat: 3}
	b.Reset()
	if b.NBits != 0 || b.Pos != 0 || b.Repeat != 0 || b.Tag != TagDCC {
		t.Fatalf("expected a fully zeroed buffer after Reset, got %+v", b)
	}
}

func TestPool_GetReturnsFreshBufferWhenEmpty(t *testing.T) {
	p := NewPool(0)
	b := p.Get()
	if b == nil {
		t.Fatal("expected a non-nil buffer even from an empty pool")
	}
}

func TestPool_PutThenGetReusesAndResetsTheBuffer(t *testing.T) {
	p := NewPool(1)
	b := p.Get()
	b.NBits = 10
	b.Tag = TagM3

	p.Put(b)
	got := p.Get()
	if got.NBits != 0 || got.Tag != TagDCC {
		t.Fatalf("expected Put to reset the buffer before reuse, got %+v", got)
	}
}

func TestPool_PutBeyondCapacityIsDropped(t *testing.T) {
	p := NewPool(1)
	a := p.Get()
	b := &Buffer{}

	p.Put(a)
	p.Put(b) // pool already at capacity 1; this one is discarded

	first := p.Get()
	if first == nil {
		t.Fatal("expected the one retained buffer to come back")
	}
	second := p.Get()
	if second == nil {
		t.Fatal("expected Get to fall back to a fresh buffer once the pool is empty")
	}
}
