package model

import "testing"

func TestNewSpeedByte_EncodesStepAndDirection(t *testing.T) {
	s := NewSpeedByte(70, true)
	if s.Step() != 70 || !s.Forward() {
		t.Fatalf("expected step=70 forward=true, got step=%d forward=%v", s.Step(), s.Forward())
	}
	if s.IsStop() || s.IsEStop() {
		t.Fatal("expected neither stop nor e-stop for step 70")
	}
}

func TestSpeedByte_StopAndEStopSteps(t *testing.T) {
	if !NewSpeedByte(0, true).IsStop() {
		t.Fatal("expected step 0 to report IsStop")
	}
	if !NewSpeedByte(1, true).IsEStop() {
		t.Fatal("expected step 1 to report IsEStop")
	}
}

func TestSpeedByte_StepMasksOutTheDirectionBit(t *testing.T) {
	s := NewSpeedByte(127, false)
	if s.Step() != 127 {
		t.Fatalf("expected step 127 preserved, got %d", s.Step())
	}
	if s.Forward() {
		t.Fatal("expected forward=false")
	}
}

func TestFuncBits_SetGetToggle(t *testing.T) {
	var b FuncBits
	if b.Get(5) {
		t.Fatal("expected function 5 to start off")
	}
	b.Set(5, true)
	if !b.Get(5) {
		t.Fatal("expected function 5 to be on after Set(true)")
	}
	if on := b.Toggle(5); on {
		t.Fatal("expected Toggle to turn function 5 off")
	}
	if b.Get(5) {
		t.Fatal("expected function 5 off after toggling")
	}
}

func TestFuncBits_OutOfRangeIndicesAreNoOps(t *testing.T) {
	var b FuncBits
	b.Set(-1, true)
	b.Set(128, true)
	if b.Get(-1) || b.Get(128) {
		t.Fatal("expected out-of-range function indices to never read as set")
	}
}

func TestFuncBits_SpansAllFourWords(t *testing.T) {
	var b FuncBits
	b.Set(0, true)
	b.Set(100, true)
	if !b.Get(0) || !b.Get(100) {
		t.Fatal("expected both low and high function indices to be independently addressable")
	}
	if b.Get(1) || b.Get(99) {
		t.Fatal("expected neighboring bits to remain unset")
	}
}

func TestLiveLoco_EffectiveDirectionAccountsForConsistReversal(t *testing.T) {
	def := &LocoDef{Addr: 3}
	l := NewLiveLoco(def)
	l.Speed = NewSpeedByte(50, true)

	if !l.EffectiveDirection() {
		t.Fatal("expected forward direction when not consist-reversed")
	}
	l.ConsistReversed = true
	if l.EffectiveDirection() {
		t.Fatal("expected direction flipped when consist-reversed")
	}
}

func TestNewLiveLoco_StartsNotInConsist(t *testing.T) {
	l := NewLiveLoco(&LocoDef{Addr: 7})
	if l.InConsist() {
		t.Fatal("expected a freshly created live loco to not be in a consist")
	}
}
