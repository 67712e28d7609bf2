package telemetry

import "testing"

func TestNewStore_StartsAtZeroValueSnapshot(t *testing.T) {
	s := NewStore()
	got := s.Read()
	if got != (Snapshot{}) {
		t.Fatalf("expected zero-value snapshot, got %+v", got)
	}
}

func TestStore_UpdateThenReadReturnsLatestSnapshot(t *testing.T) {
	s := NewStore()
	s.Update(Snapshot{TrackCurrentMA: 500, PhyLinkUp: true})
	s.Update(Snapshot{TrackCurrentMA: 900, SupplyVoltageMV: 18000})

	got := s.Read()
	if got.TrackCurrentMA != 900 || got.SupplyVoltageMV != 18000 || got.PhyLinkUp {
		t.Fatalf("expected the latest snapshot to fully replace the prior one, got %+v", got)
	}
}
