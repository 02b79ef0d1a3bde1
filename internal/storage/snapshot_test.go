package storage

import (
	"testing"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

func TestSnapshot_SaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	// Empty dir: no snapshot yet.
	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if snap != nil {
		t.Fatal("Expected nil snapshot for empty dir")
	}

	first := &Snapshot{
		Seq:    10,
		TsUnix: 1000,
		Positions: map[string]domain.Position{
			"BTC": {Instrument: domain.BTC, Quantity: 0.5, AvgEntryPrice: 50000},
		},
		Capital: 75000,
	}
	second := &Snapshot{
		Seq:       25,
		TsUnix:    2000,
		Positions: map[string]domain.Position{},
		Capital:   80000,
	}

	if err := sm.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := sm.Save(second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err = sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Expected a snapshot")
	}
	if snap.Seq != 25 || snap.Capital != 80000 {
		t.Errorf("Expected latest snapshot (seq 25), got %+v", snap)
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for seq := uint64(1); seq <= 5; seq++ {
		snap := &Snapshot{Seq: seq, TsUnix: int64(seq), Capital: 1000}
		if err := sm.Save(snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	// The latest snapshot must survive.
	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if snap == nil || snap.Seq != 5 {
		t.Errorf("Expected latest snapshot seq 5 to survive cleanup, got %+v", snap)
	}
}
