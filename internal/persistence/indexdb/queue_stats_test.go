package indexdb

import (
	"path/filepath"
	"testing"

	"citytiles.dev/internal/sim/world"
)

func TestSQLiteIndex_StatsCountsDrops(t *testing.T) {
	idx, err := openSQLite(filepath.Join(t.TempDir(), "index.sqlite"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	// An unbuffered queue with a writer that may be busy: every send either
	// lands or is dropped, never blocks.
	const n = 50
	for i := 0; i < n; i++ {
		_ = idx.WriteEdit(world.EditEntry{Tick: uint64(i), Action: world.EditPlace})
	}
	st := idx.Stats()
	if st.QueueCapacity != 0 || st.QueueDepth != 0 {
		t.Fatalf("queue depth/cap=%d/%d", st.QueueDepth, st.QueueCapacity)
	}
	if st.DropEditTotal > n {
		t.Fatalf("drops=%d > writes", st.DropEditTotal)
	}
	if st.DropSaveTotal != 0 || st.DropBackupTotal != 0 {
		t.Fatalf("unexpected drops: %+v", st)
	}
}

func TestSQLiteIndex_StatsCapacity(t *testing.T) {
	idx, err := openSQLite(filepath.Join(t.TempDir(), "index.sqlite"), 8)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	if got := idx.Stats().QueueCapacity; got != 8 {
		t.Fatalf("capacity=%d", got)
	}
}
