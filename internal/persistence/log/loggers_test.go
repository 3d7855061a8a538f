package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/world"
)

func TestEditLogger_WriteRead(t *testing.T) {
	dir := t.TempDir()
	l := NewEditLogger(dir)
	entries := []world.EditEntry{
		{Tick: 1, Action: world.EditPlace, Kind: "Concrete", Pos: grid.Position{X: 0, Y: 0}, Orientation: "South"},
		{Tick: 2, Action: world.EditReject, Kind: "Grass", Pos: grid.Position{X: 0, Y: 0}, Reason: "occupied"},
		{Tick: 3, Action: world.EditRemove, Kind: "Concrete", Pos: grid.Position{X: 0, Y: 0}},
	}
	for _, e := range entries {
		if err := l.WriteEdit(e); err != nil {
			t.Fatalf("WriteEdit: %v", err)
		}
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := ReadEdits(dir)
	if err != nil {
		t.Fatalf("ReadEdits: %v", err)
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d=%+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "edits")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	if err := w.Write(world.EditEntry{Tick: 1, Action: world.EditSave, Count: 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(world.EditEntry{Tick: 2, Action: world.EditLoad, Count: 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"edits-2026-03-01-10.jsonl.zst", "edits-2026-03-01-11.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	got, err := ReadEdits(dir)
	if err != nil || len(got) != 2 || got[0].Tick != 1 || got[1].Tick != 2 {
		t.Fatalf("ReadEdits=%+v err=%v", got, err)
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "edits")
		w.now = func() time.Time { return clock }
		if err := w.Write(world.EditEntry{Tick: uint64(i + 1), Action: world.EditPlace}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	got, err := ReadEdits(dir)
	if err != nil || len(got) != 2 {
		t.Fatalf("ReadEdits=%+v err=%v", got, err)
	}
}
