package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/world"
)

func objects() []world.Object {
	return []world.Object{
		{Kind: catalogs.Ref{Tag: catalogs.Floor, Index: 0}, Position: grid.Position{X: 0, Y: 0}, Orientation: orientation.South},
		{Kind: catalogs.Ref{Tag: catalogs.Buildings, Index: 1}, Position: grid.Position{X: -2, Y: 5}, Orientation: orientation.East},
	}
}

func TestWriteReadSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.snap.zst")
	snap := FromObjects(Header{Seq: 1, CreatedAt: "2026-01-02T03:04:05Z", Digest: "abc"}, objects())
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Version != Version || h.Seq != 1 || h.Objects != 2 || h.Digest != "abc" {
		t.Fatalf("header=%+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got.FloorPalette) != catalogs.Len(catalogs.Floor) || len(got.BuildingsPalette) != catalogs.Len(catalogs.Buildings) {
		t.Fatalf("palettes=%v %v", got.FloorPalette, got.BuildingsPalette)
	}
	objs, err := got.WorldObjects()
	if err != nil {
		t.Fatalf("WorldObjects: %v", err)
	}
	want := objects()
	for i := range want {
		if objs[i] != want[i] {
			t.Fatalf("objs[%d]=%v want %v", i, objs[i], want[i])
		}
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("device full") }

func TestWriteSnapshot_ReportsWriteFailure(t *testing.T) {
	snap := FromObjects(Header{Seq: 1}, objects())
	if err := writeSnapshot(brokenWriter{}, snap); err == nil {
		t.Fatalf("expected error from a failing writer")
	}
}

func TestWorldObjects_UnknownKind(t *testing.T) {
	b := BackupV1{Objects: []ObjectV1{{Kind: "Castle"}}}
	if _, err := b.WorldObjects(); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) RecordBackup(path string, h Header) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func TestStore_BackupAndPrune(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := &Store{Dir: dir, Keep: 2, Index: rec}

	for i := 0; i < 4; i++ {
		info := layout.Info{Digest: "d", SavedAt: time.Now()}
		if err := s.Backup(objects()[:i%2+1], info); err != nil {
			t.Fatalf("Backup %d: %v", i, err)
		}
	}
	ents, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ents) != 2 || ents[0].Seq != 3 || ents[1].Seq != 4 {
		t.Fatalf("entries=%+v", ents)
	}
	if s.Latest() != filepath.Join(dir, "4.snap.zst") {
		t.Fatalf("Latest=%s", s.Latest())
	}
	if len(rec.paths) != 4 {
		t.Fatalf("recorded %d backups", len(rec.paths))
	}
	h, err := ReadHeader(s.Latest())
	if err != nil || h.Seq != 4 || h.Objects != 2 {
		t.Fatalf("latest header=%+v err=%v", h, err)
	}
}

func TestStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "x.snap.zst", "7.snap.zst"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := &Store{Dir: dir, Keep: 5}
	ents, err := s.List()
	if err != nil || len(ents) != 1 || ents[0].Seq != 7 {
		t.Fatalf("List=%+v err=%v", ents, err)
	}
}

func TestStore_Disabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	s := &Store{Dir: dir, Keep: 0}
	if err := s.Backup(objects(), layout.Info{}); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("disabled store created %s", dir)
	}
	if s.Latest() != "" {
		t.Fatalf("Latest=%q", s.Latest())
	}
}
