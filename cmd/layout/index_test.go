package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"citytiles.dev/internal/persistence/indexdb"
	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/world"
)

func TestQueryIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteEdit(world.EditEntry{Tick: 1, Action: world.EditPlace, Kind: "Grass", Pos: grid.Position{X: 1, Y: 2}, Orientation: "South"})
	_ = idx.WriteEdit(world.EditEntry{Tick: 2, Action: world.EditPlace, Kind: "Concrete", Pos: grid.Position{X: 0, Y: 0}, Orientation: "South"})
	objs := []world.Object{{Kind: catalogs.Ref{Tag: catalogs.Floor, Index: 1}, Position: grid.Position{X: 1, Y: 2}, Orientation: orientation.West}}
	idx.RecordSave(layout.Info{Path: "data.json", Objects: 1, Bytes: 90, Digest: "d1", SavedAt: time.Unix(5, 0)}, objs)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var buf bytes.Buffer
	if err := queryIndex(&buf, path, indexQuery{What: "edits", Cell: "1,2"}); err != nil {
		t.Fatalf("edits: %v", err)
	}
	if out := buf.String(); strings.Count(out, "\n") != 1 || !strings.Contains(out, `"kind":"Grass"`) {
		t.Fatalf("edits output:\n%s", out)
	}

	buf.Reset()
	if err := queryIndex(&buf, path, indexQuery{What: "objects"}); err != nil {
		t.Fatalf("objects: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, `"orientation":"West"`) || !strings.Contains(out, `"catalog":"Floor"`) {
		t.Fatalf("objects output:\n%s", out)
	}

	if err := queryIndex(&buf, path, indexQuery{What: "nope"}); err == nil {
		t.Fatalf("unknown query accepted")
	}
	if err := queryIndex(&buf, path, indexQuery{What: "edits", Cell: "1"}); err == nil {
		t.Fatalf("bad cell accepted")
	}
}
