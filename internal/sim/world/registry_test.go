package world

import (
	"encoding/json"
	"testing"

	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
)

func obj(tag catalogs.Tag, idx, x, y int) Object {
	return Object{
		Kind:        catalogs.Ref{Tag: tag, Index: idx},
		Position:    grid.Position{X: x, Y: y},
		Orientation: orientation.Default,
	}
}

func TestInsert_OccupiedIsNoop(t *testing.T) {
	r := NewRegistry()
	first := obj(catalogs.Floor, 0, 0, 0)
	if !r.Insert(first) {
		t.Fatalf("first insert should succeed")
	}
	second := obj(catalogs.Buildings, 1, 0, 0)
	second.Orientation = orientation.East
	if r.Insert(second) {
		t.Fatalf("insert into occupied cell should report false")
	}
	got, ok := r.Lookup(grid.Position{})
	if !ok || got != first {
		t.Fatalf("Lookup=%v,%v want %v", got, ok, first)
	}
	if r.Len() != 1 {
		t.Fatalf("Len=%d", r.Len())
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	o := obj(catalogs.Floor, 3, 2, -1)
	r.Insert(o)
	if _, ok := r.Remove(grid.Position{X: 5, Y: 5}); ok {
		t.Fatalf("remove of empty cell should report false")
	}
	got, ok := r.Remove(o.Position)
	if !ok || got != o {
		t.Fatalf("Remove=%v,%v", got, ok)
	}
	if r.Occupied(o.Position) || r.Len() != 0 {
		t.Fatalf("cell still occupied after remove")
	}
	if _, ok := r.Remove(o.Position); ok {
		t.Fatalf("second remove should report false")
	}
}

func TestReplaceAll_FirstWins(t *testing.T) {
	r := NewRegistry()
	r.Insert(obj(catalogs.Floor, 0, 9, 9))

	a := obj(catalogs.Floor, 1, 0, 0)
	b := obj(catalogs.Buildings, 0, 0, 0)
	c := obj(catalogs.Floor, 2, 1, 0)
	if n := r.ReplaceAll([]Object{a, b, c}); n != 1 {
		t.Fatalf("shadowed=%d want 1", n)
	}
	if r.Len() != 2 {
		t.Fatalf("Len=%d want 2", r.Len())
	}
	if r.Occupied(grid.Position{X: 9, Y: 9}) {
		t.Fatalf("old contents should be discarded")
	}
	if got, _ := r.Lookup(grid.Position{}); got != a {
		t.Fatalf("cell (0,0)=%v want first writer %v", got, a)
	}
}

func TestReplaceAll_Empty(t *testing.T) {
	r := NewRegistry()
	r.Insert(obj(catalogs.Floor, 0, 0, 0))
	if n := r.ReplaceAll(nil); n != 0 || r.Len() != 0 {
		t.Fatalf("ReplaceAll(nil)=%d Len=%d", n, r.Len())
	}
}

func TestObjects_RowMajor(t *testing.T) {
	r := NewRegistry()
	for _, o := range []Object{
		obj(catalogs.Floor, 0, 3, 1),
		obj(catalogs.Floor, 0, -2, 1),
		obj(catalogs.Floor, 0, 7, -4),
		obj(catalogs.Floor, 0, 0, 0),
	} {
		r.Insert(o)
	}
	want := []grid.Position{{X: 7, Y: -4}, {X: 0, Y: 0}, {X: -2, Y: 1}, {X: 3, Y: 1}}
	got := r.Objects()
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i := range want {
		if got[i].Position != want[i] {
			t.Fatalf("Objects()[%d]=%v want %v", i, got[i].Position, want[i])
		}
	}
}

func TestDigest_OrderIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	objs := []Object{obj(catalogs.Floor, 1, 0, 0), obj(catalogs.Buildings, 1, 4, 2), obj(catalogs.Floor, 5, -3, 2)}
	for _, o := range objs {
		a.Insert(o)
	}
	for i := len(objs) - 1; i >= 0; i-- {
		b.Insert(objs[i])
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("digests differ for same contents")
	}
	b.Remove(grid.Position{})
	b.Insert(Object{Kind: objs[0].Kind, Position: objs[0].Position, Orientation: orientation.North})
	if a.Digest() == b.Digest() {
		t.Fatalf("orientation change should change digest")
	}
}

func TestObject_JSON(t *testing.T) {
	o := obj(catalogs.Floor, 1, 0, 1)
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"kind":"Grass","position":{"x":0,"y":1},"orientation":{"South":3.1415927}}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
	var back Object
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != o {
		t.Fatalf("round trip %v -> %v", o, back)
	}
}
