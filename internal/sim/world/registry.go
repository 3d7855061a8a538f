// Package world holds the placed objects of a layout, at most one per cell.
//
// The registry is owned by the editor loop goroutine and is not safe for
// concurrent use.
package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
)

// Object is a placed catalog entry. Values are immutable once inserted;
// changing an object means Remove then Insert.
type Object struct {
	Kind        catalogs.Ref            `json:"kind"`
	Position    grid.Position           `json:"position"`
	Orientation orientation.Orientation `json:"orientation"`
}

func (o Object) String() string {
	return fmt.Sprintf("%s@%s/%s", o.Kind, o.Position, o.Orientation)
}

type Registry struct {
	objects map[grid.Position]Object
}

func NewRegistry() *Registry {
	return &Registry{objects: map[grid.Position]Object{}}
}

func (r *Registry) Len() int { return len(r.objects) }

func (r *Registry) Lookup(pos grid.Position) (Object, bool) {
	o, ok := r.objects[pos]
	return o, ok
}

func (r *Registry) Occupied(pos grid.Position) bool {
	_, ok := r.objects[pos]
	return ok
}

// Insert adds obj unless its cell is taken. An occupied cell is left as is
// and Insert reports false.
func (r *Registry) Insert(obj Object) bool {
	if _, ok := r.objects[obj.Position]; ok {
		return false
	}
	r.objects[obj.Position] = obj
	return true
}

func (r *Registry) Remove(pos grid.Position) (Object, bool) {
	o, ok := r.objects[pos]
	if !ok {
		return Object{}, false
	}
	delete(r.objects, pos)
	return o, true
}

// ReplaceAll discards the current contents and installs objs. When two
// objects share a cell the first one wins; the return value counts the
// objects dropped that way.
func (r *Registry) ReplaceAll(objs []Object) int {
	next := make(map[grid.Position]Object, len(objs))
	shadowed := 0
	for _, o := range objs {
		if _, ok := next[o.Position]; ok {
			shadowed++
			continue
		}
		next[o.Position] = o
	}
	r.objects = next
	return shadowed
}

// Objects returns every object ordered by row (Y) then column (X).
func (r *Registry) Objects() []Object {
	out := make([]Object, 0, len(r.objects))
	for _, o := range r.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out
}

// Digest hashes the ordered contents. Two registries with the same objects
// have the same digest regardless of insertion order.
func (r *Registry) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	w := func(v int) {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
		h.Write(tmp[:])
	}
	for _, o := range r.Objects() {
		w(o.Position.X)
		w(o.Position.Y)
		w(int(o.Kind.Tag))
		w(o.Kind.Index)
		w(o.Orientation.QuarterTurns())
	}
	return hex.EncodeToString(h.Sum(nil))
}
