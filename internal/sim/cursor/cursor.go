// Package cursor tracks which catalog entry is selected for placement.
package cursor

import (
	"fmt"

	"citytiles.dev/internal/sim/catalogs"
)

// Cursor is a tagged selection: Floor(i) or Buildings(i). The index is
// always within [0, catalogs.Len(tag)).
type Cursor struct {
	tag   catalogs.Tag
	index int
}

// New returns the session default, Floor(0).
func New() Cursor { return Cursor{tag: catalogs.Floor} }

func (c Cursor) Tag() catalogs.Tag { return c.tag }
func (c Cursor) Index() int        { return c.index }

func (c Cursor) Ref() catalogs.Ref { return catalogs.Ref{Tag: c.tag, Index: c.index} }

// Entry resolves the selected catalog entry.
func (c Cursor) Entry() catalogs.Entry { return catalogs.MustResolve(c.Ref()) }

// SameCatalog reports whether both cursors point into the same catalog,
// regardless of index.
func (c Cursor) SameCatalog(other Cursor) bool { return c.tag == other.tag }

func (c Cursor) String() string { return fmt.Sprintf("%v(%d)", c.tag, c.index) }

// Select jumps to an explicit entry. The cursor is left unchanged on error.
func (c *Cursor) Select(tag catalogs.Tag, index int) error {
	if _, err := catalogs.At(tag, index); err != nil {
		return err
	}
	c.tag = tag
	c.index = index
	return nil
}

// Switch selects the first entry of tag (hot-key behaviour).
func (c *Cursor) Switch(tag catalogs.Tag) {
	if err := c.Select(tag, 0); err != nil {
		panic(err)
	}
}

// Advance moves forward by step within the current catalog. Overshooting
// the last entry lands on 0; this is a reset, not a modulo wrap.
func (c *Cursor) Advance(step int) {
	if step <= 0 {
		return
	}
	if step > catalogs.Len(c.tag)-1-c.index {
		c.index = 0
		return
	}
	c.index += step
}

// Retreat moves backward by step. Undershooting 0 lands on the last entry.
func (c *Cursor) Retreat(step int) {
	if step <= 0 {
		return
	}
	n := c.index - step
	if n < 0 {
		n = catalogs.Len(c.tag) - 1
	}
	c.index = n
}
