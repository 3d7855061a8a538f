package editor

import (
	"citytiles.dev/internal/protocol"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
)

// preview is the ghost object under the pointer. Asset and rotation follow
// the cursor only when dirty; the cell follows the projection every tick.
type preview struct {
	visible   bool
	dirty     bool
	asset     string
	rotationY float64
	cell      grid.Position

	sent       bool
	visChanged bool
}

func newPreview() preview {
	return preview{visible: true, asset: catalogs.PreviewAsset}
}

func (p *preview) setVisible(v bool) {
	if p.visible == v {
		return
	}
	p.visible = v
	p.visChanged = true
}

// PreviewState is a read-only view of the preview.
type PreviewState struct {
	Visible   bool
	Asset     string
	RotationY float64
	Cell      grid.Position
	// Dirty is set when a cursor or orientation command is waiting for the
	// next refresh.
	Dirty bool
}

func (s *Session) Preview() PreviewState {
	p := s.preview
	return PreviewState{Visible: p.visible, Asset: p.asset, RotationY: p.rotationY, Cell: p.cell, Dirty: p.dirty}
}

// refreshPreview emits a PREVIEW when anything the renderer shows changed.
// Asset is only sent with the first message and after a cursor change.
func (s *Session) refreshPreview(nowTick uint64) {
	p := &s.preview

	withAsset := !p.sent
	if p.dirty {
		p.asset = s.cursor.Entry().Asset
		p.rotationY = s.orient.Rotation()
		p.dirty = false
		withAsset = true
	}

	cell := s.proj.Current().Grid
	if p.sent && !withAsset && !p.visChanged && cell == p.cell {
		return
	}
	p.cell = cell
	p.sent = true
	p.visChanged = false

	msg := protocol.PreviewMsg{
		Type:            protocol.TypePreview,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Visible:         p.visible,
		Cell:            [2]int{cell.X, cell.Y},
		Transform:       protocol.Transform{Translation: cell.Origin(), RotationY: p.rotationY},
	}
	if withAsset {
		msg.Asset = p.asset
	}
	s.sink.Preview(msg)
}
