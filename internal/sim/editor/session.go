// Package editor runs the placement loop: one Step per tick turns an input
// frame into cursor, preview and registry changes plus scene ops for the
// renderer.
package editor

import (
	"context"
	"io"
	"log"

	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/protocol"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/cursor"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/input"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/projection"
	"citytiles.dev/internal/sim/world"
)

// SceneSink receives scene ops. Implementations must not block the loop.
type SceneSink interface {
	Hello(protocol.HelloMsg)
	Catalog(protocol.CatalogMsg)
	Spawn(protocol.SpawnMsg)
	Despawn(protocol.DespawnMsg)
	Preview(protocol.PreviewMsg)
	Notice(protocol.NoticeMsg)
}

// Persister runs saves and loads off the loop. layout.Worker implements it.
type Persister interface {
	RequestSave(tick uint64, objs []world.Object) (replaced bool)
	RequestLoad(tick uint64) bool
	Results() <-chan layout.Result
}

type EditRecorder interface {
	WriteEdit(e world.EditEntry) error
}

type Config struct {
	Keymap input.Keymap
	Sink   SceneSink

	// Optional (may be nil).
	Persist Persister
	Edits   []EditRecorder
	Logger  *log.Logger
	// Debug logs rejected placements.
	Debug bool
}

type Stats struct {
	Placed   uint64 `json:"placed"`
	Rejected uint64 `json:"rejected"`
	Removed  uint64 `json:"removed"`
	Saves    uint64 `json:"saves"`
	Loads    uint64 `json:"loads"`
	Failures uint64 `json:"failures"`
}

// Session is a single-threaded editor. All state must be accessed only from
// the goroutine calling Step.
type Session struct {
	keymap  input.Keymap
	sink    SceneSink
	persist Persister
	edits   []EditRecorder
	logger  *log.Logger
	debug   bool

	tick uint64

	cursor  cursor.Cursor
	orient  orientation.Orientation
	proj    projection.Projector
	reg     *world.Registry
	preview preview

	stats Stats
}

func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = discardSink{}
	}
	km := cfg.Keymap.Merge(input.DefaultKeymap())
	return &Session{
		keymap:  km,
		sink:    sink,
		persist: cfg.Persist,
		edits:   cfg.Edits,
		logger:  logger,
		debug:   cfg.Debug,
		cursor:  cursor.New(),
		orient:  orientation.Default,
		reg:     world.NewRegistry(),
		preview: newPreview(),
	}
}

func (s *Session) Tick() uint64                         { return s.tick }
func (s *Session) Cursor() cursor.Cursor                { return s.cursor }
func (s *Session) Orientation() orientation.Orientation { return s.orient }
func (s *Session) Stats() Stats                         { return s.stats }
func (s *Session) Objects() []world.Object              { return s.reg.Objects() }
func (s *Session) Lookup(pos grid.Position) (world.Object, bool) {
	return s.reg.Lookup(pos)
}

// Digest hashes the registry contents.
func (s *Session) Digest() string { return s.reg.Digest() }

// Target is the cell under the pointer as of the last Step.
func (s *Session) Target() grid.Position { return s.proj.Current().Grid }

// Start announces the protocol, the catalogs and the initial preview.
func (s *Session) Start() {
	s.sink.Hello(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		CellSize:        grid.CellSize,
		Catalogs: protocol.CatalogDigests{
			Floor:     protocol.DigestRef{Digest: catalogs.Digest(catalogs.Floor), Count: catalogs.Len(catalogs.Floor)},
			Buildings: protocol.DigestRef{Digest: catalogs.Digest(catalogs.Buildings), Count: catalogs.Len(catalogs.Buildings)},
		},
		PreviewAsset: catalogs.PreviewAsset,
	})
	for _, tag := range catalogs.Tags {
		s.sink.Catalog(catalogMsg(tag))
	}
}

// Step advances the session by one tick.
func (s *Session) Step(f input.Frame) {
	nowTick := s.tick
	cmds := s.keymap.Resolve(f)

	// Persistence results land at the tick boundary, before any input.
	s.applyResults(nowTick)

	s.applyCursor(cmds)
	s.proj.Update(f.Pointer, f.Viewport, f.Camera)
	s.applyVisibility(cmds)
	s.refreshPreview(nowTick)

	if cmds.Has(input.Place) {
		s.place(nowTick)
	}
	if cmds.Has(input.Remove) {
		s.remove(nowTick)
	}

	if cmds.Has(input.Save) {
		s.requestSave(nowTick)
	}
	if cmds.Has(input.Load) {
		s.requestLoad(nowTick)
	}

	s.tick++
}

// Run steps once per received frame until frames is closed or ctx is done.
func (s *Session) Run(ctx context.Context, frames <-chan input.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			s.Step(f)
		}
	}
}

func (s *Session) applyCursor(cmds input.Commands) {
	if cmds.Has(input.SelectFloor) {
		s.cursor.Switch(catalogs.Floor)
	}
	if cmds.Has(input.SelectBuildings) {
		s.cursor.Switch(catalogs.Buildings)
	}
	if cmds.Has(input.CursorNext) {
		s.cursor.Advance(1)
	}
	if cmds.Has(input.CursorPrev) {
		s.cursor.Retreat(1)
	}
	if cmds.Has(input.RotateNext) {
		s.orient = s.orient.Next()
	}
	if cmds.Has(input.RotatePrev) {
		s.orient = s.orient.Previous()
	}

	// Any selection key marks the preview, even when it lands on the same entry.
	if cmds&selecting != 0 {
		s.preview.dirty = true
	}
}

const selecting = input.Commands(input.SelectFloor | input.SelectBuildings |
	input.CursorNext | input.CursorPrev | input.RotateNext | input.RotatePrev)

func (s *Session) applyVisibility(cmds input.Commands) {
	if cmds.Has(input.HidePreview) {
		s.preview.setVisible(false)
	}
	if cmds.Has(input.ShowPreview) {
		s.preview.setVisible(true)
	}
}

func (s *Session) place(nowTick uint64) {
	cell := s.proj.Current().Grid
	obj := world.Object{Kind: s.cursor.Ref(), Position: cell, Orientation: s.orient}
	if !s.reg.Insert(obj) {
		s.stats.Rejected++
		if s.debug {
			s.logger.Printf("place %s rejected: cell occupied", obj)
		}
		s.record(world.EditEntry{Tick: nowTick, Action: world.EditReject, Kind: obj.Kind.String(), Pos: cell, Orientation: s.orient.String(), Reason: "occupied"})
		return
	}
	s.stats.Placed++
	s.sink.Spawn(spawnMsg(nowTick, obj))
	s.record(world.EditEntry{Tick: nowTick, Action: world.EditPlace, Kind: obj.Kind.String(), Pos: cell, Orientation: s.orient.String()})
}

func (s *Session) remove(nowTick uint64) {
	cell := s.proj.Current().Grid
	obj, ok := s.reg.Remove(cell)
	if !ok {
		return
	}
	s.stats.Removed++
	s.sink.Despawn(despawnMsg(nowTick, obj))
	s.record(world.EditEntry{Tick: nowTick, Action: world.EditRemove, Kind: obj.Kind.String(), Pos: cell, Orientation: obj.Orientation.String()})
}

func (s *Session) record(e world.EditEntry) {
	for _, r := range s.edits {
		if r == nil {
			continue
		}
		if err := r.WriteEdit(e); err != nil {
			s.logger.Printf("edit log: %v", err)
		}
	}
}

func spawnMsg(nowTick uint64, o world.Object) protocol.SpawnMsg {
	e := catalogs.MustResolve(o.Kind)
	return protocol.SpawnMsg{
		Type:            protocol.TypeSpawn,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Cell:            [2]int{o.Position.X, o.Position.Y},
		Kind:            e.Name,
		Asset:           e.Asset,
		Orientation:     o.Orientation.String(),
		Transform:       transformOf(o.Position, o.Orientation),
	}
}

func despawnMsg(nowTick uint64, o world.Object) protocol.DespawnMsg {
	return protocol.DespawnMsg{
		Type:            protocol.TypeDespawn,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Cell:            [2]int{o.Position.X, o.Position.Y},
		Kind:            o.Kind.String(),
	}
}

func transformOf(p grid.Position, o orientation.Orientation) protocol.Transform {
	return protocol.Transform{Translation: p.Origin(), RotationY: o.Rotation()}
}

func catalogMsg(tag catalogs.Tag) protocol.CatalogMsg {
	ents := catalogs.Entries(tag)
	out := make([]protocol.CatalogEntry, 0, len(ents))
	for _, e := range ents {
		out = append(out, protocol.CatalogEntry{Index: e.Index, Name: e.Name, Asset: e.Asset})
	}
	name := "floor"
	if tag == catalogs.Buildings {
		name = "buildings"
	}
	return protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Name:            name,
		Digest:          catalogs.Digest(tag),
		Entries:         out,
	}
}

type discardSink struct{}

func (discardSink) Hello(protocol.HelloMsg)     {}
func (discardSink) Catalog(protocol.CatalogMsg) {}
func (discardSink) Spawn(protocol.SpawnMsg)     {}
func (discardSink) Despawn(protocol.DespawnMsg) {}
func (discardSink) Preview(protocol.PreviewMsg) {}
func (discardSink) Notice(protocol.NoticeMsg)   {}
