package editor

import (
	"errors"

	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/protocol"
	"citytiles.dev/internal/sim/world"
)

// applyResults drains finished persistence requests without blocking.
func (s *Session) applyResults(nowTick uint64) {
	if s.persist == nil {
		return
	}
	for {
		select {
		case r := <-s.persist.Results():
			s.applyResult(nowTick, r)
		default:
			return
		}
	}
}

func (s *Session) applyResult(nowTick uint64, r layout.Result) {
	if r.Err != nil {
		s.stats.Failures++
		s.logger.Printf("%s requested at tick %d failed: %v", r.Op, r.Tick, r.Err)
		s.notice(nowTick, noticeCode(r.Op, r.Err), r.Err.Error())
		return
	}
	switch r.Op {
	case layout.OpSave:
		s.stats.Saves++
		s.record(world.EditEntry{Tick: nowTick, Action: world.EditSave, Count: r.Info.Objects})
	case layout.OpLoad:
		s.stats.Loads++
		s.replaceAll(nowTick, r.Objects)
		s.record(world.EditEntry{Tick: nowTick, Action: world.EditLoad, Count: s.reg.Len()})
	}
}

// replaceAll swaps the registry for a loaded layout and tells the renderer.
func (s *Session) replaceAll(nowTick uint64, objs []world.Object) {
	for _, o := range s.reg.Objects() {
		s.sink.Despawn(despawnMsg(nowTick, o))
	}
	if shadowed := s.reg.ReplaceAll(objs); shadowed > 0 {
		s.logger.Printf("load: %d objects shared a cell and were dropped", shadowed)
	}
	for _, o := range s.reg.Objects() {
		s.sink.Spawn(spawnMsg(nowTick, o))
	}
}

func (s *Session) requestSave(nowTick uint64) {
	if s.persist == nil {
		s.notice(nowTick, protocol.ErrInternal, "persistence disabled")
		return
	}
	if s.persist.RequestSave(nowTick, s.reg.Objects()) {
		s.logger.Printf("save at tick %d replaced a pending save", nowTick)
	}
}

func (s *Session) requestLoad(nowTick uint64) {
	if s.persist == nil {
		s.notice(nowTick, protocol.ErrInternal, "persistence disabled")
		return
	}
	if !s.persist.RequestLoad(nowTick) {
		s.notice(nowTick, protocol.ErrPersistBusy, "a load is already pending")
	}
}

func (s *Session) notice(nowTick uint64, code, msg string) {
	s.sink.Notice(protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Code:            code,
		Message:         msg,
	})
}

func noticeCode(op layout.Op, err error) string {
	switch {
	case errors.Is(err, layout.ErrNotFound):
		return protocol.ErrPersistNotFound
	case errors.Is(err, layout.ErrParse):
		return protocol.ErrPersistParse
	case op == layout.OpSave:
		return protocol.ErrPersistWrite
	default:
		return protocol.ErrInternal
	}
}
