package layout

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"citytiles.dev/internal/sim/world"
)

type Op int

const (
	OpSave Op = iota + 1
	OpLoad
)

func (o Op) String() string {
	switch o {
	case OpSave:
		return "save"
	case OpLoad:
		return "load"
	default:
		return "unknown"
	}
}

type Store interface {
	Save(objs []world.Object) (Info, error)
	Load() ([]world.Object, error)
}

// Backuper receives every layout that was saved successfully.
type Backuper interface {
	Backup(objs []world.Object, info Info) error
}

type tee []Backuper

// Tee fans a saved layout out to every non-nil b in order. All of them run
// even if one fails.
func Tee(b ...Backuper) Backuper {
	var t tee
	for _, x := range b {
		if x != nil {
			t = append(t, x)
		}
	}
	return t
}

func (t tee) Backup(objs []world.Object, info Info) error {
	var errs []error
	for _, b := range t {
		if err := b.Backup(objs, info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Result is the outcome of one request. Objects is set for a successful
// load, Info for a successful save.
type Result struct {
	Op      Op
	Tick    uint64
	Objects []world.Object
	Info    Info
	Err     error
}

type request struct {
	op   Op
	tick uint64
	objs []world.Object
}

// Worker runs saves and loads off the editor loop, in arrival order. A save
// replaces the pending save only when no load was queued after it, so a load
// always reads what was saved before it. At most one load is pending at a
// time.
type Worker struct {
	store   Store
	backups Backuper
	logger  *log.Logger

	mu    sync.Mutex
	queue []*request

	wake    chan struct{}
	results chan Result
}

func NewWorker(store Store, backups Backuper, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Worker{
		store:   store,
		backups: backups,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		results: make(chan Result, 16),
	}
}

// Results delivers finished requests. The editor drains it at the start of
// each tick.
func (w *Worker) Results() <-chan Result { return w.results }

// RequestSave queues a save of objs, which must not be mutated afterwards.
// It reports whether a pending save was replaced.
func (w *Worker) RequestSave(tick uint64, objs []world.Object) (replaced bool) {
	r := &request{op: OpSave, tick: tick, objs: objs}
	w.mu.Lock()
	if n := len(w.queue); n > 0 && w.queue[n-1].op == OpSave {
		w.queue[n-1] = r
		replaced = true
	} else {
		w.queue = append(w.queue, r)
	}
	w.mu.Unlock()
	w.signal()
	return replaced
}

// RequestLoad queues a load. It returns false, and queues nothing, while
// another load is pending.
func (w *Worker) RequestLoad(tick uint64) bool {
	w.mu.Lock()
	for _, r := range w.queue {
		if r.op == OpLoad {
			w.mu.Unlock()
			return false
		}
	}
	w.queue = append(w.queue, &request{op: OpLoad, tick: tick})
	w.mu.Unlock()
	w.signal()
	return true
}

func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest pending request.
func (w *Worker) next() *request {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	r := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return r
}

// Process runs every pending request in arrival order and publishes the
// results. It returns early if ctx is cancelled while a result is waiting
// to be delivered.
func (w *Worker) Process(ctx context.Context) {
	for {
		r := w.next()
		if r == nil {
			return
		}
		res := w.exec(r)
		select {
		case w.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) exec(r *request) Result {
	res := Result{Op: r.op, Tick: r.tick}
	switch r.op {
	case OpSave:
		info, err := w.store.Save(r.objs)
		res.Info, res.Err = info, err
		if err != nil {
			w.logger.Printf("save failed: %v", err)
			return res
		}
		w.logger.Printf("saved %d objects to %s", info.Objects, info.Path)
		if w.backups != nil {
			if err := w.backups.Backup(r.objs, info); err != nil {
				w.logger.Printf("backup failed: %v", err)
			}
		}
	case OpLoad:
		objs, err := w.store.Load()
		res.Objects, res.Err = objs, err
		if err != nil {
			w.logger.Printf("load failed: %v", err)
			return res
		}
		w.logger.Printf("loaded %d objects", len(objs))
	}
	return res
}

// Run serves requests until ctx is done. The newest save still pending at
// shutdown is written before Run returns; its result is dropped, as are
// pending loads.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flushSave()
			return nil
		case <-w.wake:
			w.Process(ctx)
		}
	}
}

func (w *Worker) flushSave() {
	w.mu.Lock()
	var last *request
	for _, r := range w.queue {
		if r.op == OpSave {
			last = r
		}
	}
	w.queue = nil
	w.mu.Unlock()
	if last == nil {
		return
	}
	w.exec(last)
}
