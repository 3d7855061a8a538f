package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"citytiles.dev/internal/persistence/indexdb"
	"citytiles.dev/internal/persistence/layout"
	persistlog "citytiles.dev/internal/persistence/log"
	"citytiles.dev/internal/persistence/snapshot"
	"citytiles.dev/internal/sim/editor"
	"citytiles.dev/internal/sim/input"
	"citytiles.dev/internal/sim/tuning"
)

func main() {
	var (
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		framesPath  = flag.String("frames", "-", "FRAME messages as JSON lines (- for stdin)")
		outPath     = flag.String("out", "-", "scene ops as JSON lines (- for stdout)")
		schemaDir   = flag.String("schemas", "./schemas", "directory holding frame.schema.json (empty to skip validation)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index (edits, saves, backups, catalogs)")
		disableLog  = flag.Bool("disable_edit_log", false, "disable the compressed edit log")
		loadOnStart = flag.Bool("load", false, "load the layout document before the first frame")
		realtime    = flag.Bool("realtime", false, "pace frames at tick_rate_hz instead of as fast as they arrive")
		debug       = flag.Bool("debug", false, "log rejected placements")
	)
	flag.Parse()

	// stdout may carry scene ops, so logs go to stderr.
	logger := log.New(os.Stderr, "[editor] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	var frameSchema *jsonschema.Schema
	if dir := strings.TrimSpace(*schemaDir); dir != "" {
		frameSchema, err = jsonschema.Compile(filepath.Join(dir, "frame.schema.json"))
		if err != nil {
			logger.Fatalf("compile frame schema: %v", err)
		}
	}

	in, closeIn, err := openInput(*framesPath)
	if err != nil {
		logger.Fatalf("open frames: %v", err)
	}
	defer closeIn()
	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		logger.Fatalf("open out: %v", err)
	}
	defer closeOut()

	// Optional: read-model index (never authoritative).
	var idx *indexdb.SQLiteIndex
	if !*disableDB && tune.Storage.IndexDB != "" {
		idx, err = indexdb.OpenSQLite(tune.Storage.IndexDB)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer func() {
			st := idx.Stats()
			if st.DropEditTotal+st.DropSaveTotal+st.DropBackupTotal > 0 {
				logger.Printf("index dropped edits=%d saves=%d backups=%d", st.DropEditTotal, st.DropSaveTotal, st.DropBackupTotal)
			}
			_ = idx.Close()
		}()
		if err := idx.UpsertCatalogs(tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	var recorders []editor.EditRecorder
	if !*disableLog && tune.Storage.EditLogDir != "" {
		editLog := persistlog.NewEditLogger(tune.Storage.EditLogDir)
		defer editLog.Close()
		recorders = append(recorders, editLog)
	}

	backups := &snapshot.Store{Dir: tune.Storage.BackupDir, Keep: tune.Storage.BackupKeep}
	afterSave := []layout.Backuper{backups}
	if idx != nil {
		backups.Index = idx
		afterSave = append(afterSave, idx)
		recorders = append(recorders, idx)
	}
	worker := layout.NewWorker(layout.FileStore{Path: tune.Storage.LayoutPath}, layout.Tee(afterSave...), logger)

	sink := newJSONLSink(out, logger)
	sess := editor.NewSession(editor.Config{
		Keymap:  tune.Keymap,
		Sink:    sink,
		Persist: worker,
		Edits:   recorders,
		Logger:  logger,
		Debug:   *debug,
	})
	sess.Start()
	if *loadOnStart {
		worker.RequestLoad(0)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var interval time.Duration
	if *realtime {
		interval = time.Second / time.Duration(tune.TickRateHz)
	}
	frames := make(chan input.Frame, 64)
	// Not in the group: a blocked stdin read must not hold up shutdown.
	go func() {
		defer close(frames)
		r := frameReader{
			adapter: editor.NewFrameAdapter(tune),
			schema:  frameSchema,
			logger:  logger,
		}
		if err := r.read(ctx, in, frames, interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("read frames: %v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		// End of input ends the session; the worker then flushes a pending save.
		defer cancel()
		return sess.Run(gctx, frames)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("editor stopped: %v", err)
	}

	st := sess.Stats()
	logger.Printf("done tick=%d objects=%d placed=%d rejected=%d removed=%d saves=%d loads=%d failures=%d",
		sess.Tick(), len(sess.Objects()), st.Placed, st.Rejected, st.Removed, st.Saves, st.Loads, st.Failures)
	if err := sink.Err(); err != nil {
		logger.Printf("write scene ops: %v", err)
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
