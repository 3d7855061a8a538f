// Package indexdb maintains a SQLite read model of editor activity: edits,
// saves with their object rows, backups and the catalogs in use.
//
// The edit log and layout document remain the source of truth; rows are
// dropped when the writer falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/persistence/snapshot"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/tuning"
	"citytiles.dev/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEdit   atomic.Uint64
	dropSave   atomic.Uint64
	dropBackup atomic.Uint64
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	DropEditTotal   uint64 `json:"drop_edit_total"`
	DropSaveTotal   uint64 `json:"drop_save_total"`
	DropBackupTotal uint64 `json:"drop_backup_total"`
}

type reqKind int

const (
	reqEdit reqKind = iota + 1
	reqSave
	reqBackup
)

type req struct {
	kind reqKind

	edit   world.EditEntry
	save   saveRow
	backup backupRow
}

type saveRow struct {
	Info    layout.Info
	Objects []world.Object
}

type backupRow struct {
	Path   string
	Header snapshot.Header
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			action TEXT NOT NULL,
			kind TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			orientation TEXT,
			reason TEXT,
			count INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_pos_tick ON edits(x, y, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_action_tick ON edits(action, tick);`,
		`CREATE TABLE IF NOT EXISTS saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			saved_at TEXT NOT NULL,
			path TEXT NOT NULL,
			objects INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_digest ON saves(digest);`,
		`CREATE TABLE IF NOT EXISTS save_objects (
			save_id INTEGER NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			kind TEXT NOT NULL,
			catalog TEXT NOT NULL,
			orientation TEXT NOT NULL,
			PRIMARY KEY (save_id, x, y)
		);`,
		`CREATE TABLE IF NOT EXISTS backups (
			seq INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			objects INTEGER NOT NULL,
			digest TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropEditTotal:   s.dropEdit.Load(),
		DropSaveTotal:   s.dropSave.Load(),
		DropBackupTotal: s.dropBackup.Load(),
	}
}

func (s *SQLiteIndex) WriteEdit(e world.EditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: e}:
	default:
		// Drop if the indexer falls behind; the JSONL edit log remains the source of truth.
		s.dropEdit.Add(1)
	}
	return nil
}

// RecordSave indexes a written layout and its objects. objs must not be
// mutated afterwards.
func (s *SQLiteIndex) RecordSave(info layout.Info, objs []world.Object) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: saveRow{Info: info, Objects: objs}}:
	default:
		s.dropSave.Add(1)
	}
}

// Backup indexes a saved layout. It never fails so it can sit next to the
// snapshot store behind layout.Tee.
func (s *SQLiteIndex) Backup(objs []world.Object, info layout.Info) error {
	s.RecordSave(info, objs)
	return nil
}

func (s *SQLiteIndex) RecordBackup(path string, h snapshot.Header) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqBackup, backup: backupRow{Path: path, Header: h}}:
	default:
		s.dropBackup.Add(1)
	}
}

// UpsertCatalogs stores the catalog tables and the tuning in effect.
func (s *SQLiteIndex) UpsertCatalogs(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	for _, tag := range catalogs.Tags {
		name := tag.String()
		if b, _ := json.Marshal(catalogs.Palette(tag)); len(b) > 0 {
			rows = append(rows, kv{name: name + "_palette", digest: catalogs.Digest(tag), json: b})
		}
		if b, _ := json.Marshal(catalogs.Entries(tag)); len(b) > 0 {
			sum := sha256.Sum256(b)
			rows = append(rows, kv{name: name + "_entries", digest: hex.EncodeToString(sum[:]), json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEdit, _ := s.db.Prepare(`INSERT INTO edits(tick,action,kind,x,y,orientation,reason,count,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT INTO saves(saved_at,path,objects,bytes,digest) VALUES(?,?,?,?,?)`)
	insertObject, _ := s.db.Prepare(`INSERT OR REPLACE INTO save_objects(save_id,x,y,kind,catalog,orientation) VALUES(?,?,?,?,?,?)`)
	insertBackup, _ := s.db.Prepare(`INSERT OR REPLACE INTO backups(seq,path,created_at,objects,digest) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEdit, insertSave, insertObject, insertBackup} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEdit:
			e := r.edit
			raw, _ := json.Marshal(e)
			if insertEdit != nil {
				if _, err := tx.Stmt(insertEdit).Exec(
					int64(e.Tick),
					e.Action,
					e.Kind,
					e.Pos.X, e.Pos.Y,
					e.Orientation,
					e.Reason,
					e.Count,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSave:
			sv := r.save
			if insertSave == nil {
				continue
			}
			res, err := tx.Stmt(insertSave).Exec(
				sv.Info.SavedAt.UTC().Format(time.RFC3339Nano),
				sv.Info.Path,
				sv.Info.Objects,
				sv.Info.Bytes,
				sv.Info.Digest,
			)
			if err != nil {
				rollback()
				continue
			}
			opCount++
			id, err := res.LastInsertId()
			if err != nil || insertObject == nil {
				break
			}
			for _, o := range sv.Objects {
				if _, err := tx.Stmt(insertObject).Exec(
					id,
					o.Position.X, o.Position.Y,
					o.Kind.String(),
					o.Kind.Tag.String(),
					o.Orientation.String(),
				); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqBackup:
			b := r.backup
			if insertBackup != nil {
				if _, err := tx.Stmt(insertBackup).Exec(
					int64(b.Header.Seq),
					b.Path,
					b.Header.CreatedAt,
					b.Header.Objects,
					b.Header.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
