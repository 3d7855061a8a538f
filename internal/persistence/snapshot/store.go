package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"citytiles.dev/internal/persistence/layout"
	"citytiles.dev/internal/sim/world"
)

const suffix = ".snap.zst"

// Recorder is told about every backup written.
type Recorder interface {
	RecordBackup(path string, h Header)
}

// Store keeps numbered backups in Dir and prunes all but the newest Keep.
type Store struct {
	Dir   string
	Keep  int
	Index Recorder
}

// Entry is one backup file on disk.
type Entry struct {
	Seq  uint64
	Path string
}

// Backup writes the next numbered backup and prunes old ones.
func (s *Store) Backup(objs []world.Object, info layout.Info) error {
	if s == nil || s.Keep <= 0 {
		return nil
	}
	ents, err := s.List()
	if err != nil {
		return err
	}
	var seq uint64 = 1
	if n := len(ents); n > 0 {
		seq = ents[n-1].Seq + 1
	}
	h := Header{
		Seq:       seq,
		CreatedAt: info.SavedAt.UTC().Format(time.RFC3339Nano),
		Digest:    info.Digest,
	}
	snap := FromObjects(h, objs)
	path := filepath.Join(s.Dir, fmt.Sprintf("%d%s", seq, suffix))
	if err := WriteSnapshot(path, snap); err != nil {
		return fmt.Errorf("write backup %s: %w", path, err)
	}
	if s.Index != nil {
		s.Index.RecordBackup(path, snap.Header)
	}
	if _, err := s.Prune(); err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}
	return nil
}

// List returns backups ordered oldest first. A missing Dir is empty.
func (s *Store) List() ([]Entry, error) {
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, suffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Entry{Seq: seq, Path: filepath.Join(s.Dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Latest returns the newest backup path, or "" if there is none.
func (s *Store) Latest() string {
	ents, err := s.List()
	if err != nil || len(ents) == 0 {
		return ""
	}
	return ents[len(ents)-1].Path
}

// Prune removes all but the newest Keep backups and reports how many it
// removed.
func (s *Store) Prune() (int, error) {
	ents, err := s.List()
	if err != nil {
		return 0, err
	}
	keep := s.Keep
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for i := 0; i < len(ents)-keep; i++ {
		if err := os.Remove(ents[i].Path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
