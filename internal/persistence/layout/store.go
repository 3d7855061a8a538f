package layout

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"citytiles.dev/internal/sim/world"
)

// Info describes one written document.
type Info struct {
	Path    string    `json:"path"`
	Objects int       `json:"objects"`
	Bytes   int       `json:"bytes"`
	Digest  string    `json:"digest"` // sha256 hex of the file contents
	SavedAt time.Time `json:"saved_at"`
}

// FileStore keeps the layout in a single JSON file.
type FileStore struct {
	Path string
}

// Save replaces the document. The new contents are written to a temp file
// in the same directory and renamed over the old one.
func (s FileStore) Save(objs []world.Object) (Info, error) {
	b, err := Encode(objs)
	if err != nil {
		return Info{}, err
	}
	if err := writeFileAtomic(s.Path, b); err != nil {
		return Info{}, fmt.Errorf("write %s: %w", s.Path, err)
	}
	sum := sha256.Sum256(b)
	return Info{
		Path:    s.Path,
		Objects: len(objs),
		Bytes:   len(b),
		Digest:  hex.EncodeToString(sum[:]),
		SavedAt: time.Now().UTC(),
	}, nil
}

func (s FileStore) Load() ([]world.Object, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	objs, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return objs, nil
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if tmp != "" {
			_ = os.Remove(tmp)
		}
	}()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	tmp = ""
	return nil
}
