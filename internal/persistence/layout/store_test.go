package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	s := FileStore{Path: path}

	info, err := s.Save(sampleObjects())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.Objects != 3 || info.Path != path || info.Bytes == 0 || len(info.Digest) != 64 {
		t.Fatalf("info=%+v", info)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d objects", len(got))
	}

	// Overwrite unconditionally.
	if _, err := s.Save(sampleObjects()[:1]); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = s.Load()
	if err != nil || len(got) != 1 {
		t.Fatalf("after overwrite: %v, %v", got, err)
	}

	// No temp files left behind.
	ents, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(ents) != 1 || ents[0].Name() != "data.json" {
		names := []string{}
		for _, e := range ents {
			names = append(names, e.Name())
		}
		t.Fatalf("dir contents=%v", names)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := FileStore{Path: filepath.Join(t.TempDir(), "data.json")}
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestFileStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := FileStore{Path: path}
	if _, err := s.Load(); !errors.Is(err, ErrParse) {
		t.Fatalf("err=%v want ErrParse", err)
	}
}

func TestFileStore_SaveFailureLeavesOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	s := FileStore{Path: path}
	if _, err := s.Save(sampleObjects()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, _ := os.ReadFile(path)

	// A file where the parent directory should be makes the write fail.
	bad := FileStore{Path: filepath.Join(path, "child.json")}
	if _, err := bad.Save(sampleObjects()); err == nil {
		t.Fatalf("expected write error")
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("existing document changed")
	}
}
