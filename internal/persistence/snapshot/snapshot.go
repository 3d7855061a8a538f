// Package snapshot writes compressed point-in-time backups of the layout.
//
// A backup file is zstd-compressed: one JSON header line followed by the gob
// encoding of the full BackupV1.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/world"
)

const Version = 1

type Header struct {
	Version   int    `json:"version"`
	Seq       uint64 `json:"seq"`
	CreatedAt string `json:"created_at"`
	Objects   int    `json:"objects"`
	// Digest is the sha256 of the layout document this backup was taken from.
	Digest string `json:"digest"`
}

type BackupV1 struct {
	Header Header `json:"header"`

	// Catalog palettes at backup time.
	FloorPalette     []string `json:"floor_palette"`
	BuildingsPalette []string `json:"buildings_palette"`

	Objects []ObjectV1 `json:"objects"`
}

type ObjectV1 struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	// Rotation is in quarter turns, 0 = North.
	Rotation int `json:"rotation"`
}

// FromObjects builds a backup body for objs.
func FromObjects(h Header, objs []world.Object) BackupV1 {
	b := BackupV1{
		Header:           h,
		FloorPalette:     catalogs.Palette(catalogs.Floor),
		BuildingsPalette: catalogs.Palette(catalogs.Buildings),
		Objects:          make([]ObjectV1, 0, len(objs)),
	}
	for _, o := range objs {
		b.Objects = append(b.Objects, ObjectV1{
			Kind:     o.Kind.String(),
			X:        o.Position.X,
			Y:        o.Position.Y,
			Rotation: o.Orientation.QuarterTurns(),
		})
	}
	b.Header.Version = Version
	b.Header.Objects = len(b.Objects)
	return b
}

// WorldObjects converts the backup back into registry objects.
func (b BackupV1) WorldObjects() ([]world.Object, error) {
	out := make([]world.Object, 0, len(b.Objects))
	for i, o := range b.Objects {
		ref, ok := catalogs.Lookup(o.Kind)
		if !ok {
			return nil, fmt.Errorf("object %d: %w: %q", i, catalogs.ErrUnresolvedReference, o.Kind)
		}
		out = append(out, world.Object{
			Kind:        ref,
			Position:    grid.Position{X: o.X, Y: o.Y},
			Orientation: orientation.FromQuarterTurns(o.Rotation),
		})
	}
	return out, nil
}

func WriteSnapshot(path string, snap BackupV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeSnapshot(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeSnapshot encodes snap to w. The zstd frame is only complete once
// every writer has been flushed and closed without error.
func writeSnapshot(w io.Writer, snap BackupV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (BackupV1, error) {
	var snap BackupV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported backup version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
