package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"citytiles.dev/internal/persistence/layout"
	persistlog "citytiles.dev/internal/persistence/log"
	"citytiles.dev/internal/persistence/snapshot"
	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/world"
)

func main() {
	var (
		docPath    = flag.String("doc", "", "layout document to inspect (e.g. data.json)")
		backupPath = flag.String("backup", "", "backup .snap.zst to inspect (latest = newest in -backups)")
		backupDir  = flag.String("backups", "", "backup dir to list")
		editsDir   = flag.String("edits", "", "edit log dir containing edits-*.jsonl.zst")
		outPath    = flag.String("out", "", "write the inspected document or backup as a canonical layout document")
		list       = flag.Bool("list", false, "print every object")

		indexPath = flag.String("index", "", "sqlite index to query (e.g. data/index.sqlite)")
		query     = flag.String("query", "saves", "index query: saves, backups, edits, objects, catalogs")
		limit     = flag.Int("limit", 20, "index result limit")
		cell      = flag.String("cell", "", "index edits filter: x,y")
		saveID    = flag.Int64("save", 0, "index objects: save id (default latest)")
	)
	flag.Parse()

	if *docPath == "" && *backupPath == "" && *backupDir == "" && *editsDir == "" && *indexPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -doc, -backup, -backups, -edits or -index")
		os.Exit(2)
	}
	if *docPath != "" && *backupPath != "" && *outPath != "" {
		fmt.Fprintln(os.Stderr, "-out needs exactly one of -doc or -backup")
		os.Exit(2)
	}

	var objs []world.Object
	if *docPath != "" {
		got, err := layout.FileStore{Path: *docPath}.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "read document:", err)
			os.Exit(1)
		}
		objs = got
		fmt.Printf("document %s\n", *docPath)
		summarize(os.Stdout, got, *list)
	}

	if *backupPath == "latest" {
		*backupPath = (&snapshot.Store{Dir: *backupDir}).Latest()
		if *backupPath == "" {
			fmt.Fprintln(os.Stderr, "no backups in", *backupDir)
			os.Exit(1)
		}
	}
	if *backupPath != "" {
		snap, err := snapshot.ReadSnapshot(*backupPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read backup:", err)
			os.Exit(1)
		}
		got, err := snap.WorldObjects()
		if err != nil {
			fmt.Fprintln(os.Stderr, "backup objects:", err)
			os.Exit(1)
		}
		objs = got
		fmt.Printf("backup v%d seq=%d created=%s saved_digest=%s\n", snap.Header.Version, snap.Header.Seq, snap.Header.CreatedAt, short(snap.Header.Digest))
		summarize(os.Stdout, got, *list)
	}

	if *backupDir != "" {
		ents, err := (&snapshot.Store{Dir: *backupDir}).List()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list backups:", err)
			os.Exit(1)
		}
		for _, e := range ents {
			h, err := snapshot.ReadHeader(e.Path)
			if err != nil {
				fmt.Printf("%6d  %s  (unreadable: %v)\n", e.Seq, e.Path, err)
				continue
			}
			fmt.Printf("%6d  %s  objects=%d created=%s\n", e.Seq, e.Path, h.Objects, h.CreatedAt)
		}
	}

	if *editsDir != "" {
		edits, err := persistlog.ReadEdits(*editsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read edits:", err)
			os.Exit(1)
		}
		summarizeEdits(os.Stdout, edits)
	}

	if *indexPath != "" {
		q := indexQuery{What: *query, Limit: *limit, Cell: *cell, Save: *saveID}
		if err := queryIndex(os.Stdout, *indexPath, q); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
	}

	if *outPath != "" && objs != nil {
		info, err := layout.FileStore{Path: *outPath}.Save(objs)
		if err != nil {
			fmt.Fprintln(os.Stderr, "write document:", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d objects (%d bytes) to %s\n", info.Objects, info.Bytes, info.Path)
	}
}

func summarize(w io.Writer, objs []world.Object, list bool) {
	reg := world.NewRegistry()
	shadowed := reg.ReplaceAll(objs)
	counts := map[string]int{}
	for _, o := range reg.Objects() {
		counts[o.Kind.Tag.String()]++
	}
	fmt.Fprintf(w, "  objects=%d", reg.Len())
	for _, tag := range catalogs.Tags {
		fmt.Fprintf(w, " %s=%d", strings.ToLower(tag.String()), counts[tag.String()])
	}
	fmt.Fprintf(w, " shadowed=%d digest=%s\n", shadowed, short(reg.Digest()))
	if !list {
		return
	}
	for _, o := range reg.Objects() {
		fmt.Fprintf(w, "  %-8s %-26s %s\n", o.Position, o.Kind, o.Orientation)
	}
}

// summarizeEdits counts actions and replays PLACE/REMOVE onto an empty
// registry until the first LOAD, which replaces state the log does not hold.
func summarizeEdits(w io.Writer, edits []world.EditEntry) {
	counts := map[string]int{}
	reg := world.NewRegistry()
	replayed, replayable := 0, true
	for _, e := range edits {
		counts[e.Action]++
		if !replayable {
			continue
		}
		switch e.Action {
		case world.EditPlace:
			ref, ok := catalogs.Lookup(e.Kind)
			if !ok {
				replayable = false
				continue
			}
			reg.Insert(world.Object{Kind: ref, Position: e.Pos, Orientation: parseOrientation(e.Orientation)})
			replayed++
		case world.EditRemove:
			reg.Remove(e.Pos)
			replayed++
		case world.EditLoad:
			replayable = false
		}
	}

	actions := make([]string, 0, len(counts))
	for a := range counts {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	fmt.Fprintf(w, "edits=%d", len(edits))
	for _, a := range actions {
		fmt.Fprintf(w, " %s=%d", strings.ToLower(a), counts[a])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  replayed=%d objects=%d digest=%s", replayed, reg.Len(), short(reg.Digest()))
	if !replayable {
		fmt.Fprint(w, " (stopped at LOAD or unknown kind)")
	}
	fmt.Fprintln(w)
	if n := len(edits); n > 0 {
		last := edits[n-1]
		fmt.Fprintf(w, "  last tick=%d action=%s pos=%s\n", last.Tick, last.Action, last.Pos)
	}
}

func parseOrientation(s string) orientation.Orientation {
	o, err := orientation.Parse(s)
	if err != nil {
		return orientation.Default
	}
	return o
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
