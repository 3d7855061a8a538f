package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

type indexQuery struct {
	What  string // saves, backups, edits, objects, catalogs
	Limit int
	// Cell filters edits to one cell, "x,y".
	Cell string
	// Save selects the save for objects; 0 means the latest.
	Save int64
}

// queryIndex prints rows from the editor's sqlite index as JSON lines.
func queryIndex(w io.Writer, path string, q indexQuery) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if q.Limit <= 0 {
		q.Limit = 20
	}

	switch q.What {
	case "", "saves":
		rows, err := db.Query(`SELECT id,saved_at,path,objects,bytes,digest FROM saves ORDER BY id DESC LIMIT ?`, q.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID      int64  `json:"id"`
				SavedAt string `json:"saved_at"`
				Path    string `json:"path"`
				Objects int    `json:"objects"`
				Bytes   int64  `json:"bytes"`
				Digest  string `json:"digest"`
			}
			if err := rows.Scan(&r.ID, &r.SavedAt, &r.Path, &r.Objects, &r.Bytes, &r.Digest); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "backups":
		rows, err := db.Query(`SELECT seq,path,created_at,objects,digest FROM backups ORDER BY seq DESC LIMIT ?`, q.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq       int64  `json:"seq"`
				Path      string `json:"path"`
				CreatedAt string `json:"created_at"`
				Objects   int    `json:"objects"`
				Digest    string `json:"digest"`
			}
			if err := rows.Scan(&r.Seq, &r.Path, &r.CreatedAt, &r.Objects, &r.Digest); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "edits":
		query := `SELECT tick,action,COALESCE(kind,''),x,y,COALESCE(orientation,''),COALESCE(reason,''),count FROM edits`
		args := []any{}
		if q.Cell != "" {
			x, y, err := parseCell(q.Cell)
			if err != nil {
				return err
			}
			query += ` WHERE x=? AND y=?`
			args = append(args, x, y)
		}
		query += ` ORDER BY id DESC LIMIT ?`
		args = append(args, q.Limit)
		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick        int64  `json:"tick"`
				Action      string `json:"action"`
				Kind        string `json:"kind,omitempty"`
				X           int    `json:"x"`
				Y           int    `json:"y"`
				Orientation string `json:"orientation,omitempty"`
				Reason      string `json:"reason,omitempty"`
				Count       int    `json:"count,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Action, &r.Kind, &r.X, &r.Y, &r.Orientation, &r.Reason, &r.Count); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "objects":
		id := q.Save
		if id == 0 {
			if err := db.QueryRow(`SELECT COALESCE(MAX(id),0) FROM saves`).Scan(&id); err != nil {
				return err
			}
			if id == 0 {
				return fmt.Errorf("no saves indexed")
			}
		}
		rows, err := db.Query(`SELECT x,y,kind,catalog,orientation FROM save_objects WHERE save_id=? ORDER BY y,x`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				SaveID      int64  `json:"save_id"`
				X           int    `json:"x"`
				Y           int    `json:"y"`
				Kind        string `json:"kind"`
				Catalog     string `json:"catalog"`
				Orientation string `json:"orientation"`
			}
			r.SaveID = id
			if err := rows.Scan(&r.X, &r.Y, &r.Kind, &r.Catalog, &r.Orientation); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return err
			}
			printJSON(w, r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q (saves, backups, edits, objects, catalogs)", q.What)
	}
}

func parseCell(s string) (x, y int, err error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("bad cell %q, want x,y", s)
	}
	if x, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("bad cell %q: %w", s, err)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("bad cell %q: %w", s, err)
	}
	return x, y, nil
}

func printJSON(w io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(w, string(b))
}
