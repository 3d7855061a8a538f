// Package layout reads and writes the persisted layout document: a JSON array
// of placed objects.
package layout

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"citytiles.dev/internal/sim/catalogs"
	"citytiles.dev/internal/sim/grid"
	"citytiles.dev/internal/sim/orientation"
	"citytiles.dev/internal/sim/world"
)

var (
	ErrNotFound = errors.New("layout not found")
	ErrParse    = errors.New("layout malformed")
)

//go:embed layout.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("layout.schema.json", schemaJSON)

// record is the on-disk shape of one object. Older documents name the entry
// under "has"; a record may carry only one of the two.
type record struct {
	Kind        string                  `json:"kind,omitempty"`
	Has         string                  `json:"has,omitempty"`
	Position    grid.Position           `json:"position"`
	Orientation orientation.Orientation `json:"orientation"`
}

// Encode renders objs as a document ordered by position.
func Encode(objs []world.Object) ([]byte, error) {
	sorted := make([]world.Object, len(objs))
	copy(sorted, objs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position.Less(sorted[j].Position) })
	b, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode parses and validates a document. Every failure wraps ErrParse.
func Decode(b []byte) ([]world.Object, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var recs []record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	out := make([]world.Object, 0, len(recs))
	for i, r := range recs {
		name := r.Kind
		if name == "" {
			name = r.Has
		}
		ref, ok := catalogs.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: record %d: unknown kind %q", ErrParse, i, name)
		}
		out = append(out, world.Object{Kind: ref, Position: r.Position, Orientation: r.Orientation})
	}
	return out, nil
}
