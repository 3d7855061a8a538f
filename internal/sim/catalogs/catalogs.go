package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange     = errors.New("catalog index out of range")
	ErrUnresolvedReference = errors.New("unresolved catalog reference")
)

// Tag selects one of the two placeable catalogs. Each catalog has its own
// index namespace.
type Tag uint8

const (
	Floor Tag = iota
	Buildings
)

func (t Tag) String() string {
	switch t {
	case Floor:
		return "Floor"
	case Buildings:
		return "Buildings"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

func (t Tag) Valid() bool { return t == Floor || t == Buildings }

// Tags lists every catalog in a stable order.
var Tags = [...]Tag{Floor, Buildings}

type Entry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Asset string `json:"asset"`
}

type def struct {
	name  string
	asset string
}

var floorDefs = [...]def{
	{"Concrete", "./models/roads/road_prop_tile_dark.glb#Scene0"},
	{"Grass", "./models/grass_flat.glb#Scene0"},
	{"RoadStraight", "./models/roads/road_straight.glb#Scene0"},
	{"RoadStraightWalkable", "./models/roads/road_straight_walkable.glb#Scene0"},
	{"RoadStraightSideOpen", "./models/roads/road_straight_side_open.glb#Scene0"},
	{"RoadEnd", "./models/roads/road_end.glb#Scene0"},
	{"RoadCorner", "./models/roads/road_corner.glb#Scene0"},
	{"RoadCornerWalkable", "./models/roads/road_corner_walkable.glb#Scene0"},
	{"RoadIntersection", "./models/roads/road_intersection.glb#Scene0"},
	{"RoadIntersectionWalkable", "./models/roads/road_intersection_walkable.glb#Scene0"},
}

var buildingDefs = [...]def{
	{"Blgd01_01", "./models/bldg/bldg_01_01.glb#Scene0"},
	{"Blgd02_01", "./models/bldg/bldg_02_01.glb#Scene0"},
}

// PreviewAsset is shown by the placement preview before the first refresh.
const PreviewAsset = "./models/roads/road_prop_concrete.glb#Scene0"

// byName is derived once from the static tables; names are unique across
// both catalogs.
var byName = func() map[string]Ref {
	m := make(map[string]Ref, len(floorDefs)+len(buildingDefs))
	for i, d := range floorDefs {
		m[d.name] = Ref{Tag: Floor, Index: i}
	}
	for i, d := range buildingDefs {
		if _, dup := m[d.name]; dup {
			panic("catalogs: duplicate entry name " + d.name)
		}
		m[d.name] = Ref{Tag: Buildings, Index: i}
	}
	return m
}()

func table(tag Tag) ([]def, bool) {
	switch tag {
	case Floor:
		return floorDefs[:], true
	case Buildings:
		return buildingDefs[:], true
	default:
		return nil, false
	}
}

// Len returns the number of entries in the catalog, or 0 for an unknown tag.
func Len(tag Tag) int {
	defs, _ := table(tag)
	return len(defs)
}

func At(tag Tag, index int) (Entry, error) {
	defs, ok := table(tag)
	if !ok {
		return Entry{}, fmt.Errorf("%w: tag %v", ErrUnresolvedReference, tag)
	}
	if index < 0 || index >= len(defs) {
		return Entry{}, fmt.Errorf("%w: %v[%d] (len %d)", ErrIndexOutOfRange, tag, index, len(defs))
	}
	d := defs[index]
	return Entry{Index: index, Name: d.name, Asset: d.asset}, nil
}

// Lookup finds the reference for an entry name.
func Lookup(name string) (Ref, bool) {
	r, ok := byName[name]
	return r, ok
}

func Palette(tag Tag) []string {
	defs, _ := table(tag)
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.name
	}
	return out
}

// Digest is the sha256 of the catalog palette JSON. It changes whenever an
// entry is added, removed or reordered.
func Digest(tag Tag) string {
	b, _ := json.Marshal(Palette(tag))
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Entries returns a copy of the full catalog.
func Entries(tag Tag) []Entry {
	defs, _ := table(tag)
	out := make([]Entry, len(defs))
	for i, d := range defs {
		out[i] = Entry{Index: i, Name: d.name, Asset: d.asset}
	}
	return out
}
