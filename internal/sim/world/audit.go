package world

import "citytiles.dev/internal/sim/grid"

// Edit actions recorded in the edit log and index.
const (
	EditPlace  = "PLACE"
	EditRemove = "REMOVE"
	EditReject = "REJECT"
	EditLoad   = "LOAD"
	EditSave   = "SAVE"
)

// EditEntry is one registry change (or refused change) made by the editor.
type EditEntry struct {
	Tick        uint64        `json:"tick"`
	Action      string        `json:"action"`
	Kind        string        `json:"kind,omitempty"`
	Pos         grid.Position `json:"pos"`
	Orientation string        `json:"orientation,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	// Count is the object count after LOAD or SAVE.
	Count int `json:"count,omitempty"`
}
