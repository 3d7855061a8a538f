package protocol

// Transform places a model on the ground plane: world-space translation and a
// rotation about the vertical axis in radians.
type Transform struct {
	Translation [3]float64 `json:"translation"`
	RotationY   float64    `json:"rotation_y"`
}

// HELLO (editor -> renderer), sent once before any scene op.
type HelloMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	CellSize        float64        `json:"cell_size"`
	Catalogs        CatalogDigests `json:"catalogs"`
	PreviewAsset    string         `json:"preview_asset"`
}

type CatalogDigests struct {
	Floor     DigestRef `json:"floor"`
	Buildings DigestRef `json:"buildings"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (editor -> renderer): one catalog's entries.
type CatalogMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Name            string         `json:"name"`   // "floor" or "buildings"
	Digest          string         `json:"digest"` // sha256 hex
	Entries         []CatalogEntry `json:"entries"`
}

type CatalogEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Asset string `json:"asset"`
}

// SPAWN: a placed object entered the scene.
type SpawnMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Cell            [2]int    `json:"cell"`
	Kind            string    `json:"kind"`
	Asset           string    `json:"asset"`
	Orientation     string    `json:"orientation"`
	Transform       Transform `json:"transform"`
}

// DESPAWN: the object at Cell left the scene.
type DespawnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Cell            [2]int `json:"cell"`
	Kind            string `json:"kind"`
}

// PREVIEW: state of the single ghost object that follows the pointer.
// Asset is empty when unchanged since the previous PREVIEW.
type PreviewMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Visible         bool      `json:"visible"`
	Asset           string    `json:"asset,omitempty"`
	Cell            [2]int    `json:"cell"`
	Transform       Transform `json:"transform"`
}

// NOTICE: a non-fatal condition the user should see.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
