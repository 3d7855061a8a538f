package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Driver -> editor.
	TypeFrame = "FRAME"

	// Editor -> renderer.
	TypeHello   = "HELLO"
	TypeCatalog = "CATALOG"
	TypeSpawn   = "SPAWN"
	TypeDespawn = "DESPAWN"
	TypePreview = "PREVIEW"
	TypeNotice  = "NOTICE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
