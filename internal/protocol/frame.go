package protocol

// FRAME (driver -> editor): raw platform state for one tick.
//
// Pointer is omitted while the pointer is off the render surface. Camera is
// optional; when absent the editor keeps the last camera it was given.
type FrameMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version,omitempty"`
	Pointer         *[2]float64  `json:"pointer,omitempty"`
	Viewport        *ViewportObs `json:"viewport,omitempty"`
	Camera          *CameraObs   `json:"camera,omitempty"`
	Held            []string     `json:"held,omitempty"`
	Pressed         []string     `json:"pressed,omitempty"`
	Released        []string     `json:"released,omitempty"`
}

type ViewportObs struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type CameraObs struct {
	Eye     [3]float64 `json:"eye"`
	Target  [3]float64 `json:"target"`
	FovYDeg float64    `json:"fovy_deg,omitempty"`
}
