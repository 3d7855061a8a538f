package editor

import (
	"github.com/go-gl/mathgl/mgl64"

	"citytiles.dev/internal/protocol"
	"citytiles.dev/internal/sim/input"
	"citytiles.dev/internal/sim/projection"
	"citytiles.dev/internal/sim/tuning"
)

// FrameAdapter turns FRAME messages into input frames. Viewport and camera
// are sticky: a message without them reuses the last ones seen, starting from
// the tuning defaults.
type FrameAdapter struct {
	vp  projection.Viewport
	cam tuning.Camera

	built projection.Camera
}

func NewFrameAdapter(t tuning.Tuning) *FrameAdapter {
	a := &FrameAdapter{
		vp:  projection.Viewport{Width: t.Viewport.Width, Height: t.Viewport.Height},
		cam: t.Camera,
	}
	a.rebuild()
	return a
}

func (a *FrameAdapter) Frame(m protocol.FrameMsg) input.Frame {
	changed := false
	if m.Viewport != nil {
		vp := projection.Viewport{Width: m.Viewport.Width, Height: m.Viewport.Height}
		if vp != a.vp {
			a.vp = vp
			changed = true
		}
	}
	if m.Camera != nil {
		c := tuning.Camera{Eye: m.Camera.Eye, Target: m.Camera.Target, FovYDeg: m.Camera.FovYDeg}
		if c.FovYDeg <= 0 {
			c.FovYDeg = a.cam.FovYDeg
		}
		if c != a.cam {
			a.cam = c
			changed = true
		}
	}
	if changed {
		a.rebuild()
	}
	return input.Frame{
		Pointer:  m.Pointer,
		Viewport: a.vp,
		Camera:   a.built,
		Held:     m.Held,
		Pressed:  m.Pressed,
		Released: m.Released,
	}
}

func (a *FrameAdapter) rebuild() {
	aspect := 1.0
	if a.vp.Height > 0 {
		aspect = a.vp.Width / a.vp.Height
	}
	a.built = projection.LookAtCamera(mgl64.Vec3(a.cam.Eye), mgl64.Vec3(a.cam.Target), a.cam.FovY(), aspect)
}
