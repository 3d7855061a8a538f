// Package projection turns a pointer position on the render surface into a
// point on the ground plane (world y = 0) and the grid cell under it.
package projection

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"citytiles.dev/internal/sim/grid"
)

var (
	ErrNoPointer    = errors.New("pointer is off the render surface")
	ErrParallel     = errors.New("ray is parallel to the ground plane")
	ErrBehindCamera = errors.New("ground plane is behind the camera")
	ErrDegenerate   = errors.New("degenerate camera or viewport")
)

const (
	parallelEpsilon = 1e-9
	degenerateDet   = 1e-12
)

// Camera is supplied by the camera controller each tick.
type Camera struct {
	// Projection maps eye space to clip space.
	Projection mgl64.Mat4
	// Transform is the camera's world transform (eye space to world space).
	Transform mgl64.Mat4
	Position  mgl64.Vec3
}

// Viewport is the render surface size in pixels.
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

type Result struct {
	// Continuous is the raw intersection with the ground plane.
	Continuous mgl64.Vec3
	Grid       grid.Position
}

// LookAtCamera builds a perspective camera at eye looking at target with +Y
// up. fovy is in radians.
func LookAtCamera(eye, target mgl64.Vec3, fovy, aspect float64) Camera {
	view := mgl64.LookAtV(eye, target, mgl64.Vec3{0, 1, 0})
	return Camera{
		Projection: mgl64.Perspective(fovy, aspect, 0.1, 1000),
		Transform:  view.Inv(),
		Position:   eye,
	}
}

// Project casts a ray from the camera through pointer (pixels, origin top
// left) and intersects it with the ground plane.
func Project(pointer [2]float64, vp Viewport, cam Camera) (Result, error) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return Result{}, ErrDegenerate
	}
	if math.Abs(cam.Projection.Det()) < degenerateDet {
		return Result{}, ErrDegenerate
	}

	ndcX := 2*pointer[0]/vp.Width - 1
	ndcY := 1 - 2*pointer[1]/vp.Height

	eye := cam.Projection.Inv().Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})
	eye = mgl64.Vec4{eye.X(), eye.Y(), -1, 0}

	dir := cam.Transform.Mul4x1(eye).Vec3()
	if dir.Len() == 0 || !finite(dir) {
		return Result{}, ErrDegenerate
	}
	dir = dir.Normalize()
	if math.Abs(dir.Y()) < parallelEpsilon {
		return Result{}, ErrParallel
	}

	t := -cam.Position.Y() / dir.Y()
	if t < 0 {
		return Result{}, ErrBehindCamera
	}
	p := cam.Position.Add(dir.Mul(t))
	if !finite(p) {
		return Result{}, ErrDegenerate
	}
	return Result{
		Continuous: p,
		Grid:       grid.Snap(p.X(), p.Z()),
	}, nil
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Projector holds the last valid projection. A failed update keeps the
// previous result so placement continues against the last cell.
type Projector struct {
	last    Result
	valid   bool
	lastErr error
}

// Update recomputes the projection. pointer is nil when the pointer is off
// the surface. It reports whether the stored result changed.
func (p *Projector) Update(pointer *[2]float64, vp Viewport, cam Camera) bool {
	if pointer == nil {
		p.lastErr = ErrNoPointer
		return false
	}
	r, err := Project(*pointer, vp, cam)
	if err != nil {
		p.lastErr = err
		return false
	}
	p.lastErr = nil
	changed := !p.valid || r != p.last
	p.last = r
	p.valid = true
	return changed
}

// Current returns the last valid result. Before the first valid update it is
// the origin cell.
func (p *Projector) Current() Result { return p.last }

// Valid reports whether at least one update succeeded.
func (p *Projector) Valid() bool { return p.valid }

// Err is the error from the most recent update, nil if it succeeded.
func (p *Projector) Err() error { return p.lastErr }
