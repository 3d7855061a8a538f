package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"citytiles.dev/internal/sim/grid"
)

var vp = Viewport{Width: 1280, Height: 720}

func centre() [2]float64 { return [2]float64{vp.Width / 2, vp.Height / 2} }

func isoCamera(target mgl64.Vec3) Camera {
	eye := target.Add(mgl64.Vec3{30, 30, 30})
	return LookAtCamera(eye, target, math.Pi/4, vp.Width/vp.Height)
}

// Looks down -Z from (0,10,0) with no rotation.
func horizontalCamera() Camera {
	return Camera{
		Projection: mgl64.Perspective(math.Pi/4, vp.Width/vp.Height, 0.1, 1000),
		Transform:  mgl64.Translate3D(0, 10, 0),
		Position:   mgl64.Vec3{0, 10, 0},
	}
}

func TestProject_CentreHitsTarget(t *testing.T) {
	r, err := Project(centre(), vp, isoCamera(mgl64.Vec3{}))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if r.Grid != (grid.Position{}) {
		t.Fatalf("grid=%v want (0,0)", r.Grid)
	}
	if !r.Continuous.ApproxEqualThreshold(mgl64.Vec3{}, 1e-6) {
		t.Fatalf("continuous=%v", r.Continuous)
	}
}

func TestProject_OffsetTarget(t *testing.T) {
	r, err := Project(centre(), vp, isoCamera(mgl64.Vec3{40, 0, -20}))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if r.Grid != (grid.Position{X: 2, Y: -1}) {
		t.Fatalf("grid=%v want (2,-1)", r.Grid)
	}
	if math.Abs(r.Continuous.Y()) > 1e-6 {
		t.Fatalf("hit is off the ground plane: %v", r.Continuous)
	}
}

func TestProject_Parallel(t *testing.T) {
	if _, err := Project(centre(), vp, horizontalCamera()); !errors.Is(err, ErrParallel) {
		t.Fatalf("err=%v want ErrParallel", err)
	}
}

func TestProject_BehindCamera(t *testing.T) {
	cam := horizontalCamera()
	cam.Transform = cam.Transform.Mul4(mgl64.HomogRotate3DX(math.Pi / 2))
	if _, err := Project(centre(), vp, cam); !errors.Is(err, ErrBehindCamera) {
		t.Fatalf("err=%v want ErrBehindCamera", err)
	}
}

func TestProject_Degenerate(t *testing.T) {
	if _, err := Project(centre(), Viewport{}, isoCamera(mgl64.Vec3{})); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("zero viewport err=%v", err)
	}
	if _, err := Project(centre(), vp, Camera{}); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("zero camera err=%v", err)
	}
}

func TestProjector_RetainsLastValid(t *testing.T) {
	var p Projector
	if p.Valid() {
		t.Fatalf("fresh projector should not be valid")
	}
	pt := centre()
	if !p.Update(&pt, vp, isoCamera(mgl64.Vec3{40, 0, -20})) {
		t.Fatalf("first update should change")
	}
	want := grid.Position{X: 2, Y: -1}
	if p.Current().Grid != want || p.Err() != nil {
		t.Fatalf("current=%v err=%v", p.Current().Grid, p.Err())
	}

	if p.Update(&pt, vp, horizontalCamera()) {
		t.Fatalf("parallel update should not change")
	}
	if !errors.Is(p.Err(), ErrParallel) || p.Current().Grid != want {
		t.Fatalf("after parallel: current=%v err=%v", p.Current().Grid, p.Err())
	}

	if p.Update(nil, vp, isoCamera(mgl64.Vec3{})) {
		t.Fatalf("nil pointer update should not change")
	}
	if !errors.Is(p.Err(), ErrNoPointer) || p.Current().Grid != want {
		t.Fatalf("after nil pointer: current=%v err=%v", p.Current().Grid, p.Err())
	}

	if p.Update(&pt, vp, isoCamera(mgl64.Vec3{40, 0, -20})) {
		t.Fatalf("identical update should report no change")
	}
	if p.Err() != nil {
		t.Fatalf("err should clear on success: %v", p.Err())
	}
}
