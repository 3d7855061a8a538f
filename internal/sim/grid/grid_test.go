package grid

import "testing"

func TestSnap(t *testing.T) {
	cases := []struct {
		x, z float64
		want Position
	}{
		{25.0, -3.0, Position{1, 0}},
		{9.9, 10.1, Position{0, 1}},
		{0, 0, Position{0, 0}},
		{-10.1, 29.9, Position{-1, 1}},
		{-29.9, -30.1, Position{-1, -2}},
		{200, -200, Position{10, -10}},
	}
	for _, c := range cases {
		if got := Snap(c.x, c.z); got != c.want {
			t.Fatalf("Snap(%v,%v)=%v want %v", c.x, c.z, got, c.want)
		}
	}
}

func TestSnap_CellInterior(t *testing.T) {
	for n := -3; n <= 3; n++ {
		lo := float64(n)*CellSize - 9.999
		hi := float64(n)*CellSize + 9.999
		for _, v := range []float64{lo, float64(n) * CellSize, hi} {
			if got := Snap(v, v); got.X != n || got.Y != n {
				t.Fatalf("Snap(%v)=%v want (%d,%d)", v, got, n, n)
			}
		}
	}
}

func TestOrigin(t *testing.T) {
	got := Position{X: 2, Y: -1}.Origin()
	if got != [3]float64{40, 0, -20} {
		t.Fatalf("Origin=%v", got)
	}
}

func TestLess(t *testing.T) {
	if !(Position{5, 0}).Less(Position{0, 1}) {
		t.Fatalf("row order should win")
	}
	if !(Position{0, 1}).Less(Position{1, 1}) {
		t.Fatalf("x order within row")
	}
	if (Position{1, 1}).Less(Position{1, 1}) {
		t.Fatalf("equal positions are not less")
	}
}
