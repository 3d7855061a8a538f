package grid

import (
	"fmt"
	"math"
)

// CellSize is the width of one grid cell in world units.
const CellSize = 20.0

// Position is an integer cell coordinate. Y indexes the world Z axis; the
// ground plane is world y = 0.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func (p Position) Add(dx, dy int) Position { return Position{X: p.X + dx, Y: p.Y + dy} }

// Less orders positions row-major (Y, then X).
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Snap converts a continuous ground-plane point (world x, world z) to the
// nearest cell. Halfway points round away from zero.
func Snap(x, z float64) Position {
	return Position{X: snapAxis(x), Y: snapAxis(z)}
}

func snapAxis(v float64) int {
	return int(math.Round(v / CellSize))
}

// Origin returns the world-space centre of a cell on the ground plane as
// (x, y, z).
func (p Position) Origin() [3]float64 {
	return [3]float64{float64(p.X) * CellSize, 0, float64(p.Y) * CellSize}
}
