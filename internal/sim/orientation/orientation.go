package orientation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalid = errors.New("invalid orientation")

// Orientation is a cardinal facing. The zero value is North; use Default for
// the session start facing.
type Orientation uint8

const (
	North Orientation = iota
	East
	South
	West
)

const count = 4

// Default is the facing at session start (looking toward the default camera).
const Default = South

var names = [count]string{"North", "East", "South", "West"}

// Canonical angles in radians, indexed by state.
var angles = [count]float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}

const angleTolerance = 1e-4

func (o Orientation) valid() bool { return o < count }

func (o Orientation) String() string {
	if !o.valid() {
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
	return names[o]
}

func (o Orientation) Next() Orientation { return (o + 1) % count }

func (o Orientation) Previous() Orientation { return (o + count - 1) % count }

// Rotation returns the canonical rotation about the vertical axis, in radians.
func (o Orientation) Rotation() float64 { return angles[o%count] }

// QuarterTurns returns the clockwise quarter-turn count in [0,3].
func (o Orientation) QuarterTurns() int { return int(o % count) }

// FromQuarterTurns accepts either quarter-turns (any integer) or degrees in
// multiples of 90.
func FromQuarterTurns(r int) Orientation {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= count
	if r < 0 {
		r += count
	}
	return Orientation(r)
}

// Parse looks up a facing by name.
func Parse(s string) (Orientation, error) {
	for i, n := range names {
		if n == s {
			return Orientation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
}

// RotateXZ rotates a cell offset around the vertical axis by the facing's
// quarter turns, clockwise.
func (o Orientation) RotateXZ(x, z int) (rx, rz int) {
	switch o % count {
	case North:
		return x, z
	case East:
		return z, -x
	case South:
		return -x, -z
	default:
		return -z, x
	}
}

// MarshalJSON writes the facing with its canonical angle: {"South":3.1415927}.
func (o Orientation) MarshalJSON() ([]byte, error) {
	if !o.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalid, uint8(o))
	}
	return json.Marshal(map[string]float32{names[o]: float32(angles[o])})
}

// UnmarshalJSON accepts {"<Facing>": angle}. The angle must match the
// canonical angle for the facing.
func (o *Orientation) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: want exactly one facing, got %d", ErrInvalid, len(m))
	}
	for k, angle := range m {
		v, err := Parse(k)
		if err != nil {
			return err
		}
		if math.Abs(angle-angles[v]) > angleTolerance {
			return fmt.Errorf("%w: %s angle %v (want %v)", ErrInvalid, k, angle, float32(angles[v]))
		}
		*o = v
	}
	return nil
}
