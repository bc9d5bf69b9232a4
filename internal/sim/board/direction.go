package board

import "fmt"

// Direction is a unit travel direction on the board, or None.
// Deltas are in screen space: y grows upward, row indices grow downward.
type Direction uint8

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

var deltas = [...][2]int{
	None:  {0, 0},
	Up:    {0, 1},
	Down:  {0, -1},
	Left:  {-1, 0},
	Right: {1, 0},
}

var names = [...]string{
	None:  "NONE",
	Up:    "UP",
	Down:  "DOWN",
	Left:  "LEFT",
	Right: "RIGHT",
}

// Delta returns the unit displacement of d.
func (d Direction) Delta() (dx, dy int) {
	return deltas[d][0], deltas[d][1]
}

// Scale returns the delta multiplied by f.
func (d Direction) Scale(f float64) (x, y float64) {
	return float64(deltas[d][0]) * f, float64(deltas[d][1]) * f
}

// IsNone reports whether d is the falsy non-direction.
func (d Direction) IsNone() bool { return d == None }

func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return None
}

func (d Direction) String() string {
	if int(d) >= len(names) {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return names[d]
}

// ParseDirection maps the wire/config spelling to a Direction.
// None parses too; callers that need a movement command must reject it.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	case "NONE", "":
		return None, nil
	}
	return None, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
