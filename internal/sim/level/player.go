package level

// Player is a logical cursor on the grid. Its screen position always equals
// the center of the tile it stands on.
type Player struct {
	ID       string
	Col, Row int
	X, Y     float64
}

func (p *Player) Position() (float64, float64) { return p.X, p.Y }
