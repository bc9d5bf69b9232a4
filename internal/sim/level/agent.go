package level

import (
	"fmt"

	"chuchu.ai/internal/sim/board"
)

// Agent is a chuchu in flight: it moves continuously toward its destination
// tile center and waits for orders once it arrives.
type Agent struct {
	ID   int64
	Kind int

	Dir          board.Direction
	X, Y         float64
	destX, destY float64
	vx, vy       float64

	// Ticks to cross one tile.
	speed float64

	// Arrival tolerance in screen units.
	eps float64

	idle bool
}

func newAgent(id int64, kind int, x, y, speed, eps float64) *Agent {
	return &Agent{ID: id, Kind: kind, X: x, Y: y, destX: x, destY: y, speed: speed, eps: eps, idle: true}
}

func (a *Agent) Position() (float64, float64) { return a.X, a.Y }

// Idle reports whether the agent has arrived and is waiting for orders.
func (a *Agent) Idle() bool { return a.idle }

// Move issues a new one-tile move command. Ordering an agent in the None
// direction is a logic bug, never a runtime condition.
func (a *Agent) Move(dir board.Direction, tileSize float64) error {
	if dir.IsNone() {
		return fmt.Errorf("agent %d ordered to move in direction NONE", a.ID)
	}
	a.Dir = dir
	dx, dy := dir.Scale(tileSize)
	a.destX = a.X + dx
	a.destY = a.Y + dy
	a.vx = (a.destX - a.X) / a.speed
	a.vy = (a.destY - a.Y) / a.speed
	a.idle = false
	return nil
}

// Advance moves the agent dt ticks along its trajectory. On arrival the
// position snaps to the exact destination so the board's proximity lookups
// never drift out of tolerance from accumulated float error.
func (a *Agent) Advance(dt float64) {
	if a.idle {
		return
	}
	if board.Within(a.X, a.Y, a.destX, a.destY, a.eps) {
		a.X, a.Y = a.destX, a.destY
		a.idle = true
		return
	}
	a.X += a.vx * dt
	a.Y += a.vy * dt
	if board.Within(a.X, a.Y, a.destX, a.destY, a.eps) {
		a.X, a.Y = a.destX, a.destY
		a.idle = true
	}
}
