package level

import "chuchu.ai/internal/sim/board"

// Emitter releases pre-built agents one at a time on a cooldown. The queue
// is filled once at level start and never refilled, so the capacity bound
// holds over any number of ticks.
type Emitter struct {
	Col, Row int
	X, Y     float64
	Dir      board.Direction

	capacity int
	interval float64
	cooldown float64

	// Pending agents, released stack-wise. All queued agents are
	// interchangeable, so the pop order is not gameplay-significant.
	queue []*Agent
}

func (e *Emitter) Position() (float64, float64) { return e.X, e.Y }

func (e *Emitter) Capacity() int  { return e.capacity }
func (e *Emitter) Remaining() int { return len(e.queue) }
func (e *Emitter) Released() int  { return e.capacity - len(e.queue) }

// Tick ages the cooldown.
func (e *Emitter) Tick(dt float64) {
	if e.cooldown > 0 {
		e.cooldown -= dt
	}
}

// TryRelease pops one agent when the cooldown has expired and the queue is
// non-empty; otherwise it has no side effect.
func (e *Emitter) TryRelease() *Agent {
	if e.cooldown > 0 || len(e.queue) == 0 {
		return nil
	}
	e.cooldown = e.interval
	a := e.queue[len(e.queue)-1]
	e.queue = e.queue[:len(e.queue)-1]
	return a
}
