package level

import "chuchu.ai/internal/sim/board"

// Annotation is a transient player-placed arrow anchored to a tile center.
// It overrides tile routing while alive and fades out over its lifetime.
type Annotation struct {
	Owner string
	Dir   board.Direction
	X, Y  float64

	remaining float64
	initial   float64
	opacity   float64

	// Creation order, for oldest-first eviction.
	seq int64
}

func (a *Annotation) Position() (float64, float64) { return a.X, a.Y }

// Opacity is 0..255, proportional to remaining lifetime. It is recomputed
// before the lifetime decrement each step, so the exactly-zero frame renders
// fully transparent.
func (a *Annotation) Opacity() float64 { return a.opacity }

// Remaining is the lifetime left, in ticks.
func (a *Annotation) Remaining() float64 { return a.remaining }

func (a *Annotation) age(dt float64) {
	a.opacity = 255 * a.remaining / a.initial
	if a.opacity < 0 {
		a.opacity = 0
	}
	a.remaining -= dt
}

func (a *Annotation) expired() bool { return a.remaining <= 0 }
