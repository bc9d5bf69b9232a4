package level

// Drain is a terminal sink. The flourish timer only drives transient
// display state; the consumed counter is what level completion reads.
type Drain struct {
	Col, Row int
	X, Y     float64

	Consumed int

	flourish float64
	duration float64
}

func (d *Drain) Position() (float64, float64) { return d.X, d.Y }

// OnConsume counts one consumed agent and restarts the flourish timer.
func (d *Drain) OnConsume() {
	d.Consumed++
	d.flourish = d.duration
}

// Tick ages the flourish timer.
func (d *Drain) Tick(dt float64) {
	if d.flourish > 0 {
		d.flourish -= dt
	}
}

// Flourishing reports whether the drain recently consumed an agent.
func (d *Drain) Flourishing() bool { return d.flourish > 0 }
