package level

import (
	"fmt"
	"math/rand"

	"chuchu.ai/internal/sim/board"
)

// Config carries the tuning knobs the simulation core needs. The server
// fills it from tuning.yaml; tests construct it directly.
type Config struct {
	TileSize float64
	OffsetX  float64
	OffsetY  float64

	// Arrival/proximity tolerance in screen units.
	Tolerance float64

	// Ticks an agent needs to cross one tile.
	AgentSpeedTicks float64

	// Number of cosmetic agent variants.
	AgentKinds int

	AnnotationLifetimeTicks float64
	MaxAnnotationsPerOwner  int

	DrainFlourishTicks float64

	// Default emitter parameters for documents that omit them.
	EmitIntervalTicks float64
	EmitterCapacity   int

	// Up decreases the player's row index when set (grid rows grow
	// downward); the source revisions disagreed, so it stays a knob.
	InvertPlayerY bool
}

// Level is one running board: the grid plus every live collection, advanced
// by Step. All mutation happens inside Step and the player operations; the
// owning game loop serializes both.
type Level struct {
	cfg   Config
	def   Definition
	grid  *board.Grid
	table *board.RoutingTable

	agents      []*Agent
	emitters    []*Emitter
	drains      []*Drain
	annotations []*Annotation
	players     map[string]*Player

	clock    float64
	timed    bool
	clear    bool
	consumed int
	capacity int

	nextAgentID int64
	nextAnnSeq  int64
	rng         *rand.Rand
}

// New builds a level from a validated definition. Configuration problems in
// the definition surface here as errors; nothing is partially constructed.
func New(def Definition, cfg Config, seed int64) (*Level, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	table := board.NewRoutingTable(def.Routing)
	grid, err := board.NewGrid(def.Tiles, table, cfg.TileSize, cfg.OffsetX, cfg.OffsetY)
	if err != nil {
		return nil, err
	}
	l := &Level{
		cfg:     cfg,
		def:     def,
		grid:    grid,
		table:   table,
		players: make(map[string]*Player),
		clock:   def.TimeLimitTicks,
		timed:   def.TimeLimitTicks > 0,
		rng:     rand.New(rand.NewSource(seed)),
	}
	for _, ed := range def.Emitters {
		capacity := ed.Capacity
		if capacity < 0 {
			capacity = cfg.EmitterCapacity
		}
		interval := ed.IntervalTicks
		if interval == 0 {
			interval = cfg.EmitIntervalTicks
		}
		x, y := grid.ScreenPos(ed.Col, ed.Row)
		e := &Emitter{
			Col: ed.Col, Row: ed.Row,
			X: x, Y: y,
			Dir:      ed.Dir,
			capacity: capacity,
			interval: interval,
			queue:    make([]*Agent, 0, capacity),
		}
		for i := 0; i < capacity; i++ {
			l.nextAgentID++
			kind := 0
			if cfg.AgentKinds > 0 {
				kind = l.rng.Intn(cfg.AgentKinds)
			}
			e.queue = append(e.queue, newAgent(l.nextAgentID, kind, x, y, cfg.AgentSpeedTicks, cfg.Tolerance))
		}
		l.capacity += capacity
		l.emitters = append(l.emitters, e)
	}
	for _, dd := range def.Drains {
		x, y := grid.ScreenPos(dd.Col, dd.Row)
		l.drains = append(l.drains, &Drain{Col: dd.Col, Row: dd.Row, X: x, Y: y, duration: cfg.DrainFlourishTicks})
	}
	return l, nil
}

func (l *Level) Grid() *board.Grid           { return l.grid }
func (l *Level) Definition() Definition      { return l.def }
func (l *Level) Agents() []*Agent            { return l.agents }
func (l *Level) Emitters() []*Emitter        { return l.emitters }
func (l *Level) Drains() []*Drain            { return l.drains }
func (l *Level) Annotations() []*Annotation  { return l.annotations }
func (l *Level) Clear() bool                 { return l.clear }
func (l *Level) Consumed() int               { return l.consumed }
func (l *Level) Capacity() int               { return l.capacity }
func (l *Level) Timed() bool                 { return l.timed }
func (l *Level) TimeLeft() float64           { return l.clock }

// Players exposes the live player map. Callers that encode it sort the keys
// for a deterministic order.
func (l *Level) Players() map[string]*Player { return l.players }

// AddPlayer seats a player at a grid cell.
func (l *Level) AddPlayer(id string, col, row int) (*Player, error) {
	if _, dup := l.players[id]; dup {
		return nil, fmt.Errorf("player %q already in level", id)
	}
	if !l.grid.InBounds(col, row) {
		return nil, fmt.Errorf("player %q start col=%d row=%d out of bounds", id, col, row)
	}
	x, y := l.grid.ScreenPos(col, row)
	p := &Player{ID: id, Col: col, Row: row, X: x, Y: y}
	l.players[id] = p
	return p, nil
}

func (l *Level) RemovePlayer(id string) {
	delete(l.players, id)
}

// MovePlayer shifts a player one cell. Out-of-bounds moves are silently
// rejected; unknown players too (the session may have raced a level change).
func (l *Level) MovePlayer(id string, dir board.Direction) bool {
	p, ok := l.players[id]
	if !ok || dir.IsNone() {
		return false
	}
	dx, dy := dir.Delta()
	if l.cfg.InvertPlayerY {
		dy = -dy
	}
	col := p.Col + dx
	row := p.Row + dy
	if !l.grid.InBounds(col, row) {
		return false
	}
	p.Col, p.Row = col, row
	p.X, p.Y = l.grid.ScreenPos(col, row)
	return true
}

// PlaceAnnotation drops an arrow at the owner's current cell. Placement is
// refused when any annotation already occupies the cell, whoever owns it.
// An owner past the per-owner cap loses their oldest arrow first.
func (l *Level) PlaceAnnotation(owner string, dir board.Direction) bool {
	p, ok := l.players[owner]
	if !ok || dir.IsNone() {
		return false
	}
	if _, occupied := board.Nearest(p.X, p.Y, l.annotations, l.cfg.Tolerance); occupied {
		return false
	}
	mine := 0
	oldest := -1
	for i, a := range l.annotations {
		if a.Owner != owner {
			continue
		}
		mine++
		if oldest == -1 || a.seq < l.annotations[oldest].seq {
			oldest = i
		}
	}
	if mine >= l.cfg.MaxAnnotationsPerOwner && oldest >= 0 {
		l.annotations = append(l.annotations[:oldest], l.annotations[oldest+1:]...)
	}
	l.nextAnnSeq++
	l.annotations = append(l.annotations, &Annotation{
		Owner:     owner,
		Dir:       dir,
		X:         p.X,
		Y:         p.Y,
		remaining: l.cfg.AnnotationLifetimeTicks,
		initial:   l.cfg.AnnotationLifetimeTicks,
		opacity:   255,
		seq:       l.nextAnnSeq,
	})
	return true
}

// Step advances the level by dt ticks. The phase order is load-bearing:
// annotations expiring this tick must not steer anyone this tick, and agents
// that just received orders still move this tick.
func (l *Level) Step(dt float64) error {
	l.ageAnnotations(dt)

	for _, d := range l.drains {
		d.Tick(dt)
	}

	for _, e := range l.emitters {
		if a := e.TryRelease(); a != nil {
			if err := a.Move(e.Dir, l.cfg.TileSize); err != nil {
				return err
			}
			l.agents = append(l.agents, a)
		}
		e.Tick(dt)
	}

	keep := l.agents[:0]
	for _, a := range l.agents {
		if !a.Idle() {
			keep = append(keep, a)
			continue
		}
		drained, err := l.resolve(a)
		if err != nil {
			return err
		}
		if drained {
			continue
		}
		keep = append(keep, a)
	}
	// Drop the tail so drained agents are not pinned by the backing array.
	for i := len(keep); i < len(l.agents); i++ {
		l.agents[i] = nil
	}
	l.agents = keep

	for _, a := range l.agents {
		a.Advance(dt)
	}

	if l.timed && l.clock > 0 {
		l.clock -= dt
	}

	l.clear = l.consumed == l.capacity || (l.timed && l.clock <= 0)
	return nil
}

// resolve issues the next order to an idle agent: drain first, then
// annotation override, then the tile's routing rule. Annotations never
// override drains.
func (l *Level) resolve(a *Agent) (drained bool, err error) {
	if d, ok := board.Nearest(a.X, a.Y, l.drains, l.cfg.Tolerance); ok {
		d.OnConsume()
		l.consumed++
		return true, nil
	}
	if ann, ok := board.Nearest(a.X, a.Y, l.annotations, l.cfg.Tolerance); ok {
		return false, a.Move(ann.Dir, l.cfg.TileSize)
	}
	tile, ok := l.grid.TileUnder(a.X, a.Y)
	if !ok {
		return false, fmt.Errorf("agent %d at (%.2f,%.2f) is not on any tile", a.ID, a.X, a.Y)
	}
	return false, a.Move(l.table.Resolve(tile.Type, a.Dir), l.cfg.TileSize)
}

func (l *Level) ageAnnotations(dt float64) {
	keep := l.annotations[:0]
	for _, a := range l.annotations {
		a.age(dt)
		if !a.expired() {
			keep = append(keep, a)
		}
	}
	for i := len(keep); i < len(l.annotations); i++ {
		l.annotations[i] = nil
	}
	l.annotations = keep
}
