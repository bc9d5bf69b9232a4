package game

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync/atomic"

	"chuchu.ai/internal/protocol"
	"chuchu.ai/internal/sim/board"
	"chuchu.ai/internal/sim/level"
	"chuchu.ai/internal/sim/levelpack"
	"chuchu.ai/internal/sim/tuning"
)

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

// JoinResponse carries either a WELCOME or a refusal code (e.g. E_GAME_FULL).
type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	ErrCode string
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

// TickLogEntry is one line of the per-tick journal. It carries every input
// the tick consumed plus a digest of the state afterwards, which is enough
// to replay and verify a session from the same level pack and seed.
type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// LevelResult records one finished level for the results index.
type LevelResult struct {
	Level       int    `json:"level"`
	Name        string `json:"name"`
	ClearedTick uint64 `json:"cleared_tick"`
	Consumed    int    `json:"consumed"`
	Capacity    int    `json:"capacity"`
	TimedOut    bool   `json:"timed_out"`
	Score       int    `json:"score"`
}

type ResultSink interface {
	WriteResult(r LevelResult) error
}

type clientState struct {
	Out chan []byte

	// Acknowledgements accumulated this tick, delivered in the next STATE.
	results []protocol.ActionResult
}

// Game is a single-threaded authoritative simulation over one level pack.
// All state must be accessed only from the game loop goroutine.
type Game struct {
	cfg  tuning.Tuning
	pack *levelpack.Pack
	seed int64

	tick atomic.Uint64

	levelIndex int
	lvl        *level.Level
	score      int

	names     map[string]string
	clients   map[string]*clientState
	observers map[string]*observerClient

	inbox         chan ActionEnvelope
	join          chan JoinRequest
	leave         chan string
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}

	nextPlayerNum atomic.Uint64

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	results    ResultSink

	// Latest board geometry, readable off-loop by the observer bootstrap.
	latestBoard atomic.Value // protocol.Board

	metrics atomic.Value // Metrics

	log *log.Logger

	// Set when a step fails. The loop never advances past it.
	fatal error
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

// Metrics is a read-model snapshot published once per tick.
type Metrics struct {
	Tick        uint64      `json:"tick"`
	Level       int         `json:"level"`
	Players     int         `json:"players"`
	Observers   int         `json:"observers"`
	Agents      int         `json:"agents"`
	Score       int         `json:"score"`
	StepMS      float64     `json:"step_ms"`
	QueueDepths QueueDepths `json:"queue_depths"`
}

func (g *Game) Metrics() Metrics {
	m, _ := g.metrics.Load().(Metrics)
	return m
}

func New(cfg tuning.Tuning, pack *levelpack.Pack, seed int64) (*Game, error) {
	if pack == nil || pack.Len() == 0 {
		return nil, fmt.Errorf("level pack is empty")
	}
	g := &Game{
		cfg:           cfg,
		pack:          pack,
		seed:          seed,
		names:         map[string]string{},
		clients:       map[string]*clientState{},
		observers:     map[string]*observerClient{},
		inbox:         make(chan ActionEnvelope, 1024),
		join:          make(chan JoinRequest, 64),
		leave:         make(chan string, 64),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	if err := g.loadLevel(0); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) SetTickLogger(l TickLogger) { g.tickLogger = l }
func (g *Game) SetResultSink(s ResultSink) { g.results = s }
func (g *Game) SetLogger(l *log.Logger)    { g.log = l }

// Err reports the error that halted the simulation, if any.
func (g *Game) Err() error { return g.fatal }

func (g *Game) logf(format string, args ...any) {
	if g.log != nil {
		g.log.Printf(format, args...)
	}
}

func (g *Game) Inbox() chan<- ActionEnvelope { return g.inbox }
func (g *Game) Join() chan<- JoinRequest     { return g.join }
func (g *Game) Leave() chan<- string         { return g.leave }

func (g *Game) CurrentTick() uint64 { return g.tick.Load() }
func (g *Game) TickRateHz() int     { return g.cfg.TickRateHz }

func (g *Game) levelConfig() level.Config {
	return level.Config{
		TileSize:                g.cfg.TileSize,
		OffsetX:                 g.cfg.OffsetX,
		OffsetY:                 g.cfg.OffsetY,
		Tolerance:               g.cfg.ArriveTolerance,
		AgentSpeedTicks:         g.cfg.AgentSpeedTicks,
		AgentKinds:              g.cfg.AgentKinds,
		AnnotationLifetimeTicks: g.cfg.AnnotationLifetimeTicks,
		MaxAnnotationsPerOwner:  g.cfg.MaxAnnotationsPerPlayer,
		DrainFlourishTicks:      g.cfg.DrainFlourishTicks,
		EmitIntervalTicks:       g.cfg.EmitIntervalTicks,
		EmitterCapacity:         g.cfg.EmitterCapacity,
		InvertPlayerY:           g.cfg.InvertPlayerY,
	}
}

// loadLevel replaces the running level and re-seats every connected player at
// the new start cell. Each level gets its own RNG stream so replays stay
// deterministic across level changes.
func (g *Game) loadLevel(i int) error {
	def, err := g.pack.Get(i)
	if err != nil {
		return err
	}
	lvl, err := level.New(def, g.levelConfig(), g.seed+int64(i))
	if err != nil {
		return err
	}
	for _, id := range g.playerIDs() {
		if _, err := lvl.AddPlayer(id, def.StartCol, def.StartRow); err != nil {
			return err
		}
	}
	g.levelIndex = i
	g.lvl = lvl
	g.latestBoard.Store(g.buildBoard())
	return nil
}

// BoardSnapshot returns the most recently loaded board. Safe to call from
// any goroutine; it may lag one tick behind a level change.
func (g *Game) BoardSnapshot() protocol.Board {
	b, _ := g.latestBoard.Load().(protocol.Board)
	return b
}

// WorldParams is safe to call from any goroutine; the tuning never changes
// after New.
func (g *Game) WorldParams() protocol.WorldParams { return g.worldParams() }

// playerIDs returns connected player ids sorted for deterministic iteration.
func (g *Game) playerIDs() []string {
	ids := make([]string, 0, len(g.names))
	for id := range g.names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Game) joinPlayer(name string, out chan []byte) JoinResponse {
	if name == "" {
		name = "player"
	}
	if len(g.names) >= g.cfg.MaxPlayers {
		return JoinResponse{ErrCode: protocol.ErrGameFull}
	}

	idNum := g.nextPlayerNum.Add(1)
	playerID := fmt.Sprintf("P%d", idNum)

	def := g.lvl.Definition()
	if _, err := g.lvl.AddPlayer(playerID, def.StartCol, def.StartRow); err != nil {
		return JoinResponse{ErrCode: protocol.ErrInternal}
	}
	g.names[playerID] = name
	if out != nil {
		g.clients[playerID] = &clientState{Out: out}
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		WorldParams:     g.worldParams(),
		Board:           g.buildBoard(),
	}
	return JoinResponse{Welcome: welcome}
}

func (g *Game) handleLeave(playerID string) {
	g.lvl.RemovePlayer(playerID)
	delete(g.names, playerID)
	delete(g.clients, playerID)
}

func (g *Game) worldParams() protocol.WorldParams {
	return protocol.WorldParams{
		TickRateHz: g.cfg.TickRateHz,
		TileSize:   g.cfg.TileSize,
		OffsetX:    g.cfg.OffsetX,
		OffsetY:    g.cfg.OffsetY,
		MaxPlayers: g.cfg.MaxPlayers,
	}
}

func (g *Game) buildBoard() protocol.Board {
	def := g.lvl.Definition()
	grid := g.lvl.Grid()
	table := board.NewRoutingTable(def.Routing)

	walls := map[string][]string{}
	seen := map[int]bool{}
	for _, row := range def.Tiles {
		for _, code := range row {
			if seen[code] {
				continue
			}
			seen[code] = true
			segs := table.Walls(code)
			if len(segs) == 0 {
				continue
			}
			names := make([]string, 0, len(segs))
			for _, d := range segs {
				names = append(names, d.String())
			}
			walls[strconv.Itoa(code)] = names
		}
	}

	return protocol.Board{
		Level:     g.levelIndex,
		LevelName: def.Name,
		Cols:      grid.Cols(),
		Rows:      grid.Rows(),
		Tiles:     def.Tiles,
		Walls:     walls,
	}
}

// applyAct validates and applies one ACT message; every request gets an
// acknowledgement in the player's next STATE frame.
func (g *Game) applyAct(playerID string, act protocol.ActMsg) []protocol.ActionResult {
	results := make([]protocol.ActionResult, 0, len(act.Actions))
	fail := func(id, code, msg string) {
		results = append(results, protocol.ActionResult{Ref: id, OK: false, Code: code, Message: msg})
	}
	for _, req := range act.Actions {
		dir, err := board.ParseDirection(req.Dir)
		if err != nil || dir.IsNone() {
			fail(req.ID, protocol.ErrBadRequest, fmt.Sprintf("bad direction %q", req.Dir))
			continue
		}
		switch req.Type {
		case protocol.ActionMove:
			if !g.lvl.MovePlayer(playerID, dir) {
				fail(req.ID, protocol.ErrOutOfBounds, "move leaves the board")
				continue
			}
		case protocol.ActionPlaceArrow:
			if !g.lvl.PlaceAnnotation(playerID, dir) {
				fail(req.ID, protocol.ErrCellOccupied, "cell already annotated")
				continue
			}
		default:
			fail(req.ID, protocol.ErrBadRequest, fmt.Sprintf("unknown action type %q", req.Type))
			continue
		}
		results = append(results, protocol.ActionResult{Ref: req.ID, OK: true})
	}
	return results
}
