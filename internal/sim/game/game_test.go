package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chuchu.ai/internal/protocol"
	"chuchu.ai/internal/sim/board"
	"chuchu.ai/internal/sim/level"
	"chuchu.ai/internal/sim/levelpack"
	"chuchu.ai/internal/sim/tuning"
)

func testTuning() tuning.Tuning {
	t := tuning.Defaults()
	t.AgentSpeedTicks = 2
	t.AgentKinds = 1
	t.EmitIntervalTicks = 2
	t.EmitterCapacity = 1
	return t
}

// corridorPack is a 1x3 board: emitter on the left, drain on the right.
func corridorPack() *levelpack.Pack {
	return &levelpack.Pack{Levels: []level.Definition{{
		Name:     "corridor",
		Tiles:    [][]int{{0, 0, 0}},
		Routing:  board.PolicyTurns,
		Emitters: []level.EmitterDef{{Col: 0, Row: 0, Dir: board.Right, Capacity: 1, IntervalTicks: 2}},
		Drains:   []level.DrainDef{{Col: 2, Row: 0}},
		StartCol: 1, StartRow: 0,
	}}}
}

func newTestGame(t *testing.T) *Game {
	t.Helper()
	g, err := New(testTuning(), corridorPack(), 7)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func joinOnce(t *testing.T, g *Game, name string, out chan []byte) JoinResponse {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	g.StepOnce([]JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	return <-resp
}

// cliffPack has its emitter aimed off the right edge, so the released agent
// arrives on no tile and the level step fails.
func cliffPack() *levelpack.Pack {
	return &levelpack.Pack{Levels: []level.Definition{{
		Name:     "cliff",
		Tiles:    [][]int{{0, 0, 0}},
		Routing:  board.PolicyTurns,
		Emitters: []level.EmitterDef{{Col: 2, Row: 0, Dir: board.Right, Capacity: 1, IntervalTicks: 1}},
		Drains:   []level.DrainDef{{Col: 0, Row: 0}},
		StartCol: 1, StartRow: 0,
	}}}
}

func TestStep_InvariantViolationHaltsSimulation(t *testing.T) {
	g, err := New(testTuning(), cliffPack(), 7)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 20 && g.Err() == nil; i++ {
		g.StepOnce(nil, nil, nil)
	}
	if g.Err() == nil {
		t.Fatal("off-board agent never halted the simulation")
	}

	frozen := g.CurrentTick()
	g.StepOnce(nil, nil, nil)
	if g.CurrentTick() != frozen {
		t.Fatalf("tick advanced past a halted step: %d -> %d", frozen, g.CurrentTick())
	}
}

func TestRun_ReturnsErrorWhenStepFails(t *testing.T) {
	g, err := New(testTuning(), cliffPack(), 7)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- g.Run(context.Background()) }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Run returned nil after a failed step")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept ticking past a failed step")
	}
}

func TestJoin_AssignsIDsAndRespectsCapacity(t *testing.T) {
	cfg := testTuning()
	cfg.MaxPlayers = 2
	g, err := New(cfg, corridorPack(), 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r1 := joinOnce(t, g, "alice", nil)
	if r1.ErrCode != "" || r1.Welcome.PlayerID != "P1" {
		t.Fatalf("first join: %+v", r1)
	}
	if r1.Welcome.Board.Cols != 3 || r1.Welcome.Board.Rows != 1 {
		t.Fatalf("board geometry: %+v", r1.Welcome.Board)
	}
	if r1.Welcome.WorldParams.MaxPlayers != 2 {
		t.Fatalf("world params: %+v", r1.Welcome.WorldParams)
	}

	r2 := joinOnce(t, g, "bob", nil)
	if r2.ErrCode != "" || r2.Welcome.PlayerID != "P2" {
		t.Fatalf("second join: %+v", r2)
	}

	r3 := joinOnce(t, g, "carol", nil)
	if r3.ErrCode != protocol.ErrGameFull {
		t.Fatalf("third join should be refused, got %+v", r3)
	}
}

func TestStep_ActionAcknowledgements(t *testing.T) {
	g := newTestGame(t)
	out := make(chan []byte, 16)
	resp := joinOnce(t, g, "alice", out)
	if resp.ErrCode != "" {
		t.Fatalf("join: %+v", resp)
	}
	drain(out)

	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Actions: []protocol.ActionReq{
			{ID: "A1", Type: protocol.ActionPlaceArrow, Dir: "UP"},
			{ID: "A2", Type: protocol.ActionMove, Dir: "SIDEWAYS"},
			{ID: "A3", Type: "DANCE", Dir: "UP"},
		},
	}
	g.StepOnce(nil, nil, []ActionEnvelope{{PlayerID: resp.Welcome.PlayerID, Act: act}})

	st := readState(t, out)
	if len(st.Events) != 3 {
		t.Fatalf("want 3 acknowledgements, got %+v", st.Events)
	}
	want := map[string]string{"A1": "", "A2": protocol.ErrBadRequest, "A3": protocol.ErrBadRequest}
	for _, ev := range st.Events {
		code, ok := want[ev.Ref]
		if !ok {
			t.Fatalf("unexpected ref %q", ev.Ref)
		}
		if (code == "") != ev.OK || ev.Code != code {
			t.Fatalf("ref %s: got ok=%v code=%q want code=%q", ev.Ref, ev.OK, ev.Code, code)
		}
		if !protocol.IsKnownCode(ev.Code) {
			t.Fatalf("unknown error code %q", ev.Code)
		}
	}

	if len(st.Annotations) != 1 || st.Annotations[0].Dir != "UP" {
		t.Fatalf("annotation not placed: %+v", st.Annotations)
	}
}

func TestStep_MoveOffBoardRejected(t *testing.T) {
	g := newTestGame(t)
	out := make(chan []byte, 16)
	resp := joinOnce(t, g, "alice", out)
	drain(out)

	// Start cell is (1,0) on a 1-row board; UP and DOWN both leave it.
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Actions:         []protocol.ActionReq{{ID: "M1", Type: protocol.ActionMove, Dir: "UP"}},
	}
	g.StepOnce(nil, nil, []ActionEnvelope{{PlayerID: resp.Welcome.PlayerID, Act: act}})

	st := readState(t, out)
	if len(st.Events) != 1 || st.Events[0].OK || st.Events[0].Code != protocol.ErrOutOfBounds {
		t.Fatalf("events: %+v", st.Events)
	}
	if st.Players[0].Cell != [2]int{1, 0} {
		t.Fatalf("player moved: %+v", st.Players)
	}
}

func TestStep_LevelClearWrapsAndScores(t *testing.T) {
	g := newTestGame(t)
	out := make(chan []byte, 64)
	joinOnce(t, g, "alice", out)
	drain(out)

	var clearSeen bool
	for i := 0; i < 20 && !clearSeen; i++ {
		g.StepOnce(nil, nil, nil)
		for _, b := range collect(out) {
			var base protocol.BaseMessage
			if err := json.Unmarshal(b, &base); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if base.Type != protocol.TypeState {
				continue
			}
			var st protocol.StateMsg
			if err := json.Unmarshal(b, &st); err != nil {
				t.Fatalf("bad state: %v", err)
			}
			if st.LevelClear {
				clearSeen = true
				if st.Score != 1 {
					t.Fatalf("score on clear frame: %d", st.Score)
				}
			}
		}
	}
	if !clearSeen {
		t.Fatal("level never cleared")
	}

	// Single-level pack wraps back onto itself with re-seated players.
	if g.levelIndex != 0 {
		t.Fatalf("level index after wrap: %d", g.levelIndex)
	}
	if g.lvl.Consumed() != 0 {
		t.Fatalf("fresh level already has consumed=%d", g.lvl.Consumed())
	}
	if _, ok := g.lvl.Players()["P1"]; !ok {
		t.Fatal("player not re-seated after level change")
	}
}

func TestStep_ResultSinkReceivesClearedLevel(t *testing.T) {
	g := newTestGame(t)
	sink := &memResults{}
	g.SetResultSink(sink)
	joinOnce(t, g, "alice", nil)

	for i := 0; i < 20 && len(sink.results) == 0; i++ {
		g.StepOnce(nil, nil, nil)
	}
	if len(sink.results) != 1 {
		t.Fatalf("want 1 result, got %d", len(sink.results))
	}
	r := sink.results[0]
	if r.Name != "corridor" || r.Consumed != 1 || r.Capacity != 1 || r.TimedOut {
		t.Fatalf("result: %+v", r)
	}
}

func TestStepOnce_DeterministicDigests(t *testing.T) {
	run := func() []string {
		g, err := New(testTuning(), corridorPack(), 42)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var digests []string
		script := func(tick int) ([]JoinRequest, []string, []ActionEnvelope) {
			switch tick {
			case 0:
				return []JoinRequest{{Name: "alice"}}, nil, nil
			case 2:
				act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version,
					Actions: []protocol.ActionReq{{ID: "A1", Type: protocol.ActionPlaceArrow, Dir: "UP"}}}
				return nil, nil, []ActionEnvelope{{PlayerID: "P1", Act: act}}
			case 8:
				return nil, []string{"P1"}, nil
			}
			return nil, nil, nil
		}
		for tick := 0; tick < 30; tick++ {
			joins, leaves, actions := script(tick)
			_, d := g.StepOnce(joins, leaves, actions)
			digests = append(digests, d)
		}
		return digests
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestReplay_FromTickLogMatchesDigests(t *testing.T) {
	logger := &memTickLog{}
	g, err := New(testTuning(), corridorPack(), 99)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.SetTickLogger(logger)

	resp := make(chan JoinResponse, 1)
	g.StepOnce([]JoinRequest{{Name: "alice", Resp: resp}}, nil, nil)
	<-resp
	act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version,
		Actions: []protocol.ActionReq{{ID: "A1", Type: protocol.ActionPlaceArrow, Dir: "DOWN"}}}
	g.StepOnce(nil, nil, []ActionEnvelope{{PlayerID: "P1", Act: act}})
	for i := 0; i < 10; i++ {
		g.StepOnce(nil, nil, nil)
	}

	replay, err := New(testTuning(), corridorPack(), 99)
	if err != nil {
		t.Fatalf("New replay: %v", err)
	}
	for _, entry := range logger.entries {
		joins := make([]JoinRequest, 0, len(entry.Joins))
		for _, j := range entry.Joins {
			joins = append(joins, JoinRequest{Name: j.Name})
		}
		actions := make([]ActionEnvelope, 0, len(entry.Actions))
		for _, a := range entry.Actions {
			actions = append(actions, ActionEnvelope{PlayerID: a.PlayerID, Act: a.Act})
		}
		tick, digest := replay.StepOnce(joins, entry.Leaves, actions)
		if tick != entry.Tick {
			t.Fatalf("replay tick %d, log tick %d", tick, entry.Tick)
		}
		if digest != entry.Digest {
			t.Fatalf("digest mismatch at tick %d", tick)
		}
	}
}

func TestObserver_ReceivesTickFrames(t *testing.T) {
	g := newTestGame(t)
	out := make(chan []byte, 16)
	g.handleObserverJoin(ObserverJoinRequest{SessionID: "O1", Out: out})

	joinOnce(t, g, "alice", nil)

	b := <-out
	var tick map[string]json.RawMessage
	if err := json.Unmarshal(b, &tick); err != nil {
		t.Fatalf("bad tick frame: %v", err)
	}
	var typ string
	_ = json.Unmarshal(tick["type"], &typ)
	if typ != "TICK" {
		t.Fatalf("frame type %q", typ)
	}
	var joins []struct {
		PlayerID string `json:"player_id"`
	}
	_ = json.Unmarshal(tick["joins"], &joins)
	if len(joins) != 1 || joins[0].PlayerID != "P1" {
		t.Fatalf("joins: %+v", joins)
	}

	g.handleObserverLeave("O1")
	g.StepOnce(nil, nil, nil)
	select {
	case extra := <-out:
		t.Fatalf("frame after leave: %s", extra)
	default:
	}
}

type memTickLog struct {
	entries []TickLogEntry
}

func (m *memTickLog) WriteTick(e TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memResults struct {
	results []LevelResult
}

func (m *memResults) WriteResult(r LevelResult) error {
	m.results = append(m.results, r)
	return nil
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func collect(ch chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

func readState(t *testing.T, ch chan []byte) protocol.StateMsg {
	t.Helper()
	for _, b := range collect(ch) {
		var base protocol.BaseMessage
		if err := json.Unmarshal(b, &base); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if base.Type != protocol.TypeState {
			continue
		}
		var st protocol.StateMsg
		if err := json.Unmarshal(b, &st); err != nil {
			t.Fatalf("bad state: %v", err)
		}
		return st
	}
	t.Fatal("no STATE frame")
	return protocol.StateMsg{}
}
