package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"

	"chuchu.ai/internal/protocol"
)

func (g *Game) buildState(nowTick uint64) protocol.StateMsg {
	lvl := g.lvl

	agents := make([]protocol.AgentState, 0, len(lvl.Agents()))
	for _, a := range lvl.Agents() {
		agents = append(agents, protocol.AgentState{
			ID:   a.ID,
			Kind: a.Kind,
			Pos:  [2]float64{a.X, a.Y},
			Dir:  a.Dir.String(),
		})
	}

	players := make([]protocol.PlayerState, 0, len(lvl.Players()))
	for _, id := range g.playerIDs() {
		p, ok := lvl.Players()[id]
		if !ok {
			continue
		}
		players = append(players, protocol.PlayerState{
			ID:   p.ID,
			Cell: [2]int{p.Col, p.Row},
			Pos:  [2]float64{p.X, p.Y},
		})
	}

	annotations := make([]protocol.AnnotationState, 0, len(lvl.Annotations()))
	for _, a := range lvl.Annotations() {
		annotations = append(annotations, protocol.AnnotationState{
			Owner:   a.Owner,
			Pos:     [2]float64{a.X, a.Y},
			Dir:     a.Dir.String(),
			Opacity: a.Opacity(),
			TTL:     a.Remaining(),
		})
	}

	emitters := make([]protocol.EmitterState, 0, len(lvl.Emitters()))
	for _, e := range lvl.Emitters() {
		emitters = append(emitters, protocol.EmitterState{
			Cell:      [2]int{e.Col, e.Row},
			Pos:       [2]float64{e.X, e.Y},
			Dir:       e.Dir.String(),
			Released:  e.Released(),
			Remaining: e.Remaining(),
		})
	}

	drains := make([]protocol.DrainState, 0, len(lvl.Drains()))
	for _, d := range lvl.Drains() {
		drains = append(drains, protocol.DrainState{
			Cell:     [2]int{d.Col, d.Row},
			Pos:      [2]float64{d.X, d.Y},
			Consumed: d.Consumed,
			Flourish: d.Flourishing(),
		})
	}

	return protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Level:           g.levelIndex,
		LevelClear:      lvl.Clear(),
		Timed:           lvl.Timed(),
		TimeLeft:        lvl.TimeLeft(),
		Score:           g.score,
		Agents:          agents,
		Players:         players,
		Annotations:     annotations,
		Emitters:        emitters,
		Drains:          drains,
	}
}

// sendState delivers one player's STATE frame, with that player's action
// acknowledgements attached, followed by a BOARD frame on level change.
func (g *Game) sendState(cl *clientState, base protocol.StateMsg, boardChanged bool, nowTick uint64) {
	msg := base
	msg.Events = cl.results
	cl.results = nil

	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sendLatest(cl.Out, b)

	if boardChanged {
		bb, err := json.Marshal(protocol.BoardMsg{
			Type:            protocol.TypeBoard,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Board:           g.buildBoard(),
		})
		if err == nil {
			sendLatest(cl.Out, bb)
		}
	}
}

// stateDigest hashes everything gameplay-relevant in a fixed order. Two runs
// fed identical inputs from the same pack and seed produce identical digests.
func (g *Game) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	str := func(s string) {
		u64(uint64(len(s)))
		h.Write([]byte(s))
	}

	lvl := g.lvl
	u64(nowTick)
	u64(uint64(g.levelIndex))
	u64(uint64(g.score))
	u64(uint64(lvl.Consumed()))
	f64(lvl.TimeLeft())
	if lvl.Clear() {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	for _, a := range lvl.Agents() {
		u64(uint64(a.ID))
		u64(uint64(a.Kind))
		u64(uint64(a.Dir))
		f64(a.X)
		f64(a.Y)
	}
	for _, e := range lvl.Emitters() {
		u64(uint64(e.Col))
		u64(uint64(e.Row))
		u64(uint64(e.Remaining()))
	}
	for _, d := range lvl.Drains() {
		u64(uint64(d.Col))
		u64(uint64(d.Row))
		u64(uint64(d.Consumed))
	}
	for _, a := range lvl.Annotations() {
		str(a.Owner)
		u64(uint64(a.Dir))
		f64(a.X)
		f64(a.Y)
		f64(a.Remaining())
	}
	for _, id := range g.playerIDs() {
		p, ok := lvl.Players()[id]
		if !ok {
			continue
		}
		str(p.ID)
		u64(uint64(p.Col))
		u64(uint64(p.Row))
	}

	return hex.EncodeToString(h.Sum(nil))
}
