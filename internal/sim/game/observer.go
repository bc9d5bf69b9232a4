package game

import (
	"encoding/json"

	"chuchu.ai/internal/observerproto"
	"chuchu.ai/internal/protocol"
)

// ObserverJoinRequest registers a read-only session that receives one TICK
// frame per simulation tick. All observer state is maintained by the game
// loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte

	// Optional: only stream the action traffic of one player.
	FocusPlayerID string
}

// ObserverSubscribeRequest updates an existing observer session.
type ObserverSubscribeRequest struct {
	SessionID     string
	FocusPlayerID string
}

type observerClient struct {
	id    string
	out   chan []byte
	focus string
}

func (g *Game) ObserverJoin() chan<- ObserverJoinRequest           { return g.observerJoin }
func (g *Game) ObserverSubscribe() chan<- ObserverSubscribeRequest { return g.observerSub }
func (g *Game) ObserverLeave() chan<- string                       { return g.observerLeave }

func (g *Game) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	g.observers[req.SessionID] = &observerClient{
		id:    req.SessionID,
		out:   req.Out,
		focus: req.FocusPlayerID,
	}
}

func (g *Game) handleObserverSubscribe(req ObserverSubscribeRequest) {
	if oc := g.observers[req.SessionID]; oc != nil {
		oc.focus = req.FocusPlayerID
	}
}

func (g *Game) handleObserverLeave(id string) {
	delete(g.observers, id)
}

func (g *Game) stepObservers(nowTick uint64, base protocol.StateMsg, boardChanged bool, joins []RecordedJoin, leaves []string, actions []RecordedAction) {
	if len(g.observers) == 0 {
		return
	}

	joinInfos := make([]observerproto.JoinInfo, 0, len(joins))
	for _, j := range joins {
		joinInfos = append(joinInfos, observerproto.JoinInfo{PlayerID: j.PlayerID, Name: j.Name})
	}

	var boardFrame []byte
	if boardChanged {
		boardFrame, _ = json.Marshal(observerproto.BoardMsg{
			Type:            protocol.TypeBoard,
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			Board:           g.buildBoard(),
		})
	}

	for _, oc := range g.observers {
		recorded := make([]observerproto.RecordedAction, 0, len(actions))
		for _, a := range actions {
			if oc.focus != "" && a.PlayerID != oc.focus {
				continue
			}
			recorded = append(recorded, observerproto.RecordedAction{PlayerID: a.PlayerID, Act: a.Act})
		}
		b, err := json.Marshal(observerproto.TickMsg{
			Type:            "TICK",
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			State:           base,
			Joins:           joinInfos,
			Leaves:          leaves,
			Actions:         recorded,
		})
		if err != nil {
			continue
		}
		sendLatest(oc.out, b)
		if boardFrame != nil {
			sendLatest(oc.out, boardFrame)
		}
	}
}
