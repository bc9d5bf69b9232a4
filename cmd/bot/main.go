package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"chuchu.ai/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log: logger,
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.playerID = w.PlayerID
			b.board = w.Board
			logger.Printf("WELCOME player_id=%s level=%q %dx%d tick_rate=%d",
				w.PlayerID, w.Board.LevelName, w.Board.Cols, w.Board.Rows, w.WorldParams.TickRateHz)

		case protocol.TypeBoard:
			var bd protocol.BoardMsg
			if err := json.Unmarshal(msg, &bd); err != nil {
				continue
			}
			b.board = bd.Board
			logger.Printf("BOARD level=%d %q", bd.Board.Level, bd.Board.LevelName)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.handleState(conn, &st)
		}
	}
}

type bot struct {
	playerID string
	board    protocol.Board
	rng      *rand.Rand
	log      *log.Logger
}

// handleState wanders the board and drops arrows pointing at the nearest
// drain, which is enough to herd agents on the shipped levels.
func (b *bot) handleState(conn *websocket.Conn, st *protocol.StateMsg) {
	var me *protocol.PlayerState
	for i := range st.Players {
		if st.Players[i].ID == b.playerID {
			me = &st.Players[i]
			break
		}
	}
	if me == nil {
		return
	}

	for _, ev := range st.Events {
		if !ev.OK {
			b.log.Printf("action %s rejected: %s %s", ev.Ref, ev.Code, ev.Message)
		}
	}

	var actions []protocol.ActionReq

	// Wander every couple of seconds.
	if st.Tick%120 == 10 {
		dirs := []string{"UP", "DOWN", "LEFT", "RIGHT"}
		actions = append(actions, protocol.ActionReq{
			ID:   fmt.Sprintf("M%d", st.Tick),
			Type: protocol.ActionMove,
			Dir:  dirs[b.rng.Intn(len(dirs))],
		})
	}

	// Drop an arrow toward the nearest drain.
	if st.Tick%300 == 40 && len(st.Drains) > 0 {
		if dir := towardDrain(me.Cell, st.Drains); dir != "" {
			actions = append(actions, protocol.ActionReq{
				ID:   fmt.Sprintf("A%d", st.Tick),
				Type: protocol.ActionPlaceArrow,
				Dir:  dir,
			})
		}
	}

	if len(actions) == 0 {
		return
	}
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Tick:            st.Tick,
		Actions:         actions,
	}
	_ = conn.WriteJSON(act)
}

func towardDrain(cell [2]int, drains []protocol.DrainState) string {
	best := drains[0]
	bestDist := manhattan(cell, best.Cell)
	for _, d := range drains[1:] {
		if dist := manhattan(cell, d.Cell); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	dx := best.Cell[0] - cell[0]
	dy := best.Cell[1] - cell[1]
	switch {
	case dx > 0:
		return "RIGHT"
	case dx < 0:
		return "LEFT"
	case dy > 0:
		return "DOWN"
	case dy < 0:
		return "UP"
	}
	return ""
}

func manhattan(a, b [2]int) int {
	dx := a[0] - b[0]
	if dx < 0 {
		dx = -dx
	}
	dy := a[1] - b[1]
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
