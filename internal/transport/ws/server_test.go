package ws

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chuchu.ai/internal/protocol"
	"chuchu.ai/internal/sim/board"
	"chuchu.ai/internal/sim/game"
	"chuchu.ai/internal/sim/level"
	"chuchu.ai/internal/sim/levelpack"
	"chuchu.ai/internal/sim/tuning"
)

func testGame(t *testing.T) *game.Game {
	t.Helper()
	tune := tuning.Defaults()
	tune.AgentKinds = 1
	pack := &levelpack.Pack{Levels: []level.Definition{{
		Name:     "corridor",
		Tiles:    [][]int{{0, 0, 0}},
		Routing:  board.PolicyTurns,
		Emitters: []level.EmitterDef{{Col: 0, Row: 0, Dir: board.Right, Capacity: 1, IntervalTicks: 2}},
		Drains:   []level.DrainDef{{Col: 2, Row: 0}},
		StartCol: 1, StartRow: 0,
	}}}
	g, err := game.New(tune, pack, 1)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	return g
}

// A handler whose client disconnects after the game loop has stopped (and
// whose leave queue is full) must still return promptly.
func TestHandler_DisconnectAfterLoopStops(t *testing.T) {
	g := testGame(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		_ = g.Run(ctx)
		close(runDone)
	}()

	handlerDone := make(chan struct{})
	h := NewServer(g, log.New(io.Discard, "", 0)).Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		h(rw, r)
		close(handlerDone)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      "tester",
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read WELCOME: %v", err)
	}
	if welcome.PlayerID == "" {
		t.Fatal("no player id assigned")
	}

	cancel()
	<-runDone

	// With the loop gone nothing drains the leave queue; fill it so the
	// handler's hand-off cannot succeed.
fill:
	for {
		select {
		case g.Leave() <- "ghost":
		default:
			break fill
		}
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect blocked on a stopped game loop")
	}
}
