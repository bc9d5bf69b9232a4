package game

import (
	"context"
	"fmt"
	"time"
)

func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-g.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-g.observerJoin:
			g.handleObserverJoin(req)
		case req := <-g.observerSub:
			g.handleObserverSubscribe(req)
		case id := <-g.observerLeave:
			g.handleObserverLeave(id)
		case env := <-g.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			g.step(pendingJoins, pendingLeaves, pendingActions)
			if g.fatal != nil {
				return g.fatal
			}
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (g *Game) Stop() { close(g.stop) }

// StepOnce advances the game by a single tick using the same ordering
// semantics as the server loop. It is primarily intended for deterministic
// replays and tests.
func (g *Game) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = g.tick.Load()
	g.step(joins, leaves, actions)
	return tick, g.stateDigest(tick)
}

func (g *Game) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	if g.fatal != nil {
		return
	}
	stepStart := time.Now()
	nowTick := g.tick.Load()

	// Apply leaves and joins deterministically at tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := g.names[id]; ok {
			g.handleLeave(id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := g.joinPlayer(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		if resp.ErrCode != "" {
			continue
		}
		recordedJoins = append(recordedJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: req.Name})
	}

	// Apply actions in server receive order (the inbox order).
	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		cl := g.clients[env.PlayerID]
		if _, ok := g.names[env.PlayerID]; !ok {
			continue
		}
		recorded = append(recorded, RecordedAction{PlayerID: env.PlayerID, Act: env.Act})
		results := g.applyAct(env.PlayerID, env.Act)
		if cl != nil {
			cl.results = append(cl.results, results...)
		}
	}

	if err := g.lvl.Step(1); err != nil {
		// An invariant violation here means corrupted level state. Freeze the
		// tick counter and surface the error instead of guessing.
		g.fatal = fmt.Errorf("level %d %q: tick %d: %w", g.levelIndex, g.lvl.Definition().Name, nowTick, err)
		g.logf("simulation halted: %v", g.fatal)
		return
	}

	// The final frame of a cleared level goes out before the next level
	// replaces it, so clients see level_clear=true exactly once.
	cleared := g.lvl.Clear()
	if cleared {
		g.recordResult(nowTick)
	}
	base := g.buildState(nowTick)

	boardChanged := false
	if cleared {
		next := (g.levelIndex + 1) % g.pack.Len()
		if err := g.loadLevel(next); err == nil {
			boardChanged = true
		}
	}

	for _, cl := range g.clients {
		g.sendState(cl, base, boardChanged, nowTick)
	}

	g.stepObservers(nowTick, base, boardChanged, recordedJoins, recordedLeaves, recorded)

	if g.tickLogger != nil {
		digest := g.stateDigest(nowTick)
		_ = g.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			Joins:   recordedJoins,
			Leaves:  recordedLeaves,
			Actions: recorded,
			Digest:  digest,
		})
	}

	nextTick := g.tick.Add(1)
	g.metrics.Store(Metrics{
		Tick:      nextTick,
		Level:     g.levelIndex,
		Players:   len(g.names),
		Observers: len(g.observers),
		Agents:    len(g.lvl.Agents()),
		Score:     g.score,
		StepMS:    float64(time.Since(stepStart).Microseconds()) / 1000.0,
		QueueDepths: QueueDepths{
			Inbox: len(g.inbox),
			Join:  len(g.join),
			Leave: len(g.leave),
		},
	})
}

func (g *Game) recordResult(nowTick uint64) {
	cleared := g.lvl.Consumed()
	g.score += cleared
	if g.results == nil {
		return
	}
	_ = g.results.WriteResult(LevelResult{
		Level:       g.levelIndex,
		Name:        g.lvl.Definition().Name,
		ClearedTick: nowTick,
		Consumed:    cleared,
		Capacity:    g.lvl.Capacity(),
		TimedOut:    g.lvl.Timed() && g.lvl.TimeLeft() <= 0 && cleared < g.lvl.Capacity(),
		Score:       g.score,
	})
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
