package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chuchu.ai/internal/persistence/ticklog"
	"chuchu.ai/internal/sim/game"
	"chuchu.ai/internal/sim/levelpack"
	"chuchu.ai/internal/sim/tuning"
)

// replay re-runs a recorded session from the same level pack, tuning, and
// seed, and verifies the per-tick state digests against the journal.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory holding tick logs")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		levelsDir  = flag.String("levels", "", "level pack directory (default: <configs>/levels)")
		schemaPath = flag.String("level_schema", "./schemas/level.schema.json", "level document schema")
		seed       = flag.Int64("seed", 1337, "seed the session was recorded with")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	ld := strings.TrimSpace(*levelsDir)
	if ld == "" {
		ld = filepath.Join(*configDir, "levels")
	}
	pack, err := levelpack.Load(ld, *schemaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load level pack:", err)
		os.Exit(1)
	}

	entries, err := ticklog.ReadAll(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read tick logs:", err)
		os.Exit(1)
	}

	g, err := game.New(tune, pack, *seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "game:", err)
		os.Exit(1)
	}

	var checked uint64
	for _, entry := range entries {
		if *toTick != 0 && entry.Tick > *toTick {
			break
		}
		if entry.Tick != g.CurrentTick() {
			fmt.Fprintf(os.Stderr, "tick mismatch: want=%d got=%d\n", g.CurrentTick(), entry.Tick)
			os.Exit(1)
		}

		joins := make([]game.JoinRequest, 0, len(entry.Joins))
		for _, j := range entry.Joins {
			joins = append(joins, game.JoinRequest{Name: j.Name})
		}
		actions := make([]game.ActionEnvelope, 0, len(entry.Actions))
		for _, ra := range entry.Actions {
			actions = append(actions, game.ActionEnvelope{PlayerID: ra.PlayerID, Act: ra.Act})
		}

		tick, gotDigest := g.StepOnce(joins, entry.Leaves, actions)
		if err := g.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "simulation halted at tick %d: %v\n", entry.Tick, err)
			os.Exit(1)
		}
		if tick != entry.Tick {
			fmt.Fprintf(os.Stderr, "internal tick mismatch: stepped=%d entry=%d\n", tick, entry.Tick)
			os.Exit(1)
		}

		if tick >= *fromTick {
			checked++
			if gotDigest != entry.Digest {
				fmt.Fprintf(os.Stderr, "digest mismatch at tick %d: got=%s want=%s\n", tick, gotDigest, entry.Digest)
				os.Exit(1)
			}
		}
	}
	fmt.Printf("replay ok: checked=%d of %d ticks\n", checked, len(entries))
}
