package indexdb

import (
	"path/filepath"
	"testing"

	"chuchu.ai/internal/protocol"
	"chuchu.ai/internal/sim/game"
)

func TestSQLiteIndex_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Actions:         []protocol.ActionReq{{ID: "A1", Type: protocol.ActionPlaceArrow, Dir: "UP"}},
	}
	entries := []game.TickLogEntry{
		{Tick: 0, Joins: []game.RecordedJoin{{PlayerID: "P1", Name: "alice"}}, Digest: "d0"},
		{Tick: 1, Actions: []game.RecordedAction{{PlayerID: "P1", Act: act}}, Digest: "d1"},
		{Tick: 2, Leaves: []string{"P1"}, Digest: "d2"},
	}
	for _, e := range entries {
		if err := idx.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := idx.WriteResult(game.LevelResult{Level: 0, Name: "corridor", ClearedTick: 2, Consumed: 5, Capacity: 5, Score: 5}); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	q, err := OpenQuery(path)
	if err != nil {
		t.Fatalf("OpenQuery: %v", err)
	}
	defer q.Close()

	stats, err := q.TickStats()
	if err != nil {
		t.Fatalf("TickStats: %v", err)
	}
	if stats.Count != 3 || stats.MaxTick != 2 || stats.Joins != 1 || stats.Leaves != 1 || stats.Actions != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	digest, err := q.DigestAt(1)
	if err != nil || digest != "d1" {
		t.Fatalf("DigestAt: %q %v", digest, err)
	}
	if _, err := q.DigestAt(9); err == nil {
		t.Fatal("want error for unindexed tick")
	}

	results, err := q.Results(10)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 1 || results[0].Name != "corridor" || results[0].Consumed != 5 || results[0].TimedOut {
		t.Fatalf("results: %+v", results)
	}
}

func TestWriteAfterClose_IsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.WriteTick(game.TickLogEntry{Tick: 0, Digest: "d"}); err != nil {
		t.Fatalf("WriteTick after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
