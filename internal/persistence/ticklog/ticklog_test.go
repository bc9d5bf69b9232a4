package ticklog

import (
	"testing"

	"chuchu.ai/internal/protocol"
	"chuchu.ai/internal/sim/game"
)

func TestWriteThenReadAll(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	want := []game.TickLogEntry{
		{Tick: 0, Joins: []game.RecordedJoin{{PlayerID: "P1", Name: "alice"}}, Digest: "d0"},
		{Tick: 1, Actions: []game.RecordedAction{{PlayerID: "P1", Act: protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			Actions:         []protocol.ActionReq{{ID: "A1", Type: protocol.ActionMove, Dir: "LEFT"}},
		}}}, Digest: "d1"},
		{Tick: 2, Leaves: []string{"P1"}, Digest: "d2"},
	}
	for _, e := range want {
		if err := w.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("entries: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Tick != want[i].Tick || got[i].Digest != want[i].Digest {
			t.Fatalf("entry %d: %+v", i, got[i])
		}
	}
	if got[1].Actions[0].Act.Actions[0].Dir != "LEFT" {
		t.Fatalf("action payload lost: %+v", got[1].Actions[0])
	}
}

func TestReadAll_EmptyDirFails(t *testing.T) {
	if _, err := ReadAll(t.TempDir()); err == nil {
		t.Fatal("want error for missing tick logs")
	}
}
