package level

import (
	"testing"

	"chuchu.ai/internal/sim/board"
)

func TestAgentMoveNoneIsInvariantViolation(t *testing.T) {
	a := newAgent(1, 0, 50, 50, 2, 1.0)
	if err := a.Move(board.None, 64); err == nil {
		t.Fatal("Move(None) must fail")
	}
	if !a.Idle() {
		t.Fatal("failed move must not change state")
	}
}

func TestAgentMoveComputesTrajectory(t *testing.T) {
	a := newAgent(1, 0, 50, 50, 2, 1.0)
	if err := a.Move(board.Right, 64); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if a.Idle() {
		t.Fatal("agent must be moving after an order")
	}
	if a.destX != 114 || a.destY != 50 {
		t.Fatalf("dest = (%v,%v), want (114,50)", a.destX, a.destY)
	}
	if a.vx != 32 || a.vy != 0 {
		t.Fatalf("velocity = (%v,%v), want (32,0)", a.vx, a.vy)
	}
}

func TestAgentArrivalSnapsExactly(t *testing.T) {
	a := newAgent(1, 0, 0, 0, 10, 1.0)
	if err := a.Move(board.Up, 64); err != nil {
		t.Fatalf("Move: %v", err)
	}
	// Small steps accumulate float error; arrival must still land exactly on
	// the destination so proximity lookups keep working.
	for i := 0; i < 1000 && !a.Idle(); i++ {
		a.Advance(0.25)
	}
	if !a.Idle() {
		t.Fatal("agent never arrived")
	}
	if a.X != 0 || a.Y != 64 {
		t.Fatalf("arrived at (%v,%v), want exactly (0,64)", a.X, a.Y)
	}
}

func TestAgentAdvanceWhileIdleIsNoop(t *testing.T) {
	a := newAgent(1, 0, 5, 5, 2, 1.0)
	a.Advance(10)
	if a.X != 5 || a.Y != 5 || !a.Idle() {
		t.Fatalf("idle agent moved to (%v,%v)", a.X, a.Y)
	}
}
