package level

import (
	"testing"

	"chuchu.ai/internal/sim/board"
)

func annotationLevel(t *testing.T, cfg Config) *Level {
	t.Helper()
	def := Definition{
		Name: "empty",
		Tiles: [][]int{
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		},
	}
	l, err := New(def, cfg, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestAnnotationEvictsOldest(t *testing.T) {
	cfg := testConfig()
	l := annotationLevel(t, cfg)
	if _, err := l.AddPlayer("p1", 0, 0); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	for i := 0; i < 4; i++ {
		if i > 0 && !l.MovePlayer("p1", board.Right) {
			t.Fatalf("move %d refused", i)
		}
		if !l.PlaceAnnotation("p1", board.Up) {
			t.Fatalf("placement %d refused", i)
		}
	}
	if len(l.annotations) != 3 {
		t.Fatalf("have %d annotations, want 3", len(l.annotations))
	}
	firstX, _ := l.grid.ScreenPos(0, 0)
	for _, a := range l.annotations {
		if a.X == firstX {
			t.Fatal("oldest annotation must have been evicted")
		}
	}
}

func TestAnnotationOnePerCell(t *testing.T) {
	cfg := testConfig()
	l := annotationLevel(t, cfg)
	if _, err := l.AddPlayer("p1", 1, 1); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if _, err := l.AddPlayer("p2", 1, 1); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !l.PlaceAnnotation("p1", board.Left) {
		t.Fatal("first placement refused")
	}
	if l.PlaceAnnotation("p1", board.Right) {
		t.Fatal("same owner, occupied cell: must refuse")
	}
	if l.PlaceAnnotation("p2", board.Right) {
		t.Fatal("other owner, occupied cell: must refuse")
	}
	if len(l.annotations) != 1 {
		t.Fatalf("have %d annotations, want 1", len(l.annotations))
	}
}

func TestAnnotationLifetimeAndOpacity(t *testing.T) {
	cfg := testConfig()
	cfg.AnnotationLifetimeTicks = 2
	l := annotationLevel(t, cfg)
	if _, err := l.AddPlayer("p1", 0, 0); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !l.PlaceAnnotation("p1", board.Down) {
		t.Fatal("placement refused")
	}
	if err := l.Step(1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(l.annotations) != 1 {
		t.Fatal("annotation expired too early")
	}
	if got := l.annotations[0].Opacity(); got != 255 {
		t.Fatalf("opacity after first step = %v, want 255 (computed before the decrement)", got)
	}
	if err := l.Step(1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(l.annotations) != 0 {
		t.Fatal("annotation must be reaped at lifetime zero")
	}
}

func TestPlaceAnnotationRequiresDirection(t *testing.T) {
	l := annotationLevel(t, testConfig())
	if _, err := l.AddPlayer("p1", 0, 0); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if l.PlaceAnnotation("p1", board.None) {
		t.Fatal("None direction must be refused")
	}
	if l.PlaceAnnotation("ghost", board.Up) {
		t.Fatal("unknown owner must be refused")
	}
}
