package level

import (
	"fmt"

	"chuchu.ai/internal/sim/board"
)

// Definition is a fully parsed level document: the tile matrix plus the
// emitter/drain placements. Loading and schema validation live in levelpack;
// this type only carries the result.
type Definition struct {
	Name    string
	Tiles   [][]int
	Routing board.Policy

	Emitters []EmitterDef
	Drains   []DrainDef

	// Player start cell.
	StartCol, StartRow int

	// 0 disables the level clock; the level then clears only when every
	// spawned agent has been consumed.
	TimeLimitTicks float64
}

type EmitterDef struct {
	Col, Row int
	Dir      board.Direction

	// Capacity -1 defers to the tuning default; 0 authors a dormant emitter.
	Capacity      int
	IntervalTicks float64
}

type DrainDef struct {
	Col, Row int
}

// Validate fails fast on configuration errors: unknown tile types, ragged
// rows, or placements outside the grid. It runs at load time so the
// simulation never sees a broken board.
func (d Definition) Validate() error {
	table := board.NewRoutingTable(d.Routing)
	if len(d.Tiles) == 0 || len(d.Tiles[0]) == 0 {
		return fmt.Errorf("level %q: empty tile matrix", d.Name)
	}
	cols := len(d.Tiles[0])
	rows := len(d.Tiles)
	for r, row := range d.Tiles {
		if len(row) != cols {
			return fmt.Errorf("level %q: row %d has %d tiles, want %d", d.Name, r, len(row), cols)
		}
		for c, code := range row {
			if !table.Known(code) {
				return fmt.Errorf("level %q: unknown tile type %d at col=%d row=%d", d.Name, code, c, r)
			}
		}
	}
	inBounds := func(col, row int) bool {
		return col >= 0 && col < cols && row >= 0 && row < rows
	}
	for i, e := range d.Emitters {
		if !inBounds(e.Col, e.Row) {
			return fmt.Errorf("level %q: emitter %d at col=%d row=%d is outside the %dx%d grid", d.Name, i, e.Col, e.Row, cols, rows)
		}
		if e.Dir.IsNone() {
			return fmt.Errorf("level %q: emitter %d has no emit direction", d.Name, i)
		}
		if e.Capacity < -1 {
			return fmt.Errorf("level %q: emitter %d has capacity %d, want -1, 0 or positive", d.Name, i, e.Capacity)
		}
	}
	for i, dr := range d.Drains {
		if !inBounds(dr.Col, dr.Row) {
			return fmt.Errorf("level %q: drain %d at col=%d row=%d is outside the %dx%d grid", d.Name, i, dr.Col, dr.Row, cols, rows)
		}
	}
	if !inBounds(d.StartCol, d.StartRow) {
		return fmt.Errorf("level %q: player start at col=%d row=%d is outside the %dx%d grid", d.Name, d.StartCol, d.StartRow, cols, rows)
	}
	return nil
}
