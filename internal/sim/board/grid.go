package board

import (
	"fmt"
	"math"
)

// Tile is one cell of the board. Position is fixed at creation.
type Tile struct {
	Type     int
	Col, Row int
	X, Y     float64
}

func (t *Tile) Position() (float64, float64) { return t.X, t.Y }

// Grid owns the row-major tile collection and the grid<->screen mapping.
// Row 0 of the input data is the top row of the board; screen y grows up.
type Grid struct {
	cols, rows int
	tileSize   float64
	offsetX    float64
	offsetY    float64
	tiles      []Tile
}

// NewGrid builds the grid from row-major tile type codes. Every code must be
// known to the routing table; a bad code is a configuration error.
func NewGrid(codes [][]int, table *RoutingTable, tileSize, offsetX, offsetY float64) (*Grid, error) {
	if len(codes) == 0 || len(codes[0]) == 0 {
		return nil, fmt.Errorf("empty tile matrix")
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %v", tileSize)
	}
	rows := len(codes)
	cols := len(codes[0])
	g := &Grid{
		cols:     cols,
		rows:     rows,
		tileSize: tileSize,
		offsetX:  offsetX,
		offsetY:  offsetY,
		tiles:    make([]Tile, 0, cols*rows),
	}
	for r, rowCodes := range codes {
		if len(rowCodes) != cols {
			return nil, fmt.Errorf("row %d has %d tiles, want %d", r, len(rowCodes), cols)
		}
		for c, code := range rowCodes {
			if !table.Known(code) {
				return nil, fmt.Errorf("unknown tile type %d at col=%d row=%d", code, c, r)
			}
			x, y := g.ScreenPos(c, r)
			g.tiles = append(g.tiles, Tile{Type: code, Col: c, Row: r, X: x, Y: y})
		}
	}
	return g, nil
}

func (g *Grid) Cols() int          { return g.cols }
func (g *Grid) Rows() int          { return g.rows }
func (g *Grid) TileSize() float64  { return g.tileSize }

// ScreenPos maps a grid coordinate to the tile center in screen space.
func (g *Grid) ScreenPos(col, row int) (x, y float64) {
	x = g.offsetX + float64(col)*g.tileSize
	y = g.offsetY + float64(g.rows-1-row)*g.tileSize
	return x, y
}

// InBounds reports whether (col,row) is a valid cell.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.cols && row >= 0 && row < g.rows
}

// TileAt returns the tile at (col,row). The column wraps modulo width; valid
// level data never relies on the wrap.
func (g *Grid) TileAt(col, row int) *Tile {
	return &g.tiles[row*g.cols+((col%g.cols)+g.cols)%g.cols]
}

// TileUnder resolves the tile whose center is nearest to a screen point.
// Agents snap to exact tile centers on arrival, so the rounded index is the
// fast path; the bounds check catches anything that left the playfield.
func (g *Grid) TileUnder(x, y float64) (*Tile, bool) {
	col := int(math.Round((x - g.offsetX) / g.tileSize))
	rowFromBottom := int(math.Round((y - g.offsetY) / g.tileSize))
	row := g.rows - 1 - rowFromBottom
	if !g.InBounds(col, row) {
		return nil, false
	}
	return g.TileAt(col, row), true
}

// Tiles exposes the row-major tile slice for state/bootstrap encoding.
func (g *Grid) Tiles() []Tile { return g.tiles }

// Positioned is anything anchored to a screen coordinate.
type Positioned interface {
	Position() (float64, float64)
}

// Within reports whether two screen points are closer than tol.
func Within(x1, y1, x2, y2, tol float64) bool {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx+dy*dy) < tol
}

// Nearest returns the first item within tol of (x,y). Iteration order is the
// slice order, so lookups are deterministic; valid level data never places
// two same-kind entities within one tolerance radius.
func Nearest[T Positioned](x, y float64, items []T, tol float64) (T, bool) {
	for _, it := range items {
		ix, iy := it.Position()
		if Within(x, y, ix, iy, tol) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
