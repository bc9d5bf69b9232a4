package board

import "fmt"

// Policy selects how a routing table interprets a tile's rule.
type Policy int

const (
	// PolicyTurns maps each entry direction to an exit direction; entries
	// without a mapping pass straight through.
	PolicyTurns Policy = iota
	// PolicyWalls forces any blocked incoming direction to the tile's single
	// out direction; everything else passes straight through.
	PolicyWalls
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "turns", "":
		return PolicyTurns, nil
	case "walls":
		return PolicyWalls, nil
	}
	return PolicyTurns, fmt.Errorf("unknown routing policy %q", s)
}

type rule struct {
	turns map[Direction]Direction

	// Walls-policy view of the same tile: blocked entry directions and the
	// canonical out direction.
	blocked map[Direction]bool
	out     Direction
}

// tileRules is the fixed tile-type catalog. Types 1-4 turn one entry
// direction, 5-8 turn two, 0 is a pass-through.
var tileRules = map[int]map[Direction]Direction{
	0: {},
	1: {Up: Right},
	2: {Right: Down},
	3: {Down: Left},
	4: {Left: Up},
	5: {Up: Right, Left: Down},
	6: {Right: Down, Up: Left},
	7: {Down: Left, Right: Up},
	8: {Left: Up, Down: Right},
}

// ruleOrder makes the walls-policy out direction deterministic for
// two-entry tiles: the lower entry direction's exit is canonical.
var ruleOrder = []Direction{Up, Down, Left, Right}

// RoutingTable resolves, per tile type, the exit direction for an incoming
// travel direction.
type RoutingTable struct {
	policy Policy
	rules  map[int]rule
}

func NewRoutingTable(policy Policy) *RoutingTable {
	t := &RoutingTable{policy: policy, rules: make(map[int]rule, len(tileRules))}
	for code, turns := range tileRules {
		r := rule{turns: turns, blocked: make(map[Direction]bool, len(turns)), out: None}
		for _, in := range ruleOrder {
			exit, ok := turns[in]
			if !ok {
				continue
			}
			r.blocked[in] = true
			if r.out == None {
				r.out = exit
			}
		}
		t.rules[code] = r
	}
	return t
}

func (t *RoutingTable) Policy() Policy { return t.policy }

// Known reports whether code is a valid tile type. Level loading rejects
// unknown codes; Resolve assumes they never reach the simulation.
func (t *RoutingTable) Known(code int) bool {
	_, ok := t.rules[code]
	return ok
}

// Resolve returns the direction an agent travels after entering a tile of
// the given type while moving in.
func (t *RoutingTable) Resolve(code int, in Direction) Direction {
	r, ok := t.rules[code]
	if !ok {
		return in
	}
	switch t.policy {
	case PolicyWalls:
		if r.blocked[in] {
			return r.out
		}
		return in
	default:
		if out, ok := r.turns[in]; ok {
			return out
		}
		return in
	}
}

// Walls returns the wall-segment directions of a tile type, in a stable
// order. Renderers draw a segment at each returned side.
func (t *RoutingTable) Walls(code int) []Direction {
	r, ok := t.rules[code]
	if !ok {
		return nil
	}
	var out []Direction
	for _, d := range ruleOrder {
		if _, blocked := r.turns[d]; blocked {
			out = append(out, d)
		}
	}
	return out
}
