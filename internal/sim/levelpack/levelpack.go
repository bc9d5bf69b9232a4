// Package levelpack loads and validates level documents. A level document
// is JSON: the tile-type matrix plus emitter/drain placements. Documents are
// validated against schemas/level.schema.json before decoding, and
// semantically validated after, so every configuration error is caught at
// load time rather than mid-simulation.
package levelpack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"chuchu.ai/internal/sim/board"
	"chuchu.ai/internal/sim/level"
)

// document mirrors the on-disk JSON shape.
type document struct {
	Name           string    `json:"name"`
	Routing        string    `json:"routing,omitempty"`
	TimeLimitTicks float64   `json:"time_limit_ticks,omitempty"`
	Tiles          [][]int   `json:"tiles"`
	Emitters       []emitter `json:"emitters"`
	Drains         []drain   `json:"drains"`
	Start          [2]int    `json:"start"`
}

type emitter struct {
	Pos [2]int `json:"pos"`
	Dir string `json:"dir"`

	// Pointer so an explicit "capacity": 0 (a dormant emitter) is
	// distinguishable from an omitted field, which means the tuning default.
	Capacity      *int    `json:"capacity,omitempty"`
	IntervalTicks float64 `json:"interval_ticks,omitempty"`
}

type drain struct {
	Pos [2]int `json:"pos"`
}

// Pack is an ordered sequence of playable levels.
type Pack struct {
	Levels []level.Definition
}

func (p *Pack) Len() int { return len(p.Levels) }

// Get returns the definition for a level index; requesting a level the pack
// does not have is a configuration error.
func (p *Pack) Get(i int) (level.Definition, error) {
	if i < 0 || i >= len(p.Levels) {
		return level.Definition{}, fmt.Errorf("no level data for level index %d (pack has %d)", i, len(p.Levels))
	}
	return p.Levels[i], nil
}

// Load reads every *.json document under dir, in file-name order.
func Load(dir, schemaPath string) (*Pack, error) {
	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compile level schema: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no level documents in %s", dir)
	}
	sort.Strings(paths)

	pack := &Pack{}
	for _, p := range paths {
		def, err := loadOne(p, schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		pack.Levels = append(pack.Levels, def)
	}
	return pack, nil
}

func loadOne(path string, schema *jsonschema.Schema) (level.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return level.Definition{}, err
	}

	var loose any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return level.Definition{}, fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(loose); err != nil {
		return level.Definition{}, fmt.Errorf("schema: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return level.Definition{}, fmt.Errorf("decode: %w", err)
	}
	return toDefinition(doc, path)
}

func toDefinition(doc document, path string) (level.Definition, error) {
	name := doc.Name
	if name == "" {
		name = filepath.Base(path)
	}
	policy, err := board.ParsePolicy(doc.Routing)
	if err != nil {
		return level.Definition{}, err
	}
	def := level.Definition{
		Name:           name,
		Tiles:          doc.Tiles,
		Routing:        policy,
		TimeLimitTicks: doc.TimeLimitTicks,
		StartCol:       doc.Start[0],
		StartRow:       doc.Start[1],
	}
	for _, e := range doc.Emitters {
		dir, err := board.ParseDirection(e.Dir)
		if err != nil {
			return level.Definition{}, err
		}
		capacity := -1
		if e.Capacity != nil {
			capacity = *e.Capacity
		}
		def.Emitters = append(def.Emitters, level.EmitterDef{
			Col: e.Pos[0], Row: e.Pos[1],
			Dir:           dir,
			Capacity:      capacity,
			IntervalTicks: e.IntervalTicks,
		})
	}
	for _, d := range doc.Drains {
		def.Drains = append(def.Drains, level.DrainDef{Col: d.Pos[0], Row: d.Pos[1]})
	}
	if err := def.Validate(); err != nil {
		return level.Definition{}, err
	}
	return def, nil
}
