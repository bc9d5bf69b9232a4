package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation knobs shared by every level. Durations are in
// ticks; screen units follow the tile size.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	TileSize float64 `yaml:"tile_size"`
	OffsetX  float64 `yaml:"matrix_offset_x"`
	OffsetY  float64 `yaml:"matrix_offset_y"`

	ArriveTolerance float64 `yaml:"arrive_tolerance"`

	AgentSpeedTicks float64 `yaml:"agent_speed_ticks"`
	AgentKinds      int     `yaml:"agent_kinds"`

	AnnotationLifetimeTicks float64 `yaml:"annotation_lifetime_ticks"`
	MaxAnnotationsPerPlayer int     `yaml:"max_annotations_per_player"`

	DrainFlourishTicks float64 `yaml:"drain_flourish_ticks"`

	EmitIntervalTicks float64 `yaml:"emit_interval_ticks"`
	EmitterCapacity   int     `yaml:"emitter_capacity"`

	InvertPlayerY bool `yaml:"invert_player_y"`

	MaxPlayers int `yaml:"max_players"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:         "1.0",
		TickRateHz:              60,
		TileSize:                64,
		OffsetX:                 50,
		OffsetY:                 50,
		ArriveTolerance:         1.0,
		AgentSpeedTicks:         120,
		AgentKinds:              5,
		AnnotationLifetimeTicks: 600,
		MaxAnnotationsPerPlayer: 3,
		DrainFlourishTicks:      30,
		EmitIntervalTicks:       120,
		EmitterCapacity:         5,
		InvertPlayerY:           true,
		MaxPlayers:              4,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.TileSize <= 0 {
		return fmt.Errorf("tile_size must be positive, got %v", t.TileSize)
	}
	if t.AgentSpeedTicks <= 0 {
		return fmt.Errorf("agent_speed_ticks must be positive, got %v", t.AgentSpeedTicks)
	}
	if t.ArriveTolerance <= 0 {
		return fmt.Errorf("arrive_tolerance must be positive, got %v", t.ArriveTolerance)
	}
	if t.MaxAnnotationsPerPlayer < 1 {
		return fmt.Errorf("max_annotations_per_player must be at least 1, got %d", t.MaxAnnotationsPerPlayer)
	}
	if t.MaxPlayers < 1 {
		return fmt.Errorf("max_players must be at least 1, got %d", t.MaxPlayers)
	}
	return nil
}
