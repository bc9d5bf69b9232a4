package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	WorldParams     WorldParams `json:"world_params"`
	Board           Board       `json:"board"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	TileSize   float64 `json:"tile_size"`
	OffsetX    float64 `json:"offset_x"`
	OffsetY    float64 `json:"offset_y"`
	MaxPlayers int     `json:"max_players"`
}

// Board is the static geometry of the current level: tile type codes plus
// the wall segments each type implies, so renderers need no rule table.
type Board struct {
	Level     int                 `json:"level"`
	LevelName string              `json:"level_name"`
	Cols      int                 `json:"cols"`
	Rows      int                 `json:"rows"`
	Tiles     [][]int             `json:"tiles"`
	Walls     map[string][]string `json:"walls"`
}

// BOARD (server -> client), sent when the level changes so clients replace
// the geometry they received in WELCOME.
type BoardMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Board           Board  `json:"board"`
}

// ACT (client -> server): discrete player requests, applied on the next tick.
type ActMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick,omitempty"`
	Actions         []ActionReq `json:"actions"`
}

type ActionReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Dir  string `json:"dir"`
}

// ActionResult acknowledges one ActionReq inside the next STATE frame.
type ActionResult struct {
	Ref     string `json:"ref"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// STATE (server -> client and observers), one per tick.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Level      int     `json:"level"`
	LevelClear bool    `json:"level_clear"`
	Timed      bool    `json:"timed,omitempty"`
	TimeLeft   float64 `json:"time_left,omitempty"`
	Score      int     `json:"score"`

	Agents      []AgentState      `json:"agents"`
	Players     []PlayerState     `json:"players"`
	Annotations []AnnotationState `json:"annotations"`
	Emitters    []EmitterState    `json:"emitters"`
	Drains      []DrainState      `json:"drains"`

	// Per-recipient acknowledgements; empty for observers.
	Events []ActionResult `json:"events,omitempty"`
}

type AgentState struct {
	ID   int64      `json:"id"`
	Kind int        `json:"kind"`
	Pos  [2]float64 `json:"pos"`
	Dir  string     `json:"dir"`
}

type PlayerState struct {
	ID   string     `json:"id"`
	Cell [2]int     `json:"cell"`
	Pos  [2]float64 `json:"pos"`
}

type AnnotationState struct {
	Owner   string     `json:"owner"`
	Pos     [2]float64 `json:"pos"`
	Dir     string     `json:"dir"`
	Opacity float64    `json:"opacity"`
	TTL     float64    `json:"ttl"`
}

type EmitterState struct {
	Cell      [2]int     `json:"cell"`
	Pos       [2]float64 `json:"pos"`
	Dir       string     `json:"dir"`
	Released  int        `json:"released"`
	Remaining int        `json:"remaining"`
}

type DrainState struct {
	Cell     [2]int     `json:"cell"`
	Pos      [2]float64 `json:"pos"`
	Consumed int        `json:"consumed"`
	Flourish bool       `json:"flourish"`
}
