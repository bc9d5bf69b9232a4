package observerproto

import "chuchu.ai/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional: also stream the raw action traffic of one player.
	FocusPlayerID string `json:"focus_player_id,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string               `json:"protocol_version"`
	Tick            uint64               `json:"tick"`
	WorldParams     protocol.WorldParams `json:"world_params"`
	Board           protocol.Board       `json:"board"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	State protocol.StateMsg `json:"state"`

	Joins   []JoinInfo       `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
}

type JoinInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

// Server -> Client. Sent when the level changes, before the first TickMsg of the new level.
type BoardMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Board           protocol.Board `json:"board"`
}
