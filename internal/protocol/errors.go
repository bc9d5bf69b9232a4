package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session layer.
	ErrGameFull = "E_GAME_FULL"

	// Action layer. Benign in-sim rejections surface as these codes in the
	// acknowledgement; the simulation itself treats them as silent no-ops.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrOutOfBounds  = "E_OUT_OF_BOUNDS"
	ErrCellOccupied = "E_CELL_OCCUPIED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrGameFull:        {},
	ErrBadRequest:      {},
	ErrOutOfBounds:     {},
	ErrCellOccupied:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
