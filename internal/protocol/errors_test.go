package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{
		ErrProtoBadRequest,
		ErrGameFull,
		ErrBadRequest,
		ErrOutOfBounds,
		ErrCellOccupied,
		ErrInternal,
	} {
		if !IsKnownCode(code) {
			t.Errorf("%s not known", code)
		}
	}
	if !IsKnownCode("") {
		t.Error("empty code means success and is always acceptable")
	}
	if IsKnownCode("E_MADE_UP") {
		t.Error("unknown code accepted")
	}
}
