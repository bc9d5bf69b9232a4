package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeTuning(t, "tick_rate_hz: 30\nagent_speed_ticks: 45\ninvert_player_y: false\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TickRateHz != 30 || got.AgentSpeedTicks != 45 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.InvertPlayerY {
		t.Fatal("invert_player_y: false not applied")
	}
	// Untouched keys keep their defaults.
	if got.TileSize != Defaults().TileSize {
		t.Fatalf("tile_size = %v, want default", got.TileSize)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"tick_rate_hz: 0\n",
		"tile_size: -1\n",
		"agent_speed_ticks: 0\n",
		"max_annotations_per_player: 0\n",
	}
	for _, body := range cases {
		if _, err := Load(writeTuning(t, body)); err == nil {
			t.Errorf("accepted %q", body)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
