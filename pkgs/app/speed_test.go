package app

import (
	"path/filepath"
	"testing"

	"github.com/railcore/mc2core/pkgs/config"
)

func newTestApp(t *testing.T) *LocoApp {
	t.Helper()
	return &LocoApp{
		Config: &config.Configuration{
			LocoIniPath: filepath.Join(t.TempDir(), "loco.ini"),
		},
	}
}

func TestSetSpeedAction_UnregisteredLocoReturnsError(t *testing.T) {
	app := newTestApp(t)
	if err := app.SetSpeedAction(99, 50, true); err == nil {
		t.Fatal("expected an error for a loco never registered in the decoder DB")
	}
}

func TestGetSpeedAction_NoLiveStateReturnsError(t *testing.T) {
	app := newTestApp(t)
	if _, _, err := app.GetSpeedAction(99); err == nil {
		t.Fatal("expected an error when the loco has no live state yet")
	}
}
