package config

import (
	"fmt"
	"path/filepath"

	stationcfg "github.com/railcore/mc2core/internal/config"
)

// Configuration is the CLI-level configuration: where the station keeps
// its persisted files, plus the parsed config.ini contents. It wraps
// internal/config the way the teacher's own Configuration wraps a single
// viper-read config.Server/Loco pair.
type Configuration struct {
	ConfigDir   string
	LocoIniPath string
	Station     *stationcfg.StationConfig
	Trust       *stationcfg.BidibTrust
}

// NewConfig loads config.ini and bidib.ini from dir (default "." when
// dir is empty), mirroring the teacher's NewConfig layering viper
// defaults before reading the file.
func NewConfig(dir string) (*Configuration, error) {
	if dir == "" {
		dir = "."
	}
	station, err := stationcfg.LoadStationConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize app: %w", err)
	}
	trust, err := stationcfg.LoadBidibTrust(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize app: %w", err)
	}
	return &Configuration{
		ConfigDir:   dir,
		LocoIniPath: filepath.Join(dir, "loco.ini"),
		Station:     station,
		Trust:       trust,
	}, nil
}
