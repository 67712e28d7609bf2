package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/internal/core"
	"github.com/railcore/mc2core/internal/model"
	"github.com/railcore/mc2core/internal/trackio"
	"github.com/railcore/mc2core/pkgs/config"
	"github.com/railcore/mc2core/pkgs/output"
)

//
// Actions - a controller level
// prints are allowed only via Printer interface
//
// The controller level is intended to provide a layer of performing
// actions - everything needed to perform a single action, e.g. set a
// locomotive's speed or run one DCC-A logon round.
//

// DefaultIdleTimeout is the refresh-list purge deadline (spec.md 5) used
// when the CLI starts a Core without a more specific config.ini value.
const DefaultIdleTimeout = 30 * time.Second

type LocoApp struct {
	Config *config.Configuration
	Core   *core.Core

	// runtime parameters
	Debug bool
	P     output.Printer

	// hardware selection
	GPIO             bool
	TrackPin         string
	RailComEnablePin string
	PowerPin         string
	ConfigDir        string
}

// Initialize is run after parsing the arguments, so we know how to
// configure the app.
func (app *LocoApp) Initialize() error {
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.Debug("Reading configuration files")
	cfg, cfgErr := config.NewConfig(app.ConfigDir)
	app.Config = cfg
	if cfgErr != nil {
		return fmt.Errorf("cannot initialize app: %s", cfgErr)
	}
	return nil
}

// initializeCore builds the hardware driver and starts a Core, the way
// the teacher's initializeCommandStation dials into a Z21 before any
// station.* action runs.
func (app *LocoApp) initializeCore() error {
	logrus.Debug("Initializing track core")

	var driver trackio.Driver
	if app.GPIO {
		d, err := trackio.NewGPIODriver(app.TrackPin, app.RailComEnablePin, app.PowerPin, nil)
		if err != nil {
			return fmt.Errorf("cannot initialize app: %w", err)
		}
		driver = d
	} else {
		driver = trackio.NewSimDriver()
	}

	log := logrus.WithField("component", "core")
	defaultFormat := model.FormatDCC28
	app.Core = core.New(log, driver, trackio.RealClock{}, app.Config.LocoIniPath, defaultFormat, DefaultIdleTimeout)

	if err := app.Core.Start(); err != nil {
		return fmt.Errorf("cannot initialize app: %w", err)
	}
	return nil
}
