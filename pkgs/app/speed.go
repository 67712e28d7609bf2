package app

import "fmt"

// SetSpeedAction sets the speed and direction of a locomotive.
func (app *LocoApp) SetSpeedAction(locoId uint16, speed uint8, forward bool) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	return app.Core.SetSpeed(locoId, speed, forward)
}

// GetSpeedAction retrieves the current speed and direction of a locomotive.
func (app *LocoApp) GetSpeedAction(locoId uint16) (speed uint8, forward bool, err error) {
	if err := app.initializeCore(); err != nil {
		return 0, false, err
	}
	defer app.Core.Stop()

	step, fwd, ok := app.Core.LiveSpeed(locoId)
	if !ok {
		return 0, false, fmt.Errorf("loco %d has no live state yet", locoId)
	}
	return step, fwd, nil
}
