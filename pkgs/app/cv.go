package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railcore/mc2core/pkgs/syntax"
)

// SendCVAction writes one or more CVs, either on the programming track
// (mode "prog") or programming-on-main (mode "pom"), settling between
// writes the way the teacher pauses between successive CV writes.
func (app *LocoApp) SendCVAction(mode string, locoId uint16, cvNumRaw string, verify bool, timeout time.Duration, settle time.Duration) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	entries, parseErr := syntax.ParseCVString(cvNumRaw, ",")
	if parseErr != nil {
		return parseErr
	}

	for _, entry := range entries {
		cv := entry.Number - 1
		if mode == "pom" {
			app.Core.PomWriteByte(locoId, cv, byte(entry.Value), 4)
		} else {
			if _, err := app.Core.ProgramTask().WriteByte(cv, byte(entry.Value), 10); err != nil {
				return err
			}
		}
		time.Sleep(settle)

		if verify {
			got, err := app.readBackCV(mode, locoId, cv, timeout)
			if err != nil {
				return err
			}
			if got != byte(entry.Value) {
				return fmt.Errorf("cv%d verify mismatch: wrote %d, read back %d", entry.Number, entry.Value, got)
			}
		}
	}

	return nil
}

// ReadCVAction reads one or more CVs and prints their values.
func (app *LocoApp) ReadCVAction(mode string, locoId uint16, cvNumRaw string, timeout time.Duration) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	entries, parseErr := syntax.ParseCVString(cvNumRaw, ",")
	if parseErr != nil {
		return fmt.Errorf("invalid format: %s", cvNumRaw)
	}

	var lastErr error
	for _, entry := range entries {
		cv := entry.Number - 1
		result, err := app.readBackCV(mode, locoId, cv, timeout)

		if len(entries) > 1 {
			if err != nil {
				app.P.Printf("cv%d=ERROR\n", entry.Number)
				logrus.Error(err)
				lastErr = err
			} else {
				app.P.Printf("cv%d=%d\n", entry.Number, result)
			}
		} else {
			if err != nil {
				return err
			}
			app.P.Printf("%d\n", result)
		}
	}
	return lastErr
}

// readBackCV dispatches a CV read to the programming track or POM,
// depending on mode.
func (app *LocoApp) readBackCV(mode string, locoId uint16, cv uint16, timeout time.Duration) (byte, error) {
	if mode == "pom" {
		return app.Core.PomReadByte(locoId, cv, 4, timeout)
	}
	res, err := app.Core.ProgramTask().ReadByte(cv, 6)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}
