package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/railcore/mc2core/pkgs/app"
)

// NewRootCommand assembles the stationctl command tree: one subcommand
// group per control surface (loco speed/function, CV programming), each
// driving app.LocoApp's actions against a freshly-started core.Core.
func NewRootCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "stationctl",
		Short: "Command-line interface for a model railroad command station core",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.PersistentFlags().BoolVarP(&app.Debug, "debug", "v", false, "Increase verbosity to the debug level")
	command.PersistentFlags().StringVarP(&app.ConfigDir, "config", "c", "", "Directory holding config.ini, bidib.ini and loco.ini")
	command.PersistentFlags().BoolVarP(&app.GPIO, "gpio", "", false, "Drive real track hardware via GPIO instead of the built-in simulator")
	command.PersistentFlags().StringVarP(&app.TrackPin, "track-pin", "", "", "GPIO pin name for the track signal line")
	command.PersistentFlags().StringVarP(&app.RailComEnablePin, "railcom-pin", "", "", "GPIO pin name for the RailCom cutout enable line")
	command.PersistentFlags().StringVarP(&app.PowerPin, "power-pin", "", "", "GPIO pin name for the track power enable line")

	command.AddCommand(NewCVCommand(app))
	command.AddCommand(NewFnCommand(app))
	command.AddCommand(NewSpeedCommand(app))
	command.AddCommand(NewLocoCommand(app))

	return command
}
