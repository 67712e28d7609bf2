package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/railcore/mc2core/pkgs/app"
)

func NewSpeedCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "speed",
		Short: "Get or set the speed and direction of a locomotive",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}

	command.AddCommand(NewSpeedSetCommand(app))
	command.AddCommand(NewSpeedGetCommand(app))

	return command
}

func NewSpeedSetCommand(app *app.LocoApp) *cobra.Command {
	type Args struct {
		LocoId  uint16
		Forward bool
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "set SPEED",
		Short: "Set the speed and direction of a locomotive",
		Long: `Set the speed and direction of a locomotive.

SPEED is a step value, 0-127, for the decoder's configured speed table
(0=stop, 1=emergency stop).

Examples:
  stationctl speed set 50 --loco 3 --forward
  stationctl speed set 0 --loco 3      # stop locomotive
  stationctl speed set 1 --loco 3      # emergency stop`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			speed64, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid speed value %q: %w", args[0], err)
			}

			return app.SetSpeedAction(cmdArgs.LocoId, uint8(speed64), cmdArgs.Forward)
		},
	}

	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Locomotive address (required)")
	command.Flags().BoolVarP(&cmdArgs.Forward, "forward", "f", false, "Set direction to forward (default is reverse)")

	command.MarkFlagRequired("loco")

	return command
}

func NewSpeedGetCommand(app *app.LocoApp) *cobra.Command {
	type Args struct {
		LocoId uint16
	}

	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "get",
		Short: "Get the current speed and direction of a locomotive",
		Long: `Get the current speed and direction of a locomotive.

Examples:
  stationctl speed get --loco 3
  stationctl speed get -l 5`,
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			speed, forward, err := app.GetSpeedAction(cmdArgs.LocoId)
			if err != nil {
				return err
			}

			direction := "reverse"
			if forward {
				direction = "forward"
			}

			_, _ = app.P.Printf("Locomotive %d: speed=%d direction=%s\n", cmdArgs.LocoId, speed, direction)
			return nil
		},
	}

	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Locomotive address (required)")

	command.MarkFlagRequired("loco")

	return command
}
