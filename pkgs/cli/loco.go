package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/railcore/mc2core/pkgs/app"
)

// NewLocoCommand groups the consist operations (spec.md 3/8 scenario #5)
// under the "loco" surface named by SPEC_FULL.md's prescribed
// `stationctl loco|turnout|dcca|prog|db` command groups.
func NewLocoCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "loco",
		Short: "Locomotive consist operations",
		RunE: func(command *cobra.Command, args []string) error {
			return command.Help()
		},
	}

	command.AddCommand(NewLocoCoupleCommand(app))
	command.AddCommand(NewLocoUncoupleCommand(app))
	command.AddCommand(NewLocoDissolveCommand(app))

	return command
}

func NewLocoCoupleCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "couple ADDR [ADDR...]",
		Short: "Couple locomotives into a consist led by the first address",
		Long: `Couple locomotives into a consist led by the first address given.

A negative address marks that member as running reversed relative to
the lead's orientation. Put the addresses after "--" so that a negative
one is not parsed as a flag.

Examples:
  stationctl loco couple -- 5 -7    # 7 runs reversed relative to 5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			addrs := make([]int32, len(args))
			for i, a := range args {
				v, err := strconv.ParseInt(a, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid consist member address %q: %w", a, err)
				}
				addrs[i] = int32(v)
			}
			return app.CoupleAction(addrs)
		},
	}
	return command
}

func NewLocoUncoupleCommand(app *app.LocoApp) *cobra.Command {
	type Args struct {
		Lead uint16
	}
	cmdArgs := Args{}
	command := &cobra.Command{
		Use:   "uncouple ADDR",
		Short: "Remove one member from a consist",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			addr64, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid member address %q: %w", args[0], err)
			}
			return app.UncoupleAction(cmdArgs.Lead, uint16(addr64))
		},
	}
	command.Flags().Uint16VarP(&cmdArgs.Lead, "lead", "L", 0, "Consist lead address (required)")
	command.MarkFlagRequired("lead")
	return command
}

func NewLocoDissolveCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "dissolve LEAD",
		Short: "Dissolve a consist entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			lead64, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid lead address %q: %w", args[0], err)
			}
			return app.DissolveAction(uint16(lead64))
		},
	}
	return command
}
