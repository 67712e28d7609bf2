package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/railcore/mc2core/pkgs/app"
)

func NewCVCommand(app *app.LocoApp) *cobra.Command {
	command := &cobra.Command{
		Use:   "cv",
		Short: "Read & write CVs on a locomotive decoder",
		RunE: func(command *cobra.Command, args []string) error {
			return errors.New("please select a command")
		},
	}

	command.AddCommand(NewSetCommand(app))
	command.AddCommand(NewGetCommand(app))
	return command
}

func NewSetCommand(app *app.LocoApp) *cobra.Command {
	type SetArgs struct {
		LocoId  uint16
		Track   string
		Verify  bool
		Timeout uint16
		Settle  uint16
	}

	cmdArgs := SetArgs{}
	command := &cobra.Command{
		Use:   "set",
		Short: "Write CVs to the decoder",
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			track, trackErr := trackOrDefault(cmdArgs.Track, cmdArgs.LocoId)
			if trackErr != nil {
				return trackErr
			}

			cvString, parseErr := parseArgsAsCVs(args)
			if parseErr != nil {
				return parseErr
			}

			return app.SendCVAction(track, cmdArgs.LocoId, cvString, cmdArgs.Verify,
				time.Second*time.Duration(cmdArgs.Timeout), time.Millisecond*time.Duration(cmdArgs.Settle))
		},
	}

	command.Flags().Uint16VarP(&cmdArgs.Timeout, "timeout", "", 10, "POM reply wait timeout, in seconds")
	command.Flags().Uint16VarP(&cmdArgs.Settle, "settle", "", 300, "Time in milliseconds between writes")
	command.Flags().BoolVarP(&cmdArgs.Verify, "verify", "", false, "Verify the value after writing")
	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Use locomotive under specific address")
	command.Flags().StringVarP(&cmdArgs.Track, "track", "t", "", "Track type: 'pom' for programming on main, 'prog' for programming track, or empty for automatic selection")

	return command
}

func NewGetCommand(app *app.LocoApp) *cobra.Command {
	type GetArgs struct {
		LocoId  uint16
		Track   string
		Timeout uint16
	}

	cmdArgs := GetArgs{}
	command := &cobra.Command{
		Use:   "get",
		Short: "Read CVs from the decoder",
		Args:  cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, args []string) error {
			if err := app.Initialize(); err != nil {
				return err
			}

			track, trackErr := trackOrDefault(cmdArgs.Track, cmdArgs.LocoId)
			if trackErr != nil {
				return trackErr
			}

			cvString, parseErr := parseArgsAsCVs(args)
			if parseErr != nil {
				return parseErr
			}

			return app.ReadCVAction(track, cmdArgs.LocoId, cvString, time.Second*time.Duration(cmdArgs.Timeout))
		},
	}

	command.Flags().Uint16VarP(&cmdArgs.Timeout, "timeout", "", 10, "POM reply wait timeout, in seconds")
	command.Flags().Uint16VarP(&cmdArgs.LocoId, "loco", "l", 0, "Use locomotive under specific address")
	command.Flags().StringVarP(&cmdArgs.Track, "track", "t", "", "Track type: 'pom' for programming on main, 'prog' for programming track, or empty for automatic selection")

	return command
}

// trackOrDefault picks "pom" for an addressed locomotive and "prog" for
// address 0 (the programming-track convention), unless the caller
// already named a track explicitly.
func trackOrDefault(chosenTrack string, locoId uint16) (string, error) {
	track := chosenTrack
	if track != "" && track != "pom" && track != "prog" {
		return "", fmt.Errorf("invalid track type: %s. Must be either 'pom', 'prog' or empty", track)
	}
	if track == "" {
		track = "pom"
		if locoId == 0 {
			track = "prog"
		}
	}
	return track, nil
}

// parseArgsAsCVs joins CLI CV arguments into the "CV=value, CV=value"
// form syntax.ParseCVString expects, optionally appending stdin content
// when the last argument is "-".
func parseArgsAsCVs(args []string) (string, error) {
	stdinString := ""
	if len(args) >= 1 && args[len(args)-1] == "-" {
		args = args[:len(args)-1]

		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %v", err)
		}
		stdinString = strings.Trim(strings.ReplaceAll(string(data), "\n", ", "), ", ")
		args = append(args, "")
	}

	if len(args) == 0 {
		return "", fmt.Errorf("no CV argument provided")
	}

	cvString := args[0]
	if len(args) > 1 {
		cvString = ""
		for i, a := range args {
			if strings.Trim(a, " ") == "" {
				continue
			}
			if i > 0 {
				cvString += " "
			}
			cvString += a
		}
	}

	completeString := cvString
	if stdinString != "" {
		completeString = completeString + ", " + stdinString
	}

	return completeString, nil
}
