package main

import (
	"os"

	"github.com/railcore/mc2core/pkgs/app"
	"github.com/railcore/mc2core/pkgs/cli"
	"github.com/railcore/mc2core/pkgs/output"
)

func main() {
	locoApp := app.LocoApp{P: output.ConsolePrinter{}}
	cmd := cli.NewRootCommand(&locoApp)
	args := os.Args
	if args != nil {
		args = args[1:]
		cmd.SetArgs(args)
	}
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
