package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&migrateCmd{}, "")

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}
	_ = flag.CommandLine.Parse(args)
	os.Exit(int(commander.Execute(context.Background())))
}
