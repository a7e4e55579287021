package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/moneo/internal/server"
	"github.com/dmitrijs2005/moneo/internal/server/config"
	"github.com/google/subcommands"
)

// configFlags is embedded by commands that read the server configuration.
type configFlags struct {
	flags *config.Flags
}

func (c *configFlags) bind(f *flag.FlagSet) {
	c.flags = config.BindFlags(f)
}

func (c *configFlags) load(f *flag.FlagSet) (*config.Config, error) {
	return config.LoadConfig(f, c.flags, os.Getenv)
}

type serveCmd struct {
	configFlags
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API (default)" }
func (*serveCmd) Usage() string {
	return `serve [-c config.json] [-a addr] [-d dsn] [-s secret] [-t minutes] [-o origins] [-p providers] [-q ttl]

  Runs the API until SIGINT or SIGTERM. Settings come from defaults, the JSON
  file, the environment (and .env), then flags.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) { c.bind(f) }

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.load(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := server.NewLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return subcommands.ExitFailure
	}
	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	configFlags
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations and exit" }
func (*migrateCmd) Usage() string {
	return `migrate [-d dsn] [-c config.json]

  Applies the embedded PostgreSQL migrations to DB_URI (or -d).
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) { c.bind(f) }

func (c *migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.load(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := server.NewLogger(os.Stdout, cfg.LogLevel)
	if err := server.Migrate(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "migrate failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
