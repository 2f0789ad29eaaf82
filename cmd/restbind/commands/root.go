package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/restbind/restbind/internal/app"
	"github.com/restbind/restbind/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "restbind",
		Usage:   "Call authenticated REST APIs described by an OpenAPI document",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to TOML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "record the last request as a trace artifact",
			},
			&cli.StringFlag{
				Name:  "descriptor",
				Usage: "path to the OpenAPI descriptor",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "override the descriptor's server URL",
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			opsCommand(),
			callCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setup loads configuration, installs logging and assembles the application.
// Every subcommand action starts here.
func setup(cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, nil
}
