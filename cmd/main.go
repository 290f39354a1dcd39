package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/shared"
)

const configFile = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configFile); err == nil {
		loaded, err := shared.LoadConfig(configFile)
		if err != nil {
			logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			config = loaded
		}
	} else {
		config.ApplyEnv(os.Getenv)
	}

	if level, err := shared.ParseLogLevel(config.Log.Level); err == nil {
		shared.SetLogLevel(logger, level)
	} else {
		logger.Warn("invalid log level, using info", "level", config.Log.Level)
	}

	if config.Log.File != "" {
		fileLogger, closer, err := shared.NewFileLogger(config.Log.File)
		if err != nil {
			logger.Warn("failed to open log file", "file", config.Log.File, "error", err)
		} else {
			defer closer.Close()
			shared.SetLogLevel(fileLogger, logger.GetLevel())
			logger = fileLogger
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configFile,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "ticketscope",
		Usage:    "Search, filter and export ticketing analytics",
		Version:  "0.3.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(runner.logger, log.DebugLevel)
			}
			if err := config.Validate(); err != nil {
				runner.logger.Warn("config has problems", "error", err)
			}
			return ctx, nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented", "error", err)
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
