package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/server"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// Serve runs the JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if err := shared.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	b, err := r.Backend(ctx)
	if err != nil {
		return err
	}

	router := server.NewRouter(b, server.ListHandlerOpts{
		Analytics: r.analyzer(b),
		Logger:    r.logger,
		Limit:     r.config.Filters.PageSize,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	if cmd.Bool("open") {
		host := cfg.Host
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		url := fmt.Sprintf("http://%s:%d/api/events", host, cfg.Port)
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warn("could not open browser", "url", url, "error", err)
			}
		}()
	}

	return server.Run(ctx, addr, router, r.logger)
}
