// submodule cmd contains command definitions
package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database and configuration setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml, or validate an existing one",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// analyticsCommand handles per-record analytics.
func analyticsCommand(r *Runner) *cli.Command {
	bulk := make([]*cli.Command, 0, len(filters.Entities()))
	for _, e := range filters.Entities() {
		flags := []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "ids",
				Usage: "Record IDs (default: the first --limit records matching the filters)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records when collecting IDs from filters",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers (max 10)",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Requests per second",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		}
		bulk = append(bulk, &cli.Command{
			Name:   e.Name,
			Usage:  fmt.Sprintf("Resolve analytics for many %s", e.Name),
			Flags:  append(flags, facetFlags(e.Schema)...),
			Action: r.AnalyticsBulk(e),
		})
	}

	return &cli.Command{
		Name:    "analytics",
		Aliases: []string{"an"},
		Usage:   "Per-record analytics with table fallback",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show analytics for one record",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "entity"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.AnalyticsGet,
			},
			{
				Name:     "bulk",
				Usage:    "Resolve analytics for many records with a worker pool",
				Commands: bulk,
			},
		},
	}
}

// cacheCommand handles the persisted query cache and export history.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the local query cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Summarize cached results",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:  "clear",
				Usage: "Delete cached results",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Only clear results for this entity",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only clear keys starting with this prefix",
					},
				},
				Action: r.CacheClear,
			},
			{
				Name:  "purge",
				Usage: "Delete results older than a given age",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Maximum age to keep (default: query.stale_minutes)",
					},
				},
				Action: r.CachePurge,
			},
			{
				Name:  "jobs",
				Usage: "List recorded exports",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Only list exports of this entity",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.CacheJobs,
			},
		},
	}
}

// apiCommand handles direct backend calls.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct backend calls, bypassing the query cache",
		Commands: []*cli.Command{
			{
				Name:  "rpc",
				Usage: "Call a database function and print the JSON result",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "fn"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON arguments",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIRPC,
			},
			{
				Name:  "function",
				Usage: "Invoke an edge function and print the JSON result",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIFunction,
			},
			{
				Name:  "dump",
				Usage: "Fetch filter options and the first page of every entity",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also write the dump to this file",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// serveCommand runs the JSON API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve filtered lists and analytics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the events endpoint in a browser",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Interactive dashboard with live filters",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page (default: filters.page_size)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the dashboard owns the terminal",
				Value: defaultTUILog,
			},
		},
		Action: r.TUI,
	}
}
