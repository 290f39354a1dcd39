package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/formatter"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/shared"
	"github.com/desertthunder/ticketscope/internal/tasks"
)

// List prints one filtered page of entity.
func (r *Runner) List(entity filters.Entity) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		st, err := stateFromFlags(cmd, entity.Schema)
		if err != nil {
			return err
		}

		limit := int(cmd.Int("limit"))
		if limit <= 0 {
			limit = r.config.Filters.PageSize
		}
		params := entity.Params(st, int(cmd.Int("page")), limit)

		if cmd.Bool("dry-run") {
			return r.writeJSON(params, true)
		}

		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}

		b, err := r.Backend(ctx)
		if err != nil {
			return err
		}

		r.logger.Debug("searching", "entity", entity.Name, "params", params.Values().Encode())
		page, err := services.SearchList(ctx, b, entity.Name, params)
		if err != nil {
			return fmt.Errorf("failed to search %s: %w", entity.Name, err)
		}

		if last := filters.ClampPage(params.Page, page.Pagination.TotalPages); last != params.Page {
			r.logger.Warn("page out of range, showing last page", "requested", params.Page, "page", last)
			params = params.WithPage(last)
			if page, err = services.SearchList(ctx, b, entity.Name, params); err != nil {
				return fmt.Errorf("failed to search %s: %w", entity.Name, err)
			}
		}

		if page.Empty() && format == formatter.FormatTable {
			if st.Active(entity.Schema) > 0 {
				return r.writePlain("No %s match these filters. Try removing some.\n", entity.Name)
			}
			return r.writePlain("No %s found.\n", entity.Name)
		}

		data, err := formatter.RenderPage(format, entity.Name, page)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
}

// Show prints one record, optionally with its analytics.
func (r *Runner) Show(entity filters.Entity) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id := cmd.StringArg("id")
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: id", shared.ErrMissingArgument)
		}

		b, err := r.Backend(ctx)
		if err != nil {
			return err
		}

		var detail *tasks.Detail
		if cmd.Bool("analytics") {
			engine := tasks.NewEngine(b, tasks.EngineOpts{Analytics: r.analyzer(b), Logger: r.logger})
			if detail, err = engine.Detail(ctx, entity.Name, id); err != nil {
				return err
			}
		} else {
			rec, err := services.Get(ctx, b, entity.Name, id)
			if err != nil {
				return err
			}
			detail = &tasks.Detail{Record: rec}
		}

		if cmd.Bool("json") {
			return r.writeJSON(detail, true)
		}

		data, err := formatter.Render(formatter.FormatTable, detail.Record.Header(), []models.Record{detail.Record})
		if err != nil {
			return err
		}
		r.writePlainHeader(detail.Record.Title())
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		switch {
		case detail.Analytics != nil:
			r.writePlainln("Analytics")
			return formatter.RenderAnalytics(r.output, detail.Analytics)
		case detail.AnalyticsErr != nil:
			return r.writePlainln("Analytics unavailable: %v", detail.AnalyticsErr)
		}
		return nil
	}
}

// Options prints the selectable values of every facet of entity.
func (r *Runner) Options(entity filters.Entity) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		b, err := r.Backend(ctx)
		if err != nil {
			return err
		}

		dynamic, err := services.FilterOptions(ctx, b, entity)
		if err != nil {
			return fmt.Errorf("failed to fetch filter options: %w", err)
		}

		merged := map[string][]filters.Option{}
		for _, f := range entity.Schema.MultiSelectFacets() {
			merged[f.Name] = f.MergeOptions(dynamic.Values(f.Name))
		}

		if cmd.Bool("json") {
			return r.writeJSON(merged, true)
		}

		for _, f := range entity.Schema.MultiSelectFacets() {
			r.writePlain("%s (--%s)\n", f.Label, flagName(f.Name))
			opts := merged[f.Name]
			if len(opts) == 0 {
				r.writePlain("  (none)\n")
			}
			for _, o := range opts {
				if o.Label != "" && o.Label != o.Value {
					r.writePlain("  %-24s %s\n", o.Value, o.Label)
				} else {
					r.writePlain("  %s\n", o.Value)
				}
			}
		}
		return nil
	}
}

// Export writes every record matching the facet flags to a file.
func (r *Runner) Export(entity filters.Entity) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		st, err := stateFromFlags(cmd, entity.Schema)
		if err != nil {
			return err
		}

		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}

		engine, err := r.engine(ctx)
		if err != nil {
			return err
		}

		opts := tasks.ExportOpts{
			Format:    format,
			Output:    cmd.String("output"),
			PageSize:  int(cmd.Int("page-size")),
			MaxPages:  int(cmd.Int("max-pages")),
			RateLimit: float64(cmd.Float("rate-limit")),
			Manifest:  cmd.Bool("manifest"),
		}

		r.logger.Info("starting export", "entity", entity.Name, "format", format)

		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progressCh {
				switch update.Phase {
				case tasks.FetchPage:
					r.writePlain("📥 %s\n", update.Message)
				case tasks.WriteRecords:
					r.writePlain("   %s\n", update.Message)
				}
			}
		}()

		result, err := engine.Export(ctx, progressCh, entity, st, opts)
		close(progressCh)
		<-done

		if err != nil {
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Export Complete!")
		r.writePlain("Entity: %s\n", entity.Name)
		r.writePlain("Records: %d (%d pages)\n", result.Records, result.Pages)
		r.writePlain("Output: %s\n", strings.Join(result.Files, ", "))
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
		if result.Job != nil && result.Job.ID != "" {
			r.writePlain("Job: %s (%s)\n", result.Job.ID, result.Job.Duration().Round(time.Millisecond))
		}
		return nil
	}
}

func listFlags(r *Runner, schema filters.Schema) []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Results per page",
			Value: r.config.Filters.PageSize,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (table, csv, markdown, json)",
			Value:   string(formatter.FormatTable),
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Print the translated search request without calling the backend",
		},
	}
	return append(flags, facetFlags(schema)...)
}

func exportFlags(schema filters.Schema) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (csv, json, markdown, table)",
			Value:   string(formatter.FormatCSV),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: {entity}_{timestamp}.{ext})",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Records per request",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "max-pages",
			Usage: "Stop after this many pages (0 exports everything)",
		},
		&cli.FloatFlag{
			Name:  "rate-limit",
			Usage: "Requests per second",
			Value: 5,
		},
		&cli.BoolFlag{
			Name:  "manifest",
			Usage: "Write a JSON manifest next to the export",
		},
	}
	return append(flags, facetFlags(schema)...)
}

// entityCommands returns one command group per list page.
func entityCommands(r *Runner) []*cli.Command {
	var commands []*cli.Command
	for _, e := range filters.Entities() {
		commands = append(commands, &cli.Command{
			Name:  e.Name,
			Usage: fmt.Sprintf("Search and export %s", e.Name),
			Commands: []*cli.Command{
				{
					Name:    "list",
					Aliases: []string{"ls"},
					Usage:   fmt.Sprintf("List %s matching the given filters", e.Name),
					Flags:   listFlags(r, e.Schema),
					Action:  r.List(e),
				},
				{
					Name:  "show",
					Usage: "Show one record",
					Arguments: []cli.Argument{
						&cli.StringArg{Name: "id"},
					},
					Flags: []cli.Flag{
						&cli.BoolFlag{
							Name:    "analytics",
							Aliases: []string{"a"},
							Usage:   "Include analytics",
						},
						&cli.BoolFlag{
							Name:  "json",
							Usage: "Output JSON",
						},
					},
					Action: r.Show(e),
				},
				{
					Name:  "options",
					Usage: "List the values each filter accepts",
					Flags: []cli.Flag{
						&cli.BoolFlag{
							Name:  "json",
							Usage: "Output JSON",
						},
					},
					Action: r.Options(e),
				},
				{
					Name:   "export",
					Usage:  fmt.Sprintf("Export every %s record matching the given filters", strings.TrimSuffix(e.Name, "s")),
					Flags:  exportFlags(e.Schema),
					Action: r.Export(e),
				},
			},
		})
	}
	return commands
}
