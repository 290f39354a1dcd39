package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/formatter"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
	"github.com/desertthunder/ticketscope/internal/tasks"
)

// AnalyticsGet prints the analytics of one record, falling back to the
// pre-aggregated table when the analytics function is unavailable.
func (r *Runner) AnalyticsGet(ctx context.Context, cmd *cli.Command) error {
	entity, err := filters.Lookup(cmd.StringArg("entity"))
	if err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	b, err := r.Backend(ctx)
	if err != nil {
		return err
	}

	report, err := r.analyzer(b).Resolve(ctx, entity.Name, id)
	if err != nil {
		return fmt.Errorf("failed to resolve analytics: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.renderReport(report)
}

// AnalyticsBulk resolves analytics for several records with a worker pool.
// IDs come from --ids, or from the first --limit records matching the facet flags.
func (r *Runner) AnalyticsBulk(entity filters.Entity) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.analyticsBulk(ctx, cmd, entity)
	}
}

func (r *Runner) analyticsBulk(ctx context.Context, cmd *cli.Command, entity filters.Entity) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("ids")
	if len(ids) == 0 {
		st, err := stateFromFlags(cmd, entity.Schema)
		if err != nil {
			return err
		}
		if ids, err = engine.CollectIDs(ctx, entity, st, int(cmd.Int("limit"))); err != nil {
			return fmt.Errorf("failed to collect ids: %w", err)
		}
	}
	if len(ids) == 0 {
		return r.writePlain("No %s match these filters.\n", entity.Name)
	}

	r.logger.Info("resolving analytics", "entity", entity.Name, "records", len(ids))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Phase == tasks.ResolveAnalytics {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := engine.BulkAnalytics(ctx, progressCh, entity.Name, ids, tasks.BulkAnalyticsOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  float64(cmd.Float("rate-limit")),
	})
	close(progressCh)
	<-done

	if err != nil && result == nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID     string                  `json:"id"`
			Report *models.AnalyticsReport `json:"report,omitempty"`
			Error  string                  `json:"error,omitempty"`
		}
		rows := make([]row, len(result.Results))
		for i, res := range result.Results {
			rows[i] = row{ID: res.ID, Report: res.Report}
			if res.Error != nil {
				rows[i].Error = res.Error.Error()
			}
		}
		if werr := r.writeJSON(rows, true); werr != nil {
			return werr
		}
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Analytics Complete!")
	r.writePlain("Entity: %s\n", result.Entity)
	r.writePlain("Resolved: %d (%d from fallback)\n", result.Succeeded, result.Fallbacks)
	r.writePlain("Failed: %d\n", result.Failed)
	return err
}

func (r *Runner) renderReport(report *models.AnalyticsReport) error {
	r.writePlainHeader(fmt.Sprintf("%s %s", report.Entity, report.ID))
	if report.Source == models.SourceFallback {
		r.writePlain("(served from pre-aggregated table)\n")
	}
	return formatter.RenderAnalytics(r.output, report)
}
