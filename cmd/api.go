package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/shared"
)

func parseData(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	var args any
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}
	return args, nil
}

func (r *Runner) writeRaw(raw json.RawMessage, pretty bool) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		r.output.Write(raw)
		r.output.Write([]byte("\n"))
		return nil
	}
	return r.writeJSON(v, pretty)
}

// APIRPC calls a database function directly, bypassing the query cache.
func (r *Runner) APIRPC(ctx context.Context, cmd *cli.Command) error {
	fn := cmd.StringArg("fn")
	if fn == "" {
		return fmt.Errorf("%w: function name", shared.ErrMissingArgument)
	}
	args, err := parseData(cmd.String("data"))
	if err != nil {
		return err
	}

	b, err := r.rawBackend(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("rpc request", "fn", fn, "backend", b.Name())
	raw, err := b.Call(ctx, fn, args)
	if err != nil {
		return err
	}
	return r.writeRaw(raw, cmd.Bool("pretty"))
}

// APIFunction invokes an edge function directly, bypassing the query cache.
func (r *Runner) APIFunction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: function name", shared.ErrMissingArgument)
	}
	args, err := parseData(cmd.String("data"))
	if err != nil {
		return err
	}

	b, err := r.rawBackend(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("function request", "name", name, "backend", b.Name())
	raw, err := b.Function(ctx, name, args)
	if err != nil {
		return err
	}
	return r.writeRaw(raw, cmd.Bool("pretty"))
}

// APIDump fetches the filter options and first page of every entity.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.String("save")

	b, err := r.rawBackend(ctx)
	if err != nil {
		return err
	}

	type entityDump struct {
		Options any    `json:"options,omitempty"`
		Page    any    `json:"page,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	dump := struct {
		Backend   string                `json:"backend"`
		FetchedAt time.Time             `json:"fetched_at"`
		Entities  map[string]entityDump `json:"entities"`
	}{
		Backend:   b.Name(),
		FetchedAt: time.Now().UTC(),
		Entities:  map[string]entityDump{},
	}

	r.logger.Info("dumping backend state")
	for _, e := range filters.Entities() {
		r.writePlain("📥 Fetching %s...\n", e.Name)

		var d entityDump
		opts, err := services.FilterOptions(ctx, b, e)
		if err != nil {
			d.Error = err.Error()
			r.logger.Warn("failed to fetch filter options", "entity", e.Name, "error", err)
		} else {
			d.Options = opts
		}

		page, err := services.SearchList(ctx, b, e.Name, e.Params(e.Schema.Defaults(), 1, r.config.Filters.PageSize))
		if err != nil {
			d.Error = err.Error()
			r.logger.Warn("failed to search", "entity", e.Name, "error", err)
		} else {
			d.Page = page
		}
		dump.Entities[e.Name] = d
	}
	r.writePlain("\n✓ Dump complete\n\n")

	if save != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(save, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", save)
			r.writePlain("✓ Dump saved to %s\n\n", save)
		}
	}

	return r.writeJSON(dump, pretty)
}
