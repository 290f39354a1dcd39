package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/repositories"
	"github.com/desertthunder/ticketscope/internal/services"
)

// purgeAge applies when neither --older-than nor a stale time is set.
const purgeAge = 24 * time.Hour

func (r *Runner) cacheRepository() (*repositories.QueryCacheRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewQueryCacheRepository(db), nil
}

// CacheStats summarizes the persisted query cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.cacheRepository()
	if err != nil {
		return err
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Query Cache")
	r.writePlain("Entries: %d\n", stats.Entries)
	r.writePlain("Hits: %d\n", stats.Hits)
	r.writePlain("Size: %.1f KiB\n", float64(stats.Bytes)/1024)
	if stats.Oldest != nil {
		r.writePlain("Oldest: %s\n", stats.Oldest.Format(time.DateTime))
	}
	if stats.Newest != nil {
		r.writePlain("Newest: %s\n", stats.Newest.Format(time.DateTime))
	}
	if !r.config.Query.Persist {
		r.writePlain("Note: query.persist is off; commands are not writing to this cache.\n")
	}

	names := make([]string, 0, len(stats.ByName))
	for name := range stats.ByName {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) > 0 {
		r.writePlainln("By query:")
	}
	for _, name := range names {
		r.writePlain("  %-28s %d\n", name, stats.ByName[name])
	}
	return nil
}

// CacheClear deletes cached results. --entity limits it to one entity's
// search and analytics queries, --prefix to an arbitrary key prefix.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.cacheRepository()
	if err != nil {
		return err
	}

	var prefixes []string
	switch {
	case cmd.String("entity") != "":
		entity, err := filters.Lookup(cmd.String("entity"))
		if err != nil {
			return err
		}
		prefixes = []string{entity.RPC + ":", entity.Name + ":", services.FunctionName(entity.Name) + ":"}
	case cmd.String("prefix") != "":
		prefixes = []string{cmd.String("prefix")}
	default:
		prefixes = []string{""}
	}

	var total int64
	for _, p := range prefixes {
		n, err := repo.DeletePrefix(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		total += n
	}

	r.logger.Info("cache cleared", "prefixes", prefixes, "deleted", total)
	return r.writePlain("✓ Removed %d cached results\n", total)
}

// CachePurge deletes results fetched before --older-than.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		age = r.config.Query.StaleTime()
	}
	if age <= 0 {
		age = purgeAge
	}

	repo, err := r.cacheRepository()
	if err != nil {
		return err
	}

	n, err := repo.Purge(ctx, time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	r.logger.Info("cache purged", "older_than", age, "deleted", n)
	return r.writePlain("✓ Purged %d results older than %s\n", n, age)
}

// CacheJobs lists recorded export jobs.
func (r *Runner) CacheJobs(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	jobs, err := repositories.NewExportJobRepository(db).List(cmd.String("entity"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}
	if len(jobs) == 0 {
		return r.writePlain("No exports recorded.\n")
	}

	for _, j := range jobs {
		r.writePlain("%s  %-10s %-9s %6d  %s  %s\n",
			j.StartedAt.Format(time.DateTime), j.Entity, j.Status, j.TotalRecords, j.Format, j.OutputPath)
		if j.Error != "" {
			r.writePlain("    error: %s\n", j.Error)
		}
	}
	return nil
}
