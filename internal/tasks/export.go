package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/formatter"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// ExportOpts contains configuration for filtered-list exports.
type ExportOpts struct {
	Format    formatter.Format // Output format (default: csv)
	Output    string           // Output file (default: {entity}_{epoch}{ext})
	PageSize  int              // Records per request (default: 100)
	MaxPages  int              // Stop after this many pages; 0 exports everything
	RateLimit float64          // Requests per second (default: 5)
	Manifest  bool             // Write {output}_manifest.json next to the export
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Job          *models.ExportJob
	Records      int
	Pages        int
	Pagination   models.PaginationMeta // pagination of the first page
	Files        []string
	ManifestPath string
}

// Export writes every record matching st to a file, one rate-limited page at a time.
//
// The export is recorded as a job when a [JobRecorder] is configured. A failure
// partway leaves the partial file in place and marks the job failed.
func (e *Engine) Export(ctx context.Context, prog chan<- ProgressUpdate, entity filters.Entity, st filters.State, opts ExportOpts) (*ExportResult, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}
	if opts.Output == "" {
		opts.Output = fmt.Sprintf("%s_%d%s", entity.Name, e.now().Unix(), opts.Format.Extension())
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	params := entity.Params(st, 1, opts.PageSize)
	job := &models.ExportJob{
		Entity:     entity.Name,
		Params:     params.CacheKey(),
		Format:     string(opts.Format),
		OutputPath: opts.Output,
		Status:     models.ExportRunning,
		StartedAt:  e.now(),
	}
	if e.jobs != nil {
		if err := e.jobs.Create(job); err != nil {
			return nil, fmt.Errorf("failed to record export job: %w", err)
		}
	}

	result := &ExportResult{Job: job}
	err := e.export(ctx, prog, entity, st, opts, result)

	job.TotalRecords = result.Records
	job.Finish(e.now(), err)
	if e.jobs != nil {
		if uerr := e.jobs.Update(job); uerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to update export job: %w", uerr))
		}
	}
	if err != nil {
		return result, err
	}

	if opts.Manifest {
		path := formatter.ManifestPath(opts.Output)
		m := formatter.Manifest{
			JobID:      job.ID,
			Entity:     entity.Name,
			Format:     opts.Format,
			Params:     params,
			Pagination: result.Pagination,
			Records:    result.Records,
			Files:      result.Files,
			StartedAt:  job.StartedAt,
			FinishedAt: *job.FinishedAt,
		}
		if err := formatter.WriteManifest(path, m); err != nil {
			return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = path
	}

	e.sendProgress(prog, exportDoneUpdate(result.Records, opts.Output))
	return result, nil
}

func (e *Engine) export(ctx context.Context, prog chan<- ProgressUpdate, entity filters.Entity, st filters.State, opts ExportOpts, result *ExportResult) error {
	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w, err := formatter.NewRecordWriter(f, opts.Format, formatter.HeaderFor(entity.Name))
	if err != nil {
		return err
	}
	result.Files = []string{opts.Output}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	e.sendProgress(prog, fetchPageUpdate(entity.Name, 1, 0))

	meta, err := e.walk(ctx, entity, st, walkOpts{pageSize: opts.PageSize, maxPages: opts.MaxPages, limiter: limiter}, func(page models.ListPage) error {
		if err := w.Write(page.Items...); err != nil {
			return err
		}
		result.Pages++
		result.Records += len(page.Items)

		total := page.Pagination.TotalPages
		if opts.MaxPages > 0 {
			total = min(total, opts.MaxPages)
		}
		e.sendProgress(prog, wroteRecordsUpdate(result.Pages, total, result.Records))
		if result.Pages < total {
			e.sendProgress(prog, fetchPageUpdate(entity.Name, result.Pages+1, total))
		}
		return nil
	})
	result.Pagination = meta
	if err != nil {
		e.logger.Error("export failed", "entity", entity.Name, "pages", result.Pages, "err", err)
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}
