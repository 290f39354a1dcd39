// package tasks runs long list operations (exports, bulk analytics, record detail)
// against the ticketing backend.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// JobRecorder persists export bookkeeping. repositories.ExportJobRepository implements it.
type JobRecorder interface {
	Create(job *models.ExportJob) error
	Update(job *models.ExportJob) error
}

// Analyzer resolves analytics for one record. services.AnalyticsResolver implements it.
type Analyzer interface {
	Resolve(ctx context.Context, entity, id string) (*models.AnalyticsReport, error)
}

// EngineOpts configures an [Engine]. Only the backend is required.
type EngineOpts struct {
	Analytics Analyzer
	Jobs      JobRecorder
	Logger    *log.Logger
	Now       func() time.Time
}

// Engine pages through filtered lists and fans out per-record work.
type Engine struct {
	backend   services.Backend
	analytics Analyzer
	jobs      JobRecorder
	logger    *log.Logger
	now       func() time.Time
}

// NewEngine creates a new Engine with the provided backend.
func NewEngine(b services.Backend, opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		backend:   b,
		analytics: opts.Analytics,
		jobs:      opts.Jobs,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// walkOpts bounds a [Engine.walk].
type walkOpts struct {
	pageSize int
	maxPages int
	limiter  *rate.Limiter
}

// walk fetches entity's filtered list page by page, calling visit for each
// page until the last page, an empty page, or maxPages. It returns the
// pagination block of the first page.
func (e *Engine) walk(ctx context.Context, entity filters.Entity, st filters.State, opts walkOpts, visit func(page models.ListPage) error) (models.PaginationMeta, error) {
	var first models.PaginationMeta

	for page := 1; ; page++ {
		if opts.limiter != nil {
			if err := opts.limiter.Wait(ctx); err != nil {
				return first, err
			}
		}

		params := entity.Params(st, page, opts.pageSize)
		res, err := services.SearchList(ctx, e.backend, entity.Name, params)
		if err != nil {
			return first, fmt.Errorf("failed to fetch %s page %d: %w", entity.Name, page, err)
		}
		if page == 1 {
			first = res.Pagination
		}
		if res.Empty() {
			return first, nil
		}
		if err := visit(res); err != nil {
			return first, err
		}

		last := res.Pagination.TotalPages
		if last < 1 || page >= last || (opts.maxPages > 0 && page >= opts.maxPages) {
			return first, nil
		}
	}
}

// Detail is a record together with its analytics.
type Detail struct {
	Record       models.Record           `json:"record"`
	Analytics    *models.AnalyticsReport `json:"analytics,omitempty"`
	AnalyticsErr error                   `json:"-"`
}

// Detail fetches one record and, when an analyzer is configured, its analytics
// concurrently. A missing record fails the call; failed analytics only set
// AnalyticsErr.
func (e *Engine) Detail(ctx context.Context, entity, id string) (*Detail, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}

	d := &Detail{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := services.Get(gctx, e.backend, entity, id)
		if err != nil {
			return err
		}
		d.Record = rec
		return nil
	})

	if e.analytics != nil {
		g.Go(func() error {
			report, err := e.analytics.Resolve(gctx, entity, id)
			if err != nil {
				e.logger.Warn("analytics unavailable", "entity", entity, "id", id, "err", err)
				d.AnalyticsErr = err
				return nil
			}
			d.Analytics = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
