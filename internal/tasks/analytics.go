package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// BulkAnalyticsOpts contains configuration for bulk analytics resolution.
type BulkAnalyticsOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Requests per second (default: 5)
}

// AnalyticsResult is the outcome for one record.
type AnalyticsResult struct {
	ID     string
	Report *models.AnalyticsReport
	Error  error
}

// BulkAnalyticsResult collects every record's outcome in input order.
type BulkAnalyticsResult struct {
	Entity    string
	Results   []AnalyticsResult
	Succeeded int
	Fallbacks int // successes served by the fallback table
	Failed    int
}

type analyticsJob struct {
	index int
	id    string
}

// BulkAnalytics resolves analytics for ids with a rate-limited worker pool.
// Individual failures are reported per record; only cancellation aborts the run.
func (e *Engine) BulkAnalytics(ctx context.Context, prog chan<- ProgressUpdate, entity string, ids []string, opts BulkAnalyticsOpts) (*BulkAnalyticsResult, error) {
	if e.analytics == nil {
		return nil, fmt.Errorf("%w: analytics resolver not initialized", shared.ErrServiceUnavailable)
	}
	if _, err := filters.Lookup(entity); err != nil {
		return nil, err
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &BulkAnalyticsResult{Entity: entity, Results: make([]AnalyticsResult, len(ids))}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan analyticsJob)
	done := make(chan int, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				report, err := e.analytics.Resolve(ctx, entity, job.id)
				result.Results[job.index] = AnalyticsResult{ID: job.id, Report: report, Error: err}
				done <- job.index
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- analyticsJob{index: i, id: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for i := range done {
		completed++
		res := result.Results[i]
		switch {
		case res.Error != nil:
			result.Failed++
		case res.Report.Source == models.SourceFallback:
			result.Succeeded++
			result.Fallbacks++
		default:
			result.Succeeded++
		}
		e.sendProgress(prog, analyticsUpdate(completed, len(ids), res))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// CollectIDs returns the keys of up to limit records matching st.
func (e *Engine) CollectIDs(ctx context.Context, entity filters.Entity, st filters.State, limit int) ([]string, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}
	if limit <= 0 {
		limit = filters.DefaultPageSize
	}

	pageSize := min(limit, 100)
	ids := make([]string, 0, limit)
	errStop := errors.New("enough ids")

	_, err := e.walk(ctx, entity, st, walkOpts{pageSize: pageSize}, func(page models.ListPage) error {
		for _, r := range page.Items {
			ids = append(ids, r.Key())
			if len(ids) == limit {
				return errStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return ids, err
	}
	return ids, nil
}
