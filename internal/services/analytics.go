package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker/v2"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// AnalyticsState is a step of analytics resolution.
type AnalyticsState int

const (
	StatePrimary AnalyticsState = iota
	StateFallback
	StateFailed
	StateDone
)

func (s AnalyticsState) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return ""
	}
}

// FallbackTables names the basic analytics table per entity. Entities without
// one fail when the primary endpoint fails.
var FallbackTables = map[string]string{
	filters.EntityPromoters: "promoter_basic_analytics",
	filters.EntityArtists:   "artist_basic_analytics",
	filters.EntityVenues:    "venue_basic_analytics",
}

// Transition returns the state following from after a step finished with err.
//
//	primary  ok                                   -> done
//	primary  4xx / canceled                       -> failed
//	primary  5xx / transport / breaker open       -> fallback (failed when the entity has no fallback)
//	fallback ok                                   -> done
//	fallback any error                            -> failed
func Transition(from AnalyticsState, err error, hasFallback bool) AnalyticsState {
	if err == nil {
		if from == StatePrimary || from == StateFallback {
			return StateDone
		}
		return from
	}

	switch from {
	case StatePrimary:
		if IsClientError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return StateFailed
		}
		if !hasFallback {
			return StateFailed
		}
		return StateFallback
	default:
		return StateFailed
	}
}

// AnalyticsOpts configures an [AnalyticsResolver].
type AnalyticsOpts struct {
	Logger *log.Logger
	// FailureThreshold is the number of consecutive primary failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing the primary again.
	OpenTimeout time.Duration
	Now         func() time.Time
}

// AnalyticsResolver fetches pre-aggregated analytics, falling back to the
// basic analytics table when the edge function is unavailable.
//
// The edge function sits behind a circuit breaker; while it is open, requests
// go straight to the fallback.
type AnalyticsResolver struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
	logger  *log.Logger
	now     func() time.Time
}

// NewAnalyticsResolver creates an [AnalyticsResolver] for b.
func NewAnalyticsResolver(b Backend, opts AnalyticsOpts) *AnalyticsResolver {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	threshold := opts.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "analytics-" + b.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &AnalyticsResolver{backend: b, breaker: breaker, logger: logger, now: opts.Now}
}

// BreakerState returns the circuit breaker state name.
func (r *AnalyticsResolver) BreakerState() string {
	return r.breaker.State().String()
}

// FunctionName returns the analytics endpoint of entity ("promoters" -> "promoter-analytics").
func FunctionName(entity string) string {
	return singular(entity) + "-analytics"
}

// Resolve returns analytics for the record id of entity.
func (r *AnalyticsResolver) Resolve(ctx context.Context, entity, id string) (*models.AnalyticsReport, error) {
	if _, err := filters.Lookup(entity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	table, hasFallback := FallbackTables[entity]
	logger := r.logger.With("entity", entity, "id", id)

	var (
		state   = StatePrimary
		data    json.RawMessage
		source  models.AnalyticsSource
		lastErr error
		errs    []error
	)

	for state != StateDone && state != StateFailed {
		var err error
		switch state {
		case StatePrimary:
			data, err = r.breaker.Execute(func() (json.RawMessage, error) {
				return r.backend.Function(ctx, FunctionName(entity), map[string]string{"id": id})
			})
			source = models.SourcePrimary
		case StateFallback:
			logger.Warn("primary analytics unavailable, using basic table", "table", table, "err", lastErr)
			data, err = r.backend.Row(ctx, table, singular(entity)+"_id", id)
			source = models.SourceFallback
			if err != nil {
				err = fmt.Errorf("%w: %w", shared.ErrFallbackFailed, err)
			}
		}

		next := Transition(state, err, hasFallback)
		logger.Debug("analytics transition", "from", state, "to", next, "err", err)
		if err != nil {
			errs = append(errs, err)
			lastErr = err
		}
		state = next
	}

	if state == StateFailed {
		return nil, errors.Join(errs...)
	}

	return &models.AnalyticsReport{
		Entity:    entity,
		ID:        id,
		Source:    source,
		Data:      data,
		FetchedAt: r.now(),
	}, nil
}

func singular(entity string) string {
	return strings.TrimSuffix(entity, "s")
}
