package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
	tu "github.com/desertthunder/ticketscope/internal/testing"
)

func TestTransition(t *testing.T) {
	serverErr := &APIError{StatusCode: http.StatusBadGateway}
	clientErr := &APIError{StatusCode: http.StatusForbidden}

	tc := []struct {
		name        string
		from        AnalyticsState
		err         error
		hasFallback bool
		want        AnalyticsState
	}{
		{name: "primary ok", from: StatePrimary, want: StateDone},
		{name: "primary 5xx", from: StatePrimary, err: serverErr, hasFallback: true, want: StateFallback},
		{name: "primary transport", from: StatePrimary, err: errors.New("dial tcp: refused"), hasFallback: true, want: StateFallback},
		{name: "primary 5xx without fallback", from: StatePrimary, err: serverErr, want: StateFailed},
		{name: "primary 4xx", from: StatePrimary, err: clientErr, hasFallback: true, want: StateFailed},
		{name: "primary canceled", from: StatePrimary, err: context.Canceled, hasFallback: true, want: StateFailed},
		{name: "fallback ok", from: StateFallback, hasFallback: true, want: StateDone},
		{name: "fallback error", from: StateFallback, err: serverErr, hasFallback: true, want: StateFailed},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transition(tt.from, tt.err, tt.hasFallback); got != tt.want {
				t.Errorf("Transition(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestAnalyticsResolver(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("primary", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("promoter-analytics", `{"total_events": 42}`)
		r := NewAnalyticsResolver(b, AnalyticsOpts{Now: func() time.Time { return fixed }})

		report, err := r.Resolve(ctx, filters.EntityPromoters, "p1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if report.Source != models.SourcePrimary {
			t.Errorf("expected primary source, got %s", report.Source)
		}
		if report.Field("total_events", 0) != float64(42) {
			t.Errorf("unexpected data %s", report.Data)
		}
		if !report.FetchedAt.Equal(fixed) {
			t.Errorf("unexpected fetched at %v", report.FetchedAt)
		}
		if b.CallCount("promoter_basic_analytics") != 0 {
			t.Error("fallback should not be read")
		}
	})

	t.Run("server error falls back", func(t *testing.T) {
		b := tu.NewMockBackend().
			Fail("promoter-analytics", &APIError{StatusCode: http.StatusInternalServerError}).
			Respond("promoter_basic_analytics", `{"promoter_id": "p1", "total_events": 7}`)
		r := NewAnalyticsResolver(b, AnalyticsOpts{})

		report, err := r.Resolve(ctx, filters.EntityPromoters, "p1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if report.Source != models.SourceFallback {
			t.Errorf("expected fallback source, got %s", report.Source)
		}
		if got := string(b.LastArgs("promoter_basic_analytics")); got != `{"promoter_id":"p1"}` {
			t.Errorf("unexpected fallback lookup %s", got)
		}
	})

	t.Run("client error fails without fallback", func(t *testing.T) {
		b := tu.NewMockBackend().Fail("artist-analytics", &APIError{StatusCode: http.StatusUnauthorized})
		r := NewAnalyticsResolver(b, AnalyticsOpts{})

		_, err := r.Resolve(ctx, filters.EntityArtists, "a1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if b.CallCount("artist_basic_analytics") != 0 {
			t.Error("4xx must not fall back")
		}
	})

	t.Run("fallback failure", func(t *testing.T) {
		b := tu.NewMockBackend().
			Fail("venue-analytics", errors.New("connection refused")).
			Fail("venue_basic_analytics", shared.ErrNotFound)
		r := NewAnalyticsResolver(b, AnalyticsOpts{})

		_, err := r.Resolve(ctx, filters.EntityVenues, "v1")
		if !errors.Is(err, shared.ErrFallbackFailed) || !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected fallback failure wrapping ErrNotFound, got %v", err)
		}
	})

	t.Run("entity without fallback table", func(t *testing.T) {
		b := tu.NewMockBackend().Fail("event-analytics", &APIError{StatusCode: http.StatusBadGateway})
		r := NewAnalyticsResolver(b, AnalyticsOpts{})

		if _, err := r.Resolve(ctx, filters.EntityEvents, "e1"); err == nil {
			t.Error("expected failure")
		}
	})

	t.Run("open breaker skips primary", func(t *testing.T) {
		b := tu.NewMockBackend().
			Fail("promoter-analytics", &APIError{StatusCode: http.StatusServiceUnavailable}).
			Respond("promoter_basic_analytics", `{"total_events": 1}`)
		r := NewAnalyticsResolver(b, AnalyticsOpts{FailureThreshold: 2, OpenTimeout: time.Hour})

		for range 2 {
			if _, err := r.Resolve(ctx, filters.EntityPromoters, "p1"); err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
		}
		if r.BreakerState() != "open" {
			t.Fatalf("expected open breaker, got %s", r.BreakerState())
		}

		report, err := r.Resolve(ctx, filters.EntityPromoters, "p1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if report.Source != models.SourceFallback {
			t.Errorf("expected fallback, got %s", report.Source)
		}
		if n := b.CallCount("promoter-analytics"); n != 2 {
			t.Errorf("expected primary skipped while open, got %d calls", n)
		}
	})

	t.Run("client errors do not trip the breaker", func(t *testing.T) {
		b := tu.NewMockBackend().Fail("promoter-analytics", &APIError{StatusCode: http.StatusNotFound})
		r := NewAnalyticsResolver(b, AnalyticsOpts{FailureThreshold: 1})

		r.Resolve(ctx, filters.EntityPromoters, "p1")
		r.Resolve(ctx, filters.EntityPromoters, "p1")
		if r.BreakerState() != "closed" {
			t.Errorf("expected closed breaker, got %s", r.BreakerState())
		}
	})

	t.Run("argument checks", func(t *testing.T) {
		r := NewAnalyticsResolver(tu.NewMockBackend(), AnalyticsOpts{})

		if _, err := r.Resolve(ctx, "tickets", "1"); !errors.Is(err, shared.ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
		if _, err := r.Resolve(ctx, filters.EntityPromoters, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	if FunctionName(filters.EntityPromoters) != "promoter-analytics" {
		t.Errorf("unexpected function name %s", FunctionName(filters.EntityPromoters))
	}
}
