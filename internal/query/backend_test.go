package query

import (
	"context"
	"net/http"
	"testing"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/services"
	tu "github.com/desertthunder/ticketscope/internal/testing"
)

func TestBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("caches searches per params", func(t *testing.T) {
		mock := tu.NewMockBackend().Respond("search_venues", `{"venues": [{"id": "v1", "name": "The Roxy"}], "pagination": {"page": 1, "limit": 20, "total": 1, "totalPages": 1}}`)
		c, _, _ := newTestClient()
		b := c.Wrap(mock)

		params := filters.Venues.Params(filters.Venues.Schema.Defaults(), 1, 20)
		for range 3 {
			page, err := services.SearchVenues(ctx, b, params)
			if err != nil {
				t.Fatalf("SearchVenues failed: %v", err)
			}
			if len(page.Items) != 1 {
				t.Fatalf("expected 1 venue, got %d", len(page.Items))
			}
		}
		if n := mock.CallCount("search_venues"); n != 1 {
			t.Errorf("expected 1 backend call, got %d", n)
		}

		services.SearchVenues(ctx, b, params.WithPage(2))
		if n := mock.CallCount("search_venues"); n != 2 {
			t.Errorf("expected page 2 to miss the cache, got %d calls", n)
		}
	})

	t.Run("analytics functions are not retried", func(t *testing.T) {
		mock := tu.NewMockBackend().Fail("venue-analytics", &services.APIError{StatusCode: http.StatusBadGateway})
		c, _, _ := newTestClient()
		b := c.Wrap(mock)

		if _, err := b.Function(ctx, "venue-analytics", map[string]string{"id": "v1"}); err == nil {
			t.Fatal("expected error")
		}
		if n := mock.CallCount("venue-analytics"); n != 1 {
			t.Errorf("expected 1 call, got %d", n)
		}
	})

	t.Run("rows", func(t *testing.T) {
		mock := tu.NewMockBackend().Respond("artists", `{"id": "a1", "name": "Phoebe"}`)
		c, _, _ := newTestClient()
		b := c.Wrap(mock)

		services.Get(ctx, b, filters.EntityArtists, "a1")
		rec, err := services.Get(ctx, b, filters.EntityArtists, "a1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.Key() != "a1" || mock.CallCount("artists") != 1 {
			t.Errorf("expected cached row, got %v after %d calls", rec.Key(), mock.CallCount("artists"))
		}
	})

	if b := (&Client{}).Wrap(tu.NewMockBackend()); b.Name() != "mock" || b.Unwrap() == nil {
		t.Errorf("unexpected wrapper %+v", b)
	}
}
