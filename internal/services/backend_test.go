package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
	tu "github.com/desertthunder/ticketscope/internal/testing"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes items and pagination", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("search_artists", `{
			"artists": [{"id": "a1", "name": "Phoebe", "event_count": 12}],
			"pagination": {"page": 2, "limit": 1, "total": 9, "totalPages": 9}
		}`)

		params := filters.Artists.Params(filters.Artists.Schema.Defaults(), 2, 1)
		page, err := SearchArtists(ctx, b, params)
		if err != nil {
			t.Fatalf("SearchArtists failed: %v", err)
		}

		if len(page.Items) != 1 || page.Items[0].Name != "Phoebe" {
			t.Errorf("unexpected items %+v", page.Items)
		}
		if page.Pagination.TotalPages != 9 || page.Pagination.Page != 2 {
			t.Errorf("unexpected pagination %+v", page.Pagination)
		}

		var sent map[string]any
		if err := json.Unmarshal(b.LastArgs("search_artists"), &sent); err != nil {
			t.Fatal(err)
		}
		if sent["page"] != float64(2) || sent["sort_by"] != "event_count" {
			t.Errorf("unexpected args %v", sent)
		}
	})

	t.Run("missing items decode as empty", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("search_venues", `{"venues": null, "pagination": {"page": 1, "limit": 20, "total": 0, "totalPages": 0}}`)

		page, err := SearchVenues(ctx, b, filters.SearchParams{Page: 1, Limit: 20})
		if err != nil {
			t.Fatalf("SearchVenues failed: %v", err)
		}
		if page.Items == nil || !page.Empty() {
			t.Errorf("expected empty non-nil items, got %#v", page.Items)
		}
	})

	t.Run("generic items key", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("search_promoters", `{"items": [{"id": "p1", "name": "Goldenvoice"}]}`)

		page, err := SearchPromoters(ctx, b, filters.SearchParams{Page: 1, Limit: 20})
		if err != nil {
			t.Fatalf("SearchPromoters failed: %v", err)
		}
		if len(page.Items) != 1 {
			t.Errorf("expected 1 item, got %d", len(page.Items))
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("search_events", `[1,2,3]`)

		_, err := SearchEvents(ctx, b, filters.SearchParams{Page: 1, Limit: 20})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("backend error propagates", func(t *testing.T) {
		boom := &APIError{StatusCode: 500}
		b := tu.NewMockBackend().Fail("search_events", boom)

		_, err := SearchEvents(ctx, b, filters.SearchParams{Page: 1, Limit: 20})
		if !errors.Is(err, boom) {
			t.Errorf("expected backend error, got %v", err)
		}
	})

	t.Run("SearchList", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("search_events", `{"events": [{"id": "e1", "name": "Night Market"}]}`)

		page, err := SearchList(ctx, b, filters.EntityEvents, filters.SearchParams{Page: 1, Limit: 20})
		if err != nil {
			t.Fatalf("SearchList failed: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].Title() != "Night Market" {
			t.Errorf("unexpected items %+v", page.Items)
		}

		if _, err := SearchList(ctx, b, "tickets", filters.SearchParams{}); !errors.Is(err, shared.ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("typed record", func(t *testing.T) {
		b := tu.NewMockBackend().Respond("venues", `{"id": "v1", "name": "The Echo", "city": "Los Angeles", "event_count": 3}`)

		rec, err := Get(ctx, b, filters.EntityVenues, "v1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		venue, ok := rec.(models.Venue)
		if !ok {
			t.Fatalf("expected models.Venue, got %T", rec)
		}
		if venue.City != "Los Angeles" {
			t.Errorf("unexpected venue %+v", venue)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Get(ctx, tu.NewMockBackend(), filters.EntityVenues, " ")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		b := tu.NewMockBackend().Fail("events", shared.ErrNotFound)
		if _, err := Get(ctx, b, filters.EntityEvents, "e404"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFilterOptions(t *testing.T) {
	b := tu.NewMockBackend().Respond(FilterOptionsFunction, `{
		"genres": ["rock", "jazz"],
		"agencies": ["CAA"],
		"activity": ["should be dropped"]
	}`)

	opts, err := FilterOptions(context.Background(), b, filters.Artists)
	if err != nil {
		t.Fatalf("FilterOptions failed: %v", err)
	}

	if got := opts.Values(filters.FacetGenres); len(got) != 2 {
		t.Errorf("expected 2 genres, got %v", got)
	}
	if got := opts.Values(filters.FacetAgencies); len(got) != 1 {
		t.Errorf("expected 1 agency, got %v", got)
	}
	if _, ok := opts[filters.FacetActivity]; ok {
		t.Error("expected static facets to be skipped")
	}
	if string(b.LastArgs(FilterOptionsFunction)) != `{"entity":"artists"}` {
		t.Errorf("unexpected args %s", b.LastArgs(FilterOptionsFunction))
	}
}
