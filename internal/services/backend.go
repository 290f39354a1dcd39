package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// Backend is the query surface of the hosted ticketing backend.
//
// Implementations return raw JSON; the typed helpers in this file decode it.
type Backend interface {
	// Call runs a database function with JSON arguments and returns its JSON result.
	Call(ctx context.Context, fn string, args any) (json.RawMessage, error)

	// Row returns the single row of table whose column equals value, as a JSON object.
	// A missing row yields [shared.ErrNotFound].
	Row(ctx context.Context, table, column, value string) (json.RawMessage, error)

	// Function invokes a pre-aggregating analytics endpoint.
	Function(ctx context.Context, name string, args any) (json.RawMessage, error)

	// Name returns the name of the backend (e.g., "rest", "postgres")
	Name() string
}

// FilterOptionsFunction lists dynamic facet options per entity.
const FilterOptionsFunction = "get_filter_options"

// pageEnvelope is the search response: {"<entity>": [...], "pagination": {...}}.
type pageEnvelope map[string]json.RawMessage

// Search runs entity's search function and decodes the typed page.
func Search[T models.Record](ctx context.Context, b Backend, entity filters.Entity, params filters.SearchParams) (models.Page[T], error) {
	var page models.Page[T]

	raw, err := b.Call(ctx, entity.RPC, params)
	if err != nil {
		return page, err
	}

	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return page, fmt.Errorf("%w: decoding %s: %w", shared.ErrAPIRequest, entity.RPC, err)
	}

	items, ok := env[entity.ResultKey]
	if !ok {
		items = env["items"]
	}
	if len(items) > 0 && string(items) != "null" {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return page, fmt.Errorf("%w: decoding %s items: %w", shared.ErrAPIRequest, entity.RPC, err)
		}
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	if meta, ok := env["pagination"]; ok {
		if err := json.Unmarshal(meta, &page.Pagination); err != nil {
			return page, fmt.Errorf("%w: decoding %s pagination: %w", shared.ErrAPIRequest, entity.RPC, err)
		}
	}
	return page, nil
}

func SearchEvents(ctx context.Context, b Backend, params filters.SearchParams) (models.Page[models.Event], error) {
	return Search[models.Event](ctx, b, filters.Events, params)
}

func SearchArtists(ctx context.Context, b Backend, params filters.SearchParams) (models.Page[models.Artist], error) {
	return Search[models.Artist](ctx, b, filters.Artists, params)
}

func SearchVenues(ctx context.Context, b Backend, params filters.SearchParams) (models.Page[models.Venue], error) {
	return Search[models.Venue](ctx, b, filters.Venues, params)
}

func SearchPromoters(ctx context.Context, b Backend, params filters.SearchParams) (models.Page[models.Promoter], error) {
	return Search[models.Promoter](ctx, b, filters.Promoters, params)
}

// SearchList searches the entity named name and erases the item type.
func SearchList(ctx context.Context, b Backend, name string, params filters.SearchParams) (models.ListPage, error) {
	switch name {
	case filters.EntityEvents:
		p, err := SearchEvents(ctx, b, params)
		return models.Erase(p), err
	case filters.EntityArtists:
		p, err := SearchArtists(ctx, b, params)
		return models.Erase(p), err
	case filters.EntityVenues:
		p, err := SearchVenues(ctx, b, params)
		return models.Erase(p), err
	case filters.EntityPromoters:
		p, err := SearchPromoters(ctx, b, params)
		return models.Erase(p), err
	default:
		return models.ListPage{}, fmt.Errorf("%w: %q", shared.ErrUnknownEntity, name)
	}
}

// Get fetches one record of the entity named name.
func Get(ctx context.Context, b Backend, name, id string) (models.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	raw, err := b.Row(ctx, name, "id", id)
	if err != nil {
		return nil, err
	}

	var rec models.Record
	switch name {
	case filters.EntityEvents:
		rec, err = decodeRecord[models.Event](raw)
	case filters.EntityArtists:
		rec, err = decodeRecord[models.Artist](raw)
	case filters.EntityVenues:
		rec, err = decodeRecord[models.Venue](raw)
	case filters.EntityPromoters:
		rec, err = decodeRecord[models.Promoter](raw)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownEntity, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s %s: %w", shared.ErrAPIRequest, name, id, err)
	}
	return rec, nil
}

func decodeRecord[T models.Record](raw json.RawMessage) (models.Record, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// FilterOptions fetches the dynamic option values of entity's facets.
//
// Only facets marked Dynamic are kept; static options are merged by the caller.
func FilterOptions(ctx context.Context, b Backend, entity filters.Entity) (models.FilterOptions, error) {
	raw, err := b.Call(ctx, FilterOptionsFunction, map[string]string{"entity": entity.Name})
	if err != nil {
		return nil, err
	}

	var all map[string][]string
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("%w: decoding filter options: %w", shared.ErrAPIRequest, err)
	}

	out := models.FilterOptions{}
	for _, f := range entity.Schema.MultiSelectFacets() {
		if f.Dynamic {
			out[f.Name] = all[f.Name]
		}
	}
	return out, nil
}
