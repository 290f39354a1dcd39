package models

import (
	"encoding/json"
	"time"
)

// Record is a row of a list page.
type Record interface {
	Key() string      // Key returns the record's primary key
	Title() string    // Title returns the primary display line
	Subtitle() string // Subtitle returns the secondary display line
	Header() []string // Header returns the tabular column names; it must not depend on the receiver's fields
	Row() []string    // Row returns the tabular column values matching Header
}

// PaginationMeta is the pagination block of a search response.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether a page follows this one.
func (m PaginationMeta) HasNext() bool {
	return m.Page < m.TotalPages
}

// HasPrev reports whether a page precedes this one.
func (m PaginationMeta) HasPrev() bool {
	return m.Page > 1
}

// Page is one page of search results.
type Page[T Record] struct {
	Items      []T            `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// Empty reports whether the page has no items.
func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// Records returns the items as [Record] values.
func (p Page[T]) Records() []Record {
	out := make([]Record, len(p.Items))
	for i, it := range p.Items {
		out[i] = it
	}
	return out
}

// ListPage is a page with its items erased to [Record], used where the entity
// is only known at runtime (dashboard tabs, HTTP handlers, exports).
type ListPage = Page[Record]

// Erase converts a typed page to a [ListPage].
func Erase[T Record](p Page[T]) ListPage {
	return ListPage{Items: p.Records(), Pagination: p.Pagination}
}

// AnalyticsSource says which backend path produced an [AnalyticsReport].
type AnalyticsSource string

const (
	SourcePrimary  AnalyticsSource = "primary"
	SourceFallback AnalyticsSource = "fallback"
)

// AnalyticsReport is the pre-aggregated analytics payload for one record.
//
// Data is kept as raw JSON; fields vary per entity and are read with [AnalyticsReport.Field].
type AnalyticsReport struct {
	Entity    string          `json:"entity"`
	ID        string          `json:"id"`
	Source    AnalyticsSource `json:"source"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Fields decodes the top-level analytics object. Non-object payloads yield an empty map.
func (r AnalyticsReport) Fields() map[string]any {
	out := map[string]any{}
	if len(r.Data) == 0 {
		return out
	}
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Field returns one top-level analytics value, or fallback when missing.
func (r AnalyticsReport) Field(name string, fallback any) any {
	if v, ok := r.Fields()[name]; ok && v != nil {
		return v
	}
	return fallback
}

// FilterOptions maps facet names to the option values the backend currently knows.
type FilterOptions map[string][]string

// Values returns the options of facet, or nil.
func (o FilterOptions) Values(facet string) []string {
	if o == nil {
		return nil
	}
	return o[facet]
}
