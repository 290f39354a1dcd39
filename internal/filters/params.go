package filters

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// SearchParams is the request object handed to the backend's search functions.
//
// Multi-select filters are nil when nothing is selected, never empty slices,
// so the backend omits them instead of matching an empty set. The JSON names
// match the RPC argument names.
type SearchParams struct {
	SearchTerm string `json:"search_term,omitempty"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	SortBy     string `json:"sort_by,omitempty"`
	SortOrder  Order  `json:"sort_order"`

	Genres     []string `json:"genres,omitempty"`
	Cities     []string `json:"cities,omitempty"`
	Venues     []string `json:"venues,omitempty"`
	Artists    []string `json:"artists,omitempty"`
	Promoters  []string `json:"promoters,omitempty"`
	Providers  []string `json:"providers,omitempty"`
	VenueTypes []string `json:"venue_types,omitempty"`

	// HasPromoter is "" (any), "%" (has a promoter) or "NULL" (no promoter).
	HasPromoter string `json:"has_promoter,omitempty"`
	// Agency is "NULL", a pipe-joined list of agencies, or both ("NULL|A|B").
	Agency string `json:"agency,omitempty"`

	MinEvents *int     `json:"min_events,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
}

// Offset returns the zero-based row offset of the page.
func (p SearchParams) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// WithPage returns a copy of p on page.
func (p SearchParams) WithPage(page int) SearchParams {
	if page < 1 {
		page = 1
	}
	p.Page = page
	return p
}

// CacheKey serializes p deterministically for use in query-cache keys.
func (p SearchParams) CacheKey() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// Values renders p as URL query values, mostly for logging and the debug endpoints.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.SearchTerm != "" {
		v.Set("search_term", p.SearchTerm)
	}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	v.Set("sort_order", string(p.SortOrder))

	for name, items := range map[string][]string{
		"genres":      p.Genres,
		"cities":      p.Cities,
		"venues":      p.Venues,
		"artists":     p.Artists,
		"promoters":   p.Promoters,
		"providers":   p.Providers,
		"venue_types": p.VenueTypes,
	} {
		if len(items) > 0 {
			v.Set(name, strings.Join(items, ","))
		}
	}
	if p.HasPromoter != "" {
		v.Set("has_promoter", p.HasPromoter)
	}
	if p.Agency != "" {
		v.Set("agency", p.Agency)
	}
	if p.MinEvents != nil {
		v.Set("min_events", strconv.Itoa(*p.MinEvents))
	}
	if p.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64))
	}
	return v
}
