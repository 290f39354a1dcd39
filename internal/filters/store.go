package filters

import (
	"slices"
	"strings"
	"sync"
)

// Snapshot is a consistent view of a [Store]: the facet values and the page they apply to.
type Snapshot struct {
	Filters State
	Page    int
}

// Store is the single source of truth for one list page's facet values.
//
// Every facet mutation resets the page to 1 inside the same critical section,
// so no caller can observe new filters paired with the old page.
// Only [Store.SetPage] changes the page without touching filters.
type Store struct {
	mu       sync.Mutex
	schema   Schema
	state    State
	page     int
	sections map[string]string
}

// NewStore creates a [Store] holding the schema defaults on page 1.
func NewStore(schema Schema) *Store {
	return &Store{
		schema:   schema,
		state:    schema.Defaults(),
		page:     1,
		sections: map[string]string{},
	}
}

// Schema returns the facet schema the store was built with.
func (s *Store) Schema() Schema {
	return s.schema
}

// Snapshot returns the current filters and page.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Filters returns a copy of the current facet values.
func (s *Store) Filters() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Page returns the current page.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SetFilters replaces the whole state. The input is normalized against the schema.
func (s *Store) SetFilters(next State) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.schema.Normalize(next)
	s.page = 1
	return s.snapshot()
}

// ToggleArrayFilter adds value to facet's selection, or removes it when already selected.
//
// The previous item slice is never modified; a new one replaces it.
// Unknown facets and non multi-select facets are left untouched.
func (s *Store) ToggleArrayFilter(facet, value string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.schema.Facet(facet)
	if !ok || f.Kind != KindMultiSelect {
		return s.snapshot()
	}

	prev := s.state[facet].Items
	next := make([]string, 0, len(prev)+1)
	found := false
	for _, it := range prev {
		if it == value {
			found = true
			continue
		}
		next = append(next, it)
	}
	if !found {
		next = append(next, value)
	}

	s.state = s.state.Clone()
	s.state[facet] = Value{Kind: KindMultiSelect, Items: next}
	s.page = 1
	return s.snapshot()
}

// SetText sets a text facet.
func (s *Store) SetText(facet, text string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.schema.Facet(facet)
	if !ok || f.Kind != KindText {
		return s.snapshot()
	}

	s.state = s.state.Clone()
	s.state[facet] = TextValue(text)
	s.page = 1
	return s.snapshot()
}

// SetOrder sets an order facet. Invalid directions are ignored.
func (s *Store) SetOrder(facet string, o Order) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.schema.Facet(facet)
	if !ok || f.Kind != KindOrder || !o.Valid() {
		return s.snapshot()
	}

	s.state = s.state.Clone()
	s.state[facet] = OrderValue(o)
	s.page = 1
	return s.snapshot()
}

// ClearAll resets every facet to its default and clears all section searches.
func (s *Store) ClearAll() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.schema.Defaults()
	s.sections = map[string]string{}
	s.page = 1
	return s.snapshot()
}

// SetPage moves to page without touching filters. Values below 1 become 1.
func (s *Store) SetPage(page int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}
	s.page = page
	return s.snapshot()
}

// SetSectionSearch stores the text narrowing facet's option list.
func (s *Store) SetSectionSearch(facet, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		delete(s.sections, facet)
		return
	}
	s.sections[facet] = text
}

// SectionSearch returns the option-list search text for facet.
func (s *Store) SectionSearch(facet string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections[facet]
}

// VisibleOptions narrows opts by facet's section search (case-insensitive substring on value or label).
// Selected options always stay visible.
func (s *Store) VisibleOptions(facet string, opts []Option) []Option {
	s.mu.Lock()
	query := strings.ToLower(strings.TrimSpace(s.sections[facet]))
	selected := s.state[facet].Items
	s.mu.Unlock()

	if query == "" {
		return opts
	}

	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if containsFold(o.Value, query) || containsFold(o.Label, query) || slices.Contains(selected, o.Value) {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{Filters: s.state.Clone(), Page: s.page}
}

func containsFold(s, lowerQuery string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerQuery)
}
