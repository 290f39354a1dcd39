package ui

import (
	"strings"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
)

// tab is one entity list page: its controller, fetch lifecycle and last good page.
type tab struct {
	entity  filters.Entity
	ctrl    *filters.Controller
	tracker *filters.Tracker
	page    models.ListPage
	options models.FilterOptions
	loaded  bool
	started bool

	// filter panel cursor
	section int
	option  int
}

func (t *tab) status() (filters.Status, error) {
	return t.tracker.Status()
}

func (t *tab) sections() []filters.Facet {
	return t.entity.Schema.MultiSelectFacets()
}

func (t *tab) currentSection() (filters.Facet, bool) {
	secs := t.sections()
	if len(secs) == 0 {
		return filters.Facet{}, false
	}
	t.section = min(max(t.section, 0), len(secs)-1)
	return secs[t.section], true
}

// visible returns the options of f after merging dynamic values and applying the section search.
func (t *tab) visible(f filters.Facet) []filters.Option {
	merged := f.MergeOptions(t.options.Values(f.Name))
	return t.ctrl.Store().VisibleOptions(f.Name, merged)
}

func (t *tab) moveSection(delta int) {
	n := len(t.sections())
	if n == 0 {
		return
	}
	t.section = (t.section + delta + n) % n
	t.option = 0
}

func (t *tab) moveOption(delta int) {
	f, ok := t.currentSection()
	if !ok {
		return
	}
	n := len(t.visible(f))
	if n == 0 {
		t.option = 0
		return
	}
	t.option = min(max(t.option+delta, 0), n-1)
}

// toggleCurrent flips the option under the cursor.
func (t *tab) toggleCurrent() bool {
	f, ok := t.currentSection()
	if !ok {
		return false
	}
	opts := t.visible(f)
	if t.option < 0 || t.option >= len(opts) {
		return false
	}
	t.ctrl.Toggle(f.Name, opts[t.option].Value)
	return true
}

// summary renders the active facets, e.g. "genres: rock, jazz · order: asc".
func (t *tab) summary() string {
	st := t.ctrl.Filters()
	var parts []string
	for _, f := range t.entity.Schema.Facets {
		switch f.Kind {
		case filters.KindMultiSelect:
			if items := st.Items(f.Name); len(items) > 0 {
				parts = append(parts, strings.ToLower(f.Label)+": "+strings.Join(items, ", "))
			}
		case filters.KindOrder:
			if o := st.Order(f.Name); o != f.Default {
				parts = append(parts, strings.ToLower(f.Label)+": "+string(o))
			}
		}
	}
	return strings.Join(parts, " · ")
}
