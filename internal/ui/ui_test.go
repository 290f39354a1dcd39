package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/services"
	tu "github.com/desertthunder/ticketscope/internal/testing"
)

func newTestModel(t *testing.T, b services.Backend) *Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewModel(ctx, b, Options{Debounce: 20 * time.Millisecond, Limit: 10})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func nextRequest(t *testing.T, m *Model) request {
	t.Helper()
	select {
	case r := <-m.requests:
		return r
	case <-time.After(time.Second):
		t.Fatal("expected a dispatched request")
		return request{}
	}
}

func noRequest(t *testing.T, m *Model, wait time.Duration) {
	t.Helper()
	select {
	case r := <-m.requests:
		t.Fatalf("unexpected request %+v", r.params)
	case <-time.After(wait):
	}
}

func press(m *Model, keys string) tea.Cmd {
	var cmd tea.Cmd
	for _, r := range keys {
		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return cmd
}

func eventsPage(total int, names ...string) models.ListPage {
	items := make([]models.Record, len(names))
	for i, n := range names {
		items[i] = models.Event{ID: n, Name: n}
	}
	pages := 0
	if total > 0 {
		pages = (total + 9) / 10
	}
	return models.ListPage{Items: items, Pagination: models.PaginationMeta{Page: 1, Limit: 10, Total: total, TotalPages: pages}}
}

func deliver(m *Model, req request, page models.ListPage, err error) {
	m.Update(pageFetchedMsg(pageResult{tab: req.tab, token: req.token, page: page, err: err}))
}

func TestDispatch(t *testing.T) {
	t.Run("facet toggle resets to page 1", func(t *testing.T) {
		m := newTestModel(t, tu.NewMockBackend())
		tb := m.current()

		tb.ctrl.Refresh()
		first := nextRequest(t, m)
		deliver(m, first, eventsPage(45, "a"), nil)

		tb.ctrl.GoToPage(3)
		if r := nextRequest(t, m); r.params.Page != 3 {
			t.Fatalf("expected page 3, got %d", r.params.Page)
		}

		tb.ctrl.Toggle(filters.FacetGenres, "rock")
		r := nextRequest(t, m)
		if r.params.Page != 1 {
			t.Errorf("expected page 1 after toggle, got %d", r.params.Page)
		}
		if !slices.Equal(r.params.Genres, []string{"rock"}) {
			t.Errorf("expected genres [rock], got %v", r.params.Genres)
		}
	})

	t.Run("last request wins", func(t *testing.T) {
		m := newTestModel(t, tu.NewMockBackend())
		tb := m.current()

		tb.ctrl.Refresh()
		older := nextRequest(t, m)
		tb.ctrl.Toggle(filters.FacetGenres, "jazz")
		newer := nextRequest(t, m)

		deliver(m, newer, eventsPage(1, "newer"), nil)
		deliver(m, older, eventsPage(1, "older"), nil)

		if len(tb.page.Items) != 1 || tb.page.Items[0].Title() != "newer" {
			t.Errorf("expected newer page to stick, got %+v", tb.page.Items)
		}
		if status, _ := tb.status(); status != filters.StatusIdle {
			t.Errorf("expected idle, got %s", status)
		}
	})

	t.Run("stale error is ignored", func(t *testing.T) {
		m := newTestModel(t, tu.NewMockBackend())
		tb := m.current()

		tb.ctrl.Refresh()
		older := nextRequest(t, m)
		tb.ctrl.ToggleOrder()
		newer := nextRequest(t, m)

		deliver(m, older, models.ListPage{}, errors.New("timeout"))
		if status, _ := tb.status(); status != filters.StatusFetching {
			t.Errorf("expected still fetching, got %s", status)
		}
		deliver(m, newer, eventsPage(1, "ok"), nil)
		if status, _ := tb.status(); status != filters.StatusIdle {
			t.Errorf("expected idle, got %s", status)
		}
	})

	t.Run("page past the end is pulled back", func(t *testing.T) {
		m := newTestModel(t, tu.NewMockBackend())
		tb := m.current()

		tb.ctrl.Refresh()
		deliver(m, nextRequest(t, m), eventsPage(50, "a"), nil)

		tb.ctrl.GoToPage(5)
		r := nextRequest(t, m)
		if r.params.Page != 5 {
			t.Fatalf("expected page 5, got %d", r.params.Page)
		}

		shrunk := eventsPage(15)
		shrunk.Pagination.Page = 5
		deliver(m, r, shrunk, nil)

		if r := nextRequest(t, m); r.params.Page != 2 {
			t.Errorf("expected refetch of page 2, got %d", r.params.Page)
		}
	})
}

func TestFetchPage(t *testing.T) {
	backend := tu.NewMockBackend().Respond("search_events", `{
		"events": [{"id": "e1", "name": "Sunset Sessions"}, {"id": "e2", "name": "Night Market"}],
		"pagination": {"page": 1, "limit": 10, "total": 2, "totalPages": 1}
	}`)
	m := newTestModel(t, backend)

	m.current().ctrl.Refresh()
	req := nextRequest(t, m)

	_, cmd := m.Update(requestMsg(req))
	if cmd == nil {
		t.Fatal("expected fetch command")
	}

	msg := m.fetchPage(req)()
	m.Update(msg)

	if !m.current().loaded {
		t.Fatal("expected tab to be loaded")
	}
	if n := len(m.results.Items()); n != 2 {
		t.Errorf("expected 2 list items, got %d", n)
	}
	view := m.View()
	if !strings.Contains(view, "Sunset Sessions") || !strings.Contains(view, "page 1 of 1 (2 results)") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestErrorRetry(t *testing.T) {
	m := newTestModel(t, tu.NewMockBackend())

	m.current().ctrl.Refresh()
	req := nextRequest(t, m)
	deliver(m, req, models.ListPage{}, errors.New("backend unavailable"))

	view := m.View()
	if !strings.Contains(view, "backend unavailable") || !strings.Contains(view, "Press r to retry") {
		t.Fatalf("expected error banner, got:\n%s", view)
	}

	press(m, "r")
	retry := nextRequest(t, m)
	if retry.params.CacheKey() != req.params.CacheKey() {
		t.Errorf("retry should repeat the failed request, got %+v", retry.params)
	}
	if status, _ := m.current().status(); status != filters.StatusFetching {
		t.Errorf("expected fetching after retry, got %s", status)
	}
}

func TestEmptyStateClearAll(t *testing.T) {
	m := newTestModel(t, tu.NewMockBackend())
	tb := m.current()

	tb.ctrl.Toggle(filters.FacetGenres, "polka")
	deliver(m, nextRequest(t, m), eventsPage(0), nil)

	if view := m.View(); !strings.Contains(view, "Press x to clear all") {
		t.Fatalf("expected empty state, got:\n%s", view)
	}

	press(m, "x")
	r := nextRequest(t, m)
	if r.params.Genres != nil {
		t.Errorf("expected genres cleared, got %v", r.params.Genres)
	}
	if n := tb.ctrl.Filters().Active(tb.entity.Schema); n != 0 {
		t.Errorf("expected no active facets, got %d", n)
	}
}

func TestSearchDebounce(t *testing.T) {
	m := newTestModel(t, tu.NewMockBackend())

	press(m, "/")
	if !m.search.Focused() {
		t.Fatal("expected search to be focused")
	}
	press(m, "abc")

	if text, pending := m.current().ctrl.PendingSearch(); !pending || text != "abc" {
		t.Errorf("expected pending abc, got %q %v", text, pending)
	}

	r := nextRequest(t, m)
	if r.params.SearchTerm != "abc" || r.params.Page != 1 {
		t.Errorf("expected one search for abc on page 1, got %+v", r.params)
	}
	noRequest(t, m, 60*time.Millisecond)
}

func TestSwitchTab(t *testing.T) {
	backend := tu.NewMockBackend()
	m := newTestModel(t, backend)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.active != 1 {
		t.Fatalf("expected artists tab, got %d", m.active)
	}
	r := nextRequest(t, m)
	if r.tab != 1 || r.params.SortBy != "event_count" {
		t.Errorf("unexpected request %+v", r)
	}
	if cmd == nil {
		t.Fatal("expected options fetch")
	}

	m.Update(m.fetchOptions(1)())
	if backend.CallCount(services.FilterOptionsFunction) != 1 {
		t.Errorf("expected one options call, got %d", backend.CallCount(services.FilterOptionsFunction))
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.active != 0 {
		t.Errorf("expected events tab, got %d", m.active)
	}
	if r := nextRequest(t, m); r.tab != 0 {
		t.Errorf("expected first load of events, got tab %d", r.tab)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	noRequest(t, m, 30*time.Millisecond)
}

func TestFilterPanel(t *testing.T) {
	m := newTestModel(t, tu.NewMockBackend())
	tb := m.current()
	tb.options = models.FilterOptions{
		filters.FacetGenres: {"rock", "jazz"},
		filters.FacetCities: {"Austin", "Boston", "Houston"},
	}

	press(m, "f")
	if m.view != FilterView {
		t.Fatalf("expected filter view, got %d", m.view)
	}

	press(m, " ")
	r := nextRequest(t, m)
	if !slices.Equal(r.params.Genres, []string{"rock"}) {
		t.Errorf("expected rock, got %v", r.params.Genres)
	}

	press(m, "l")
	f, _ := tb.currentSection()
	if f.Name != filters.FacetCities {
		t.Fatalf("expected cities section, got %s", f.Name)
	}

	press(m, "/")
	if !m.section.Focused() {
		t.Fatal("expected section search focus")
	}
	press(m, "ton")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	opts := tb.visible(f)
	if len(opts) != 2 || opts[0].Value != "Boston" || opts[1].Value != "Houston" {
		t.Errorf("unexpected visible cities %+v", opts)
	}

	press(m, "j ")
	r = nextRequest(t, m)
	if !slices.Equal(r.params.Cities, []string{"Houston"}) {
		t.Errorf("expected Houston, got %v", r.params.Cities)
	}
	if view := m.View(); !strings.Contains(view, "[x] Houston") {
		t.Errorf("expected Houston checked, got:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != ListView {
		t.Errorf("expected list view, got %d", m.view)
	}
	if s := tb.summary(); !strings.Contains(s, "genres: rock") || !strings.Contains(s, "cities: Houston") {
		t.Errorf("unexpected summary %q", s)
	}
}

func TestDetail(t *testing.T) {
	backend := tu.NewMockBackend().Respond("events", `{"id": "e1", "name": "Sunset Sessions", "city": "Austin"}`)
	m := newTestModel(t, backend)

	m.current().ctrl.Refresh()
	deliver(m, nextRequest(t, m), eventsPage(1, "e1"), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != DetailView || cmd == nil {
		t.Fatalf("expected detail view with fetch command")
	}
	if view := m.View(); !strings.Contains(view, "loading") {
		t.Errorf("expected loading view, got:\n%s", view)
	}

	m.Update(cmd())
	view := m.View()
	if !strings.Contains(view, "Sunset Sessions") || !strings.Contains(view, "Austin") {
		t.Errorf("unexpected detail view:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != ListView || m.detail != nil {
		t.Error("expected to return to list view")
	}
}
