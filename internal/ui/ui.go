package ui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/formatter"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	FilterView
	DetailView
)

// Options configures a [Model].
type Options struct {
	Engine   *tasks.Engine
	Debounce time.Duration
	Limit    int
	Logger   *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	backend  services.Backend
	engine   *tasks.Engine
	logger   *log.Logger
	view     ViewState
	tabs     []*tab
	active   int
	requests chan request
	width    int
	height   int
	search   textinput.Model
	section  textinput.Model
	spinner  spinner.Model
	results  list.Model
	detail   *detailResult
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with one tab per entity.
func NewModel(ctx context.Context, b services.Backend, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Engine == nil {
		opts.Engine = tasks.NewEngine(b, tasks.EngineOpts{Logger: opts.Logger})
	}

	search := textinput.New()
	search.Placeholder = "search"
	search.Prompt = "/ "

	section := textinput.New()
	section.Placeholder = "narrow options"
	section.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.SetFilteringEnabled(false)
	results.SetShowFilter(false)
	results.SetShowHelp(false)
	results.SetShowStatusBar(false)

	m := &Model{
		ctx:      ctx,
		backend:  b,
		engine:   opts.Engine,
		logger:   opts.Logger,
		requests: make(chan request, 16),
		search:   search,
		section:  section,
		spinner:  sp,
		results:  results,
		help:     help.New(),
		keys:     newKeyMap(),
	}

	for i, e := range filters.Entities() {
		t := &tab{entity: e, tracker: &filters.Tracker{}}
		t.ctrl = filters.NewController(e, filters.ControllerOpts{
			Debounce: opts.Debounce,
			Limit:    opts.Limit,
			Dispatch: m.dispatcher(i, t),
		})
		m.tabs = append(m.tabs, t)
	}
	m.results.Title = m.tabs[0].entity.Schema.Entity
	return m
}

// dispatcher returns the controller callback of tab i. The token is taken
// synchronously so dispatch order decides which response wins; the hand-off
// to the update loop happens off the controller's lock.
func (m *Model) dispatcher(i int, t *tab) filters.Dispatch {
	return func(p filters.SearchParams) {
		req := request{tab: i, token: t.tracker.Begin(), params: p}
		go func() {
			select {
			case m.requests <- req:
			case <-m.ctx.Done():
			}
		}()
	}
}

// Close stops every tab's pending search.
func (m *Model) Close() {
	for _, t := range m.tabs {
		t.ctrl.Close()
	}
}

// Init starts the spinner and loads the first tab.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForRequest(), m.open(m.active))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(msg.Width-4, max(msg.Height-12, 4))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case FilterView:
			return m.handleFilterKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgRequest:
		req := msg.data.(request)
		return m, tea.Batch(m.fetchPage(req), m.waitForRequest())

	case MsgPageFetched:
		res := msg.data.(pageResult)
		t := m.tabs[res.tab]
		if !t.tracker.Finish(res.token, res.err) {
			m.logger.Debug("dropping superseded response", "entity", t.entity.Name, "token", res.token)
			return m, nil
		}
		if res.err != nil {
			m.logger.Warn("search failed", "entity", t.entity.Name, "err", res.err)
			return m, nil
		}
		t.page = res.page
		t.loaded = true
		t.ctrl.UpdatePagination(res.page.Pagination)
		if res.tab == m.active {
			m.syncResults()
		}
		return m, nil

	case MsgOptionsFetched:
		res := msg.data.(optionsResult)
		if res.err != nil {
			m.logger.Warn("filter options unavailable", "entity", m.tabs[res.tab].entity.Name, "err", res.err)
			return m, nil
		}
		m.tabs[res.tab].options = res.options
		return m, nil

	case MsgDetailFetched:
		res := msg.data.(detailResult)
		if m.detail != nil && m.detail.key == res.key {
			m.detail = &res
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) current() *tab { return m.tabs[m.active] }

// open loads tab i the first time it is shown.
func (m *Model) open(i int) tea.Cmd {
	t := m.tabs[i]
	if t.started {
		return nil
	}
	t.started = true
	t.ctrl.Refresh()
	return m.fetchOptions(i)
}

func (m *Model) switchTab(delta int) tea.Cmd {
	n := len(m.tabs)
	m.active = (m.active + delta + n) % n

	t := m.current()
	text, _ := t.ctrl.PendingSearch()
	if text == "" {
		text = t.ctrl.Filters().Text(filters.FacetSearch)
	}
	m.search.SetValue(text)
	m.results.Title = t.entity.Schema.Entity
	m.syncResults()
	return m.open(m.active)
}

func (m *Model) syncResults() {
	t := m.current()
	m.results.SetItems(recordItems(t.page.Items))
	m.results.Select(0)
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.current()

	if m.search.Focused() {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.search.Blur()
			t.ctrl.FlushSearch()
			return m, nil
		case "esc":
			m.search.Blur()
			return m, nil
		}
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			t.ctrl.SetSearch(m.search.Value())
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		return m, m.switchTab(1)
	case key.Matches(msg, m.keys.prevTab):
		return m, m.switchTab(-1)
	case key.Matches(msg, m.keys.search):
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.filters):
		m.view = FilterView
		return m, nil
	case key.Matches(msg, m.keys.order):
		t.ctrl.ToggleOrder()
		return m, nil
	case key.Matches(msg, m.keys.prevPage):
		t.ctrl.PrevPage()
		return m, nil
	case key.Matches(msg, m.keys.nextPage):
		if t.ctrl.Coordinator().HasNext(t.ctrl.Store().Page()) {
			t.ctrl.NextPage()
		}
		return m, nil
	case key.Matches(msg, m.keys.clear):
		m.search.SetValue("")
		t.ctrl.ClearAll()
		return m, nil
	case key.Matches(msg, m.keys.retry):
		t.ctrl.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.results.SelectedItem().(recordItem); ok {
			return m, m.openDetail(t.entity.Name, item.record.Key())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.current()

	if m.section.Focused() {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter", "esc":
			m.section.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.section, cmd = m.section.Update(msg)
		if f, ok := t.currentSection(); ok {
			t.ctrl.Store().SetSectionSearch(f.Name, m.section.Value())
			t.option = 0
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.filters):
		m.view = ListView
	case key.Matches(msg, m.keys.left):
		t.moveSection(-1)
		m.syncSectionInput()
	case key.Matches(msg, m.keys.right):
		t.moveSection(1)
		m.syncSectionInput()
	case key.Matches(msg, m.keys.up):
		t.moveOption(-1)
	case key.Matches(msg, m.keys.down):
		t.moveOption(1)
	case key.Matches(msg, m.keys.toggle):
		t.toggleCurrent()
	case key.Matches(msg, m.keys.clear):
		m.search.SetValue("")
		t.ctrl.ClearAll()
	case key.Matches(msg, m.keys.search):
		if f, ok := t.currentSection(); ok && f.Searchable {
			return m, m.section.Focus()
		}
	}
	return m, nil
}

func (m *Model) syncSectionInput() {
	if f, ok := m.current().currentSection(); ok {
		m.section.SetValue(m.current().ctrl.Store().SectionSearch(f.Name))
	}
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		m.detail = nil
	}
	return m, nil
}

func (m *Model) waitForRequest() tea.Cmd {
	return func() tea.Msg {
		select {
		case req := <-m.requests:
			return requestMsg(req)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) fetchPage(req request) tea.Cmd {
	t := m.tabs[req.tab]
	return func() tea.Msg {
		page, err := services.SearchList(m.ctx, m.backend, t.entity.Name, req.params)
		return pageFetchedMsg(pageResult{tab: req.tab, token: req.token, page: page, err: err})
	}
}

func (m *Model) fetchOptions(i int) tea.Cmd {
	e := m.tabs[i].entity
	return func() tea.Msg {
		opts, err := services.FilterOptions(m.ctx, m.backend, e)
		return optionsFetchedMsg(optionsResult{tab: i, options: opts, err: err})
	}
}

func (m *Model) openDetail(entity, id string) tea.Cmd {
	k := entity + "/" + id
	m.view = DetailView
	m.detail = &detailResult{key: k}
	return func() tea.Msg {
		d, err := m.engine.Detail(m.ctx, entity, id)
		return detailFetchedMsg(detailResult{key: k, detail: d, err: err})
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case FilterView:
		return m.renderFilters()
	case DetailView:
		return m.renderDetail()
	default:
		return m.renderList()
	}
}

func (m *Model) renderTabs() string {
	names := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		label := t.entity.Name
		if n := t.ctrl.Filters().Active(t.entity.Schema); n > 0 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		if i == m.active {
			names[i] = styles.tabOn.Render(label)
		} else {
			names[i] = styles.tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, names...)
}

func (m *Model) renderStatus() string {
	t := m.current()
	status, err := t.status()
	switch {
	case status == filters.StatusFetching:
		return m.spinner.View() + " loading " + t.entity.Name
	case status == filters.StatusError:
		return styles.banner.Render(fmt.Sprintf("Failed to load %s: %v\nPress r to retry", t.entity.Name, err))
	case t.loaded && t.page.Empty() && t.ctrl.Filters().Active(t.entity.Schema) > 0:
		return styles.warn.Render("No results match these filters. Press x to clear all.")
	case t.loaded && t.page.Empty():
		return styles.warn.Render("No results.")
	}
	return styles.ok.Render(formatter.PageSummary(t.page.Pagination))
}

func (m *Model) renderList() string {
	t := m.current()

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	if _, pending := t.ctrl.PendingSearch(); pending {
		b.WriteString(styles.help.Render(" …"))
	}
	b.WriteString("\n")
	if s := t.summary(); s != "" {
		b.WriteString(styles.help.Render(s))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	if !t.page.Empty() {
		b.WriteString(m.results.View())
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.search, m.keys.filters, m.keys.order, m.keys.prevPage, m.keys.nextPage, m.keys.nextTab, m.keys.clear, m.keys.quit}
	if status, _ := t.status(); status == filters.StatusError {
		helpKeys = append([]key.Binding{m.keys.retry}, helpKeys...)
	}
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderFilters() string {
	t := m.current()

	var b strings.Builder
	b.WriteString(styles.title.Render("Filters: " + t.entity.Name))
	b.WriteString("\n")

	secs := t.sections()
	cur, ok := t.currentSection()
	if !ok {
		b.WriteString("No filters for this list.\n")
		return b.String()
	}

	st := t.ctrl.Filters()
	heads := make([]string, len(secs))
	for i, f := range secs {
		label := f.Label
		if n := len(st.Items(f.Name)); n > 0 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		if i == t.section {
			heads[i] = styles.tabOn.Render(label)
		} else {
			heads[i] = styles.tab.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, heads...))
	b.WriteString("\n\n")

	if cur.Searchable {
		b.WriteString(m.section.View())
		b.WriteString("\n")
	}

	opts := t.visible(cur)
	if len(opts) == 0 {
		b.WriteString(styles.help.Render("no options"))
		b.WriteString("\n")
	}
	for i, o := range opts {
		mark := "[ ]"
		if slices.Contains(st.Items(cur.Name), o.Value) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, o.Display())
		if i == t.option {
			line = styles.selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.left, m.keys.right, m.keys.toggle, m.keys.clear, m.keys.back}
	if cur.Searchable {
		helpKeys = append(helpKeys, m.keys.search)
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderDetail() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.detail == nil || (m.detail.detail == nil && m.detail.err == nil) {
		return fmt.Sprintf("%s loading\n\n%s", m.spinner.View(), helpView)
	}
	if m.detail.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.detail.err)) + "\n\n" + helpView
	}

	rec := m.detail.detail.Record
	var b strings.Builder
	b.WriteString(styles.title.Render(rec.Title()))
	b.WriteString("\n")
	header, row := rec.Header(), rec.Row()
	for i := range header {
		if i < len(row) && row[i] != "" {
			fmt.Fprintf(&b, "%-10s %s\n", strings.ToLower(header[i]), row[i])
		}
	}

	b.WriteString("\n")
	switch {
	case m.detail.detail.Analytics != nil:
		var sb strings.Builder
		if err := formatter.RenderAnalytics(&sb, m.detail.detail.Analytics); err == nil {
			b.WriteString(sb.String())
		}
	case m.detail.detail.AnalyticsErr != nil:
		b.WriteString(styles.warn.Render(fmt.Sprintf("Analytics unavailable: %v", m.detail.detail.AnalyticsErr)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpView)
	return b.String()
}
