package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	left     key.Binding
	right    key.Binding
	enter    key.Binding
	back     key.Binding
	nextTab  key.Binding
	prevTab  key.Binding
	search   key.Binding
	filters  key.Binding
	toggle   key.Binding
	order    key.Binding
	prevPage key.Binding
	nextPage key.Binding
	clear    key.Binding
	retry    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev section")),
		right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next section")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		nextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next list")),
		prevTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev list")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		filters:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filters")),
		toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
		order:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		prevPage: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		nextPage: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.search, k.filters, k.prevPage, k.nextPage, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.nextTab, k.prevTab, k.search, k.filters},
		{k.toggle, k.order, k.prevPage, k.nextPage},
		{k.clear, k.retry, k.quit},
	}
}
