package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgRequest MsgKind = iota
	MsgPageFetched
	MsgOptionsFetched
	MsgDetailFetched
)

// request is a translated search dispatched by a tab's controller.
type request struct {
	tab    int
	token  uint64
	params filters.SearchParams
}

type pageResult struct {
	tab   int
	token uint64
	page  models.ListPage
	err   error
}

type optionsResult struct {
	tab     int
	options models.FilterOptions
	err     error
}

type detailResult struct {
	key    string
	detail *tasks.Detail
	err    error
}

// requestMsg is the constructor for [MsgRequest]
func requestMsg(r request) Msg {
	return Msg{kind: MsgRequest, data: r}
}

// pageFetchedMsg is the constructor for [MsgPageFetched]
func pageFetchedMsg(r pageResult) Msg {
	return Msg{kind: MsgPageFetched, data: r}
}

// optionsFetchedMsg is the constructor for [MsgOptionsFetched]
func optionsFetchedMsg(r optionsResult) Msg {
	return Msg{kind: MsgOptionsFetched, data: r}
}

// detailFetchedMsg is the constructor for [MsgDetailFetched]
func detailFetchedMsg(r detailResult) Msg {
	return Msg{kind: MsgDetailFetched, data: r}
}
