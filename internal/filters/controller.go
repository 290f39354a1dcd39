package filters

import (
	"sync"
	"time"

	"github.com/desertthunder/ticketscope/internal/models"
)

// Dispatch receives each translated request. It runs while the controller is
// locked and must not call back into the controller; hand the params off
// (channel, goroutine, tea.Cmd) instead.
type Dispatch func(SearchParams)

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Debounce time.Duration
	Limit    int
	Dispatch Dispatch
}

// Controller runs one list page: it owns the facet [Store], debounces the
// search box, keeps the page in bounds and hands every resulting request to
// Dispatch.
//
// Facet changes are translated and dispatched synchronously with page 1 in a
// single critical section. Search text only reaches the store when the
// debounce timer fires.
type Controller struct {
	entity   Entity
	store    *Store
	coord    *Coordinator
	debounce *Debouncer
	limit    int
	dispatch Dispatch

	mu      sync.Mutex
	last    SearchParams
	sent    bool
	pending string
	closed  bool
}

// NewController creates a [Controller] for entity. Nothing is dispatched until
// the first mutation or [Controller.Refresh].
func NewController(entity Entity, opts ControllerOpts) *Controller {
	limit := opts.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = func(SearchParams) {}
	}
	return &Controller{
		entity:   entity,
		store:    NewStore(entity.Schema),
		coord:    NewCoordinator(),
		debounce: NewDebouncer(opts.Debounce),
		limit:    limit,
		dispatch: dispatch,
	}
}

// Entity returns the entity the controller serves.
func (c *Controller) Entity() Entity { return c.entity }

// Store returns the underlying facet store.
func (c *Controller) Store() *Store { return c.store }

// Coordinator returns the pagination coordinator.
func (c *Controller) Coordinator() *Coordinator { return c.coord }

// Filters returns a copy of the current facet values.
func (c *Controller) Filters() State { return c.store.Filters() }

// Params returns the request for the current state.
func (c *Controller) Params() SearchParams {
	snap := c.store.Snapshot()
	return c.entity.Params(snap.Filters, snap.Page, c.limit)
}

// PendingSearch returns the search text typed but not yet applied.
func (c *Controller) PendingSearch() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.debounce.Pending()
}

// SetFilters replaces every facet value and dispatches page 1.
func (c *Controller) SetFilters(next State) {
	c.apply(func() Snapshot { return c.store.SetFilters(next) })
}

// Toggle flips value in a multi-select facet and dispatches page 1.
func (c *Controller) Toggle(facet, value string) {
	c.apply(func() Snapshot { return c.store.ToggleArrayFilter(facet, value) })
}

// SetOrder sets an order facet and dispatches page 1.
func (c *Controller) SetOrder(facet string, o Order) {
	c.apply(func() Snapshot { return c.store.SetOrder(facet, o) })
}

// ToggleOrder flips the schema's order facet.
func (c *Controller) ToggleOrder() {
	f, ok := c.entity.Schema.OrderFacet()
	if !ok {
		return
	}
	c.apply(func() Snapshot {
		cur := c.store.Filters().Order(f.Name)
		return c.store.SetOrder(f.Name, cur.Toggle())
	})
}

// SetSearch schedules text to become the search facet once typing pauses.
// Each call replaces the previously scheduled text.
func (c *Controller) SetSearch(text string) {
	facet := c.entity.Schema.SearchFacet()
	if facet == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = text
	c.mu.Unlock()

	c.debounce.Call(func() {
		c.apply(func() Snapshot { return c.store.SetText(facet, text) })
	})
}

// FlushSearch applies pending search text immediately.
func (c *Controller) FlushSearch() bool {
	return c.debounce.Flush()
}

// ClearAll drops pending search text, resets every facet and dispatches page 1.
func (c *Controller) ClearAll() {
	c.debounce.Cancel()

	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()

	c.apply(c.store.ClearAll)
}

// GoToPage moves to page, clamped to the known page count, and dispatches it.
func (c *Controller) GoToPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	snap := c.store.SetPage(c.coord.Clamp(page))
	c.send(snap, true)
}

// NextPage advances one page when possible.
func (c *Controller) NextPage() {
	c.GoToPage(c.store.Page() + 1)
}

// PrevPage goes back one page when possible.
func (c *Controller) PrevPage() {
	c.GoToPage(c.store.Page() - 1)
}

// UpdatePagination records the metadata of a response. When the current page
// is past the new page count, the store is pulled back into range and the
// corrected page is dispatched.
func (c *Controller) UpdatePagination(meta models.PaginationMeta) {
	c.coord.Update(meta)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	page := c.store.Page()
	if clamped := c.coord.Clamp(page); clamped != page {
		c.send(c.store.SetPage(clamped), false)
	}
}

// Refresh dispatches the current request again, even if unchanged.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.send(c.store.Snapshot(), true)
}

// Close cancels pending search text. No dispatch happens afterwards.
func (c *Controller) Close() {
	c.debounce.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = ""
}

// apply mutates the store and dispatches the result under one lock, so
// mutation, page reset, translation and dispatch happen in order.
func (c *Controller) apply(mutate func() Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.send(mutate(), false)
}

// send translates snap and dispatches it. Unless force is set, a request equal
// to the last dispatched one is skipped. Callers hold mu.
func (c *Controller) send(snap Snapshot, force bool) {
	params := c.entity.Params(snap.Filters, snap.Page, c.limit)
	if !force && c.sent && params.CacheKey() == c.last.CacheKey() {
		return
	}
	c.last = params
	c.sent = true
	c.dispatch(params)
}
