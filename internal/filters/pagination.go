package filters

import (
	"sync"

	"github.com/desertthunder/ticketscope/internal/models"
)

// Coordinator keeps the requested page inside the bounds reported by the backend.
type Coordinator struct {
	mu   sync.Mutex
	meta models.PaginationMeta
}

// NewCoordinator creates a [Coordinator] with no known page count.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Update records the pagination metadata of the latest response.
func (c *Coordinator) Update(meta models.PaginationMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = meta
}

// Meta returns the last recorded metadata.
func (c *Coordinator) Meta() models.PaginationMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// TotalPages returns the last known page count, 0 when unknown.
func (c *Coordinator) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta.TotalPages
}

// Clamp bounds page to [1, totalPages]. An unknown or zero page count clamps to 1.
func (c *Coordinator) Clamp(page int) int {
	return ClampPage(page, c.TotalPages())
}

// HasPrev reports whether a page before page exists.
func (c *Coordinator) HasPrev(page int) bool {
	return page > 1
}

// HasNext reports whether a page after page exists.
func (c *Coordinator) HasNext(page int) bool {
	return page < c.TotalPages()
}

// ClampPage bounds page to [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Status is the fetch lifecycle state of a list page.
type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Tracker follows the fetch lifecycle with last-request-wins semantics.
//
// Each [Tracker.Begin] issues a new token; only the completion carrying the
// most recent token changes the status.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	active uint64
	status Status
	err    error
}

// Begin marks a new fetch in flight and returns its token.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.active = t.seq
	t.status = StatusFetching
	t.err = nil
	return t.active
}

// Finish completes the fetch identified by token. It reports false, and changes
// nothing, when a newer fetch has superseded it.
func (t *Tracker) Finish(token uint64, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token != t.active || t.status != StatusFetching {
		return false
	}
	if err != nil {
		t.status = StatusError
		t.err = err
	} else {
		t.status = StatusIdle
		t.err = nil
	}
	return true
}

// Status returns the current state and the error of a failed fetch.
func (t *Tracker) Status() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.err
}

// Current reports whether token belongs to the latest fetch.
func (t *Tracker) Current(token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return token == t.active
}
