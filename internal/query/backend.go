package query

import (
	"context"
	"encoding/json"

	"github.com/desertthunder/ticketscope/internal/services"
)

// Backend routes a [services.Backend] through a [Client].
//
// Searches and row reads are retried; analytics functions are not, since the
// analytics resolver has its own fallback.
type Backend struct {
	next   services.Backend
	client *Client
}

// Wrap returns next with caching.
func (c *Client) Wrap(next services.Backend) *Backend {
	return &Backend{next: next, client: c}
}

// Client returns the wrapping client.
func (b *Backend) Client() *Client { return b.client }

// Unwrap returns the uncached backend.
func (b *Backend) Unwrap() services.Backend { return b.next }

func (b *Backend) Name() string { return b.next.Name() }

func (b *Backend) Call(ctx context.Context, fn string, args any) (json.RawMessage, error) {
	res, err := b.client.Fetch(ctx, Key(fn, args), func(ctx context.Context) (json.RawMessage, error) {
		return b.next.Call(ctx, fn, args)
	})
	return res.Data, err
}

func (b *Backend) Row(ctx context.Context, table, column, value string) (json.RawMessage, error) {
	key := Key(table, map[string]string{column: value})
	res, err := b.client.Fetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return b.next.Row(ctx, table, column, value)
	})
	return res.Data, err
}

func (b *Backend) Function(ctx context.Context, name string, args any) (json.RawMessage, error) {
	res, err := b.client.FetchOnce(ctx, Key(name, args), func(ctx context.Context) (json.RawMessage, error) {
		return b.next.Function(ctx, name, args)
	})
	return res.Data, err
}
