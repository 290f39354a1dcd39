package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// DefaultStaleTime is how long a cached response is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// FetchFunc loads a fresh response.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Result is a fetched or cached response.
type Result struct {
	Data      json.RawMessage
	FromCache bool
	FetchedAt time.Time
}

// Options configures a [Client]. Zero values fall back to defaults.
type Options struct {
	Store     Store
	StaleTime time.Duration
	Retry     *RetryPolicy
	Logger    *log.Logger
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Client serves cached responses and collapses concurrent identical fetches.
type Client struct {
	store  Store
	stale  time.Duration
	retry  RetryPolicy
	logger *log.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	group  singleflight.Group
}

func NewClient(opts Options) *Client {
	c := &Client{
		store:  opts.Store,
		stale:  opts.StaleTime,
		retry:  DefaultRetryPolicy(),
		logger: opts.Logger,
		now:    opts.Now,
		sleep:  opts.Sleep,
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.stale <= 0 {
		c.stale = DefaultStaleTime
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleep
	}
	return c
}

// Store returns the backing store.
func (c *Client) Store() Store { return c.store }

// StaleTime returns how long entries stay fresh.
func (c *Client) StaleTime() time.Duration { return c.stale }

// Fetch returns the cached response for key when it is fresh, and otherwise
// calls fn (retrying per the client's policy) and caches the result.
func (c *Client) Fetch(ctx context.Context, key string, fn FetchFunc) (Result, error) {
	return c.fetch(ctx, key, c.retry, false, fn)
}

// FetchOnce is [Client.Fetch] without retries.
func (c *Client) FetchOnce(ctx context.Context, key string, fn FetchFunc) (Result, error) {
	return c.fetch(ctx, key, NoRetry, false, fn)
}

// Refetch ignores any cached entry for key.
func (c *Client) Refetch(ctx context.Context, key string, fn FetchFunc) (Result, error) {
	return c.fetch(ctx, key, c.retry, true, fn)
}

// Invalidate drops every entry whose key starts with prefix.
func (c *Client) Invalidate(ctx context.Context, prefix string) (int64, error) {
	n, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("invalidated cache entries", "prefix", prefix, "count", n)
	return n, nil
}

func (c *Client) fetch(ctx context.Context, key string, policy RetryPolicy, force bool, fn FetchFunc) (Result, error) {
	if !force {
		if res, ok := c.cached(ctx, key); ok {
			return res, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		data, err := c.load(ctx, key, policy, fn)
		if err != nil {
			return nil, err
		}
		res := Result{Data: data, FetchedAt: c.now()}
		entry := Entry{Key: key, Name: nameOf(key), Payload: data, FetchedAt: res.FetchedAt}
		if err := c.store.Set(ctx, entry); err != nil {
			c.logger.Warn("failed to cache response", "key", key, "err", err)
		}
		return res, nil
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			return Result{}, out.Err
		}
		return out.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Client) cached(ctx context.Context, key string) (Result, bool) {
	e, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, shared.ErrCacheMiss) {
			c.logger.Warn("cache read failed", "key", key, "err", err)
		}
		return Result{}, false
	}
	if e.Age(c.now()) >= c.stale {
		return Result{}, false
	}
	return Result{Data: e.Payload, FromCache: true, FetchedAt: e.FetchedAt}, true
}

func (c *Client) load(ctx context.Context, key string, policy RetryPolicy, fn FetchFunc) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		data, err := fn(ctx)
		if err == nil {
			return data, nil
		}
		if attempt >= policy.MaxRetries || !policy.Retryable(err) {
			return nil, err
		}

		wait := policy.Backoff(attempt)
		c.logger.Warn("fetch failed, retrying", "key", key, "attempt", attempt+1, "wait", wait, "err", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Fetch is [Client.Fetch] for a typed value. The value is cached as JSON, so T
// must round-trip through encoding/json.
func Fetch[T any](ctx context.Context, c *Client, key string, fn func(ctx context.Context) (T, error)) (T, Result, error) {
	var out T
	res, err := c.Fetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, res, err
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return out, res, fmt.Errorf("%w: decoding %s: %w", shared.ErrCacheMiss, key, err)
	}
	return out, res, nil
}
