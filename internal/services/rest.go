package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// RESTBackend implements [Backend] over the REST gateway and edge functions.
type RESTBackend struct {
	api *APIService
}

// NewRESTBackend creates a [RESTBackend] on top of api.
func NewRESTBackend(api *APIService) *RESTBackend {
	return &RESTBackend{api: api}
}

// API returns the underlying transport.
func (r *RESTBackend) API() *APIService {
	return r.api
}

func (r *RESTBackend) Name() string { return "rest" }

// Call posts args to /rest/v1/rpc/<fn>.
func (r *RESTBackend) Call(ctx context.Context, fn string, args any) (json.RawMessage, error) {
	resp, err := r.api.RPC(ctx, fn, args)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// Row selects table?column=eq.value and returns the first row.
func (r *RESTBackend) Row(ctx context.Context, table, column, value string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set(column, "eq."+value)
	query.Set("select", "*")
	query.Set("limit", "1")

	resp, err := r.api.Select(ctx, table, query)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := resp.Decode(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s=%s", shared.ErrNotFound, table, column, value)
	}
	return rows[0], nil
}

// Function posts args to /functions/v1/<name>.
func (r *RESTBackend) Function(ctx context.Context, name string, args any) (json.RawMessage, error) {
	resp, err := r.api.Function(ctx, name, args)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}
