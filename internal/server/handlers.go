package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/schema"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/services"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// Route patterns served by [ListHandler].
const (
	RouteList      = "GET /api/{entity}"
	RouteParams    = "GET /api/{entity}/params"
	RouteOptions   = "GET /api/{entity}/options"
	RouteRecord    = "GET /api/{entity}/{id}"
	RouteAnalytics = "GET /api/{entity}/{id}/analytics"
	RouteHealth    = "GET /health"
)

// Analyzer resolves per-record analytics.
type Analyzer interface {
	Resolve(ctx context.Context, entity, id string) (*models.AnalyticsReport, error)
}

// PageRequest is the pagination part of a list query string.
type PageRequest struct {
	Page  int `schema:"page" validate:"min=1"`
	Limit int `schema:"limit" validate:"min=1,max=100"`
}

// ListResponse is the body of a list request.
type ListResponse struct {
	Entity     string                `json:"entity"`
	Params     filters.SearchParams  `json:"params"`
	Items      []models.Record       `json:"items"`
	Pagination models.PaginationMeta `json:"pagination"`
	// Clamped is set when the requested page was past the end and the last page was served instead.
	Clamped bool `json:"clamped,omitempty"`
}

// FacetOptions lists the selectable values of one facet.
type FacetOptions struct {
	Name       string           `json:"name"`
	Label      string           `json:"label"`
	Kind       string           `json:"kind"`
	Searchable bool             `json:"searchable,omitempty"`
	Options    []filters.Option `json:"options,omitempty"`
}

// ListHandlerOpts configures a [ListHandler].
type ListHandlerOpts struct {
	Analytics Analyzer
	Logger    *log.Logger
	// Limit is the page size when the request has none.
	Limit int
}

// ListHandler serves the entity list pages, their facet options and per-record analytics.
//
// Facets are read from the query string by name ("genres=rock,jazz&order=asc");
// the translated request is what the dashboard would send for the same state.
type ListHandler struct {
	backend   services.Backend
	analytics Analyzer
	decoder   *schema.Decoder
	logger    *log.Logger
	limit     int
}

// NewListHandler creates a [ListHandler] over b.
func NewListHandler(b services.Backend, opts ListHandlerOpts) *ListHandler {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Limit < 1 {
		opts.Limit = filters.DefaultPageSize
	}
	if opts.Analytics == nil {
		opts.Analytics = services.NewAnalyticsResolver(b, services.AnalyticsOpts{Logger: opts.Logger})
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &ListHandler{
		backend:   b,
		analytics: opts.Analytics,
		decoder:   decoder,
		logger:    opts.Logger,
		limit:     opts.Limit,
	}
}

func (h *ListHandler) Routes() []string {
	return []string{RouteList, RouteParams, RouteOptions, RouteRecord, RouteAnalytics}
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entity, err := filters.Lookup(r.PathValue("entity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch r.Pattern {
	case RouteList:
		h.list(w, r, entity)
	case RouteParams:
		h.params(w, r, entity)
	case RouteOptions:
		h.options(w, r, entity)
	case RouteRecord:
		h.record(w, r, entity)
	case RouteAnalytics:
		h.report(w, r, entity)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

// request decodes the facet state and page of r into search params.
func (h *ListHandler) request(r *http.Request, entity filters.Entity) (filters.SearchParams, error) {
	query := r.URL.Query()
	req := PageRequest{Page: 1, Limit: h.limit}
	if err := h.decoder.Decode(&req, query); err != nil {
		return filters.SearchParams{}, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	if err := shared.ValidateStruct(req); err != nil {
		return filters.SearchParams{}, err
	}

	st := filters.FromValues(entity.Schema, query)
	return entity.Params(st, req.Page, req.Limit), nil
}

func (h *ListHandler) list(w http.ResponseWriter, r *http.Request, entity filters.Entity) {
	params, err := h.request(r, entity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := services.SearchList(r.Context(), h.backend, entity.Name, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := ListResponse{Entity: entity.Name, Params: params}
	if clamped := filters.ClampPage(params.Page, page.Pagination.TotalPages); clamped != params.Page {
		h.logger.Debug("page out of range, refetching", "entity", entity.Name, "page", params.Page, "clamped", clamped)
		params = params.WithPage(clamped)
		page, err = services.SearchList(r.Context(), h.backend, entity.Name, params)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Params = params
		resp.Clamped = true
	}

	resp.Items = page.Items
	if resp.Items == nil {
		resp.Items = []models.Record{}
	}
	resp.Pagination = page.Pagination
	writeJSON(w, http.StatusOK, resp)
}

func (h *ListHandler) params(w http.ResponseWriter, r *http.Request, entity filters.Entity) {
	params, err := h.request(r, entity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (h *ListHandler) options(w http.ResponseWriter, r *http.Request, entity filters.Entity) {
	dynamic, err := services.FilterOptions(r.Context(), h.backend, entity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]FacetOptions, 0, len(entity.Schema.Facets))
	for _, f := range entity.Schema.Facets {
		fo := FacetOptions{Name: f.Name, Label: f.Label, Kind: f.Kind.String(), Searchable: f.Searchable}
		switch f.Kind {
		case filters.KindMultiSelect:
			fo.Options = f.MergeOptions(dynamic.Values(f.Name))
		case filters.KindOrder:
			fo.Options = []filters.Option{{Value: string(filters.Asc)}, {Value: string(filters.Desc)}}
		}
		out = append(out, fo)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ListHandler) record(w http.ResponseWriter, r *http.Request, entity filters.Entity) {
	rec, err := services.Get(r.Context(), h.backend, entity.Name, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ListHandler) report(w http.ResponseWriter, r *http.Request, entity filters.Entity) {
	report, err := h.analytics.Resolve(r.Context(), entity.Name, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ListHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err, "request_id", RequestID(r.Context()))
	}
	writeError(w, r, status, err.Error())
}

// HealthHandler reports liveness and the backend in use.
type HealthHandler struct {
	Backend string
	Started time.Time
	Now     func() time.Time
}

func (h *HealthHandler) Routes() []string { return []string{RouteHealth} }

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	body := map[string]any{"status": "ok", "backend": h.Backend}
	if !h.Started.IsZero() {
		body["uptime"] = now().Sub(h.Started).Round(time.Second).String()
	}
	writeJSON(w, http.StatusOK, body)
}

// StatusFor maps an error to the response status.
func StatusFor(err error) int {
	var apiErr *services.APIError
	switch {
	case errors.Is(err, shared.ErrUnknownEntity), errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}

// NewRouter builds the API router with the standard middleware stack.
func NewRouter(b services.Backend, opts ListHandlerOpts) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	r := NewBasicRouter()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(logger), RecoverMiddleware(logger))
	r.Handler(&HealthHandler{Backend: b.Name(), Started: time.Now()})
	r.Handler(NewListHandler(b, opts))
	return r
}
