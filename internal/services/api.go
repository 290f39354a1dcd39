package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the local development gateway.
const DefaultBaseURL = "http://127.0.0.1:54321"

// APIService makes raw HTTP requests to the backend's REST gateway and edge functions.
//
// Requests carry the project key in the apikey header and as a bearer token,
// and wait on an optional rate limiter.
type APIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithAPIKey sends key as the apikey header and as an OAuth2 bearer token.
func WithAPIKey(key string) APIOption {
	return func(a *APIService) { a.apiKey = key }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) APIOption {
	return func(a *APIService) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) APIOption {
	return func(a *APIService) { a.logger = l }
}

// NewAPIService creates a new API service instance for the backend gateway.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.apiKey != "" {
		a.httpClient = bearerClient(client, a.apiKey)
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	return a
}

// bearerClient wraps client's transport with a static OAuth2 bearer token.
func bearerClient(client *http.Client, key string) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"})
	wrapped := oauth2.NewClient(ctx, src)
	wrapped.Timeout = client.Timeout
	return wrapped
}

// BaseURL returns the gateway root.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	Endpoint   string
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an [APIError] for non-2xx responses.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}
	return newAPIError(r.Endpoint, r.StatusCode, r.Body)
}

// Decode unmarshals the body into v after checking the status.
func (r *APIResponse) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.Endpoint, err)
	}
	return nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// RPC calls a database function through the REST gateway.
func (a *APIService) RPC(ctx context.Context, fn string, args any) (*APIResponse, error) {
	body, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	return a.Post(ctx, "/rest/v1/rpc/"+url.PathEscape(fn), body)
}

// Function invokes an edge function.
func (a *APIService) Function(ctx context.Context, name string, args any) (*APIResponse, error) {
	body, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	return a.Post(ctx, "/functions/v1/"+url.PathEscape(name), body)
}

// Select reads rows from a table or view with gateway query operators (e.g. id=eq.42).
func (a *APIService) Select(ctx context.Context, table string, query url.Values) (*APIResponse, error) {
	path := "/rest/v1/" + url.PathEscape(table)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return a.Get(ctx, path)
}

// Do performs a request with an optional JSON body.
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody))

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		Endpoint:   path,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func encodeArgs(args any) ([]byte, error) {
	if args == nil {
		return []byte("{}"), nil
	}
	if raw, ok := args.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}
	return data, nil
}
