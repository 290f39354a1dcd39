package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ticketscope/internal/shared"

	tu "github.com/desertthunder/ticketscope/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", DefaultBaseURL, srv.baseURL)
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			srv := NewAPIService("http://example.com/", nil)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.BaseURL())
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		var gotMethod, gotPath, gotType string
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod, gotPath, gotType = r.Method, r.URL.RequestURI(), r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)

			w.Header().Set("Content-Range", "0-0/1")
			switch r.URL.Path {
			case "/rest/v1/events":
				w.Write([]byte(`[{"id": "e1", "name": "Night Show"}]`))
			default:
				w.Write([]byte("accepted"))
			}
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)

		tests := []struct {
			name     string
			method   string
			path     string
			data     []byte
			wantJSON bool
			wantType string
		}{
			{"get row", http.MethodGet, "/rest/v1/events?id=eq.e1", nil, true, ""},
			{"get plain text", http.MethodGet, "/health", nil, false, ""},
			{"post args", http.MethodPost, "/rest/v1/rpc/search_events", []byte(`{"page":1}`), false, "application/json"},
			{"post empty body", http.MethodPost, "/functions/v1/event-analytics", []byte{}, false, "application/json"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, err := srv.Do(context.Background(), tt.method, tt.path, tt.data)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				if gotMethod != tt.method || gotPath != tt.path {
					t.Errorf("expected %s %s, got %s %s", tt.method, tt.path, gotMethod, gotPath)
				}
				if gotType != tt.wantType {
					t.Errorf("expected content type %q, got %q", tt.wantType, gotType)
				}
				if string(gotBody) != string(tt.data) {
					t.Errorf("expected body %q, got %q", tt.data, gotBody)
				}
				if resp.IsJSON != tt.wantJSON {
					t.Errorf("expected IsJSON=%v, got %v", tt.wantJSON, resp.IsJSON)
				}
				if !tt.wantJSON && resp.JSONData != nil {
					t.Error("expected JSONData to be nil for a non-JSON body")
				}
				if resp.Endpoint != tt.path {
					t.Errorf("expected endpoint %s, got %s", tt.path, resp.Endpoint)
				}
				if resp.Headers.Get("Content-Range") != "0-0/1" {
					t.Errorf("expected response headers to be kept, got %v", resp.Headers)
				}
			})
		}
	})

	t.Run("Do Failures", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		tests := []struct {
			name    string
			ctx     context.Context
			client  *http.Client
			path    string
			wantErr string
		}{
			{
				name:    "invalid path",
				ctx:     context.Background(),
				path:    "/rest/v1/rpc/search\x00events",
				wantErr: "failed to create request",
			},
			{
				name:    "transport error",
				ctx:     context.Background(),
				client:  &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
				path:    "/rest/v1/rpc/search_events",
				wantErr: "request failed",
			},
			{
				name: "unreadable body",
				ctx:  context.Background(),
				client: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil)},
				path:    "/rest/v1/rpc/search_events",
				wantErr: "failed to read response",
			},
			{
				name:    "canceled context",
				ctx:     canceled,
				client:  &http.Client{Transport: tu.NewMockRoundTripper(nil, context.Canceled)},
				path:    "/rest/v1/rpc/search_events",
				wantErr: "request failed",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := NewAPIService("http://gateway.test", tt.client)
				_, err := srv.Post(tt.ctx, tt.path, []byte(`{}`))
				if err == nil {
					t.Fatal("expected an error")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected %q error, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("RPC", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/v1/rpc/search_events" {
				t.Errorf("expected rpc path, got %s", r.URL.Path)
			}

			var args map[string]any
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				t.Errorf("failed to decode args: %v", err)
			}
			if args["page"] != float64(2) {
				t.Errorf("expected page 2, got %v", args["page"])
			}

			w.Write([]byte(`{"events": []}`))
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		resp, err := srv.RPC(context.Background(), "search_events", map[string]int{"page": 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected OK response, got %d", resp.StatusCode)
		}
	})

	t.Run("Function", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/functions/v1/promoter-analytics" {
				t.Errorf("expected function path, got %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != "{}" {
				t.Errorf("expected empty object for nil args, got %s", body)
			}
			w.Write([]byte(`{"total_events": 3}`))
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		resp, err := srv.Function(context.Background(), "promoter-analytics", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out map[string]int
		if err := resp.Decode(&out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if out["total_events"] != 3 {
			t.Errorf("expected 3, got %d", out["total_events"])
		}
	})

	t.Run("Select", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			if r.URL.Path != "/rest/v1/venues" {
				t.Errorf("expected table path, got %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("id"); got != "eq.7" {
				t.Errorf("expected id=eq.7, got %s", got)
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		if _, err := srv.Select(context.Background(), "venues", map[string][]string{"id": {"eq.7"}}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("API Key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("apikey"); got != "secret" {
				t.Errorf("expected apikey header, got %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("expected bearer token, got %q", got)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil, WithAPIKey("secret"))
		if _, err := srv.Get(context.Background(), "/rest/v1/events"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Rate Limit Honors Context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil, WithRateLimit(0.001))
		if _, err := srv.Get(context.Background(), "/first"); err != nil {
			t.Fatalf("first request should use the burst: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := srv.Get(ctx, "/second"); err == nil {
			t.Error("expected limiter wait to fail once the context expires")
		}
	})

	t.Run("APIResponse", func(t *testing.T) {
		t.Run("Err On Non-2xx", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message": "invalid input syntax", "hint": "check page"}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/rest/v1/rpc/search_events")
			if err != nil {
				t.Fatalf("transport should succeed, got %v", err)
			}

			err = resp.Err()
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatal("expected an APIError")
			}
			if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "invalid input syntax (check page)" {
				t.Errorf("unexpected APIError %+v", apiErr)
			}
			if apiErr.Endpoint != "/rest/v1/rpc/search_events" {
				t.Errorf("unexpected endpoint %s", apiErr.Endpoint)
			}
		})

		t.Run("JSON Detection", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"valid": "json"}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.IsJSON {
				t.Error("expected valid JSON to be detected")
			}

			jsonMap, ok := resp.JSONData.(map[string]any)
			if !ok {
				t.Error("expected JSONData to be map[string]interface{}")
			}
			if jsonMap["valid"] != "json" {
				t.Errorf("expected JSONData['valid'] to be 'json', got %v", jsonMap["valid"])
			}
		})

		t.Run("Invalid JSON Detection", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected invalid JSON to not be detected as JSON")
			}
			if resp.JSONData != nil {
				t.Error("expected JSONData to be nil for invalid JSON")
			}
		})
	})
}
