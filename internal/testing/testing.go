// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// Call records one backend invocation.
type Call struct {
	Kind string // "call", "row" or "function"
	Name string
	Args []byte
}

// MockBackend is a test double for [services.Backend].
//
// Responses are looked up by function or table name; a missing entry returns Err,
// or an empty JSON object when Err is nil.
type MockBackend struct {
	mu        sync.Mutex
	Calls     []Call
	Responses map[string]json.RawMessage
	Errors    map[string]error
	Err       error
	Delay     time.Duration
}

// NewMockBackend creates a [MockBackend] with no canned responses.
func NewMockBackend() *MockBackend {
	return &MockBackend{Responses: map[string]json.RawMessage{}, Errors: map[string]error{}}
}

// Respond registers a response for name.
func (m *MockBackend) Respond(name string, body any) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := body.(type) {
	case string:
		m.Responses[name] = json.RawMessage(v)
	case []byte:
		m.Responses[name] = json.RawMessage(v)
	default:
		data, _ := json.Marshal(v)
		m.Responses[name] = data
	}
	return m
}

// Fail registers an error for name.
func (m *MockBackend) Fail(name string, err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[name] = err
	return m
}

func (m *MockBackend) Call(ctx context.Context, fn string, args any) (json.RawMessage, error) {
	return m.respond(ctx, "call", fn, args)
}

func (m *MockBackend) Row(ctx context.Context, table, column, value string) (json.RawMessage, error) {
	return m.respond(ctx, "row", table, map[string]string{column: value})
}

func (m *MockBackend) Function(ctx context.Context, name string, args any) (json.RawMessage, error) {
	return m.respond(ctx, "function", name, args)
}

func (m *MockBackend) Name() string { return "mock" }

// CallCount returns how many times name was invoked.
func (m *MockBackend) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// LastArgs returns the JSON arguments of the latest invocation of name.
func (m *MockBackend) LastArgs(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Name == name {
			return m.Calls[i].Args
		}
	}
	return nil
}

func (m *MockBackend) respond(ctx context.Context, kind, name string, args any) (json.RawMessage, error) {
	data, _ := json.Marshal(args)

	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Kind: kind, Name: name, Args: data})
	delay := m.Delay
	resp, ok := m.Responses[name]
	err := m.Errors[name]
	fallback := m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if ok {
		return resp, nil
	}
	if fallback != nil {
		return nil, fallback
	}
	return json.RawMessage("{}"), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
