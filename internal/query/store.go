package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// Entry is one cached response.
type Entry struct {
	Key       string
	Name      string
	Payload   []byte
	FetchedAt time.Time
	Hits      int
}

// Age returns how old e is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Store persists cache entries. Get returns [shared.ErrCacheMiss] for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// MemoryStore is a [Store] held in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	e.Hits++
	m.entries[key] = e
	e.Payload = append([]byte(nil), e.Payload...)
	return e, nil
}

func (m *MemoryStore) Set(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Payload = append([]byte(nil), e.Payload...)
	m.entries[e.Key] = e
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
