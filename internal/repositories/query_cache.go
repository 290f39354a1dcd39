package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ticketscope/internal/query"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// QueryCacheRepository implements [query.Store] on the query_cache table.
type QueryCacheRepository struct {
	db *sql.DB
}

// NewQueryCacheRepository creates a new [QueryCacheRepository] with the given database connection
func NewQueryCacheRepository(db *sql.DB) *QueryCacheRepository {
	return &QueryCacheRepository{db: db}
}

// Get returns the entry for key and counts the hit.
func (r *QueryCacheRepository) Get(ctx context.Context, key string) (query.Entry, error) {
	q := `SELECT key, name, payload, fetched_at, hits FROM query_cache WHERE key = ?`

	var e query.Entry
	err := r.db.QueryRowContext(ctx, q, key).Scan(&e.Key, &e.Name, &e.Payload, &e.FetchedAt, &e.Hits)
	if errors.Is(err, sql.ErrNoRows) {
		return query.Entry{}, fmt.Errorf("%w: %s", shared.ErrCacheMiss, key)
	}
	if err != nil {
		return query.Entry{}, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE query_cache SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return query.Entry{}, fmt.Errorf("failed to count cache hit: %w", err)
	}
	e.Hits++
	return e, nil
}

// Set inserts or replaces the entry for e.Key. The hit counter survives replacement.
func (r *QueryCacheRepository) Set(ctx context.Context, e query.Entry) error {
	q := `
		INSERT INTO query_cache (key, name, payload, fetched_at, hits) VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET name = excluded.name, payload = excluded.payload, fetched_at = excluded.fetched_at
	`

	if _, err := r.db.ExecContext(ctx, q, e.Key, e.Name, e.Payload, e.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Unknown keys are not an error.
func (r *QueryCacheRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM query_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (r *QueryCacheRepository) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM query_cache WHERE substr(key, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return affected(result, nil)
}

// Purge removes entries fetched before cutoff.
func (r *QueryCacheRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM query_cache WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return affected(result, nil)
}

// CacheStats summarizes the cache table.
type CacheStats struct {
	Entries int            `json:"entries"`
	Hits    int            `json:"hits"`
	Bytes   int64          `json:"bytes"`
	Oldest  *time.Time     `json:"oldest,omitempty"`
	Newest  *time.Time     `json:"newest,omitempty"`
	ByName  map[string]int `json:"by_name"`
}

// Stats counts entries, hits and payload bytes, overall and per query name.
func (r *QueryCacheRepository) Stats(ctx context.Context) (CacheStats, error) {
	stats := CacheStats{ByName: map[string]int{}}

	q := `SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(length(payload)), 0) FROM query_cache`
	if err := r.db.QueryRowContext(ctx, q).Scan(&stats.Entries, &stats.Hits, &stats.Bytes); err != nil {
		return stats, fmt.Errorf("failed to count cache entries: %w", err)
	}
	if stats.Entries == 0 {
		return stats, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name, COUNT(*) FROM query_cache GROUP BY name`)
	if err != nil {
		return stats, fmt.Errorf("failed to group cache entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return stats, fmt.Errorf("failed to scan cache group: %w", err)
		}
		stats.ByName[name] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	oldest, err := r.edge(ctx, "ASC")
	if err != nil {
		return stats, err
	}
	newest, err := r.edge(ctx, "DESC")
	if err != nil {
		return stats, err
	}
	stats.Oldest, stats.Newest = &oldest, &newest
	return stats, nil
}

// edge returns the first fetched_at in the given order. Selecting the column
// directly keeps its TIMESTAMP type, which MIN/MAX would drop.
func (r *QueryCacheRepository) edge(ctx context.Context, order string) (time.Time, error) {
	var t time.Time
	q := "SELECT fetched_at FROM query_cache ORDER BY fetched_at " + order + " LIMIT 1"
	if err := r.db.QueryRowContext(ctx, q).Scan(&t); err != nil {
		return t, fmt.Errorf("failed to read cache timestamps: %w", err)
	}
	return t, nil
}
