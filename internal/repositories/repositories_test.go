package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/query"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

func entry(key string, at time.Time, payload string) query.Entry {
	name, _, _ := strings.Cut(key, ":")
	return query.Entry{Key: key, Name: name, Payload: []byte(payload), FetchedAt: at}
}

func TestQueryCacheRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		if err := repo.Set(ctx, entry("search_events:{}", base, `{"events":[]}`)); err != nil {
			t.Fatalf("failed to set entry: %v", err)
		}

		got, err := repo.Get(ctx, "search_events:{}")
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.Name != "search_events" || string(got.Payload) != `{"events":[]}` {
			t.Errorf("unexpected entry %+v", got)
		}
		if !got.FetchedAt.Equal(base) {
			t.Errorf("expected fetched_at %v, got %v", base, got.FetchedAt)
		}
		if got.Hits != 1 {
			t.Errorf("expected 1 hit, got %d", got.Hits)
		}

		again, _ := repo.Get(ctx, "search_events:{}")
		if again.Hits != 2 {
			t.Errorf("expected 2 hits, got %d", again.Hits)
		}
	})

	t.Run("Set replaces payload", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		repo.Set(ctx, entry("k:{}", base, `1`))
		repo.Get(ctx, "k:{}")
		repo.Set(ctx, entry("k:{}", base.Add(time.Minute), `2`))

		got, err := repo.Get(ctx, "k:{}")
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if string(got.Payload) != "2" || !got.FetchedAt.Equal(base.Add(time.Minute)) {
			t.Errorf("expected replaced entry, got %+v", got)
		}
		if got.Hits != 2 {
			t.Errorf("expected hits to survive replacement, got %d", got.Hits)
		}
	})

	t.Run("Get miss", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		if _, err := repo.Get(ctx, "missing:{}"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("Delete and DeletePrefix", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		for _, k := range []string{"search_events:{}", `search_events:{"page":2}`, "search_venues:{}", "events:{\"id\":\"e1\"}"} {
			repo.Set(ctx, entry(k, base, `{}`))
		}

		if err := repo.Delete(ctx, "search_venues:{}"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(ctx, "search_venues:{}"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}

		n, err := repo.DeletePrefix(ctx, "search_events:")
		if err != nil {
			t.Fatalf("failed to delete prefix: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}

		stats, _ := repo.Stats(ctx)
		if stats.Entries != 1 || stats.ByName["events"] != 1 {
			t.Errorf("unexpected remaining entries %+v", stats)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		repo.Set(ctx, entry("a:{}", base.Add(-2*time.Hour), `{}`))
		repo.Set(ctx, entry("b:{}", base.Add(-10*time.Minute), `{}`))
		repo.Set(ctx, entry("c:{}", base, `{}`))

		n, err := repo.Purge(ctx, base.Add(-time.Hour))
		if err != nil {
			t.Fatalf("failed to purge: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 purged, got %d", n)
		}
		if _, err := repo.Get(ctx, "a:{}"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected a to be purged, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))

		empty, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if empty.Entries != 0 || empty.Oldest != nil {
			t.Errorf("unexpected empty stats %+v", empty)
		}

		repo.Set(ctx, entry("search_events:{}", base, `12345`))
		repo.Set(ctx, entry(`search_events:{"page":2}`, base.Add(time.Minute), `123`))
		repo.Set(ctx, entry("search_artists:{}", base.Add(-time.Minute), `12`))
		repo.Get(ctx, "search_events:{}")

		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if stats.Entries != 3 || stats.Hits != 1 || stats.Bytes != 10 {
			t.Errorf("unexpected totals %+v", stats)
		}
		if stats.ByName["search_events"] != 2 || stats.ByName["search_artists"] != 1 {
			t.Errorf("unexpected groups %v", stats.ByName)
		}
		if !stats.Oldest.Equal(base.Add(-time.Minute)) || !stats.Newest.Equal(base.Add(time.Minute)) {
			t.Errorf("unexpected range %v - %v", stats.Oldest, stats.Newest)
		}
	})

	t.Run("as query store", func(t *testing.T) {
		repo := NewQueryCacheRepository(setupTestDB(t))
		client := query.NewClient(query.Options{Store: repo, Now: func() time.Time { return base }})

		calls := 0
		fn := func(ctx context.Context) (json.RawMessage, error) {
			calls++
			return json.RawMessage(`{"ok":true}`), nil
		}

		for range 2 {
			res, err := client.Fetch(ctx, "search_promoters:{}", fn)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if string(res.Data) != `{"ok":true}` {
				t.Errorf("unexpected data %s", res.Data)
			}
		}
		if calls != 1 {
			t.Errorf("expected the second fetch to hit sqlite, got %d calls", calls)
		}
	})
}

func TestExportJobRepository(t *testing.T) {
	newJob := func(entity string, started time.Time) *models.ExportJob {
		return &models.ExportJob{
			Entity:     entity,
			Params:     `{"page":1,"limit":100}`,
			Format:     "csv",
			OutputPath: "/tmp/" + entity + ".csv",
			Status:     models.ExportRunning,
			StartedAt:  started,
		}
	}

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		job := newJob("events", base)

		if err := repo.Create(job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if job.ID == "" {
			t.Fatal("job ID should be set after creation")
		}

		got, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if got.Entity != "events" || got.Status != models.ExportRunning || got.FinishedAt != nil {
			t.Errorf("unexpected job %+v", got)
		}
		if !got.StartedAt.Equal(base) {
			t.Errorf("expected started_at %v, got %v", base, got.StartedAt)
		}
	})

	t.Run("Create validation", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		job := newJob("", base)

		if err := repo.Create(job); err == nil {
			t.Fatal("expected validation error for empty entity")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		job := newJob("venues", base)
		repo.Create(job)

		job.TotalRecords = 240
		job.Finish(base.Add(3*time.Second), errors.New("disk full"))
		if err := repo.Update(job); err != nil {
			t.Fatalf("failed to update job: %v", err)
		}

		got, _ := repo.Get(job.ID)
		if got.Status != models.ExportFailed || got.Error != "disk full" || got.TotalRecords != 240 {
			t.Errorf("unexpected job %+v", got)
		}
		if got.Duration() != 3*time.Second {
			t.Errorf("expected 3s duration, got %v", got.Duration())
		}
	})

	t.Run("Update not found", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		job := newJob("venues", base)
		job.ID = "nope"

		if err := repo.Update(job); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		repo.Create(newJob("events", base))
		repo.Create(newJob("artists", base.Add(time.Minute)))
		repo.Create(newJob("events", base.Add(2*time.Minute)))

		all, err := repo.List("", 0)
		if err != nil {
			t.Fatalf("failed to list jobs: %v", err)
		}
		if len(all) != 3 || all[0].StartedAt.Before(all[2].StartedAt) {
			t.Errorf("expected 3 jobs newest first, got %d", len(all))
		}

		events, _ := repo.List("events", 1)
		if len(events) != 1 || !events[0].StartedAt.Equal(base.Add(2*time.Minute)) {
			t.Errorf("unexpected filtered list %+v", events)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewExportJobRepository(setupTestDB(t))
		job := newJob("promoters", base)
		repo.Create(job)

		if err := repo.Delete(job.ID); err != nil {
			t.Fatalf("failed to delete job: %v", err)
		}
		if _, err := repo.Get(job.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(job.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}
