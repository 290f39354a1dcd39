package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
	th "github.com/desertthunder/ticketscope/internal/testing"
)

func ptr[T any](v T) *T { return &v }

func venuesPage() models.ListPage {
	return models.Erase(models.Page[models.Venue]{
		Items: []models.Venue{
			{ID: "v1", Name: "The Roxy", City: "Los Angeles", VenueType: "club", Capacity: ptr(500), EventCount: 42},
			{ID: "v2", Name: "Bar | Grill", City: "Austin", EventCount: 1},
		},
		Pagination: models.PaginationMeta{Page: 2, Limit: 2, Total: 9, TotalPages: 5},
	})
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"", FormatTable},
		{"table", FormatTable},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"json", FormatJSON},
	}
	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
	if FormatMarkdown.Extension() != ".md" || FormatTable.Extension() != ".txt" {
		t.Error("unexpected extensions")
	}
}

func TestRender(t *testing.T) {
	page := venuesPage()
	header := HeaderFor(filters.EntityVenues)

	t.Run("CSV", func(t *testing.T) {
		data, err := Render(FormatCSV, header, page.Items)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != "ID,Name,City,Type,Capacity,Events" {
			t.Errorf("unexpected header %v", rows[0])
		}
		if rows[1][4] != "500" || rows[2][4] != "" {
			t.Errorf("unexpected capacity cells %q %q", rows[1][4], rows[2][4])
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := Render(FormatMarkdown, header, page.Items)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected 4 lines, got %d: %s", len(lines), output)
		}
		if lines[1] != "| --- | --- | --- | --- | --- | --- |" {
			t.Errorf("unexpected separator %s", lines[1])
		}
		if !strings.Contains(output, `Bar \| Grill`) {
			t.Errorf("pipe not escaped: %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := Render(FormatJSON, header, page.Items)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var venues []models.Venue
		if err := json.Unmarshal(data, &venues); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, data)
		}
		if len(venues) != 2 || *venues[0].Capacity != 500 {
			t.Errorf("unexpected venues %+v", venues)
		}
	})

	t.Run("JSON empty", func(t *testing.T) {
		data, err := Render(FormatJSON, header, nil)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})

	t.Run("Table", func(t *testing.T) {
		data, err := RenderPage(FormatTable, filters.EntityVenues, page)
		if err != nil {
			t.Fatalf("RenderPage failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID  ") || !strings.Contains(output, "CAPACITY") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "page 2 of 5 (9 results)") {
			t.Errorf("missing page summary: %s", output)
		}
	})

	t.Run("empty page keeps header", func(t *testing.T) {
		data, err := RenderPage(FormatCSV, filters.EntityArtists, models.ListPage{})
		if err != nil {
			t.Fatalf("RenderPage failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "ID,Name,Genres,City,Agency,Events,Upcoming" {
			t.Errorf("unexpected output %s", data)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := Render(Format("xml"), header, nil); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("write errors", func(t *testing.T) {
		w, _ := NewRecordWriter(&th.FWriter{}, FormatMarkdown, header)
		if err := w.Write(page.Items...); err == nil {
			t.Error("expected write error")
		}

		w, _ = NewRecordWriter(&th.FWriter{}, FormatCSV, header)
		w.Write(page.Items...)
		if err := w.Close(); err == nil {
			t.Error("expected CSV flush error")
		}
	})
}

func TestPageSummary(t *testing.T) {
	tc := []struct {
		meta models.PaginationMeta
		want string
	}{
		{models.PaginationMeta{}, "page 1 of 1 (0 results)"},
		{models.PaginationMeta{Page: 1, Total: 1, TotalPages: 1}, "page 1 of 1 (1 result)"},
		{models.PaginationMeta{Page: 3, Total: 60, TotalPages: 3}, "page 3 of 3 (60 results)"},
	}
	for _, tt := range tc {
		if got := PageSummary(tt.meta); got != tt.want {
			t.Errorf("PageSummary(%+v) = %q, want %q", tt.meta, got, tt.want)
		}
	}
}

func TestRenderAnalytics(t *testing.T) {
	report := &models.AnalyticsReport{
		Entity:    filters.EntityPromoters,
		ID:        "p1",
		Source:    models.SourceFallback,
		Data:      json.RawMessage(`{"total_events": 12, "avg_price": 45.5, "top_cities": ["Austin", "Dallas"], "last_event": null}`),
		FetchedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := RenderAnalytics(&buf, report); err != nil {
		t.Fatalf("RenderAnalytics failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"source", "fallback", "2026-02-03T04:05:06Z", "total_events  12", "45.50", `["Austin","Dallas"]`} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "avg_price") > strings.Index(output, "total_events") {
		t.Error("fields should be sorted")
	}
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()

	if got := ManifestPath(filepath.Join(dir, "events.csv")); got != filepath.Join(dir, "events_manifest.json") {
		t.Errorf("unexpected manifest path %s", got)
	}
	if got := ManifestPath("out.d/events"); got != "out.d/events_manifest.json" {
		t.Errorf("unexpected manifest path %s", got)
	}

	path := filepath.Join(dir, "m.json")
	m := Manifest{JobID: "job-1", Entity: "events", Format: FormatCSV, Records: 3, Files: []string{"events.csv"}}
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	var got Manifest
	if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if got.JobID != "job-1" || got.Records != 3 {
		t.Errorf("unexpected manifest %+v", got)
	}

	if err := WriteManifest(filepath.Join(dir, "missing", "m.json"), m); err == nil {
		t.Error("expected error writing into a missing directory")
	}
	_ = os.Remove(path)
}
