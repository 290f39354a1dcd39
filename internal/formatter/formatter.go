// package formatter renders list pages, analytics reports and export manifests as
// terminal tables, CSV, Markdown or JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "txt", "text":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

var zeroRecords = map[string]models.Record{
	filters.EntityEvents:    models.Event{},
	filters.EntityArtists:   models.Artist{},
	filters.EntityVenues:    models.Venue{},
	filters.EntityPromoters: models.Promoter{},
}

// HeaderFor returns the column names of entity's records, so empty pages still get a header.
func HeaderFor(entity string) []string {
	if r, ok := zeroRecords[entity]; ok {
		return r.Header()
	}
	return nil
}

// RecordWriter streams records in one format. Close must be called to flush
// buffered output and write any trailer.
type RecordWriter interface {
	Write(records ...models.Record) error
	Close() error
}

// NewRecordWriter returns a [RecordWriter] for f writing to w. The header is
// written before the first record.
func NewRecordWriter(w io.Writer, f Format, header []string) (RecordWriter, error) {
	switch f {
	case FormatTable:
		return &tableWriter{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0), header: header}, nil
	case FormatCSV:
		return &csvWriter{w: csv.NewWriter(w), header: header}, nil
	case FormatMarkdown:
		return &markdownWriter{w: w, header: header}, nil
	case FormatJSON:
		return &jsonWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

type tableWriter struct {
	tw      *tabwriter.Writer
	header  []string
	started bool
}

func (t *tableWriter) Write(records ...models.Record) error {
	if !t.started {
		t.started = true
		if _, err := fmt.Fprintln(t.tw, strings.Join(upper(t.header), "\t")); err != nil {
			return fmt.Errorf("failed to write table header: %w", err)
		}
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(t.tw, strings.Join(r.Row(), "\t")); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}
	return nil
}

func (t *tableWriter) Close() error {
	if err := t.Write(); err != nil {
		return err
	}
	return t.tw.Flush()
}

type csvWriter struct {
	w       *csv.Writer
	header  []string
	started bool
}

func (c *csvWriter) Write(records ...models.Record) error {
	if !c.started {
		c.started = true
		if err := c.w.Write(c.header); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, r := range records {
		if err := c.w.Write(r.Row()); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}

func (c *csvWriter) Close() error {
	if err := c.Write(); err != nil {
		return err
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

type markdownWriter struct {
	w       io.Writer
	header  []string
	started bool
}

func (m *markdownWriter) Write(records ...models.Record) error {
	var buf bytes.Buffer
	if !m.started {
		m.started = true
		buf.WriteString(markdownRow(m.header))
		seps := make([]string, len(m.header))
		for i := range seps {
			seps[i] = "---"
		}
		buf.WriteString(markdownRow(seps))
	}
	for _, r := range records {
		buf.WriteString(markdownRow(r.Row()))
	}
	if _, err := m.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write Markdown rows: %w", err)
	}
	return nil
}

func (m *markdownWriter) Close() error { return m.Write() }

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " ")
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

// jsonWriter writes a JSON array, one record per line.
type jsonWriter struct {
	w     io.Writer
	count int
}

func (j *jsonWriter) Write(records ...models.Record) error {
	for _, r := range records {
		data, err := shared.MarshalJSON(r, false)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		prefix := ",\n  "
		if j.count == 0 {
			prefix = "[\n  "
		}
		if _, err := io.WriteString(j.w, prefix+string(data)); err != nil {
			return fmt.Errorf("failed to write JSON record: %w", err)
		}
		j.count++
	}
	return nil
}

func (j *jsonWriter) Close() error {
	trailer := "\n]\n"
	if j.count == 0 {
		trailer = "[]\n"
	}
	if _, err := io.WriteString(j.w, trailer); err != nil {
		return fmt.Errorf("failed to write JSON trailer: %w", err)
	}
	return nil
}

// Render encodes records with header in format f.
func Render(f Format, header []string, records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewRecordWriter(&buf, f, header)
	if err != nil {
		return nil, err
	}
	if err := w.Write(records...); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPage encodes a list page of entity, followed by a page summary for the
// table format.
func RenderPage(f Format, entity string, page models.ListPage) ([]byte, error) {
	header := HeaderFor(entity)
	if len(page.Items) > 0 {
		header = page.Items[0].Header()
	}

	data, err := Render(f, header, page.Items)
	if err != nil {
		return nil, err
	}
	if f == FormatTable {
		data = append(data, []byte(PageSummary(page.Pagination)+"\n")...)
	}
	return data, nil
}

// PageSummary describes a pagination block, e.g. "page 2 of 7 (134 results)".
func PageSummary(m models.PaginationMeta) string {
	pages := max(m.TotalPages, 1)
	results := "results"
	if m.Total == 1 {
		results = "result"
	}
	return fmt.Sprintf("page %d of %d (%d %s)", max(m.Page, 1), pages, m.Total, results)
}

// RenderAnalytics writes the report's top-level fields as an aligned
// key/value list. Nested values are shown as compact JSON.
func RenderAnalytics(w io.Writer, report *models.AnalyticsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", "entity", report.Entity)
	fmt.Fprintf(tw, "%s\t%s\n", "id", report.ID)
	fmt.Fprintf(tw, "%s\t%s\n", "source", report.Source)
	fmt.Fprintf(tw, "%s\t%s\n", "fetched", report.FetchedAt.Format(time.RFC3339))

	fields := report.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, scalar(fields[k]))
	}
	return tw.Flush()
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func upper(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToUpper(c)
	}
	return out
}

// Manifest describes the files produced by an export.
type Manifest struct {
	JobID      string                `json:"job_id"`
	Entity     string                `json:"entity"`
	Format     Format                `json:"format"`
	Params     filters.SearchParams  `json:"params"`
	Pagination models.PaginationMeta `json:"pagination"`
	Records    int                   `json:"records"`
	Files      []string              `json:"files"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// ManifestPath returns the manifest file written next to an export at path.
func ManifestPath(path string) string {
	ext := strings.LastIndex(path, ".")
	if ext > strings.LastIndex(path, "/") {
		path = path[:ext]
	}
	return path + "_manifest.json"
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to generate manifest JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}
