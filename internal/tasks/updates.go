package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase (0 when unknown)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	WriteRecords
	ResolveAnalytics
	ExportDone
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case WriteRecords:
		return "write_records"
	case ResolveAnalytics:
		return "resolve_analytics"
	case ExportDone:
		return "export_done"
	default:
		return ""
	}
}

func fetchPageUpdate(entity string, page, total int) ProgressUpdate {
	msg := fmt.Sprintf("Fetching %s page %d...", entity, page)
	if total > 0 {
		msg = fmt.Sprintf("Fetching %s page %d of %d...", entity, page, total)
	}
	return ProgressUpdate{Phase: FetchPage, Step: page, Total: total, Message: msg}
}

func wroteRecordsUpdate(page, total, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteRecords,
		Step:    page,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %d records written", page, total, records),
		Data:    records,
	}
}

func analyticsUpdate(step, total int, res AnalyticsResult) ProgressUpdate {
	var msg string
	if res.Error != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.ID, res.Error)
	} else {
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.ID, res.Report.Source)
	}
	return ProgressUpdate{Phase: ResolveAnalytics, Step: step, Total: total, Message: msg, Data: res}
}

func exportDoneUpdate(records int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDone,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Exported %d records to %s", records, path),
		Data:    path,
	}
}
