package models

import (
	"fmt"
	"time"
)

// ExportStatus is the lifecycle state of an [ExportJob].
type ExportStatus string

const (
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportJob records one filtered-list export.
type ExportJob struct {
	ID           string       `json:"id"`
	Entity       string       `json:"entity"`
	Params       string       `json:"params"` // translated search params as JSON
	Format       string       `json:"format"`
	OutputPath   string       `json:"output_path"`
	TotalRecords int          `json:"total_records"`
	Status       ExportStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Validate checks the fields required to persist the job.
func (j *ExportJob) Validate() error {
	switch {
	case j.Entity == "":
		return fmt.Errorf("entity is required")
	case j.Format == "":
		return fmt.Errorf("format is required")
	case j.OutputPath == "":
		return fmt.Errorf("output path is required")
	}
	switch j.Status {
	case ExportRunning, ExportCompleted, ExportFailed:
	default:
		return fmt.Errorf("invalid status %q", j.Status)
	}
	return nil
}

// Finish marks the job done at t, failed when err is non-nil.
func (j *ExportJob) Finish(t time.Time, err error) {
	j.FinishedAt = &t
	if err != nil {
		j.Status = ExportFailed
		j.Error = err.Error()
		return
	}
	j.Status = ExportCompleted
}

// Duration returns how long the job ran, or zero while running.
func (j *ExportJob) Duration() time.Duration {
	if j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
