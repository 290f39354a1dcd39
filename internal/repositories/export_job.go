package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ticketscope/internal/models"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// ExportJobRepository persists [models.ExportJob] rows.
type ExportJobRepository struct {
	db *sql.DB
}

// NewExportJobRepository creates a new [ExportJobRepository] with the given database connection
func NewExportJobRepository(db *sql.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts job, assigning an ID when it has none.
func (r *ExportJobRepository) Create(job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = shared.GenerateID()
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO export_jobs (
			id, entity, params, format, output_path, total_records,
			status, error, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.Entity,
		job.Params,
		job.Format,
		job.OutputPath,
		job.TotalRecords,
		job.Status,
		nullable(job.Error),
		job.StartedAt.UTC(),
		finishedAt(job),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export job: %w", err)
	}
	return nil
}

// Get retrieves an export job by ID.
func (r *ExportJobRepository) Get(id string) (*models.ExportJob, error) {
	query := `
		SELECT id, entity, params, format, output_path, total_records, status, error, started_at, finished_at
		FROM export_jobs
		WHERE id = ?
	`
	return scanJob(r.db.QueryRow(query, id))
}

// Update writes the mutable fields of job.
func (r *ExportJobRepository) Update(job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE export_jobs
		SET total_records = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, job.TotalRecords, job.Status, nullable(job.Error), finishedAt(job), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	_, err = affected(result, fmt.Errorf("%w: export job %s", shared.ErrNotFound, job.ID))
	return err
}

// Delete removes an export job by ID.
func (r *ExportJobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export job: %w", err)
	}
	_, err = affected(result, fmt.Errorf("%w: export job %s", shared.ErrNotFound, id))
	return err
}

// List returns the newest jobs first, optionally only those for entity.
// A non-positive limit returns every job.
func (r *ExportJobRepository) List(entity string, limit int) ([]*models.ExportJob, error) {
	query := `
		SELECT id, entity, params, format, output_path, total_records, status, error, started_at, finished_at
		FROM export_jobs
	`
	args := []any{}

	if entity != "" {
		query += " WHERE entity = ?"
		args = append(args, entity)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.ExportJob, error) {
	var (
		job      models.ExportJob
		status   string
		errMsg   sql.NullString
		finished sql.NullTime
	)

	err := s.Scan(
		&job.ID, &job.Entity, &job.Params, &job.Format, &job.OutputPath,
		&job.TotalRecords, &status, &errMsg, &job.StartedAt, &finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export job", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export job: %w", err)
	}

	job.Status = models.ExportStatus(status)
	job.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}

func finishedAt(job *models.ExportJob) any {
	if job.FinishedAt == nil {
		return nil
	}
	return job.FinishedAt.UTC()
}
