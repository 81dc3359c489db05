package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// SaveJob inserts or replaces a job record. CreatedAt is kept when the job already exists.
func (s *SQLiteStore) SaveJob(job models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return err
	}

	ids, err := json.Marshal(job.HeritageIDs)
	if err != nil {
		return fmt.Errorf("failed to encode heritage ids: %w", err)
	}
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	now := s.timestamp()
	if job.CreatedAt == "" {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO jobs (id, status, heritage_ids, config, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			heritage_ids = excluded.heritage_ids,
			config = excluded.config,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		job.ID, string(job.Status), string(ids), string(cfg), job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobStatus records the latest known status of a job
func (s *SQLiteStore) UpdateJobStatus(id string, status constants.JobStatus, errMsg string) error {
	res, err := s.db.Exec(
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(status), errMsg, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetJob(id string) (models.JobRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, status, heritage_ids, config, error_message, created_at, updated_at
		FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JobRecord{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// ListJobs returns the most recent jobs first. A limit of 0 or less returns all jobs.
func (s *SQLiteStore) ListJobs(limit int) ([]models.JobRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, status, heritage_ids, config, error_message, created_at, updated_at
		FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (models.JobRecord, error) {
	var (
		job         models.JobRecord
		status      string
		ids, config string
	)
	if err := row.Scan(&job.ID, &status, &ids, &config, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return models.JobRecord{}, err
	}
	job.Status = constants.JobStatus(status)
	if err := json.Unmarshal([]byte(ids), &job.HeritageIDs); err != nil {
		return models.JobRecord{}, fmt.Errorf("parsing heritage_ids of job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(config), &job.Config); err != nil {
		return models.JobRecord{}, fmt.Errorf("parsing config of job %s: %w", job.ID, err)
	}
	return job, nil
}
