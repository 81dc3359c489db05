package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SaveResult stores the raw plan payload of a completed job
func (s *SQLiteStore) SaveResult(jobID string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("result for job %s is not valid JSON", jobID)
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO results (job_id, payload, fetched_at) VALUES (?, ?, ?)",
		jobID, string(raw), s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to save result for job %s: %w", jobID, err)
	}
	return nil
}

// GetResult returns the stored payload and whether one exists
func (s *SQLiteStore) GetResult(jobID string) (json.RawMessage, bool, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM results WHERE job_id = ?", jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load result for job %s: %w", jobID, err)
	}
	return json.RawMessage(payload), true, nil
}
