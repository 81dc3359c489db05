package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
)

// SetCurrentJob remembers the job being watched so it can be resumed later
func (s *SQLiteStore) SetCurrentJob(id string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO session (key, value) VALUES (?, ?)", constants.SessionCurrentJob, id)
	if err != nil {
		return fmt.Errorf("failed to save current job: %w", err)
	}
	return nil
}

// GetCurrentJob returns ErrNotFound when no job is being watched
func (s *SQLiteStore) GetCurrentJob() (string, error) {
	var id string
	err := s.db.QueryRow("SELECT value FROM session WHERE key = ?", constants.SessionCurrentJob).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && id == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load current job: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ClearCurrentJob() error {
	if _, err := s.db.Exec("DELETE FROM session WHERE key = ?", constants.SessionCurrentJob); err != nil {
		return fmt.Errorf("failed to clear current job: %w", err)
	}
	return nil
}
