package storage

import (
	"encoding/json"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Jobs
	SaveJob(models.JobRecord) error
	UpdateJobStatus(id string, status constants.JobStatus, errMsg string) error
	GetJob(id string) (models.JobRecord, error)
	ListJobs(limit int) ([]models.JobRecord, error)

	// Results
	SaveResult(jobID string, raw json.RawMessage) error
	GetResult(jobID string) (json.RawMessage, bool, error)

	// Session
	SetCurrentJob(id string) error
	GetCurrentJob() (string, error)
	ClearCurrentJob() error

	// Utils
	GetConfigPath() string
}
