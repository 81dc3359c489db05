package models

import (
	"fmt"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
)

// JobRecord is the local history entry for a submitted planning job
type JobRecord struct {
	ID           string                `json:"id"`
	Status       constants.JobStatus   `json:"status"`
	HeritageIDs  []int                 `json:"heritage_ids"`
	Config       PlanningConfiguration `json:"config"`
	ErrorMessage string                `json:"error_message,omitempty"`
	CreatedAt    string                `json:"created_at"` // RFC3339 timestamp
	UpdatedAt    string                `json:"updated_at"` // RFC3339 timestamp
}

func (j *JobRecord) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if len(j.HeritageIDs) < constants.MinHeritageItems || len(j.HeritageIDs) > constants.MaxHeritageItems {
		return fmt.Errorf("job must reference between %d and %d heritage items", constants.MinHeritageItems, constants.MaxHeritageItems)
	}
	return nil
}

// JobSummary is one row of the agent's plan listing
type JobSummary struct {
	PlanID    string              `json:"plan_id"`
	Status    constants.JobStatus `json:"status"`
	Progress  int                 `json:"progress"`
	StartTime string              `json:"start_time,omitempty"`
	EndTime   string              `json:"end_time,omitempty"`
}
