package models

import "github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"

// JobProgressSnapshot is one status payload returned by the progress endpoint
type JobProgressSnapshot struct {
	PlanID       string              `json:"plan_id"`
	Status       constants.JobStatus `json:"status"`
	Progress     int                 `json:"progress"`
	CurrentStep  string              `json:"current_step,omitempty"`
	Steps        []string            `json:"steps,omitempty"`
	StartTime    string              `json:"start_time,omitempty"`
	EndTime      string              `json:"end_time,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	// Cancelled marks an error status caused by a cancel request
	Cancelled bool `json:"cancelled,omitempty"`
}

// LocalStatus is the status recorded in local history, which tells
// cancelled jobs apart from failed ones
func (s *JobProgressSnapshot) LocalStatus() constants.JobStatus {
	if s.Cancelled && s.Status == constants.StatusError {
		return constants.StatusCancelled
	}
	return s.Status
}

// Percent clamps the reported progress into [0,100]
func (s *JobProgressSnapshot) Percent() int {
	switch {
	case s.Progress < 0:
		return 0
	case s.Progress > 100:
		return 100
	default:
		return s.Progress
	}
}

// StepView is a single entry of the rendered step list
type StepView struct {
	Label string              `json:"label"`
	State constants.StepState `json:"state"`
}

// ProgressView is what a progress surface needs to redraw itself
type ProgressView struct {
	JobID       string
	Status      constants.JobStatus
	Percent     int
	CurrentStep string
	Steps       []StepView
}

// Completion is delivered once when a job finishes
type Completion struct {
	JobID  string
	Result *PlanResult

	// Degraded is set when the job finished but its result could not be fetched
	Degraded bool
	Err      error
}
