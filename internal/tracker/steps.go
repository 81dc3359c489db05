package tracker

import (
	"slices"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// MarkSteps derives each step's state from the position of current in steps.
// If current is not one of the steps every step stays pending.
func MarkSteps(steps []string, current string) []models.StepView {
	idx := -1
	if current != "" {
		idx = slices.Index(steps, current)
	}

	views := make([]models.StepView, len(steps))
	for i, label := range steps {
		state := constants.StepPending
		switch {
		case idx < 0:
		case i < idx:
			state = constants.StepCompleted
		case i == idx:
			state = constants.StepActive
		}
		views[i] = models.StepView{Label: label, State: state}
	}
	return views
}

// NewProgressView builds the redraw payload for one snapshot
func NewProgressView(jobID string, snap *models.JobProgressSnapshot) models.ProgressView {
	return models.ProgressView{
		JobID:       jobID,
		Status:      snap.Status,
		Percent:     snap.Percent(),
		CurrentStep: snap.CurrentStep,
		Steps:       MarkSteps(snap.Steps, snap.CurrentStep),
	}
}
