package agentsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// Steps are the stages every simulated job walks through
var Steps = []string{
	"Analyze heritage items",
	"Fetch weather",
	"Generate AI suggestions",
	"Optimize route",
	"Build complete plan",
	"Finish planning",
}

const (
	stepInitializing = "Initializing"
	stepDone         = "Planning complete"

	// FailDeparture makes a job fail at the AI suggestion step
	FailDeparture = "fail"
	failStep      = 3
	failMessage   = "AI suggestion service unavailable"

	cancelMessage = "planning cancelled by user"

	timeLayout = "2006-01-02T15:04:05"
)

var (
	errJobNotFound = errors.New("plan does not exist")
	errJobFinished = errors.New("plan has already finished")
)

type job struct {
	id          string
	req         models.PlanRequest
	started     time.Time
	cancelledAt time.Time
}

// Simulator advances jobs from their start time, so progress depends only on the clock
type Simulator struct {
	mu        sync.Mutex
	jobs      map[string]*job
	stepDelay time.Duration
	now       func() time.Time
}

func NewSimulator(stepDelay time.Duration, now func() time.Time) *Simulator {
	if stepDelay <= 0 {
		stepDelay = 1500 * time.Millisecond
	}
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		jobs:      make(map[string]*job),
		stepDelay: stepDelay,
		now:       now,
	}
}

// NewPlanID returns ids of the form plan_<8 hex>_<YYYYmmdd_HHMMSS>
func NewPlanID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("plan_%s_%s", hex[:8], now.Format("20060102_150405"))
}

// Create registers a job and returns its id
func (s *Simulator) Create(req models.PlanRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := NewPlanID(now)
	s.jobs[id] = &job{id: id, req: req, started: now}
	return id
}

// EstimatedTime is how long a successful job takes
func (s *Simulator) EstimatedTime() time.Duration {
	return time.Duration(len(Steps)+1) * s.stepDelay
}

func (s *Simulator) Snapshot(id string) (models.JobProgressSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, found := s.jobs[id]
	if !found {
		return models.JobProgressSnapshot{}, errJobNotFound
	}
	return s.snapshotLocked(j), nil
}

func (s *Simulator) snapshotLocked(j *job) models.JobProgressSnapshot {
	snap := models.JobProgressSnapshot{
		PlanID:    j.id,
		Status:    constants.StatusProcessing,
		Steps:     Steps,
		StartTime: j.started.Format(timeLayout),
	}

	now := s.now()
	if !j.cancelledAt.IsZero() {
		now = j.cancelledAt
	}
	step := int(now.Sub(j.started) / s.stepDelay)
	failing := strings.EqualFold(strings.TrimSpace(j.req.DepartureLocation), FailDeparture)

	switch {
	case failing && step >= failStep:
		snap.Status = constants.StatusError
		snap.Progress = stepPercent(failStep)
		snap.CurrentStep = Steps[failStep-1]
		snap.ErrorMessage = failMessage
		snap.EndTime = j.started.Add(time.Duration(failStep) * s.stepDelay).Format(timeLayout)
		return snap
	case step > len(Steps) && j.cancelledAt.IsZero():
		snap.Status = constants.StatusCompleted
		snap.Progress = 100
		snap.CurrentStep = stepDone
		snap.EndTime = j.started.Add(s.EstimatedTime()).Format(timeLayout)
		return snap
	case step == 0:
		snap.CurrentStep = stepInitializing
	default:
		step = min(step, len(Steps))
		snap.Progress = stepPercent(step)
		snap.CurrentStep = Steps[step-1]
	}

	if !j.cancelledAt.IsZero() {
		snap.Status = constants.StatusError
		snap.ErrorMessage = cancelMessage
		snap.Cancelled = true
		snap.EndTime = j.cancelledAt.Format(timeLayout)
	}
	return snap
}

func stepPercent(step int) int {
	return min(95, step*100/len(Steps))
}

// Result returns the plan payload of a completed job, or the snapshot when it has not completed
func (s *Simulator) Result(id string) (json.RawMessage, models.JobProgressSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, found := s.jobs[id]
	if !found {
		return nil, models.JobProgressSnapshot{}, errJobNotFound
	}
	snap := s.snapshotLocked(j)
	if snap.Status != constants.StatusCompleted {
		return nil, snap, nil
	}
	plan := buildPlan(&j.req)
	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, snap, fmt.Errorf("failed to encode plan: %w", err)
	}
	return raw, snap, nil
}

// Cancel stops a running job; finished jobs cannot be cancelled
func (s *Simulator) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, found := s.jobs[id]
	if !found {
		return errJobNotFound
	}
	if s.snapshotLocked(j).Status.IsTerminal() {
		return errJobFinished
	}
	j.cancelledAt = s.now()
	return nil
}

func (s *Simulator) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.jobs[id]; !found {
		return errJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

// List returns summaries of all jobs, oldest first
func (s *Simulator) List() []models.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].started.Equal(jobs[b].started) {
			return jobs[a].id < jobs[b].id
		}
		return jobs[a].started.Before(jobs[b].started)
	})

	out := make([]models.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		snap := s.snapshotLocked(j)
		out = append(out, models.JobSummary{
			PlanID:    j.id,
			Status:    snap.Status,
			Progress:  snap.Progress,
			StartTime: snap.StartTime,
			EndTime:   snap.EndTime,
		})
	}
	return out
}
