package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// State is the lifecycle position of a Tracker
type State int

const (
	Idle State = iota
	Polling
	Completed
	Failed
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Source is the agent surface the tracker polls
type Source interface {
	Progress(ctx context.Context, jobID string) (*models.JobProgressSnapshot, error)
	Result(ctx context.Context, jobID string) (*models.PlanResult, error)
}

// Owner receives tracker notifications. Calls arrive on the polling goroutine.
// OnCompleted and OnFailed are mutually exclusive and fire at most once per Start.
type Owner interface {
	OnProgress(view models.ProgressView)
	OnCompleted(c models.Completion)
	OnFailed(message string)
}

// Config tunes a Tracker. Zero values fall back to defaults.
type Config struct {
	Interval time.Duration
	// MaxDuration fails the job once exceeded; zero polls indefinitely
	MaxDuration time.Duration
	// BaseURL is only used to annotate log entries
	BaseURL   string
	Scheduler Scheduler
	Cache     *ResultCache
	Now       func() time.Time
}

// Tracker polls one job at a time until it reaches a terminal status
type Tracker struct {
	source Source
	owner  Owner
	cfg    Config

	mu        sync.Mutex
	state     State
	jobID     string
	handled   bool
	gen       uint64
	task      Task
	startedAt time.Time
	done      chan struct{}
	unwatch   func() bool
}

// New creates a tracker reporting to owner
func New(source Source, owner Owner, cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultPollInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}
	if cfg.Cache == nil {
		cfg.Cache = NewResultCache(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		source: source,
		owner:  owner,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Start begins polling jobID, replacing any loop already running.
// Cancelling ctx stops the tracker.
func (t *Tracker) Start(ctx context.Context, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Polling:
		t.haltLocked(Stopped)
	case Idle:
		closeDone(t.done)
	}

	t.gen++
	gen := t.gen
	t.jobID = jobID
	t.handled = false
	t.state = Polling
	t.startedAt = t.cfg.Now()
	t.done = make(chan struct{})
	t.task = t.cfg.Scheduler.Every(t.cfg.Interval, func() { t.poll(ctx, gen) })
	t.unwatch = context.AfterFunc(ctx, func() { t.stopGen(gen) })

	logger.Debug("Tracking planning job", "job_id", jobID, "interval", t.cfg.Interval, "base_url", t.cfg.BaseURL)
}

// Stop cancels polling. Safe to call at any time and more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Polling:
		t.haltLocked(Stopped)
	case Idle:
		t.state = Stopped
		closeDone(t.done)
	}
}

// State returns the current lifecycle state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// JobID returns the job most recently passed to Start
func (t *Tracker) JobID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobID
}

// Done is closed once the current job reaches a terminal state and its callback
// has returned, or when tracking is stopped.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Tracker) stopGen(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen == gen && t.state == Polling {
		t.haltLocked(Stopped)
	}
}

// haltLocked cancels the periodic task and moves to a final state.
// Stopped closes Done immediately; terminal states close it after the owner is notified.
func (t *Tracker) haltLocked(next State) {
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}
	t.state = next
	if next == Stopped {
		t.gen++
		closeDone(t.done)
	}
}

// closeDone closes ch unless it is already closed. Callers hold t.mu.
func closeDone(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// claim flips the handled flag for gen. Only the first caller wins, and gets
// the Done channel of its run to close once the owner has been notified.
func (t *Tracker) claim(gen uint64, next State) (chan struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.handled {
		return nil, false
	}
	t.handled = true
	t.haltLocked(next)
	return t.done, true
}

// finish closes the Done channel of a handled run, even if Start has since
// replaced it
func (t *Tracker) finish(done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	closeDone(done)
}

// live reports whether gen is still the active, unhandled run
func (t *Tracker) live(gen uint64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobID, t.gen == gen && !t.handled && t.state == Polling
}

func (t *Tracker) poll(ctx context.Context, gen uint64) {
	jobID, ok := t.live(gen)
	if !ok {
		return
	}

	if t.cfg.MaxDuration > 0 && t.elapsed() > t.cfg.MaxDuration {
		logger.Warn("Polling deadline exceeded", "job_id", jobID, "max_duration", t.cfg.MaxDuration)
		t.fail(gen, constants.MsgPollTimeout)
		return
	}

	snap, err := t.source.Progress(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Progress poll failed, retrying next tick",
			"endpoint", "progress/"+jobID,
			"job_id", jobID,
			"base_url", t.cfg.BaseURL,
			"error", err,
		)
		return
	}

	switch snap.Status {
	case constants.StatusCompleted:
		t.complete(ctx, gen, jobID)
	case constants.StatusError:
		t.fail(gen, snap.ErrorMessage)
	default:
		if _, ok := t.live(gen); !ok {
			return
		}
		t.owner.OnProgress(NewProgressView(jobID, snap))
	}
}

func (t *Tracker) elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Now().Sub(t.startedAt)
}

func (t *Tracker) complete(ctx context.Context, gen uint64, jobID string) {
	done, ok := t.claim(gen, Completed)
	if !ok {
		return
	}
	defer t.finish(done)

	logger.Info("Planning job completed", "job_id", jobID)

	res, err := t.cfg.Cache.Fetch(ctx, jobID, t.source.Result)
	if err != nil {
		logger.Warn("Job completed but result could not be fetched",
			"endpoint", "result/"+jobID,
			"job_id", jobID,
			"base_url", t.cfg.BaseURL,
			"error", err,
		)
		t.owner.OnCompleted(models.Completion{JobID: jobID, Degraded: true, Err: err})
		return
	}
	t.owner.OnCompleted(models.Completion{JobID: jobID, Result: res})
}

func (t *Tracker) fail(gen uint64, message string) {
	done, ok := t.claim(gen, Failed)
	if !ok {
		return
	}
	defer t.finish(done)

	if message == "" {
		message = "unknown error"
	}
	logger.Info("Planning job failed", "job_id", t.JobID(), "message", message)
	t.owner.OnFailed(message)
}
