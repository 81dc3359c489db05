package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

var planSteps = []string{"Analyze heritage items", "Fetch weather", "Compose full plan"}

type pollReply struct {
	snap *models.JobProgressSnapshot
	err  error
}

type fakeSource struct {
	mu          sync.Mutex
	replies     []pollReply
	polls       int
	resultCalls int
	resultErr   error
	// gate, when set, blocks every Progress call until closed
	gate    chan struct{}
	arrived chan struct{}
}

func (f *fakeSource) Progress(ctx context.Context, jobID string) (*models.JobProgressSnapshot, error) {
	f.mu.Lock()
	i := f.polls
	f.polls++
	gate, arrived := f.gate, f.arrived
	var r pollReply
	if i < len(f.replies) {
		r = f.replies[i]
	} else {
		r = pollReply{snap: running("Fetch weather", 40)}
	}
	f.mu.Unlock()

	if arrived != nil {
		arrived <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return r.snap, r.err
}

func (f *fakeSource) Result(ctx context.Context, jobID string) (*models.PlanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return models.ParsePlanResult(json.RawMessage(`{"basic_info":{"title":"Xi'an in 3 days"}}`))
}

func (f *fakeSource) counts() (polls, results int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, f.resultCalls
}

type recordingOwner struct {
	mu          sync.Mutex
	progress    []models.ProgressView
	completions []models.Completion
	failures    []string
}

func (o *recordingOwner) OnProgress(v models.ProgressView) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, v)
}

func (o *recordingOwner) OnCompleted(c models.Completion) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completions = append(o.completions, c)
}

func (o *recordingOwner) OnFailed(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, msg)
}

func (o *recordingOwner) terminalCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.completions) + len(o.failures)
}

func running(step string, pct int) *models.JobProgressSnapshot {
	return &models.JobProgressSnapshot{Status: constants.StatusProcessing, Progress: pct, CurrentStep: step, Steps: planSteps}
}

func completed() *models.JobProgressSnapshot {
	return &models.JobProgressSnapshot{Status: constants.StatusCompleted, Progress: 100, Steps: planSteps}
}

func failed(msg string) *models.JobProgressSnapshot {
	return &models.JobProgressSnapshot{Status: constants.StatusError, ErrorMessage: msg, Steps: planSteps}
}

func newTestTracker(src *fakeSource, owner *recordingOwner) (*Tracker, *ManualScheduler) {
	sched := NewManualScheduler()
	return New(src, owner, Config{Scheduler: sched, BaseURL: "http://agent.test/api/travel-plan"}), sched
}

func TestTracker_DefaultInterval(t *testing.T) {
	tr, sched := newTestTracker(&fakeSource{}, &recordingOwner{})
	tr.Start(context.Background(), "plan_1")
	assert.Equal(t, constants.DefaultPollInterval, sched.LastInterval())
	assert.Equal(t, Polling, tr.State())
}

func TestTracker_SequenceFiresOneTerminalCallback(t *testing.T) {
	src := &fakeSource{replies: []pollReply{
		{snap: running("Analyze heritage items", 10)},
		{snap: running("Fetch weather", 40)},
		{snap: completed()},
		{snap: failed("too late")},
	}}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)

	tr.Start(context.Background(), "plan_1")
	for i := 0; i < 4; i++ {
		sched.Tick()
	}

	polls, results := src.counts()
	assert.Equal(t, 3, polls, "no poll after the terminal snapshot")
	assert.Equal(t, 1, results)
	require.Len(t, owner.completions, 1)
	assert.Empty(t, owner.failures)
	assert.False(t, owner.completions[0].Degraded)
	assert.Equal(t, "Xi'an in 3 days", owner.completions[0].Result.Plan.BasicInfo.Title)
	assert.Len(t, owner.progress, 2)
	assert.Equal(t, Completed, tr.State())
	assert.Zero(t, sched.Active())

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done should be closed after completion")
	}
}

func TestTracker_OutOfOrderTerminalRepliesRace(t *testing.T) {
	src := &fakeSource{
		replies: []pollReply{{snap: completed()}, {snap: failed("boom")}},
		gate:    make(chan struct{}),
		arrived: make(chan struct{}, 2),
	}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)
	tr.Start(context.Background(), "plan_1")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Tick()
		}()
	}
	// both requests are in flight before either reply is handled
	<-src.arrived
	<-src.arrived
	close(src.gate)
	wg.Wait()

	assert.Equal(t, 1, owner.terminalCount())
	assert.Zero(t, sched.Active())
	assert.Zero(t, sched.Tick())
}

func TestTracker_TransportErrorsKeepPolling(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	src := &fakeSource{replies: []pollReply{
		{err: netErr},
		{err: netErr},
		{err: netErr},
		{snap: running("Fetch weather", 33)},
	}}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)
	tr.Start(context.Background(), "plan_1")

	for i := 0; i < 3; i++ {
		sched.Tick()
		assert.Equal(t, Polling, tr.State())
		assert.Empty(t, owner.progress)
	}
	sched.Tick()

	assert.Equal(t, Polling, tr.State())
	assert.Zero(t, owner.terminalCount())
	require.Len(t, owner.progress, 1)
	view := owner.progress[0]
	assert.Equal(t, 33, view.Percent)
	assert.Equal(t, "Fetch weather", view.CurrentStep)
	assert.Equal(t, constants.StepCompleted, view.Steps[0].State)
	assert.Equal(t, constants.StepActive, view.Steps[1].State)
	assert.Equal(t, constants.StepPending, view.Steps[2].State)
}

func TestTracker_ErrorMessageDeliveredVerbatim(t *testing.T) {
	src := &fakeSource{replies: []pollReply{{snap: failed("weather service quota exhausted")}}}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)
	tr.Start(context.Background(), "plan_1")
	sched.Tick()
	sched.Tick()

	assert.Equal(t, []string{"weather service quota exhausted"}, owner.failures)
	assert.Empty(t, owner.completions)
	assert.Equal(t, Failed, tr.State())
	_, results := src.counts()
	assert.Zero(t, results)
}

func TestTracker_ResultFetchedOncePerJob(t *testing.T) {
	src := &fakeSource{replies: []pollReply{{snap: completed()}, {snap: completed()}}}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)

	tr.Start(context.Background(), "plan_1")
	sched.Tick()
	tr.Start(context.Background(), "plan_1")
	sched.Tick()

	_, results := src.counts()
	assert.Equal(t, 1, results)
	require.Len(t, owner.completions, 2)
	assert.Same(t, owner.completions[0].Result, owner.completions[1].Result)
}

func TestTracker_ResultFetchFailureIsDegraded(t *testing.T) {
	src := &fakeSource{
		replies:   []pollReply{{snap: completed()}},
		resultErr: errors.New("result: 404 Not Found"),
	}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)
	tr.Start(context.Background(), "plan_1")
	sched.Tick()

	require.Len(t, owner.completions, 1)
	assert.True(t, owner.completions[0].Degraded)
	assert.Error(t, owner.completions[0].Err)
	assert.Nil(t, owner.completions[0].Result)
	assert.Empty(t, owner.failures)
	assert.Equal(t, Completed, tr.State())
}

func TestTracker_StopIsIdempotentAndIgnoresLateReplies(t *testing.T) {
	src := &fakeSource{
		replies: []pollReply{{snap: completed()}},
		gate:    make(chan struct{}),
		arrived: make(chan struct{}, 1),
	}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)
	tr.Start(context.Background(), "plan_1")

	finished := make(chan struct{})
	go func() {
		sched.Tick()
		close(finished)
	}()
	<-src.arrived
	tr.Stop()
	tr.Stop()
	close(src.gate)
	<-finished

	assert.Equal(t, Stopped, tr.State())
	assert.Zero(t, owner.terminalCount())
	_, results := src.counts()
	assert.Zero(t, results)
	select {
	case <-tr.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
}

func TestTracker_RestartCancelsPreviousLoop(t *testing.T) {
	src := &fakeSource{}
	owner := &recordingOwner{}
	tr, sched := newTestTracker(src, owner)

	tr.Start(context.Background(), "plan_1")
	first := tr.Done()
	tr.Start(context.Background(), "plan_2")

	assert.Equal(t, 1, sched.Active())
	assert.Equal(t, "plan_2", tr.JobID())
	select {
	case <-first:
	default:
		t.Fatal("previous run should be closed on restart")
	}
	assert.Equal(t, 1, sched.Tick())
}

func TestTracker_StopBeforeStartClosesDone(t *testing.T) {
	tr, _ := newTestTracker(&fakeSource{}, &recordingOwner{})
	tr.Stop()

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done should be closed after Stop on an idle tracker")
	}
	assert.Equal(t, Stopped, tr.State())
}

// blockingOwner holds OnFailed until release is closed
type blockingOwner struct {
	recordingOwner
	entered chan struct{}
	release chan struct{}
}

func (o *blockingOwner) OnFailed(msg string) {
	o.entered <- struct{}{}
	<-o.release
	o.recordingOwner.OnFailed(msg)
}

func TestTracker_RestartDuringCallbackClosesPreviousDone(t *testing.T) {
	src := &fakeSource{replies: []pollReply{{snap: failed("boom")}}}
	owner := &blockingOwner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	sched := NewManualScheduler()
	tr := New(src, owner, Config{Scheduler: sched})

	tr.Start(context.Background(), "plan_1")
	first := tr.Done()

	ticked := make(chan struct{})
	go func() {
		sched.Tick()
		close(ticked)
	}()
	<-owner.entered

	tr.Start(context.Background(), "plan_2")
	second := tr.Done()
	close(owner.release)
	<-ticked

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("Done of the first run was never closed")
	}
	select {
	case <-second:
		t.Fatal("Done of the new run should still be open")
	default:
	}
	assert.Equal(t, Polling, tr.State())
	assert.Equal(t, []string{"boom"}, owner.failures)
}

func TestTracker_ContextCancelStops(t *testing.T) {
	src := &fakeSource{}
	tr, _ := newTestTracker(src, &recordingOwner{})

	ctx, cancel := context.WithCancel(context.Background())
	tr.Start(ctx, "plan_1")
	cancel()

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after context cancellation")
	}
	assert.Equal(t, Stopped, tr.State())
}

func TestTracker_MaxDurationFailsOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	src := &fakeSource{}
	owner := &recordingOwner{}
	sched := NewManualScheduler()
	tr := New(src, owner, Config{Scheduler: sched, MaxDuration: time.Minute, Now: clock})
	tr.Start(context.Background(), "plan_1")

	sched.Tick()
	assert.Len(t, owner.progress, 1)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	sched.Tick()
	sched.Tick()

	assert.Equal(t, []string{constants.MsgPollTimeout}, owner.failures)
	assert.Equal(t, Failed, tr.State())
	polls, _ := src.counts()
	assert.Equal(t, 1, polls)
}

func TestTickerScheduler_RunsImmediatelyAndCancels(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	first := make(chan struct{}, 1)

	task := TickerScheduler{}.Every(time.Hour, func() {
		mu.Lock()
		runs++
		mu.Unlock()
		select {
		case first <- struct{}{}:
		default:
		}
	})

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("task did not run immediately")
	}
	task.Cancel()
	task.Cancel()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}
