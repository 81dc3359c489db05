package tracker

import (
	"sync"
	"time"
)

// Task is a handle on a running periodic job
type Task interface {
	// Cancel stops future runs. Safe to call more than once.
	Cancel()
}

// Scheduler starts periodic tasks.
// Every runs fn once right away and then every d on a single goroutine, so runs never overlap.
// Implementations must not invoke fn synchronously from Every.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
}

// TickerScheduler runs tasks on a time.Ticker
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{stop: make(chan struct{})}
	go t.run(d, fn)
	return t
}

type tickerTask struct {
	once sync.Once
	stop chan struct{}
}

func (t *tickerTask) run(d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	select {
	case <-t.stop:
		return
	default:
	}
	fn()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			// cancellation wins over a tick that fired at the same time
			select {
			case <-t.stop:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

// ManualScheduler runs tasks only when Tick is called
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

// NewManualScheduler creates a scheduler driven by Tick
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Every(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{fn: fn, interval: d}
	s.tasks = append(s.tasks, t)
	return t
}

// Tick runs every live task once and reports how many ran
func (s *ManualScheduler) Tick() int {
	s.mu.Lock()
	live := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.cancelled() {
			live = append(live, t)
		}
	}
	s.mu.Unlock()

	for _, t := range live {
		t.fn()
	}
	return len(live)
}

// Active returns the number of tasks not yet cancelled
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled() {
			n++
		}
	}
	return n
}

// LastInterval returns the period of the most recently scheduled task
func (s *ManualScheduler) LastInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return 0
	}
	return s.tasks[len(s.tasks)-1].interval
}

type manualTask struct {
	mu       sync.Mutex
	fn       func()
	interval time.Duration
	done     bool
}

func (t *manualTask) Cancel() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
}

func (t *manualTask) cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
