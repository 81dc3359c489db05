// Package progress reports planning progress on terminals without the full-screen view.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Reporter is a tracker owner that draws a progress bar on terminals
// and prints one line per step change everywhere else.
type Reporter struct {
	mu         sync.Mutex
	out        io.Writer
	bar        *progressbar.ProgressBar
	lastStep   string
	lastStatus constants.JobStatus
	completion *models.Completion
	failure    string
	failed     bool
}

// NewReporter writes to f, using a progress bar when f is a terminal
func NewReporter(f *os.File) *Reporter {
	return newReporter(f, IsTerminal(f))
}

// NewPlainReporter prints one line per step change to out
func NewPlainReporter(out io.Writer) *Reporter {
	return newReporter(out, false)
}

func newReporter(out io.Writer, interactive bool) *Reporter {
	r := &Reporter{out: out}
	if interactive {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Starting"),
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(out, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return r
}

func (r *Reporter) OnProgress(view models.ProgressView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step := view.CurrentStep
	if step == "" {
		step = string(view.Status)
	}

	if r.bar != nil {
		r.bar.Describe(step)
		_ = r.bar.Set(view.Percent)
		return
	}

	if step == r.lastStep && view.Status == r.lastStatus {
		return
	}
	r.lastStep = step
	r.lastStatus = view.Status
	fmt.Fprintf(r.out, "[%3d%%] %s\n", view.Percent, step)
}

func (r *Reporter) OnCompleted(c models.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completion = &c
	if r.bar != nil {
		r.bar.Describe(constants.MsgPlanCompleted)
		_ = r.bar.Finish()
		return
	}
	fmt.Fprintf(r.out, "[100%%] %s\n", constants.MsgPlanCompleted)
}

func (r *Reporter) OnFailed(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failed = true
	r.failure = message
	if r.bar != nil {
		_ = r.bar.Exit()
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out, constants.MsgPlanFailedPrefix+message)
}

// Outcome returns the completion, or the failure message when the job failed.
// Both are empty while the job is still running.
func (r *Reporter) Outcome() (*models.Completion, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completion, r.failure, r.failed
}
