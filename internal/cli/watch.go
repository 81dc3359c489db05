package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agent"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	apperrors "github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/errors"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/progress"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/render"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tracker"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tui"
)

// watchOutcome is how a watched job ended, independent of the front end
type watchOutcome struct {
	phase      tui.Phase
	completion *models.Completion
	failure    string
}

func trackerConfig(ctx *Context, client *agent.Client) tracker.Config {
	return tracker.Config{
		Interval:    ctx.Config.Poll.Interval,
		MaxDuration: ctx.Config.Poll.MaxDuration,
		BaseURL:     client.BaseURL(),
		Cache:       tracker.NewResultCache(ctx.Store),
	}
}

// watch tracks jobID until it finishes or the user stops watching, then
// records the outcome locally
func watch(ctx *Context, jobID string) error {
	client := ctx.Agent()

	var (
		out watchOutcome
		err error
	)
	if ctx.Interactive {
		out, err = watchInteractive(ctx, client, jobID)
	} else {
		out, err = watchPlain(ctx, client, jobID)
	}
	if err != nil {
		return err
	}
	if out.phase == tui.PhaseFailed && cancelledOnAgent(ctx, client, jobID) {
		out.phase = tui.PhaseCancelled
	}
	return finish(ctx, jobID, out)
}

// cancelledOnAgent reports whether a failed job was ended by a cancel request,
// possibly sent from another session
func cancelledOnAgent(ctx *Context, client *agent.Client, jobID string) bool {
	snap, err := client.Progress(ctx, jobID)
	if err != nil {
		logger.Debug("Could not recheck failed job", "job_id", jobID, "error", err)
		return false
	}
	return snap.Cancelled
}

func watchInteractive(ctx *Context, client *agent.Client, jobID string) (watchOutcome, error) {
	onCancel := func() error {
		return client.Cancel(ctx, jobID)
	}

	logger.SetQuiet(true)
	defer logger.SetQuiet(false)

	p := tea.NewProgram(tui.NewProgressModel(jobID, onCancel), tea.WithContext(ctx), tea.WithAltScreen())
	tr := tracker.New(client, tui.NewOwner(p.Send), trackerConfig(ctx, client))
	tr.Start(ctx, jobID)
	defer tr.Stop()

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return watchOutcome{phase: tui.PhaseDetached}, nil
		}
		return watchOutcome{}, fmt.Errorf("progress view failed: %w", err)
	}

	m, ok := final.(tui.ProgressModel)
	if !ok {
		return watchOutcome{}, fmt.Errorf("unexpected progress model %T", final)
	}
	o := m.Outcome()
	return watchOutcome{phase: o.Phase, completion: o.Completion, failure: o.Failure}, nil
}

func watchPlain(ctx *Context, client *agent.Client, jobID string) (watchOutcome, error) {
	var rep *progress.Reporter
	if f, ok := ctx.Out.(*os.File); ok {
		rep = progress.NewReporter(f)
	} else {
		rep = progress.NewPlainReporter(ctx.Out)
	}

	tr := tracker.New(client, rep, trackerConfig(ctx, client))
	tr.Start(ctx, jobID)

	select {
	case <-tr.Done():
	case <-ctx.Done():
		tr.Stop()
	}

	completion, failure, failed := rep.Outcome()
	switch {
	case failed:
		return watchOutcome{phase: tui.PhaseFailed, failure: failure}, nil
	case completion != nil:
		return watchOutcome{phase: tui.PhaseCompleted, completion: completion}, nil
	default:
		return watchOutcome{phase: tui.PhaseDetached}, nil
	}
}

func finish(ctx *Context, jobID string, out watchOutcome) error {
	switch out.phase {
	case tui.PhaseCompleted:
		ctx.recordStatus(jobID, constants.StatusCompleted, "")
		ctx.forgetCurrent(jobID)
		c := out.completion
		if c == nil || c.Degraded || c.Result == nil {
			if c != nil && c.Err != nil {
				logger.Warn("Plan result unavailable", "job_id", jobID, "error", c.Err)
			}
			ctx.println(constants.MsgResultMissing)
			ctx.printf("Try again later with '%s result %s'.\n", constants.AppName, jobID)
			return nil
		}
		ctx.println()
		ctx.println(render.Plan(&c.Result.Plan))
		return nil

	case tui.PhaseFailed:
		ctx.recordStatus(jobID, constants.StatusError, out.failure)
		ctx.forgetCurrent(jobID)
		return fmt.Errorf("%s%s", constants.MsgPlanFailedPrefix, out.failure)

	case tui.PhaseCancelled:
		ctx.recordStatus(jobID, constants.StatusCancelled, "")
		ctx.forgetCurrent(jobID)
		ctx.println(constants.MsgPlanCancelled)
		return nil

	default:
		ctx.printf("Stopped watching %s. Run '%s resume' to continue.\n", jobID, constants.AppName)
		if ctx.Err() != nil {
			return apperrors.ErrCancelled
		}
		return nil
	}
}
