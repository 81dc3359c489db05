package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agent"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/config"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	apperrors "github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/errors"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/progress"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/storage"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/validation"
)

// Dialog collects a planning configuration from the user.
// A nil configuration with a nil error means the user backed out.
type Dialog interface {
	Open(ctx context.Context) (*models.PlanningConfiguration, error)
}

// Context is shared by every command. The embedded context is cancelled on interrupt.
type Context struct {
	context.Context

	Config    *config.Config
	Store     storage.Provider
	Validator *validation.Validator
	Dialog    Dialog
	Out       io.Writer

	// Interactive selects the full-screen progress view over plain output
	Interactive bool

	client *agent.Client
}

// Agent returns the planning agent client, resolving its base URL on first use
func (c *Context) Agent() *agent.Client {
	if c.client != nil {
		return c.client
	}
	base := config.NewResolver(c.Config.Agent.Timeout).Resolve(c, c.Config.Agent.URL, c.Config.Agent.PortalURL)
	logger.Debug("Resolved agent service", "base_url", base)
	c.client = agent.NewClient(base, agent.Options{Timeout: c.Config.Agent.Timeout})
	return c.client
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// jobOrCurrent returns id, or the last submitted job when id is empty
func (c *Context) jobOrCurrent(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	current, err := c.Store.GetCurrentJob()
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", constants.MsgNothingToResume, apperrors.ErrNoCurrentJob)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read current job: %w", err)
	}
	return current, nil
}

// recordStatus updates the local history entry of a job. Jobs submitted
// elsewhere have no entry and are skipped.
func (c *Context) recordStatus(id string, status constants.JobStatus, errMsg string) {
	err := c.Store.UpdateJobStatus(id, status, errMsg)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Debug("Job not recorded locally", "job_id", id)
		return
	}
	if err != nil {
		logger.Warn("Failed to record job status", "job_id", id, "status", status, "error", err)
	}
}

// forgetCurrent clears the current job marker when it points at id
func (c *Context) forgetCurrent(id string) {
	current, err := c.Store.GetCurrentJob()
	if err != nil || current != id {
		return
	}
	if err := c.Store.ClearCurrentJob(); err != nil {
		logger.Warn("Failed to clear current job", "job_id", id, "error", err)
	}
}

// StdoutIsTerminal reports whether standard output is attached to a terminal
func StdoutIsTerminal() bool {
	return progress.IsTerminal(os.Stdout)
}
