package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agent"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/render"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tracker"
)

type ResumeCmd struct {
	ID string `arg:"" optional:"" help:"Plan id. Defaults to the last submitted job."`
}

func (c *ResumeCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	id, err := ctx.jobOrCurrent(c.ID)
	if err != nil {
		return err
	}
	ctx.printf("Resuming %s\n", id)
	return watch(ctx, id)
}

type StatusCmd struct {
	ID string `arg:"" optional:"" help:"Plan id. Defaults to the last submitted job."`
}

func (c *StatusCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	id, err := ctx.jobOrCurrent(c.ID)
	if err != nil {
		return err
	}

	snap, err := ctx.Agent().Progress(ctx, id)
	if err != nil {
		return err
	}

	ctx.printf("Plan:     %s\n", id)
	ctx.printf("Status:   %s\n", snap.LocalStatus())
	ctx.printf("Progress: %d%%\n", snap.Percent())
	if snap.CurrentStep != "" {
		ctx.printf("Step:     %s\n", snap.CurrentStep)
	}
	if snap.ErrorMessage != "" {
		ctx.printf("Error:    %s\n", snap.ErrorMessage)
	}
	if steps := render.Steps(tracker.MarkSteps(snap.Steps, snap.CurrentStep)); steps != "" {
		ctx.println()
		ctx.println(steps)
	}

	if snap.Status.IsTerminal() {
		ctx.recordStatus(id, snap.LocalStatus(), snap.ErrorMessage)
	}
	return nil
}

type ResultCmd struct {
	ID   string `arg:"" optional:"" help:"Plan id. Defaults to the last submitted job."`
	JSON bool   `help:"Print the raw plan JSON." name:"json"`
}

func (c *ResultCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	id, err := ctx.jobOrCurrent(c.ID)
	if err != nil {
		return err
	}

	cache := tracker.NewResultCache(ctx.Store)
	res, err := cache.Fetch(ctx, id, ctx.Agent().Result)
	if errors.Is(err, agent.ErrResultNotFound) {
		return fmt.Errorf("no result for %s yet, check '%s status %s': %w", id, constants.AppName, id, err)
	}
	if err != nil {
		return err
	}

	if c.JSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.Raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format plan: %w", err)
		}
		ctx.println(buf.String())
		return nil
	}
	ctx.println(render.Plan(&res.Plan))
	return nil
}

type CancelCmd struct {
	ID string `arg:"" optional:"" help:"Plan id. Defaults to the last submitted job."`
}

func (c *CancelCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	id, err := ctx.jobOrCurrent(c.ID)
	if err != nil {
		return err
	}

	if err := ctx.Agent().Cancel(ctx, id); err != nil {
		return err
	}
	ctx.recordStatus(id, constants.StatusCancelled, "")
	ctx.forgetCurrent(id)
	ctx.printf("Cancelled %s\n", id)
	return nil
}

type ExportCmd struct {
	ID     string `arg:"" help:"Plan id."`
	Format string `help:"Export format." enum:"pdf,json" default:"pdf"`
	Out    string `help:"Directory to write the file to." type:"path" default:"."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	data, name, err := ctx.Agent().Export(ctx, c.ID, c.Format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(c.Out, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	ctx.printf("Exported %s to %s (%d bytes)\n", c.ID, path, len(data))
	return nil
}

type HistoryCmd struct {
	Limit  int  `help:"Maximum number of jobs to show (0 for all)." default:"20"`
	Remote bool `help:"List the jobs the agent knows about instead of the local history."`
}

func (c *HistoryCmd) Run(ctx *Context) error {
	if c.Remote {
		return c.remote(ctx)
	}

	if err := ctx.Store.Load(); err != nil {
		return err
	}
	jobs, err := ctx.Store.ListJobs(c.Limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		ctx.println("No planning jobs recorded")
		return nil
	}

	current, _ := ctx.Store.GetCurrentJob()
	ctx.println("Planning jobs:")
	for _, job := range jobs {
		marker := " "
		if job.ID == current {
			marker = "*"
		}
		ctx.printf("%s %s [%s] %d day(s) from %s, %d item(s), %s\n",
			marker, job.ID, job.Status, job.Config.TravelDays, job.Config.DepartureLocation,
			len(job.HeritageIDs), job.CreatedAt)
		if job.ErrorMessage != "" {
			ctx.printf("      %s\n", job.ErrorMessage)
		}
	}
	return nil
}

func (c *HistoryCmd) remote(ctx *Context) error {
	plans, err := ctx.Agent().List(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		ctx.println("The agent has no plans")
		return nil
	}
	if c.Limit > 0 && len(plans) > c.Limit {
		plans = plans[len(plans)-c.Limit:]
	}
	ctx.println("Agent plans:")
	for _, p := range plans {
		ctx.printf("  %s [%s] %d%% started %s\n", p.PlanID, p.Status, p.Progress, p.StartTime)
	}
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Plan id."`
}

func (c *DeleteCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if err := ctx.Agent().Delete(ctx, c.ID); err != nil {
		return err
	}
	ctx.forgetCurrent(c.ID)
	ctx.printf("Deleted %s from the agent\n", c.ID)
	return nil
}
