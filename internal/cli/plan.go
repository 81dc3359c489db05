package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agent"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	apperrors "github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/errors"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/storage"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/validation"
)

type PlanCmd struct {
	Heritage []int    `help:"Heritage item ids to visit (comma separated)." sep:"," required:""`
	From     string   `help:"Departure location. Skips the dialog when set." name:"from"`
	Days     int      `help:"Number of travel days." default:"3"`
	Mode     string   `help:"Travel mode." enum:"self-drive,public-transit,group-tour,independent" default:"self-drive"`
	Budget   string   `help:"Budget range." enum:"economy,moderate,premium,luxury" default:"moderate"`
	Group    int      `help:"Number of travellers." default:"2"`
	Require  []string `help:"Special requirement, may be repeated."`
	Detach   bool     `help:"Submit the job without watching its progress."`
}

func (c *PlanCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	if len(c.Heritage) < constants.MinHeritageItems {
		return errors.New(constants.MsgNoHeritage)
	}
	if len(c.Heritage) > constants.MaxHeritageItems {
		return errors.New(constants.MsgTooManyHeritage)
	}

	client := ctx.Agent()
	if err := checkNotPlanning(ctx, client); err != nil {
		return err
	}

	cfg, err := c.configuration(ctx)
	if err != nil {
		return err
	}

	req := models.NewPlanRequest(*cfg, c.Heritage, ctx.Config.User.ID)
	if err := ctx.Validator.ValidateRequest(&req); err != nil {
		return fmt.Errorf("invalid planning request: %s", validation.FormatFieldErrors(err))
	}

	resp, err := client.CreatePlan(ctx, &req)
	if err != nil {
		return err
	}

	job := models.JobRecord{
		ID:          resp.PlanID,
		Status:      constants.StatusPending,
		HeritageIDs: c.Heritage,
		Config:      *cfg,
	}
	if err := ctx.Store.SaveJob(job); err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	if err := ctx.Store.SetCurrentJob(resp.PlanID); err != nil {
		return fmt.Errorf("failed to record current job: %w", err)
	}

	logger.Info("Planning job submitted", "job_id", resp.PlanID, "heritage", len(c.Heritage), "days", cfg.TravelDays)
	ctx.printf("%s: %s\n", constants.MsgPlanStarted, resp.PlanID)
	if resp.Data != nil && resp.Data.EstimatedTime != "" {
		ctx.printf("Estimated time: %s\n", resp.Data.EstimatedTime)
	}

	if c.Detach {
		ctx.printf("Run '%s resume' to follow its progress.\n", constants.AppName)
		return nil
	}
	return watch(ctx, resp.PlanID)
}

// configuration builds the planning configuration from flags when a departure
// is given, otherwise from the dialog
func (c *PlanCmd) configuration(ctx *Context) (*models.PlanningConfiguration, error) {
	if c.From != "" {
		return ctx.Validator.ValidateForm(models.ConfigurationForm{
			TravelDays:          fmt.Sprint(c.Days),
			DepartureLocation:   c.From,
			TravelMode:          constants.TravelMode(c.Mode),
			BudgetRange:         constants.BudgetRange(c.Budget),
			GroupSize:           fmt.Sprint(c.Group),
			SpecialRequirements: strings.Join(c.Require, "\n"),
		})
	}

	if ctx.Dialog == nil {
		return nil, fmt.Errorf("no terminal available for the planning dialog, pass --from to plan non-interactively")
	}
	cfg, err := ctx.Dialog.Open(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, apperrors.ErrCancelled
	}
	return cfg, nil
}

// checkNotPlanning refuses a new job while the last submitted one is still running
func checkNotPlanning(ctx *Context, client *agent.Client) error {
	current, err := ctx.Store.GetCurrentJob()
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read current job: %w", err)
	}

	snap, err := client.Progress(ctx, current)
	if err != nil {
		logger.Debug("Could not check current job, assuming it is gone", "job_id", current, "error", err)
		return nil
	}
	if snap.Status.IsTerminal() {
		ctx.recordStatus(current, snap.LocalStatus(), snap.ErrorMessage)
		ctx.forgetCurrent(current)
		return nil
	}
	return fmt.Errorf("%s (%s, run '%s resume' or '%s cancel')",
		constants.MsgAlreadyPlanning, current, constants.AppName, constants.AppName)
}
