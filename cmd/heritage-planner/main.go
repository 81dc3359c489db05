package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/cli"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/config"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/dialog"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/errors"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/storage"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/validation"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path." type:"path"`
	AgentURL string `help:"Planning agent URL, overrides agent.url." name:"agent-url"`
	Debug    bool   `help:"Enable debug logging."`

	Init    cli.InitCmd    `cmd:"" help:"Initialize the local store."`
	Plan    cli.PlanCmd    `cmd:"" help:"Configure, submit and track a travel plan."`
	Resume  cli.ResumeCmd  `cmd:"" help:"Keep tracking the last submitted plan."`
	Status  cli.StatusCmd  `cmd:"" help:"Show the progress of a plan."`
	Result  cli.ResultCmd  `cmd:"" help:"Show a finished plan."`
	Cancel  cli.CancelCmd  `cmd:"" help:"Cancel a running plan."`
	Edit    cli.EditCmd    `cmd:"" help:"Refine a finished plan by chatting with the agent."`
	Export  cli.ExportCmd  `cmd:"" help:"Download a finished plan as PDF or JSON."`
	History cli.HistoryCmd `cmd:"" help:"List submitted plans."`
	Delete  cli.DeleteCmd  `cmd:"" help:"Delete a plan from the agent."`
	Backup  struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a backup of the local store." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore the local store from a backup."`
	} `cmd:"" help:"Manage local store backups."`
	Doctor cli.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Sim    cli.SimCmd    `cmd:"" help:"Run a simulated planning agent."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Terminal client for the Shaanxi heritage travel planning agent"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(config.Options{File: CLI.Config})
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.AgentURL != "" {
		cfg.Agent.URL = CLI.AgentURL
	}
	if CLI.Debug {
		cfg.Log.Debug = true
	}

	interactive := cli.StdoutIsTerminal()
	command := strings.Fields(kctx.Command())[0]
	fullScreen := interactive && (command == "plan" || command == "resume")

	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, ConfigDir: cfg.Dir, Quiet: fullScreen}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.NewSQLiteStore(cfg.Store.Path)
	v := validation.New()

	appCtx := &cli.Context{
		Context:     ctx,
		Config:      cfg,
		Store:       store,
		Validator:   v,
		Out:         os.Stdout,
		Interactive: interactive,
	}
	if interactive {
		ctrl := dialog.NewController(dialog.NewHuhPresenter(), v)
		// debug output may reach stderr again once the form no longer owns the screen
		ctrl.OnDispose(func() { logger.SetQuiet(false) })
		appCtx.Dialog = ctrl
	}

	err = kctx.Run(appCtx)
	if cerr := store.Close(); cerr != nil {
		logger.Warn("Failed to close store", "error", cerr)
	}
	stop()
	errors.Fatal(err)
}
