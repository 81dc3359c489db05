package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agentsim"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/backup"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Delete the existing local store before initializing."`
}

func (c *InitCmd) Run(ctx *Context) error {
	if c.Force {
		path := ctx.Store.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			backupPath, err := backup.NewManager(path).Create()
			if err != nil {
				return fmt.Errorf("failed to back up existing store: %w", err)
			}
			ctx.printf("Backed up existing store to: %s\n", backupPath)
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing store: %w", err)
			}
			ctx.printf("Deleted existing store at: %s\n", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing store: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized %s storage at: %s\n", constants.AppName, ctx.Store.GetConfigPath())
	return nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	path, err := backup.NewManager(ctx.Store.GetConfigPath()).Create()
	if err != nil {
		return err
	}
	ctx.printf("Created backup: %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		ctx.printf("No backups found in %s\n", mgr.Dir())
		return nil
	}
	ctx.printf("Backups in %s:\n", mgr.Dir())
	for _, b := range backups {
		ctx.printf("  %s  %s  %d bytes\n", b.Created.Format(constants.DateTimeFormat), filepath.Base(b.Path), b.Size)
	}
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Backup file to restore." type:"existingfile"`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := backup.NewManager(ctx.Store.GetConfigPath()).Restore(c.File); err != nil {
		return err
	}
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("restored store is unusable: %w", err)
	}
	ctx.printf("Restored %s from %s\n", ctx.Store.GetConfigPath(), c.File)
	return nil
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	check := func(name string, err error) {
		if err != nil {
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
			return
		}
		ctx.printf("✓ %s: OK\n", name)
	}

	check("Configuration", ctx.Config.Validate())

	storeErr := ctx.Store.Load()
	check("Store reachable", storeErr)
	if storeErr == nil {
		check("Schema version", checkSchema(ctx.Store))
	} else {
		ctx.println("⊘ Schema version: SKIPPED (store not reachable)")
	}

	client := ctx.Agent()
	ctx.printf("  Agent service: %s\n", client.BaseURL())
	status, err := client.Health(ctx)
	if err == nil && status != "healthy" {
		err = fmt.Errorf("agent reported status %q", status)
	}
	check("Agent health", err)

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkSchema(store storage.Provider) error {
	sqliteStore, ok := store.(*storage.SQLiteStore)
	if !ok {
		return nil
	}
	status, err := sqliteStore.SchemaStatus()
	if err != nil {
		return err
	}
	if status.Pending() > 0 {
		return fmt.Errorf("schema version %d is behind %d, run '%s init'", status.Current, status.Latest, constants.AppName)
	}
	return nil
}

type SimCmd struct {
	Addr      string        `help:"Address to listen on." default:":8001"`
	StepDelay time.Duration `help:"Time each planning step takes." default:"1.5s"`
	AccessLog bool          `help:"Print an access log line per request."`
}

func (c *SimCmd) Run(ctx *Context) error {
	var access io.Writer
	if c.AccessLog {
		access = ctx.Out
	}
	srv := agentsim.New(agentsim.Options{StepDelay: c.StepDelay, AccessLog: access})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(c.Addr)
	}()
	ctx.printf("Simulated planning agent listening on %s (API at %s)\n", c.Addr, constants.AgentAPIPath)
	logger.Info("Simulated agent started", "addr", c.Addr, "step_delay", c.StepDelay)

	select {
	case err := <-errCh:
		return fmt.Errorf("simulated agent stopped: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down simulated agent")
		return srv.Shutdown()
	}
}
