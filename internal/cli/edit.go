package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/agent"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tracker"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tui"
)

const endSessionTimeout = 5 * time.Second

type EditCmd struct {
	ID      string   `arg:"" optional:"" help:"Plan id. Defaults to the last submitted job."`
	Message []string `short:"m" help:"Send a message without opening the chat view. Repeatable."`
}

func (c *EditCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	id, err := ctx.jobOrCurrent(c.ID)
	if err != nil {
		return err
	}
	if len(c.Message) == 0 && !ctx.Interactive {
		return fmt.Errorf("no terminal to chat in, pass the edits with --message")
	}

	client := ctx.Agent()
	res, err := tracker.NewResultCache(ctx.Store).Fetch(ctx, id, client.Result)
	if errors.Is(err, agent.ErrResultNotFound) {
		return fmt.Errorf("no result for %s yet, check '%s status %s': %w", id, constants.AppName, id, err)
	}
	if err != nil {
		return err
	}

	sessionID, err := client.StartEditSession(ctx, id, res.Raw)
	if err != nil {
		return err
	}
	logger.Debug("Started edit session", "job_id", id, "session_id", sessionID)
	defer endEditSession(ctx, client, sessionID)

	var updated []byte
	if len(c.Message) > 0 {
		updated, err = editPlain(ctx, client, sessionID, c.Message)
	} else {
		updated, err = editInteractive(ctx, client, sessionID, res.Plan.BasicInfo.Title)
	}
	if err != nil {
		return err
	}

	if updated == nil {
		ctx.println(constants.MsgEditNoChanges)
		return nil
	}
	if _, err := models.ParsePlanResult(updated); err != nil {
		return fmt.Errorf("agent returned an unusable plan: %w", err)
	}
	if err := ctx.Store.SaveResult(id, updated); err != nil {
		return err
	}
	ctx.printf("Saved the edited plan %s. Run '%s result %s' to view it.\n", id, constants.AppName, id)
	return nil
}

// endEditSession releases the session even when the command was interrupted
func endEditSession(ctx *Context, client *agent.Client, sessionID string) {
	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endSessionTimeout)
	defer cancel()
	if err := client.EndEditSession(endCtx, sessionID); err != nil && !errors.Is(err, agent.ErrSessionNotFound) {
		logger.Warn("Failed to end edit session", "session_id", sessionID, "error", err)
	}
}

func editPlain(ctx *Context, client *agent.Client, sessionID string, messages []string) ([]byte, error) {
	var updated []byte
	for _, msg := range messages {
		reply, err := client.Chat(ctx, msg, sessionID)
		if err != nil {
			return nil, err
		}
		ctx.printf("> %s\n%s\n\n", msg, reply.Response)
		if reply.ChangesMade && len(reply.UpdatedPlan) > 0 {
			updated = reply.UpdatedPlan
		}
	}
	return updated, nil
}

func editInteractive(ctx *Context, client *agent.Client, sessionID, title string) ([]byte, error) {
	send := func(message string) (*models.ChatReply, error) {
		return client.Chat(ctx, message, sessionID)
	}

	logger.SetQuiet(true)
	defer logger.SetQuiet(false)

	p := tea.NewProgram(tui.NewChatModel(title, send), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("chat view failed: %w", err)
	}

	m, ok := final.(tui.ChatModel)
	if !ok {
		return nil, fmt.Errorf("unexpected chat model %T", final)
	}
	if m.Changes() == 0 {
		return nil, nil
	}
	return m.Updated(), nil
}
