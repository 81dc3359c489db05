package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// ErrSessionNotFound is returned when the agent no longer knows an edit session
var ErrSessionNotFound = errors.New(constants.MsgEditSessionMissing)

// editEndpoint addresses the plan editing API, which lives beside the planning API
func (c *Client) editEndpoint(name string) string {
	return strings.TrimSuffix(c.baseURL, constants.AgentAPIPath) + constants.AgentEditPath + "/" + name
}

// StartEditSession opens a conversation over a finished plan and returns its session id
func (c *Client) StartEditSession(ctx context.Context, planID string, plan json.RawMessage) (string, error) {
	var out models.EditSessionResponse
	req := models.EditSessionRequest{PlanID: planID, PlanData: plan}
	if err := c.doJSON(ctx, c.single, http.MethodPost, c.editEndpoint("start_edit_session"), req, &out); err != nil {
		return "", fmt.Errorf("failed to start edit session: %w", err)
	}
	if !out.Success || out.SessionID == "" {
		msg := out.Message
		if msg == "" {
			msg = "agent did not return a session id"
		}
		return "", fmt.Errorf("failed to start edit session: %s", msg)
	}
	return out.SessionID, nil
}

// Chat sends one message. An empty sessionID starts a new conversation; the
// reply carries the session id to use for the next message.
// Messages are never retried so the agent sees each one once.
func (c *Client) Chat(ctx context.Context, message, sessionID string) (*models.ChatReply, error) {
	var out models.ChatResponse
	req := models.ChatRequest{Message: message, SessionID: sessionID}
	if err := c.doJSON(ctx, c.single, http.MethodPost, c.editEndpoint("chat"), req, &out); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	reply := out.Data
	if reply.SessionID == "" {
		reply.SessionID = out.SessionID
	}
	if !out.Success || !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = reply.Response
		}
		if msg == constants.MsgEditSessionMissing {
			return nil, ErrSessionNotFound
		}
		if msg == "" {
			msg = "agent could not answer"
		}
		return nil, fmt.Errorf("chat request failed: %s", msg)
	}
	return &reply, nil
}

// EndEditSession releases an edit session on the agent
func (c *Client) EndEditSession(ctx context.Context, sessionID string) error {
	req := map[string]string{"session_id": sessionID}
	err := c.doJSON(ctx, c.retrying, http.MethodPost, c.editEndpoint("end_edit_session"), req, nil)
	if IsStatus(err, http.StatusNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to end edit session: %w", err)
	}
	return nil
}
