package models

import "encoding/json"

// Chat roles recorded in an edit session's history
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EditSessionRequest opens an edit session over a finished plan
type EditSessionRequest struct {
	PlanID   string          `json:"plan_id,omitempty"`
	PlanData json.RawMessage `json:"plan_data"`
}

// EditSessionResponse is the reply of start_edit_session
type EditSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ChatRequest is one user message in an edit session. Without a session id
// the agent starts a fresh conversation.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=2000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
}

// ChatReply is the agent's answer to one message
type ChatReply struct {
	Success     bool            `json:"success"`
	Response    string          `json:"response"`
	SessionID   string          `json:"session_id,omitempty"`
	ChangesMade bool            `json:"changes_made"`
	UpdatedPlan json.RawMessage `json:"updated_plan,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ChatResponse wraps a ChatReply the way the chat endpoint returns it
type ChatResponse struct {
	Success   bool      `json:"success"`
	Data      ChatReply `json:"data"`
	SessionID string    `json:"session_id"`
}

// ChatMessage is one turn of an edit conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
