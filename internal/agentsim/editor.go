package agentsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// Commands the simulated editor understands, matched case-insensitively at the
// start of a message
const (
	titleCommand = "title:"
	tipCommand   = "tip:"
)

var (
	errSessionNotFound = errors.New(constants.MsgEditSessionMissing)
	errEmptyPlan       = errors.New("plan_data must be a JSON object")
)

type editSession struct {
	plan    map[string]interface{}
	history []models.ChatMessage
}

// Editor keeps the conversations used to revise finished plans
type Editor struct {
	mu       sync.Mutex
	sessions map[string]*editSession
}

func NewEditor() *Editor {
	return &Editor{sessions: make(map[string]*editSession)}
}

// Start opens a session over plan and returns its id
func (e *Editor) Start(plan json.RawMessage) (string, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(plan, &doc); err != nil || doc == nil {
		return "", errEmptyPlan
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.NewString()
	e.sessions[id] = &editSession{plan: doc}
	return id, nil
}

// Chat answers one message. An empty session id opens a conversation without a plan.
func (e *Editor) Chat(sessionID, message string) (models.ChatReply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
		e.sessions[sessionID] = &editSession{}
	}
	s, found := e.sessions[sessionID]
	if !found {
		return models.ChatReply{SessionID: sessionID}, errSessionNotFound
	}

	s.history = append(s.history, models.ChatMessage{Role: models.RoleUser, Content: message})
	reply := models.ChatReply{Success: true, SessionID: sessionID}
	reply.Response, reply.ChangesMade = s.apply(strings.TrimSpace(message))
	if reply.ChangesMade {
		raw, err := json.Marshal(s.plan)
		if err != nil {
			return models.ChatReply{}, fmt.Errorf("failed to encode edited plan: %w", err)
		}
		reply.UpdatedPlan = raw
	}
	s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: reply.Response})
	return reply, nil
}

// History returns a copy of the conversation so far
func (e *Editor) History(sessionID string) ([]models.ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, found := e.sessions[sessionID]
	if !found {
		return nil, errSessionNotFound
	}
	return append([]models.ChatMessage(nil), s.history...), nil
}

func (e *Editor) End(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, found := e.sessions[sessionID]; !found {
		return errSessionNotFound
	}
	delete(e.sessions, sessionID)
	return nil
}

// apply carries out a recognised command and describes the result
func (s *editSession) apply(message string) (string, bool) {
	if s.plan == nil {
		return "No plan is attached to this conversation. Open one with 'edit <plan id>' to change it.", false
	}

	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, titleCommand):
		title := strings.TrimSpace(message[len(titleCommand):])
		if title == "" {
			return "Please give the new title after 'title:'.", false
		}
		section(s.plan, "basic_info")["title"] = title
		return fmt.Sprintf("Renamed the plan to %q.", title), true

	case strings.HasPrefix(lower, tipCommand):
		tip := strings.TrimSpace(message[len(tipCommand):])
		if tip == "" {
			return "Please give the tip after 'tip:'.", false
		}
		recs := section(s.plan, "recommendations")
		tips, _ := recs["travel_tips"].([]interface{})
		recs["travel_tips"] = append(tips, tip)
		return fmt.Sprintf("Added the travel tip %q.", tip), true
	}

	title, _ := section(s.plan, "basic_info")["title"].(string)
	days, _ := s.plan["itinerary"].([]interface{})
	return fmt.Sprintf("%q covers %d day(s). Send 'title: <new title>' to rename it or 'tip: <advice>' to add a travel tip.",
		title, len(days)), false
}

// section returns the named object of the plan, creating it when absent
func section(plan map[string]interface{}, name string) map[string]interface{} {
	if m, ok := plan[name].(map[string]interface{}); ok {
		return m
	}
	m := make(map[string]interface{})
	plan[name] = m
	return m
}
