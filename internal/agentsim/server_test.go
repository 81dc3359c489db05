package agentsim

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

const stepDelay = time.Second

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupServer(t *testing.T) (*Server, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(Options{StepDelay: stepDelay, Now: clock.Now}), clock
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createPlan(t *testing.T, s *Server, departure string) string {
	t.Helper()
	body := `{"heritage_ids":[1,2,3],"user_id":"1","travel_days":2,"departure_location":"` + departure +
		`","travel_mode":"self-drive","budget_range":"moderate","group_size":2,"special_requirements":["quiet hotels"]}`
	resp, data := doRequest(t, s, http.MethodPost, "/api/travel-plan/create", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var out models.PlanResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, out.Success)
	require.NotNil(t, out.Data)
	assert.Equal(t, out.PlanID, out.Data.PlanID)
	assert.Equal(t, 2, out.Data.TravelDays)
	return out.PlanID
}

func progressOf(t *testing.T, s *Server, id string) models.JobProgressSnapshot {
	t.Helper()
	resp, data := doRequest(t, s, http.MethodGet, "/api/travel-plan/progress/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var snap models.JobProgressSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestNewPlanID(t *testing.T) {
	id := NewPlanID(time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^plan_[0-9a-f]{8}_20260301_090507$`), id)
}

func TestHealthAndDiscovery(t *testing.T) {
	s, _ := setupServer(t)

	resp, data := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"healthy"`)

	resp, data = doRequest(t, s, http.MethodGet, "/api/agent-service-url/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"success"`)
}

func TestCreate_Validation(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"malformed", `{`, http.StatusBadRequest, "invalid request body"},
		{"no heritage", `{"heritage_ids":[],"user_id":"1","travel_days":3,"group_size":2}`, http.StatusUnprocessableEntity, constants.MsgNoHeritage},
		{"bad days", `{"heritage_ids":[1],"user_id":"1","travel_days":6,"group_size":2}`, http.StatusUnprocessableEntity, "TravelDays"},
		{"bad mode", `{"heritage_ids":[1],"user_id":"1","travel_days":3,"group_size":2,"travel_mode":"teleport"}`, http.StatusUnprocessableEntity, "TravelMode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doRequest(t, s, http.MethodPost, "/api/travel-plan/create", tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			var out DetailResponse
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Contains(t, out.Detail, tt.want)
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	s, clock := setupServer(t)
	id := createPlan(t, s, "Xi'an")

	snap := progressOf(t, s, id)
	assert.Equal(t, constants.StatusProcessing, snap.Status)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, Steps, snap.Steps)

	wantPercent := []int{16, 33, 50, 66, 83, 95}
	for i, pct := range wantPercent {
		clock.Advance(stepDelay)
		snap = progressOf(t, s, id)
		assert.Equal(t, constants.StatusProcessing, snap.Status)
		assert.Equal(t, pct, snap.Progress)
		assert.Equal(t, Steps[i], snap.CurrentStep)
	}

	// still running: result reports in progress
	_, data := doRequest(t, s, http.MethodGet, "/api/travel-plan/result/"+id, "")
	var env models.ResultEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.False(t, env.Success)
	assert.Equal(t, "processing", env.Status)

	clock.Advance(stepDelay)
	snap = progressOf(t, s, id)
	assert.Equal(t, constants.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.NotEmpty(t, snap.EndTime)

	_, data = doRequest(t, s, http.MethodGet, "/api/travel-plan/result/"+id, "")
	env = models.ResultEnvelope{}
	require.NoError(t, json.Unmarshal(data, &env))
	require.True(t, env.Success)
	res, err := models.ParsePlanResult(env.Data)
	require.NoError(t, err)
	assert.Equal(t, "Xi'an", res.Plan.BasicInfo.Departure)
	assert.Len(t, res.Plan.Itinerary, 2)
	assert.Contains(t, res.Plan.Recommendations.TravelTips[1], "quiet hotels")

	// finished jobs cannot be cancelled
	resp, _ := doRequest(t, s, http.MethodPost, "/api/travel-plan/cancel/"+id, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFailingDeparture(t *testing.T) {
	s, clock := setupServer(t)
	id := createPlan(t, s, "fail")

	clock.Advance(2 * stepDelay)
	assert.Equal(t, constants.StatusProcessing, progressOf(t, s, id).Status)

	clock.Advance(stepDelay)
	snap := progressOf(t, s, id)
	assert.Equal(t, constants.StatusError, snap.Status)
	assert.Equal(t, failMessage, snap.ErrorMessage)
	assert.Equal(t, Steps[failStep-1], snap.CurrentStep)

	_, data := doRequest(t, s, http.MethodGet, "/api/travel-plan/result/"+id, "")
	var env models.ResultEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.False(t, env.Success)
	assert.Equal(t, failMessage, env.Error)
}

func TestCancel(t *testing.T) {
	s, clock := setupServer(t)
	id := createPlan(t, s, "Xi'an")
	clock.Advance(2 * stepDelay)

	resp, data := doRequest(t, s, http.MethodPost, "/api/travel-plan/cancel/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	clock.Advance(10 * stepDelay)
	snap := progressOf(t, s, id)
	assert.Equal(t, constants.StatusError, snap.Status)
	assert.Equal(t, cancelMessage, snap.ErrorMessage)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, constants.StatusCancelled, snap.LocalStatus())
	assert.Equal(t, Steps[1], snap.CurrentStep)

	resp, _ = doRequest(t, s, http.MethodPost, "/api/travel-plan/cancel/plan_missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport(t *testing.T) {
	s, clock := setupServer(t)
	id := createPlan(t, s, "Xi'an")

	resp, _ := doRequest(t, s, http.MethodPost, "/api/travel-plan/export/"+id, `{"format":"pdf"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "running plans cannot be exported")

	clock.Advance(time.Duration(len(Steps)+1) * stepDelay)

	resp, data := doRequest(t, s, http.MethodPost, "/api/travel-plan/export/"+id, `{"format":"pdf"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-1.4"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "plan_"+id+".pdf")

	resp, data = doRequest(t, s, http.MethodPost, "/api/travel-plan/export/"+id, `{"format":"json"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, json.Valid(data))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".json")

	resp, data = doRequest(t, s, http.MethodPost, "/api/travel-plan/export/"+id, `{"format":"docx"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "unsupported export format docx")

	resp, _ = doRequest(t, s, http.MethodPost, "/api/travel-plan/export/plan_missing", `{"format":"pdf"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAndDelete(t *testing.T) {
	s, clock := setupServer(t)
	first := createPlan(t, s, "Xi'an")
	clock.Advance(time.Second)
	second := createPlan(t, s, "Baoji")

	_, data := doRequest(t, s, http.MethodGet, "/api/travel-plan/list", "")
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Total int                 `json:"total"`
			Plans []models.JobSummary `json:"plans"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, 2, out.Data.Total)
	assert.Equal(t, first, out.Data.Plans[0].PlanID)
	assert.Equal(t, second, out.Data.Plans[1].PlanID)

	resp, _ := doRequest(t, s, http.MethodDelete, "/api/travel-plan/"+first, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doRequest(t, s, http.MethodDelete, "/api/travel-plan/"+first, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = doRequest(t, s, http.MethodGet, "/api/travel-plan/progress/"+first, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), `"detail"`)

	resp, data = doRequest(t, s, http.MethodGet, "/api/travel-plan/result/"+first, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), "result does not exist")
}

func chat(t *testing.T, s *Server, sessionID, message string) models.ChatResponse {
	t.Helper()
	body, err := json.Marshal(models.ChatRequest{Message: message, SessionID: sessionID})
	require.NoError(t, err)
	resp, data := doRequest(t, s, http.MethodPost, "/api/agent/chat", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var out models.ChatResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEditSession(t *testing.T) {
	s, _ := setupServer(t)

	resp, data := doRequest(t, s, http.MethodPost, "/api/agent/start_edit_session",
		`{"plan_id":"plan_1","plan_data":{"basic_info":{"title":"Xi'an in 2 days"},"itinerary":[{"day":1},{"day":2}],"extra":"kept"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var started models.EditSessionResponse
	require.NoError(t, json.Unmarshal(data, &started))
	require.True(t, started.Success)
	_, err := uuid.Parse(started.SessionID)
	require.NoError(t, err, "session ids are uuids")

	out := chat(t, s, started.SessionID, "what does the plan look like?")
	require.True(t, out.Data.Success)
	assert.False(t, out.Data.ChangesMade)
	assert.Empty(t, out.Data.UpdatedPlan)
	assert.Contains(t, out.Data.Response, "2 day(s)")

	out = chat(t, s, started.SessionID, "Title: Heritage weekend")
	require.True(t, out.Data.Success)
	assert.True(t, out.Data.ChangesMade)
	assert.Equal(t, started.SessionID, out.SessionID)
	plan, err := models.ParsePlanResult(out.Data.UpdatedPlan)
	require.NoError(t, err)
	assert.Equal(t, "Heritage weekend", plan.Plan.BasicInfo.Title)
	assert.Contains(t, string(out.Data.UpdatedPlan), `"extra":"kept"`)

	out = chat(t, s, started.SessionID, "tip: bring cash for street food")
	plan, err = models.ParsePlanResult(out.Data.UpdatedPlan)
	require.NoError(t, err)
	assert.Equal(t, []string{"bring cash for street food"}, plan.Plan.Recommendations.TravelTips)
	assert.Equal(t, "Heritage weekend", plan.Plan.BasicInfo.Title, "edits accumulate")

	history, err := s.editor.History(started.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, models.RoleAssistant, history[1].Role)

	resp, _ = doRequest(t, s, http.MethodPost, "/api/agent/end_edit_session", `{"session_id":"`+started.SessionID+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doRequest(t, s, http.MethodPost, "/api/agent/end_edit_session", `{"session_id":"`+started.SessionID+`"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	out = chat(t, s, started.SessionID, "title: too late")
	assert.False(t, out.Data.Success)
	assert.Equal(t, constants.MsgEditSessionMissing, out.Data.Error)
}

func TestEditSession_RejectsBadInput(t *testing.T) {
	s, _ := setupServer(t)

	resp, _ := doRequest(t, s, http.MethodPost, "/api/agent/start_edit_session", `{"plan_data":null}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := doRequest(t, s, http.MethodPost, "/api/agent/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(data), "Message")

	resp, _ = doRequest(t, s, http.MethodPost, "/api/agent/chat", `{"message":"hi","session_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestChat_WithoutSessionStartsOne(t *testing.T) {
	s, _ := setupServer(t)

	out := chat(t, s, "", "hello")
	require.True(t, out.Data.Success)
	assert.NotEmpty(t, out.SessionID)
	assert.False(t, out.Data.ChangesMade)
	assert.Contains(t, out.Data.Response, "No plan is attached")

	again := chat(t, s, out.SessionID, "title: nothing to rename")
	assert.True(t, again.Data.Success)
	assert.False(t, again.Data.ChangesMade)
}
