package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// retryLogger forwards retryablehttp logging to the application logger
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Error("agent request: "+msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Debug("agent request: "+msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Warn("agent request: "+msg, keysAndValues...)
}

// Options configures a Client
type Options struct {
	Timeout  time.Duration
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client talks to the travel planning agent
type Client struct {
	baseURL string
	// retrying is used for idempotent calls, single for everything else
	retrying *http.Client
	single   *http.Client
}

// NewClient creates a client for the agent API rooted at baseURL
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultAgentTimeout
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 5 * time.Second
	}

	retryClient := newRetryClient(opts.Timeout)
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax

	singleClient := newRetryClient(opts.Timeout)
	singleClient.RetryMax = 0

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		retrying: retryClient.StandardClient(),
		single:   singleClient.StandardClient(),
	}
}

func newRetryClient(timeout time.Duration) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: timeout}
	rc.Logger = retryLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// BaseURL returns the agent API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks the agent's health endpoint at the service origin
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	healthURL := strings.TrimSuffix(c.baseURL, constants.AgentAPIPath) + "/health"
	if err := c.doJSON(ctx, c.retrying, http.MethodGet, healthURL, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// CreatePlan submits a planning job and returns the accepted plan id.
// Submission is never retried so a slow agent cannot end up with duplicate jobs.
func (c *Client) CreatePlan(ctx context.Context, req *models.PlanRequest) (*models.PlanResponse, error) {
	var out models.PlanResponse
	if err := c.doJSON(ctx, c.single, http.MethodPost, c.endpoint("create"), req, &out); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	if out.PlanID == "" && out.Data != nil {
		out.PlanID = out.Data.PlanID
	}
	if !out.Success || out.PlanID == "" {
		msg := out.Message
		if msg == "" {
			msg = "agent did not return a plan id"
		}
		return nil, fmt.Errorf("failed to create plan: %s", msg)
	}
	return &out, nil
}

// Progress fetches one snapshot. It is a single attempt; the caller's poll loop is the retry.
func (c *Client) Progress(ctx context.Context, jobID string) (*models.JobProgressSnapshot, error) {
	var out models.JobProgressSnapshot
	if err := c.doJSON(ctx, c.single, http.MethodGet, c.endpoint("progress", jobID), nil, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		out.Status = constants.StatusUnknown
	}
	return &out, nil
}

// Result fetches a finished plan. ErrResultNotFound is returned for unknown plans.
func (c *Client) Result(ctx context.Context, jobID string) (*models.PlanResult, error) {
	var env models.ResultEnvelope
	err := c.doJSON(ctx, c.retrying, http.MethodGet, c.endpoint("result", jobID), nil, &env)
	if IsStatus(err, http.StatusNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	if !env.Success {
		switch {
		case env.Error != "":
			return nil, fmt.Errorf("plan failed: %s", env.Error)
		case env.Status != "":
			return nil, fmt.Errorf("plan not finished (status %s)", env.Status)
		default:
			return nil, fmt.Errorf("result unavailable: %s", env.Message)
		}
	}
	return models.ParsePlanResult(env.Data)
}

// Cancel asks the agent to stop a running job
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, c.retrying, http.MethodPost, c.endpoint("cancel", jobID), nil, &out); err != nil {
		return fmt.Errorf("failed to cancel plan: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("failed to cancel plan: %s", out.Message)
	}
	return nil
}

// Delete removes a plan from the agent
func (c *Client) Delete(ctx context.Context, jobID string) error {
	if err := c.doJSON(ctx, c.retrying, http.MethodDelete, c.endpoint(jobID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

// List returns the plans the agent currently knows about
func (c *Client) List(ctx context.Context) ([]models.JobSummary, error) {
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Total int                 `json:"total"`
			Plans []models.JobSummary `json:"plans"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, c.retrying, http.MethodGet, c.endpoint("list"), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return out.Data.Plans, nil
}

// Export downloads a rendered plan in the given format
func (c *Client) Export(ctx context.Context, jobID, format string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExportTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"format": format})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal export request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("export", jobID), bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// exports can take longer than the default client timeout
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status, Detail: errorDetail(data)}
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("export returned an empty file")
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fmt.Sprintf("plan_%s.%s", jobID, format)
	}
	return data, name, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method, target string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Detail: errorDetail(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// filenameFromDisposition extracts the filename of an attachment header
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	// never let the server pick a directory
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
