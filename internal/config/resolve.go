package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
)

// agentFallbackPort is where the agent listens next to a portal that cannot tell us
const agentFallbackPort = "8001"

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// Resolver picks the agent API base URL
type Resolver struct {
	client *http.Client
}

// NewResolver creates a resolver whose discovery requests time out after timeout
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = constants.DefaultAgentTimeout
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: timeout}
	rc.RetryMax = 1
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	return &Resolver{client: rc.StandardClient()}
}

// Resolve returns the agent base URL in priority order: the explicit agent URL,
// the URL the portal advertises, the portal host on the agent port, then the local default.
func (r *Resolver) Resolve(ctx context.Context, agentURL, portalURL string) string {
	if agentURL != "" {
		if origin, err := originOf(agentURL); err == nil {
			return Normalize(origin + constants.AgentAPIPath)
		}
		logger.Warn("Invalid agent URL, falling back", "agent_url", agentURL)
	}

	if portalURL != "" {
		portal, err := url.Parse(portalURL)
		if err != nil || portal.Host == "" {
			logger.Warn("Invalid portal URL, using default agent URL", "portal_url", portalURL)
			return Normalize(constants.DefaultAgentURL)
		}

		discovered, err := r.discover(ctx, portal)
		if err == nil {
			return Normalize(discovered + constants.AgentAPIPath)
		}
		logger.Warn("Agent discovery failed, using portal host", "portal_url", portalURL, "error", err)

		return Normalize("http://" + net.JoinHostPort(portal.Hostname(), agentFallbackPort) + constants.AgentAPIPath)
	}

	return Normalize(constants.DefaultAgentURL)
}

func (r *Resolver) discover(ctx context.Context, portal *url.URL) (string, error) {
	origin := portal.Scheme + "://" + portal.Host
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+constants.AgentDiscoveryPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery returned %s", resp.Status)
	}

	var body struct {
		Status string `json:"status"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode discovery response: %w", err)
	}
	if body.Status != "success" || strings.TrimSpace(body.URL) == "" {
		return "", fmt.Errorf("portal did not advertise an agent URL")
	}

	agentURL := strings.TrimSpace(body.URL)
	if !strings.HasPrefix(agentURL, "http://") && !strings.HasPrefix(agentURL, "https://") {
		agentURL = origin + "/" + strings.TrimPrefix(agentURL, "/")
	}
	return strings.TrimSuffix(Normalize(agentURL), "/"), nil
}

// Normalize removes a trailing slash and collapses repeated slashes after the scheme
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/")

	scheme := ""
	rest := raw
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme = raw[:i+3]
		rest = raw[i+3:]
	}
	rest = repeatedSlashes.ReplaceAllString(rest, "/")
	return scheme + strings.TrimSuffix(rest, "/")
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("not an absolute http(s) URL: %s", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
