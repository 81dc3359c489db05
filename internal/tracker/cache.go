package tracker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// ResultStore persists fetched plan payloads across runs
type ResultStore interface {
	GetResult(jobID string) (json.RawMessage, bool, error)
	SaveResult(jobID string, raw json.RawMessage) error
}

// FetchFunc retrieves a finished plan from the agent
type FetchFunc func(ctx context.Context, jobID string) (*models.PlanResult, error)

// ResultCache remembers plan results per job id so each is fetched at most once
type ResultCache struct {
	mu    sync.Mutex
	mem   map[string]*models.PlanResult
	store ResultStore
}

// NewResultCache creates a cache; store may be nil for memory-only caching
func NewResultCache(store ResultStore) *ResultCache {
	return &ResultCache{
		mem:   make(map[string]*models.PlanResult),
		store: store,
	}
}

// Get returns a cached result without fetching
func (c *ResultCache) Get(jobID string) (*models.PlanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(jobID)
}

// Fetch returns the cached result for jobID or calls fetch once to fill it.
// Failed fetches are not cached.
func (c *ResultCache) Fetch(ctx context.Context, jobID string, fetch FetchFunc) (*models.PlanResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res, ok := c.lookupLocked(jobID); ok {
		return res, nil
	}

	res, err := fetch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	c.mem[jobID] = res

	if c.store != nil {
		if err := c.store.SaveResult(jobID, res.Raw); err != nil {
			logger.Warn("Failed to persist plan result", "job_id", jobID, "error", err)
		}
	}
	return res, nil
}

func (c *ResultCache) lookupLocked(jobID string) (*models.PlanResult, bool) {
	if res, ok := c.mem[jobID]; ok {
		return res, true
	}
	if c.store == nil {
		return nil, false
	}

	raw, ok, err := c.store.GetResult(jobID)
	if err != nil {
		logger.Warn("Failed to read cached plan result", "job_id", jobID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	res, err := models.ParsePlanResult(raw)
	if err != nil {
		logger.Warn("Discarding unreadable cached plan result", "job_id", jobID, "error", err)
		return nil, false
	}
	c.mem[jobID] = res
	return res, true
}
