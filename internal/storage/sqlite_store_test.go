package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tracker"
)

var _ tracker.ResultStore = (*SQLiteStore)(nil)
var _ Provider = (*SQLiteStore)(nil)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleJob(id string) models.JobRecord {
	return models.JobRecord{
		ID:          id,
		Status:      constants.StatusProcessing,
		HeritageIDs: []int{3, 9},
		Config: models.PlanningConfiguration{
			TravelDays:          3,
			DepartureLocation:   "Xi'an",
			TravelMode:          constants.TravelSelfDrive,
			BudgetRange:         constants.BudgetModerate,
			GroupSize:           2,
			SpecialRequirements: []string{"wheelchair access"},
		},
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "run 'heritage-planner init' first") {
		t.Fatalf("Load() error = %v, want not initialized error", err)
	}
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store := NewSQLiteStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewSQLiteStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()

	st, err := reopened.SchemaStatus()
	if err != nil {
		t.Fatalf("SchemaStatus failed: %v", err)
	}
	if st.Current == 0 || st.Pending() != 0 {
		t.Errorf("unexpected schema status: %+v", st)
	}
	if reopened.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", reopened.GetConfigPath(), path)
	}
}

func TestJobRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	if err := store.SaveJob(sampleJob("plan_a")); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob("plan_a")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != constants.StatusProcessing {
		t.Errorf("Status = %q, want processing", got.Status)
	}
	if len(got.HeritageIDs) != 2 || got.HeritageIDs[1] != 9 {
		t.Errorf("HeritageIDs = %v", got.HeritageIDs)
	}
	if got.Config.DepartureLocation != "Xi'an" || got.Config.SpecialRequirements[0] != "wheelchair access" {
		t.Errorf("Config = %+v", got.Config)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("timestamps were not set")
	}

	created := got.CreatedAt
	if err := store.UpdateJobStatus("plan_a", constants.StatusError, "LLM timeout"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	got, err = store.GetJob("plan_a")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != constants.StatusError || got.ErrorMessage != "LLM timeout" {
		t.Errorf("after update got %q / %q", got.Status, got.ErrorMessage)
	}
	if got.CreatedAt != created {
		t.Errorf("CreatedAt changed from %s to %s", created, got.CreatedAt)
	}
	if got.UpdatedAt == created {
		t.Error("UpdatedAt was not refreshed")
	}
}

func TestJobErrors(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetJob("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob() error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateJobStatus("nope", constants.StatusCompleted, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateJobStatus() error = %v, want ErrNotFound", err)
	}

	invalid := sampleJob("plan_b")
	invalid.HeritageIDs = nil
	if err := store.SaveJob(invalid); err == nil {
		t.Error("SaveJob should reject a job without heritage items")
	}
}

func TestListJobs(t *testing.T) {
	store := setupTestStore(t)
	for _, id := range []string{"plan_1", "plan_2", "plan_3"} {
		if err := store.SaveJob(sampleJob(id)); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", id, err)
		}
	}

	all, err := store.ListJobs(0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListJobs(0) returned %d jobs, want 3", len(all))
	}
	if all[0].ID != "plan_3" || all[2].ID != "plan_1" {
		t.Errorf("jobs not newest first: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := store.ListJobs(2)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListJobs(2) returned %d jobs", len(limited))
	}
}

func TestResults(t *testing.T) {
	store := setupTestStore(t)

	_, ok, err := store.GetResult("plan_a")
	if err != nil || ok {
		t.Fatalf("GetResult on empty store = %v, %v", ok, err)
	}

	payload := json.RawMessage(`{"basic_info":{"title":"Qinqiang weekend"}}`)
	if err := store.SaveResult("plan_a", payload); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	got, ok, err := store.GetResult("plan_a")
	if err != nil || !ok {
		t.Fatalf("GetResult = %v, %v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("GetResult = %s, want %s", got, payload)
	}

	if err := store.SaveResult("plan_b", json.RawMessage(`{broken`)); err == nil {
		t.Error("SaveResult should reject invalid JSON")
	}
}

func TestCurrentJobSession(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetCurrentJob(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCurrentJob() error = %v, want ErrNotFound", err)
	}

	if err := store.SetCurrentJob("plan_a"); err != nil {
		t.Fatalf("SetCurrentJob failed: %v", err)
	}
	if err := store.SetCurrentJob("plan_b"); err != nil {
		t.Fatalf("SetCurrentJob failed: %v", err)
	}
	id, err := store.GetCurrentJob()
	if err != nil {
		t.Fatalf("GetCurrentJob failed: %v", err)
	}
	if id != "plan_b" {
		t.Errorf("GetCurrentJob() = %q, want plan_b", id)
	}

	if err := store.ClearCurrentJob(); err != nil {
		t.Fatalf("ClearCurrentJob failed: %v", err)
	}
	if _, err := store.GetCurrentJob(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCurrentJob() after clear error = %v, want ErrNotFound", err)
	}
}

func TestResultCacheBackedByStore(t *testing.T) {
	store := setupTestStore(t)
	if err := store.SaveResult("plan_a", json.RawMessage(`{"basic_info":{"title":"Stored"}}`)); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	cache := tracker.NewResultCache(store)
	res, err := cache.Fetch(t.Context(), "plan_a", func(ctx context.Context, id string) (*models.PlanResult, error) {
		t.Fatal("fetch should not be called when the store has the result")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Plan.BasicInfo.Title != "Stored" {
		t.Errorf("Title = %q, want Stored", res.Plan.BasicInfo.Title)
	}
}
