package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/storage"
)

func setupTestStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := storage.NewSQLiteStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()

	saveJob(t, store, "plan_original")
	return dbPath
}

func saveJob(t *testing.T, store *storage.SQLiteStore, id string) {
	t.Helper()
	err := store.SaveJob(models.JobRecord{
		ID:          id,
		Status:      constants.StatusCompleted,
		HeritageIDs: []int{1},
		Config:      models.PlanningConfiguration{TravelDays: 1, DepartureLocation: "Xi'an", GroupSize: 1},
	})
	if err != nil {
		t.Fatalf("failed to save job: %v", err)
	}
}

func jobIDs(t *testing.T, dbPath string) []string {
	t.Helper()
	store := storage.NewSQLiteStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer store.Close()

	jobs, err := store.ListJobs(0)
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != mgr.Dir() {
		t.Errorf("backup written outside %s: %s", mgr.Dir(), path)
	}

	ids := jobIDs(t, path)
	if len(ids) != 1 || ids[0] != "plan_original" {
		t.Errorf("backup does not contain the original job, got %v", ids)
	}
}

func TestCreate_MissingStore(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil {
		t.Error("expected an error for a missing store")
	}
}

func TestList_NewestFirstAndRotation(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)
	mgr.keep = 3
	mgr.now = fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local), time.Minute)

	var created []string
	for i := 0; i < 5; i++ {
		path, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
		created = append(created, path)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups after rotation, got %d", len(backups))
	}
	for i, want := range []string{created[4], created[3], created[2]} {
		if backups[i].Path != want {
			t.Errorf("backup %d: expected %s, got %s", i, want, backups[i].Path)
		}
	}
	if _, err := os.Stat(created[0]); !os.IsNotExist(err) {
		t.Errorf("oldest backup should have been pruned")
	}
}

func TestList_IgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)
	if err := os.MkdirAll(mgr.Dir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", filePrefix + "garbage" + fileSuffix} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %v", backups)
	}
}

func TestUniqueFilenames(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	first, err := mgr.Create()
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := mgr.Create()
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first == second {
		t.Errorf("expected distinct filenames, both were %s", first)
	}

	backups, _ := mgr.List()
	if len(backups) != 2 {
		t.Errorf("expected both backups to be listed, got %d", len(backups))
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)
	mgr.now = fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local), time.Minute)

	snapshot, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store := storage.NewSQLiteStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	saveJob(t, store, "plan_after_backup")
	store.Close()

	if err := mgr.Restore(snapshot); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	ids := jobIDs(t, dbPath)
	if len(ids) != 1 || ids[0] != "plan_original" {
		t.Errorf("expected only the original job after restore, got %v", ids)
	}

	backups, _ := mgr.List()
	if len(backups) != 2 {
		t.Errorf("restore should snapshot the current store first, got %d backups", len(backups))
	}
}

func TestRestore_RejectsInvalidBackup(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Restore(bogus); err == nil {
		t.Error("expected restore of an invalid file to fail")
	}
	if ids := jobIDs(t, dbPath); len(ids) != 1 {
		t.Errorf("store must be untouched, got %v", ids)
	}
}
