package storage

import (
	"path/filepath"
	"testing"
	"time"

	"staylens/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPreferences(t *testing.T) {
	store := newTestStore(t)

	if val, err := store.GetPreference("missing"); err != nil || val != "" {
		t.Fatalf("missing pref = %q, %v", val, err)
	}
	if err := store.SetBoolPreference("sort_by_price", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if val, err := store.GetBoolPreference("sort_by_price"); err != nil || !val {
		t.Fatalf("get = %v, %v", val, err)
	}
	if err := store.SetBoolPreference("sort_by_price", false); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if val, _ := store.GetBoolPreference("sort_by_price"); val {
		t.Fatal("overwrite not applied")
	}
}

func TestCompareEntriesRoundTrip(t *testing.T) {
	store := newTestStore(t)

	entry := models.CompareEntry{
		ID:          "/hotel/at/alpenhof.html",
		URL:         "https://www.example.com/hotel/at/alpenhof.html",
		Name:        "Alpenhof",
		Rating:      8.7,
		ReviewCount: 412,
		Price:       139,
		Currency:    "EUR",
		Location:    "Innsbruck",
		StaySummary: "3 nights, 2 adults",
		AddedAt:     time.Now().Truncate(time.Second),
		IsActive:    true,
	}
	if err := store.SaveCompareEntry(entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := store.ListCompareEntries()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	got := entries[0]
	if got.ID != entry.ID || got.Name != entry.Name || got.Price != entry.Price || !got.IsActive {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	entry.IsActive = false
	if err := store.SaveCompareEntry(entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	entries, _ = store.ListCompareEntries()
	if len(entries) != 1 || entries[0].IsActive {
		t.Fatalf("upsert did not update: %+v", entries)
	}

	if err := store.DeleteCompareEntry(entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ = store.ListCompareEntries()
	if len(entries) != 0 {
		t.Fatalf("delete left %d entries", len(entries))
	}
}

func TestCommandQueue(t *testing.T) {
	store := newTestStore(t)

	if err := store.EnqueueCommand(models.CmdPickDate, &models.CommandParams{Date: "2026-09-10"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdCompareClear, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("pending = %d", len(cmds))
	}
	if cmds[0].Command != models.CmdPickDate {
		t.Fatalf("order wrong: %s first", cmds[0].Command)
	}

	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.Date != "2026-09-10" {
		t.Fatalf("date = %q", params.Date)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	cmds, _ = store.GetPendingCommands()
	if len(cmds) != 1 || cmds[0].Command != models.CmdCompareClear {
		t.Fatalf("after processing: %+v", cmds)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run := &models.DiscoveryRun{
		SiteID:        "booking",
		StartedAt:     time.Now(),
		Status:        models.RunStatusRunning,
		KeysRequested: 10,
	}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	run.ID = id

	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	run.KeysResolved = 7
	run.KeysEmpty = 3
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetLastRun("booking")
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if got == nil || got.Status != models.RunStatusCompleted || got.KeysResolved != 7 {
		t.Fatalf("last run = %+v", got)
	}

	if err := store.Log(&run.ID, models.LogLevelInfo, "run finished", "booking"); err != nil {
		t.Fatalf("log: %v", err)
	}
}
