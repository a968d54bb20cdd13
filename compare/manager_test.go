package compare

import (
	"errors"
	"fmt"
	"testing"

	"staylens/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func entry(n int) models.CompareEntry {
	return models.CompareEntry{
		URL:  fmt.Sprintf("https://www.example.com/hotel/at/alpenhof-%d.html?aid=304142", n),
		Name: fmt.Sprintf("Hotel %d", n),
	}
}

func TestAddCapsSelection(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < models.MaxCompareEntries; i++ {
		if err := m.Add(entry(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := m.Add(entry(99)); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if got := len(m.Entries()); got != models.MaxCompareEntries {
		t.Fatalf("entries = %d", got)
	}
}

func TestAddDeduplicatesByCanonicalURL(t *testing.T) {
	m := newTestManager(t)
	if err := m.Add(entry(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	dup := entry(1)
	dup.URL = "https://www.example.com/hotel/at/alpenhof-1.html?aid=999&label=promo"
	dup.Name = "Hotel 1 renamed"
	if err := m.Add(dup); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	entries := m.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Hotel 1 renamed" {
		t.Fatalf("re-add did not refresh metadata: %q", entries[0].Name)
	}
}

func TestRemoveAndClear(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 3; i++ {
		if err := m.Add(entry(i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := m.Remove(entry(1).URL); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := len(m.Entries()); got != 2 {
		t.Fatalf("entries after remove = %d", got)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := len(m.Entries()); got != 0 {
		t.Fatalf("entries after clear = %d", got)
	}
}

func TestMarkInactiveKeepsEntry(t *testing.T) {
	m := newTestManager(t)
	if err := m.Add(entry(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := m.Entries()[0].ID
	if err := m.MarkInactive(id); err != nil {
		t.Fatalf("mark inactive: %v", err)
	}
	entries := m.Entries()
	if len(entries) != 1 || entries[0].IsActive {
		t.Fatalf("entries = %+v", entries)
	}
}
