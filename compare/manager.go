// Package compare maintains the side-by-side listing selection and builds
// the feature matrix shown to the user.
package compare

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"staylens/identity"
	"staylens/models"
)

// ErrFull is returned when the selection already holds the maximum number
// of listings.
var ErrFull = errors.New("comparison selection is full")

// Store persists the selection across restarts.
type Store interface {
	SaveCompareEntry(entry models.CompareEntry) error
	DeleteCompareEntry(id string) error
	ClearCompareEntries() error
	ListCompareEntries() ([]models.CompareEntry, error)
}

// Manager owns the compared-listings set. Entries are keyed by canonical
// listing id so the same hotel reached through differently decorated URLs
// occupies one slot.
type Manager struct {
	store Store

	mu      sync.Mutex
	entries []models.CompareEntry
	details map[string]models.HotelDetails
}

func NewManager(store Store) (*Manager, error) {
	m := &Manager{store: store, details: make(map[string]models.HotelDetails)}
	if store != nil {
		entries, err := store.ListCompareEntries()
		if err != nil {
			return nil, fmt.Errorf("loading compare entries: %w", err)
		}
		m.entries = entries
	}
	return m, nil
}

// Add admits a listing. Re-adding an existing entry refreshes its
// metadata in place instead of consuming a slot.
func (m *Manager) Add(entry models.CompareEntry) error {
	entry.ID = identity.ListingID(entry.URL)
	if entry.ID == "" || entry.ID == "/" {
		return fmt.Errorf("unusable listing url %q", entry.URL)
	}
	entry.IsActive = true
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == entry.ID {
			entry.AddedAt = m.entries[i].AddedAt
			m.entries[i] = entry
			return m.persist(entry)
		}
	}
	if len(m.entries) >= models.MaxCompareEntries {
		return ErrFull
	}
	m.entries = append(m.entries, entry)
	log.Printf("compare: added %s (%d/%d)", entry.ID, len(m.entries), models.MaxCompareEntries)
	return m.persist(entry)
}

func (m *Manager) persist(entry models.CompareEntry) error {
	if m.store == nil {
		return nil
	}
	return m.store.SaveCompareEntry(entry)
}

// Remove drops a listing by URL or canonical id.
func (m *Manager) Remove(urlOrID string) error {
	id := identity.ListingID(urlOrID)
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			delete(m.details, id)
			if m.store != nil {
				return m.store.DeleteCompareEntry(id)
			}
			return nil
		}
	}
	return nil
}

// Clear empties the selection.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.details = make(map[string]models.HotelDetails)
	if m.store != nil {
		return m.store.ClearCompareEntries()
	}
	return nil
}

// Entries returns a copy of the current selection.
func (m *Manager) Entries() []models.CompareEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CompareEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// URLs returns the listing URLs, for the detail pipeline.
func (m *Manager) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		urls = append(urls, e.URL)
	}
	return urls
}

// NeedsDetails reports whether any active entry still has no captured
// details, so serving the matrix can kick the detail worker.
func (m *Manager) NeedsDetails() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if !e.IsActive {
			continue
		}
		if _, ok := m.details[e.ID]; !ok {
			return true
		}
	}
	return false
}

// SetDetails attaches merged hotel details to an entry.
func (m *Manager) SetDetails(id string, details models.HotelDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[id] = details
}

// MarkInactive flags an entry whose page no longer resolves. The entry
// stays visible but greyed out; the user removes it explicitly.
func (m *Manager) MarkInactive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id && m.entries[i].IsActive {
			m.entries[i].IsActive = false
			log.Printf("compare: %s marked inactive", id)
			return m.persist(m.entries[i])
		}
	}
	return nil
}

func (m *Manager) snapshot() ([]models.CompareEntry, map[string]models.HotelDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]models.CompareEntry, len(m.entries))
	copy(entries, m.entries)
	details := make(map[string]models.HotelDetails, len(m.details))
	for k, v := range m.details {
		details[k] = v
	}
	return entries, details
}
