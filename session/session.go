// Package session carries the page-session state the pipeline reads and
// updates as it works: the detected display currency and the active search
// context. It is an explicit value passed around instead of package globals
// so tests and concurrent instances stay independent.
package session

import (
	"sync"

	"staylens/models"
)

type Session struct {
	mu       sync.RWMutex
	currency string
	search   models.SearchContext
	hasCtx   bool
}

func New() *Session {
	return &Session{}
}

// Currency returns the last successfully detected currency, or "".
func (s *Session) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// SetCurrency updates the session currency. Empty detections are ignored so
// a failed scan never clears an earlier successful one.
func (s *Session) SetCurrency(c string) {
	if c == "" {
		return
	}
	s.mu.Lock()
	s.currency = c
	s.mu.Unlock()
}

// SearchContext returns a copy of the active search context and whether one
// is known.
func (s *Session) SearchContext() (models.SearchContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search, s.hasCtx
}

// SetSearchContext replaces the active search context.
func (s *Session) SetSearchContext(ctx models.SearchContext) {
	s.mu.Lock()
	s.search = ctx
	s.hasCtx = true
	s.mu.Unlock()
}

// Clear drops all session state. Used on hard navigation.
func (s *Session) Clear() {
	s.mu.Lock()
	s.currency = ""
	s.search = models.SearchContext{}
	s.hasCtx = false
	s.mu.Unlock()
}
