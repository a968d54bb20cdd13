package models

import (
	"fmt"
	"time"
)

const DayFormat = "2006-01-02"

// DateRangeKey identifies a (checkin, checkout) pair, e.g. "2026-09-01_2026-09-04".
type DateRangeKey string

// NewDateRangeKey builds the canonical key for a stay. Checkout must be
// strictly after checkin.
func NewDateRangeKey(checkin, checkout time.Time) (DateRangeKey, error) {
	ci := checkin.Truncate(24 * time.Hour)
	co := checkout.Truncate(24 * time.Hour)
	if !co.After(ci) {
		return "", fmt.Errorf("checkout %s not after checkin %s", checkout.Format(DayFormat), checkin.Format(DayFormat))
	}
	return DateRangeKey(checkin.Format(DayFormat) + "_" + checkout.Format(DayFormat)), nil
}

// PriceStats summarizes the prices extracted for one date range.
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// CacheState is the lifecycle state of a price cache entry.
type CacheState string

const (
	StateAbsent  CacheState = "absent"  // never requested
	StatePending CacheState = "pending" // queued or in flight
	StateEmpty   CacheState = "empty"   // fetched, no usable prices (terminal)
	StateStats   CacheState = "stats"   // fetched with data (terminal)
)

// Terminal reports whether the state will never change again.
func (s CacheState) Terminal() bool {
	return s == StateEmpty || s == StateStats
}

// PriceEntry is one price cache slot. Stats is non-nil only in StateStats.
type PriceEntry struct {
	State     CacheState  `json:"state"`
	Stats     *PriceStats `json:"stats,omitempty"`
	Currency  string      `json:"currency,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// FetchJob is one queued price discovery request. Jobs are unique per key;
// the scheduler enforces at most one live job per key.
type FetchJob struct {
	Key      DateRangeKey `json:"key"`
	Checkin  time.Time    `json:"checkin"`
	Checkout time.Time    `json:"checkout"`
	Attempts int          `json:"attempts"` // rate-limit retries so far
}
