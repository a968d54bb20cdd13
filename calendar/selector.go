// Package calendar tracks the user's check-in selection and derives
// price badges for candidate checkout dates.
package calendar

import (
	"log"
	"sort"
	"sync"
	"time"

	"staylens/models"
)

// ForwardWindowDays is how many checkout dates past a selected check-in
// get speculative price discovery.
const ForwardWindowDays = 10

// minClassified is the smallest number of priced ranges that supports a
// low/mid/high split. Below it badges show raw averages only.
const minClassified = 3

// Level buckets a badge's average price against the other priced ranges
// in the current window.
type Level string

const (
	LevelNone Level = ""
	LevelLow  Level = "low"
	LevelMid  Level = "mid"
	LevelHigh Level = "high"
)

// Badge is one checkout candidate with its cached price state.
type Badge struct {
	Checkin  time.Time           `json:"checkin"`
	Checkout time.Time           `json:"checkout"`
	Nights   int                 `json:"nights"`
	Key      models.DateRangeKey `json:"key"`
	State    models.CacheState   `json:"state"`
	Min      float64             `json:"min,omitempty"`
	Max      float64             `json:"max,omitempty"`
	Avg      float64             `json:"avg,omitempty"`
	Count    int                 `json:"count,omitempty"`
	Currency string              `json:"currency,omitempty"`
	Level    Level               `json:"level,omitempty"`
}

// PriceSource is the read side of the price cache.
type PriceSource interface {
	Get(key models.DateRangeKey) models.PriceEntry
}

// Dispatcher admits fetch jobs. A new selection resets the queue first so
// stale window jobs stop competing for slots.
type Dispatcher interface {
	Enqueue(job models.FetchJob)
	Reset()
}

// Selector is the check-in selection state machine. It holds either no
// selection or one selected check-in date.
type Selector struct {
	cache    PriceSource
	dispatch Dispatcher

	mu       sync.Mutex
	checkin  time.Time
	selected bool
}

func NewSelector(cache PriceSource, dispatch Dispatcher) *Selector {
	return &Selector{cache: cache, dispatch: dispatch}
}

// Selection returns the current check-in, if any.
func (s *Selector) Selection() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkin, s.selected
}

// PickDate feeds one calendar click into the state machine. A click on or
// before the current check-in (or with no selection) starts a new
// selection and schedules the forward window. A click after it completes
// the range, which the site handles itself, so the selection clears.
func (s *Selector) PickDate(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day = day.Truncate(24 * time.Hour)
	if s.selected && day.After(s.checkin) {
		log.Printf("calendar: range %s to %s completed", s.checkin.Format(models.DayFormat), day.Format(models.DayFormat))
		s.checkin = time.Time{}
		s.selected = false
		return
	}

	s.checkin = day
	s.selected = true
	log.Printf("calendar: check-in %s selected, scheduling %d checkout dates", day.Format(models.DayFormat), ForwardWindowDays)

	s.dispatch.Reset()
	for i := 1; i <= ForwardWindowDays; i++ {
		checkout := day.AddDate(0, 0, i)
		key, err := models.NewDateRangeKey(day, checkout)
		if err != nil {
			continue
		}
		s.dispatch.Enqueue(models.FetchJob{Key: key, Checkin: day, Checkout: checkout})
	}
}

// ClearSelection drops the selection without touching cached prices.
func (s *Selector) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkin = time.Time{}
	s.selected = false
}

// Badges returns one badge per checkout candidate for the current
// selection, classified against each other. Nil when nothing is selected.
func (s *Selector) Badges() []Badge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return nil
	}
	badges := make([]Badge, 0, ForwardWindowDays)
	for i := 1; i <= ForwardWindowDays; i++ {
		checkout := s.checkin.AddDate(0, 0, i)
		key, err := models.NewDateRangeKey(s.checkin, checkout)
		if err != nil {
			continue
		}
		b := Badge{Checkin: s.checkin, Checkout: checkout, Nights: i, Key: key}
		fillFromEntry(&b, s.cache.Get(key))
		badges = append(badges, b)
	}
	classify(badges)
	return badges
}

// DayWindow returns badges for a run of candidate check-in days when no
// check-in is selected, each day priced for a stay of the given nights.
// Days without a cache entry are scheduled, so rendering the picker is
// what starts their discovery. Nil while a selection is active, since
// Badges covers that case.
func (s *Selector) DayWindow(start time.Time, days, nights int) []Badge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected || days <= 0 || nights <= 0 {
		return nil
	}

	start = start.Truncate(24 * time.Hour)
	badges := make([]Badge, 0, days)
	for i := 0; i < days; i++ {
		checkin := start.AddDate(0, 0, i)
		checkout := checkin.AddDate(0, 0, nights)
		key, err := models.NewDateRangeKey(checkin, checkout)
		if err != nil {
			continue
		}
		b := Badge{Checkin: checkin, Checkout: checkout, Nights: nights, Key: key}
		entry := s.cache.Get(key)
		fillFromEntry(&b, entry)
		if entry.State == models.StateAbsent {
			s.dispatch.Enqueue(models.FetchJob{Key: key, Checkin: checkin, Checkout: checkout})
		}
		badges = append(badges, b)
	}
	classify(badges)
	return badges
}

// fillFromEntry copies a cache entry's state and stats onto a badge.
func fillFromEntry(b *Badge, entry models.PriceEntry) {
	b.State = entry.State
	if entry.State == models.StateStats && entry.Stats != nil {
		b.Min = entry.Stats.Min
		b.Max = entry.Stats.Max
		b.Avg = entry.Stats.Avg
		b.Count = entry.Stats.Count
		b.Currency = entry.Currency
	}
}

// classify splits priced badges into thirds by their minimum price, the
// figure the badge itself displays. The cutoffs are the 33rd and 66th
// percentile values; a badge sitting exactly on a cutoff lands in the
// lower bucket.
func classify(badges []Badge) {
	var mins []float64
	for i := range badges {
		if badges[i].State == models.StateStats {
			mins = append(mins, badges[i].Min)
		}
	}
	if len(mins) < minClassified {
		return
	}
	sort.Float64s(mins)
	low := percentile(mins, 33)
	high := percentile(mins, 66)
	for i := range badges {
		if badges[i].State != models.StateStats {
			continue
		}
		switch {
		case badges[i].Min <= low:
			badges[i].Level = LevelLow
		case badges[i].Min <= high:
			badges[i].Level = LevelMid
		default:
			badges[i].Level = LevelHigh
		}
	}
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []float64, p int) float64 {
	rank := (len(sorted)*p + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
