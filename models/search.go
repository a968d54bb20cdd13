package models

import "time"

// SearchContext is the active search as encoded in the results page URL:
// destination, occupancy and the selected date range.
type SearchContext struct {
	Destination string    `json:"destination"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
	Rooms       int       `json:"rooms"`
	Checkin     time.Time `json:"checkin"`
	Checkout    time.Time `json:"checkout"`
	Nights      int       `json:"nights"`
}

// HasDates reports whether a full checkin/checkout pair is known.
func (c *SearchContext) HasDates() bool {
	return !c.Checkin.IsZero() && !c.Checkout.IsZero() && c.Nights > 0
}
