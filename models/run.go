package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// DiscoveryRun records one pass of the price discovery pipeline over a set
// of date range keys.
type DiscoveryRun struct {
	ID            int64      `json:"id" db:"id"`
	SiteID        string     `json:"site_id" db:"site_id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	KeysRequested int        `json:"keys_requested" db:"keys_requested"`
	KeysResolved  int        `json:"keys_resolved" db:"keys_resolved"`
	KeysEmpty     int        `json:"keys_empty" db:"keys_empty"`
	RateLimited   int        `json:"rate_limited" db:"rate_limited"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	SiteID    string    `json:"site_id" db:"site_id"`
}

// PriceObservation is one terminal stats result persisted to the history
// store for later trend analysis.
type PriceObservation struct {
	ID         int64        `json:"id" db:"id"`
	RunID      string       `json:"run_id" db:"run_id"` // uuid of the discovery session
	SiteID     string       `json:"site_id" db:"site_id"`
	Key        DateRangeKey `json:"key" db:"range_key"`
	Checkin    time.Time    `json:"checkin" db:"checkin"`
	Checkout   time.Time    `json:"checkout" db:"checkout"`
	Min        float64      `json:"min" db:"min_price"`
	Max        float64      `json:"max" db:"max_price"`
	Avg        float64      `json:"avg" db:"avg_price"`
	Count      int          `json:"count" db:"sample_count"`
	Currency   string       `json:"currency" db:"currency"`
	ObservedAt time.Time    `json:"observed_at" db:"observed_at"`
}
