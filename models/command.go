package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdPickDate       CommandType = "pick_date"
	CmdClearSelection CommandType = "clear_selection"
	CmdCompareAdd     CommandType = "compare_add"
	CmdCompareRemove  CommandType = "compare_remove"
	CmdCompareClear   CommandType = "compare_clear"
	CmdRefresh        CommandType = "refresh"
	CmdPause          CommandType = "pause"
	CmdResume         CommandType = "resume"
)

// Command is one host-UI instruction queued through the local store.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Date  string  `json:"date,omitempty"` // YYYY-MM-DD
	URL   string  `json:"url,omitempty"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price,omitempty"`
}
