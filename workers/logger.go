package workers

import "staylens/models"

// LogFunc puts a worker message into the run_logs table.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default).
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
