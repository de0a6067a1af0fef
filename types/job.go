package types

import "time"

// JobStatus is the curation job state machine. A job starts as
// StatusRunning and moves exactly once to one of the terminal states.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// JobCounters are the per-pass tallies. All fields are monotonically
// non-decreasing while the job is running.
type JobCounters struct {
	TotalFound int `json:"total_found"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	LowScore   int `json:"low_score"`
	Curated    int `json:"curated"`
	Errors     int `json:"errors"`
}

// JobLogEntry is one line of a job's append-only log.
type JobLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Data      string    `json:"data,omitempty"`
}

// Log levels for JobLogEntry.
const (
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// Job is one tracked execution of the curation pipeline.
type Job struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"org_id"`
	Status      JobStatus     `json:"status"`
	Counters    JobCounters   `json:"counters"`
	Logs        []JobLogEntry `json:"logs,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	DurationMS  int64         `json:"duration_ms,omitempty"`
}
