package journal

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusCanceled    Status = "canceled"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Run is one pipeline invocation.
type Run struct {
	ID             string    `json:"id"`
	Command        string    `json:"command"`
	Status         Status    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FilesProcessed int       `json:"files_processed"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	BytesSaved     int64     `json:"bytes_saved"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals are the counters written when a run finishes.
type Totals struct {
	FilesProcessed int
	Skipped        int
	Failed         int
	BytesSaved     int64
}

// FileRecord is the outcome of one file within a run.
type FileRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Category     string    `json:"category"`
	Path         string    `json:"path"`
	Output       string    `json:"output,omitempty"`
	Outcome      string    `json:"outcome"`
	BytesBefore  int64     `json:"bytes_before"`
	BytesAfter   int64     `json:"bytes_after"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}
