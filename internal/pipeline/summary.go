package pipeline

import (
	"time"

	"pihla/internal/optimizer"
)

// Summary aggregates the per-file results of one pass.
type Summary struct {
	RunID           string             `json:"run_id"`
	TotalBytesSaved int64              `json:"total_bytes_saved"`
	FilesProcessed  int                `json:"files_processed"`
	Skipped         int                `json:"skipped"`
	Conflicts       int                `json:"conflicts"`
	Failed          int                `json:"failed"`
	Canceled        bool               `json:"canceled"`
	Duration        time.Duration      `json:"duration_ns"`
	Results         []optimizer.Result `json:"-"`
}

// Add folds one result into the summary.
func (s *Summary) Add(result optimizer.Result) {
	s.Results = append(s.Results, result)
	switch {
	case result.Outcome == optimizer.OutcomeFailed:
		s.Failed++
	case result.Outcome == optimizer.OutcomeConflict:
		s.Conflicts++
	case result.WasModified:
		s.FilesProcessed++
		s.TotalBytesSaved += result.BytesSaved
	case result.Outcome.Skipped():
		s.Skipped++
	}
}

// RestoreSummary reports a restore pass.
type RestoreSummary struct {
	RunID    string        `json:"run_id"`
	Restored int           `json:"restored"`
	Failed   int           `json:"failed"`
	NoBackup bool          `json:"no_backup"`
	Duration time.Duration `json:"duration_ns"`
}
