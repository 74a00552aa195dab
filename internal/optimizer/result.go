package optimizer

import "pihla/internal/scan"

// Outcome labels what happened to one file.
type Outcome string

const (
	// OutcomeOptimized means an in-place file was replaced by a smaller encoding.
	OutcomeOptimized Outcome = "optimized"
	// OutcomeWritten means copy mode produced a destination file.
	OutcomeWritten Outcome = "written"
	// OutcomeSkippedSmall means the file was under the in-place size threshold.
	OutcomeSkippedSmall Outcome = "skipped_small"
	// OutcomeSkippedFresh means the copy-mode destination was already newer.
	OutcomeSkippedFresh Outcome = "skipped_fresh"
	// OutcomeNoImprovement means the encoding was not smaller and was discarded.
	OutcomeNoImprovement Outcome = "no_improvement"
	// OutcomeConflict means the output path already belonged to another file.
	OutcomeConflict Outcome = "conflict"
	// OutcomeFailed means an error stopped processing of this file.
	OutcomeFailed Outcome = "failed"
)

// Skipped reports whether the outcome left every file untouched without error.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedSmall, OutcomeSkippedFresh, OutcomeNoImprovement:
		return true
	default:
		return false
	}
}

// Result is the per-file record handed back to the batch driver.
type Result struct {
	Source      scan.Source
	Output      string
	Outcome     Outcome
	BytesBefore int64
	BytesAfter  int64
	BytesSaved  int64
	WasModified bool
	Width       int
	Err         error
}

func skippedResult(src scan.Source, outcome Outcome) Result {
	return Result{Source: src, Output: src.AbsPath, Outcome: outcome, BytesBefore: src.Size, BytesAfter: src.Size}
}
