package journal

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, command, status, started_at, finished_at, files_processed, skipped, failed, bytes_saved"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		statusStr   string
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Command,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&run.FilesProcessed,
		&run.Skipped,
		&run.Failed,
		&run.BytesSaved,
	); err != nil {
		return Run{}, err
	}
	run.Status = Status(statusStr)
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

// escapeLike drops LIKE wildcards; run IDs never contain them.
func escapeLike(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
