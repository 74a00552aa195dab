// Package failures defines the error taxonomy shared by the pipeline stages.
//
// Stage code tags errors with one of the exported markers through Wrap so the
// batch driver, journal, and CLI can classify a failure without string matching.
package failures

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode marks unreadable or corrupt image input, including HEIC decode failures.
	ErrDecode = errors.New("decode error")
	// ErrEncode marks built-in encoder failures.
	ErrEncode = errors.New("encode error")
	// ErrIO marks filesystem failures (permissions, disk full, rename).
	ErrIO = errors.New("filesystem error")
	// ErrConflict marks an output path already claimed by another file.
	ErrConflict = errors.New("conflict")
	// ErrConfiguration marks missing roots or invalid settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable label for err, used in logs and journal rows.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "io"
	}
}

// Hint returns an operator-facing next step for err.
func Hint(err error) string {
	switch Kind(err) {
	case "decode":
		return "file may be corrupt or in an unsupported variant; re-export it from the original source"
	case "encode":
		return "check codec libraries (libwebp, libde265) are installed"
	case "conflict":
		return "rename or remove the existing output file and re-run"
	case "configuration":
		return "run 'pihla config validate'"
	default:
		return "check permissions and free space for the site directories"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
