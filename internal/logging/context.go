package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType labels a log record with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind carries the failure classification of a per-file error.
	FieldErrorKind = "error_kind"
	// FieldRunID identifies one pipeline invocation.
	FieldRunID = "run_id"
	// FieldCategory names the root an asset belongs to (web, assets, uploads).
	FieldCategory = "category"
	// FieldPath is the asset path relative to its root.
	FieldPath = "path"
	// FieldOutcome is the per-file result label.
	FieldOutcome = "outcome"
	// FieldBytesBefore, FieldBytesAfter and FieldBytesSaved are rendered as
	// human-readable sizes by the console handler.
	FieldBytesBefore = "bytes_before"
	FieldBytesAfter  = "bytes_after"
	FieldBytesSaved  = "bytes_saved"
)

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	categoryKey contextKey = "category"
)

// WithRunID stores the run identifier on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithCategory stores the asset root category on the context.
func WithCategory(ctx context.Context, category string) context.Context {
	category = strings.TrimSpace(category)
	if category == "" {
		return ctx
	}
	return context.WithValue(ctx, categoryKey, category)
}

// CategoryFromContext returns the asset root category if present.
func CategoryFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	category, ok := ctx.Value(categoryKey).(string)
	return category, ok && category != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if category, ok := CategoryFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCategory, category))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
