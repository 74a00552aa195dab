// Package logging assembles structured slog loggers for the asset pipeline.
//
// It owns the console and JSON handlers, level and output plumbing, and a
// per-run JSON log file that is always written alongside the console stream.
// Context helpers tag records with the run identifier and asset category so
// per-file lines can be traced back to a journal run. The console layout
// renders byte counts as human-readable sizes.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
