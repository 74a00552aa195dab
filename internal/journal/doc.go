// Package journal keeps a local SQLite history of pipeline runs and the
// per-file outcomes they produced.
//
// The journal is a machine-readable companion to the progress log. Nothing
// in the pipeline reads it back to make decisions; the filesystem stays the
// source of truth for backups and freshness. Schema changes are added as new
// files under migrations/ and applied in lexical order on Open.
package journal
