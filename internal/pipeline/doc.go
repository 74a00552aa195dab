// Package pipeline drives the optimize and restore passes over the site roots.
//
// A Runner owns one Optimizer and one backup Ledger built from configuration.
// Optimize sweeps stale temp files, mirrors CMS uploads into the web tree, and
// optionally optimizes the web tree and the flat site-assets folder in place.
// Files are processed strictly one at a time; cancellation is observed only
// between files so a file is never abandoned half-committed.
package pipeline
