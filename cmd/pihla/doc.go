// Package main hosts the pihla CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the internal
// pipeline, migration, OG card and journal packages. It centralizes
// configuration resolution, logger setup, the run lock and journal wiring so
// subcommands only decide what to run and how to print the result.
//
// Running pihla without a subcommand performs the optimize pass; the
// --restore and --assets root flags keep the historical invocations working.
package main
