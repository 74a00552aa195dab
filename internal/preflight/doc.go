// Package preflight provides readiness checks for the site directories and
// external tools the pipeline depends on.
//
// The CLI "pihla doctor" command runs RunAll and prints every result. Missing
// optional roots pass with a note, matching the pipeline's "nothing to do"
// behaviour for absent folders.
package preflight
