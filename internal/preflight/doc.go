// Package preflight provides readiness checks for the remote services and
// local paths tuner depends on.
//
// The CLI "tuner doctor" command runs RunAll and prints one line per check.
// Checks never retry and each carries its own short deadline.
package preflight
