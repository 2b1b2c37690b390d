// Command tuner drives a remote fine-tuning workflow from the terminal.
//
// Every command is scoped to one user (--user or user.id). One-shot commands
// refresh job and model status once, run their action, and print the
// resulting phase. `tuner watch` keeps a polling session open and re-renders
// whenever the phase or flags change.
//
// `tuner history` reads the local action journal, `tuner logs` tails the log
// file and `tuner doctor` checks that the configured services are reachable.
package main
