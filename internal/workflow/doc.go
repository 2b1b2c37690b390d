// Package workflow is the client-side state machine for a remote fine-tuning
// run.
//
// A Session binds one user to a Store that mirrors the server-owned
// Snapshot, a Poller that refreshes job and model status on independent
// intervals, and a Dispatcher that runs the upload, tune, query and reset
// actions. Derive turns a snapshot plus transient flags into a View that
// names the current Phase and the actions the user may take.
//
// The service is authoritative. The client never infers status transitions
// locally; it only replaces the job or model half of the snapshot with what
// the latest read returned.
package workflow
