package workflow

import "strings"

// RunStatus is the server-reported lifecycle of the user's fine-tuning run.
type RunStatus string

const (
	RunNone      RunStatus = ""
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

var knownRunStatuses = map[RunStatus]struct{}{
	RunPending:   {},
	RunRunning:   {},
	RunSucceeded: {},
	RunFailed:    {},
}

// ParseRunStatus maps a raw service value onto the closed status set.
// Anything unrecognised comes back as RunNone with ok=false.
func ParseRunStatus(raw string) (RunStatus, bool) {
	normalized := RunStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if normalized == RunNone {
		return RunNone, true
	}
	if _, ok := knownRunStatuses[normalized]; ok {
		return normalized, true
	}
	return RunNone, false
}

func (s RunStatus) String() string {
	if s == RunNone {
		return "NONE"
	}
	return string(s)
}

// InProgress reports whether the run is queued or executing remotely.
func (s RunStatus) InProgress() bool {
	return s == RunPending || s == RunRunning
}

// Terminal reports whether the run has finished, successfully or not.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed
}

func (s RunStatus) rank() int {
	switch s {
	case RunPending, RunRunning:
		return 1
	case RunSucceeded, RunFailed:
		return 2
	default:
		return 0
	}
}

// ValidTransition reports whether moving from one observed status to another
// is consistent with NONE -> PENDING <-> RUNNING -> {SUCCEEDED | FAILED}, with
// reset allowed from anywhere. Polls are sparse, so intermediate states may be
// skipped. The server stays authoritative; callers only use this for logging.
func ValidTransition(from, to RunStatus) bool {
	if from == to || to == RunNone {
		return true
	}
	if from.rank() == 1 && to.rank() == 1 {
		return true
	}
	return to.rank() > from.rank()
}

// Health is the tri-state model health flag.
type Health int

const (
	HealthUnknown Health = iota
	HealthHealthy
	HealthUnhealthy
)

// HealthFrom converts an optional boolean from the wire.
func HealthFrom(value *bool) Health {
	switch {
	case value == nil:
		return HealthUnknown
	case *value:
		return HealthHealthy
	default:
		return HealthUnhealthy
	}
}

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// JobState is the job-status half of the snapshot. It is always replaced whole.
type JobState struct {
	DatasetRef string
	RunID      string
	Status     RunStatus
	// RawStatus keeps a status string the client did not recognise.
	RawStatus string
}

// HasDataset reports whether a dataset reference is recorded for the user.
func (j JobState) HasDataset() bool {
	return strings.TrimSpace(j.DatasetRef) != ""
}

// HasRun reports whether a fine-tuning run exists for the user.
func (j JobState) HasRun() bool {
	return strings.TrimSpace(j.RunID) != ""
}

// EffectiveStatus treats a run id without a usable status as pending.
func (j JobState) EffectiveStatus() RunStatus {
	if j.HasRun() && j.Status == RunNone {
		return RunPending
	}
	return j.Status
}

// ModelState is the model-status half of the snapshot. It is always replaced whole.
type ModelState struct {
	ModelID string
	Health  Health
}

// Snapshot mirrors the server-owned workflow state for one user.
type Snapshot struct {
	Job   JobState
	Model ModelState
}

// Flags are local, transient indicators. None of them are persisted.
type Flags struct {
	Uploading        bool
	QueueingFinetune bool
	Querying         bool
	Resetting        bool
	Ready            bool
}

// Action names a user-triggered dispatcher operation.
type Action string

const (
	ActionUpload Action = "upload"
	ActionTune   Action = "tune"
	ActionQuery  Action = "query"
	ActionReset  Action = "reset"
)

// State is a consistent copy of everything the store holds.
type State struct {
	Snapshot Snapshot
	Flags    Flags
	ImageURL string
	Version  uint64
}

// View derives the phase and action enablement for this state.
func (s State) View(instanceName string) View {
	return Derive(s.Snapshot, s.Flags, instanceName)
}
