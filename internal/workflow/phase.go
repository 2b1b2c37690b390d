package workflow

import "strings"

// Phase is the user-facing workflow stage derived from a snapshot.
type Phase int

const (
	PhaseAwaitingDataset Phase = iota
	PhaseReadyToTune
	PhaseTuning
	PhaseFailed
	PhaseComplete
)

var phaseLabels = map[Phase]string{
	PhaseAwaitingDataset: "awaiting dataset",
	PhaseReadyToTune:     "ready to tune",
	PhaseTuning:          "tuning in progress",
	PhaseFailed:          "tuning failed",
	PhaseComplete:        "tuning complete",
}

func (p Phase) String() string {
	if label, ok := phaseLabels[p]; ok {
		return label
	}
	return "unknown"
}

// Style is a rendering hint attached to a phase.
type Style int

const (
	StylePlain Style = iota
	StylePulsing
	StyleError
	StyleComplete
)

// View is the derived, render-ready interpretation of a snapshot and flags.
type View struct {
	Ready  bool
	Phase  Phase
	Style  Style
	Status RunStatus

	UploadEnabled bool
	TuneEnabled   bool
	QueryEnabled  bool

	Uploading        bool
	QueueingFinetune bool
	Querying         bool
	Resetting        bool
}

// Derive maps a snapshot and transient flags to a View. It has no side effects.
func Derive(snapshot Snapshot, flags Flags, instanceName string) View {
	job := snapshot.Job
	status := job.EffectiveStatus()
	view := View{
		Ready:            flags.Ready,
		Status:           status,
		UploadEnabled:    !job.HasDataset(),
		QueryEnabled:     snapshot.Model.Health == HealthHealthy,
		Uploading:        flags.Uploading,
		QueueingFinetune: flags.QueueingFinetune,
		Querying:         flags.Querying,
		Resetting:        flags.Resetting,
	}
	view.TuneEnabled = job.HasDataset() &&
		!job.HasRun() &&
		!flags.QueueingFinetune &&
		strings.TrimSpace(instanceName) != ""

	switch {
	case status.InProgress():
		view.Phase, view.Style = PhaseTuning, StylePulsing
	case status == RunFailed:
		view.Phase, view.Style = PhaseFailed, StyleError
	case status == RunSucceeded:
		view.Phase, view.Style = PhaseComplete, StyleComplete
	case job.HasDataset():
		view.Phase = PhaseReadyToTune
	default:
		view.Phase = PhaseAwaitingDataset
	}
	return view
}

// TuneBlocker explains why StartFineTuning would be refused, or returns ""
// when the precondition holds.
func TuneBlocker(snapshot Snapshot, flags Flags, instanceName string) string {
	job := snapshot.Job
	switch {
	case !job.HasDataset():
		return "no dataset uploaded"
	case job.HasRun():
		return "a fine-tuning run already exists"
	case flags.QueueingFinetune:
		return "fine-tuning request already in flight"
	case strings.TrimSpace(instanceName) == "":
		return "instance name is required"
	default:
		return ""
	}
}
