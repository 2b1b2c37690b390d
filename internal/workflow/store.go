package workflow

import (
	"sync"

	"tuner/internal/services"
)

// Store owns the workflow state for one user. All writes go through its
// methods and each one replaces its field group under the mutex, so State
// always returns a consistent copy.
type Store struct {
	mu      sync.RWMutex
	state   State
	closed  bool
	epoch   uint64
	updates chan struct{}
}

// Lease is the claim TryBegin hands out on a busy flag. Reset invalidates
// every outstanding upload, tune and query lease.
type Lease struct {
	action Action
	epoch  uint64
}

// Action returns the action the lease was taken for.
func (l Lease) Action() Action { return l.action }

// NewStore returns a store holding the default snapshot.
func NewStore() *Store {
	return &Store{updates: make(chan struct{}, 1)}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Updates signals after every successful write. Signals coalesce; receivers
// should read State rather than count notifications.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

// ReplaceJob swaps the job-status part of the snapshot wholesale.
func (s *Store) ReplaceJob(job JobState) error {
	return s.write(func(st *State) {
		st.Snapshot.Job = job
	})
}

// ReplaceModel swaps the model-status part of the snapshot wholesale.
func (s *Store) ReplaceModel(model ModelState) error {
	return s.write(func(st *State) {
		st.Snapshot.Model = model
	})
}

// MarkReady records that at least one refresh has succeeded.
func (s *Store) MarkReady() error {
	return s.write(func(st *State) {
		st.Flags.Ready = true
	})
}

// SetImage stores the URL of the latest generated image.
func (s *Store) SetImage(url string) error {
	return s.write(func(st *State) {
		st.ImageURL = url
	})
}

// Reset restores the default snapshot, drops the generated image and clears
// the upload, tune and query flags. Ready and Resetting are kept. Leases
// taken before the reset no longer own their flags.
func (s *Store) Reset() error {
	return s.write(func(st *State) {
		s.epoch++
		st.Snapshot = Snapshot{}
		st.ImageURL = ""
		st.Flags.Uploading = false
		st.Flags.QueueingFinetune = false
		st.Flags.Querying = false
	})
}

// TryBegin sets the busy flag for action and returns the lease that owns it.
// It returns ErrBusy when the flag is already set and ErrTornDown once the
// store is closed.
func (s *Store) TryBegin(action Action) (Lease, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Lease{}, services.ErrTornDown
	}
	flag := flagFor(&s.state.Flags, action)
	if flag == nil {
		s.mu.Unlock()
		return Lease{}, services.Wrap(services.ErrPrecondition, "workflow", "begin", "unknown action "+string(action), nil)
	}
	if *flag {
		s.mu.Unlock()
		return Lease{}, services.ErrBusy
	}
	*flag = true
	s.state.Version++
	lease := Lease{action: action, epoch: s.epoch}
	s.mu.Unlock()
	s.notify()
	return lease, nil
}

// End clears the busy flag held by lease. A lease from before the last Reset
// leaves the flag alone; it may belong to a newer action by now.
func (s *Store) End(lease Lease) {
	s.mu.Lock()
	if s.closed || !s.heldLocked(lease) {
		s.mu.Unlock()
		return
	}
	if flag := flagFor(&s.state.Flags, lease.action); flag != nil {
		*flag = false
	}
	s.state.Version++
	s.mu.Unlock()
	s.notify()
}

// Held reports whether lease still owns its flag.
func (s *Store) Held(lease Lease) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heldLocked(lease)
}

// SetImageHeld stores url only while lease is held. It reports whether the
// image was written.
func (s *Store) SetImageHeld(lease Lease, url string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, services.ErrTornDown
	}
	if !s.heldLocked(lease) {
		s.mu.Unlock()
		return false, nil
	}
	s.state.ImageURL = url
	s.state.Version++
	s.mu.Unlock()
	s.notify()
	return true, nil
}

// Reset keeps the Resetting flag, so reset leases survive the epoch bump.
func (s *Store) heldLocked(lease Lease) bool {
	if lease.action == "" {
		return false
	}
	return lease.action == ActionReset || lease.epoch == s.epoch
}

// Close stops the store accepting writes. Later writes report ErrTornDown.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) write(apply func(*State)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return services.ErrTornDown
	}
	apply(&s.state)
	s.state.Version++
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func flagFor(flags *Flags, action Action) *bool {
	switch action {
	case ActionUpload:
		return &flags.Uploading
	case ActionTune:
		return &flags.QueueingFinetune
	case ActionQuery:
		return &flags.Querying
	case ActionReset:
		return &flags.Resetting
	default:
		return nil
	}
}
