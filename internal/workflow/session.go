package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"tuner/internal/logging"
)

// Service is the full remote workflow contract a session needs.
type Service interface {
	StatusSource
	RemoteService
}

// SessionConfig wires a session to its collaborators.
type SessionConfig struct {
	UserID        string
	Service       Service
	Objects       ObjectStore
	Records       RecordStore
	Recorder      Recorder
	Logger        *slog.Logger
	JobInterval   time.Duration
	ModelInterval time.Duration
	// LockPath, when set, is held with flock while polling runs.
	LockPath string
}

// Session binds one user identifier to a store, poller and dispatcher.
type Session struct {
	userID     string
	store      *Store
	poller     *Poller
	dispatcher *Dispatcher
	logger     *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	polling bool
	closed  bool
}

// NewSession builds a session with a default snapshot. Polling starts with Start.
func NewSession(cfg SessionConfig) (*Session, error) {
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return nil, errors.New("session requires a user id")
	}
	if cfg.Service == nil || cfg.Objects == nil || cfg.Records == nil {
		return nil, errors.New("session requires service, object store, and record store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldUserID, userID))

	store := NewStore()
	poller := NewPoller(store, cfg.Service, userID, logger, cfg.JobInterval, cfg.ModelInterval)
	dispatcher := NewDispatcher(store, userID, DispatcherDeps{
		Remote:    cfg.Service,
		Objects:   cfg.Objects,
		Records:   cfg.Records,
		Refresher: poller,
		Recorder:  cfg.Recorder,
		Logger:    logger,
	})

	s := &Session{
		userID:     userID,
		store:      store,
		poller:     poller,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "session"),
		lockPath:   cfg.LockPath,
	}
	if cfg.LockPath != "" {
		s.lock = flock.New(cfg.LockPath)
	}
	return s, nil
}

// UserID returns the identifier this session is bound to.
func (s *Session) UserID() string { return s.userID }

// Store returns the session's state store.
func (s *Session) Store() *Store { return s.store }

// Dispatcher returns the session's action dispatcher.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Refresh runs one job and one model refresh concurrently. It returns the
// first failure but keeps whatever half succeeded.
func (s *Session) Refresh(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	var jobErr, modelErr error
	group.Go(func() error {
		jobErr = s.poller.RefreshJob(groupCtx)
		return nil
	})
	group.Go(func() error {
		modelErr = s.poller.RefreshModel(groupCtx)
		return nil
	})
	_ = group.Wait()
	return errors.Join(jobErr, modelErr)
}

// Start takes the session lock (when configured) and launches polling.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	if s.polling {
		return errors.New("session already polling")
	}

	if s.lock != nil {
		if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
			return fmt.Errorf("create lock directory: %w", err)
		}
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire session lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("another session for user %q is already polling", s.userID)
		}
	}

	if err := s.poller.Start(ctx); err != nil {
		s.unlock()
		return fmt.Errorf("start poller: %w", err)
	}
	s.polling = true
	s.logger.Info("session polling started", logging.String("lock", s.lockPath))
	return nil
}

// Close stops polling, closes the store so late completions are dropped and
// releases the lock. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.poller.Stop()
	s.store.Close()
	if s.polling {
		s.unlock()
		s.polling = false
		s.logger.Info("session closed")
	}
}

func (s *Session) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		logging.ErrorWithContext(s.logger, "failed to release session lock", "session_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+s.lockPath+" if no watch is running"),
		)
	}
}
