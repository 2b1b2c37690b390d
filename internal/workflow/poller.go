package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tuner/internal/logging"
	"tuner/internal/services"
)

// DefaultPollInterval applies when a poller is built without explicit intervals.
const DefaultPollInterval = 10 * time.Second

// StatusSource reads the server-owned workflow state for a user.
type StatusSource interface {
	UserData(ctx context.Context, userID string) (JobState, error)
	ModelStatus(ctx context.Context, userID string) (ModelState, error)
}

// Poller keeps the store in sync with the remote service using two
// independent loops, one for job status and one for model status.
type Poller struct {
	store         *Store
	source        StatusSource
	userID        string
	logger        *slog.Logger
	jobInterval   time.Duration
	modelInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller builds a poller for one user. Non-positive intervals fall back to
// DefaultPollInterval.
func NewPoller(store *Store, source StatusSource, userID string, logger *slog.Logger, jobInterval, modelInterval time.Duration) *Poller {
	if jobInterval <= 0 {
		jobInterval = DefaultPollInterval
	}
	if modelInterval <= 0 {
		modelInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		store:         store,
		source:        source,
		userID:        userID,
		logger:        logging.NewComponentLogger(logger, "poller"),
		jobInterval:   jobInterval,
		modelInterval: modelInterval,
	}
}

// Start launches both loops. Each fetches immediately and then on its tick.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("poller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return p.loop(groupCtx, "job", p.jobInterval, p.RefreshJob)
	})
	group.Go(func() error {
		return p.loop(groupCtx, "model", p.modelInterval, p.RefreshModel)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := group.Wait(); err != nil && !errors.Is(err, services.ErrTornDown) {
			p.logger.Debug("poll loops exited", logging.Error(err))
		}
	}()

	p.cancel = cancel
	p.done = done
	p.running = true
	return nil
}

// Stop cancels both loops and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	<-done
}

// RefreshJob fetches job status once and replaces the job part of the
// snapshot. On error the store is left untouched.
func (p *Poller) RefreshJob(ctx context.Context) error {
	job, err := p.source.UserData(ctx, p.userID)
	if err != nil {
		return err
	}
	previous := p.store.State().Snapshot.Job.EffectiveStatus()
	if err := p.store.ReplaceJob(job); err != nil {
		return err
	}
	if next := job.EffectiveStatus(); !ValidTransition(previous, next) {
		p.logger.Debug("unexpected run status transition",
			logging.Args(logging.Transition(previous.String(), next.String())...)...)
	}
	if job.RawStatus != "" {
		p.logger.Debug("unrecognised run status", logging.String("status", job.RawStatus))
	}
	return p.store.MarkReady()
}

// RefreshModel fetches model status once and replaces the model part of the
// snapshot. On error the store is left untouched.
func (p *Poller) RefreshModel(ctx context.Context) error {
	model, err := p.source.ModelStatus(ctx, p.userID)
	if err != nil {
		return err
	}
	if err := p.store.ReplaceModel(model); err != nil {
		return err
	}
	return p.store.MarkReady()
}

func (p *Poller) loop(ctx context.Context, name string, interval time.Duration, refresh func(context.Context) error) error {
	logger := p.logger.With(logging.String("cycle", name), logging.Duration("interval", interval))
	if err := p.cycle(ctx, logger, interval, refresh); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.cycle(ctx, logger, interval, refresh); err != nil {
				return err
			}
		}
	}
}

// cycle runs one refresh. Fetch failures are logged at debug and swallowed;
// only a closed store stops the loop.
func (p *Poller) cycle(ctx context.Context, logger *slog.Logger, interval time.Duration, refresh func(context.Context) error) error {
	cycleCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	err := refresh(cycleCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrTornDown):
		return err
	case ctx.Err() != nil:
		return nil
	default:
		logger.Debug("status poll failed", logging.Error(err))
		return nil
	}
}
