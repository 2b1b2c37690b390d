package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tuner/internal/dataset"
	"tuner/internal/logging"
	"tuner/internal/services"
)

// FineTuneRequest is the payload sent to start a remote fine-tuning run.
type FineTuneRequest struct {
	DatasetRef   string
	InstanceName string
	UserID       string
}

// RemoteService performs the mutating calls against the remote workflow service.
type RemoteService interface {
	FineTune(ctx context.Context, req FineTuneRequest) (string, error)
	CallModel(ctx context.Context, runID, prompt string) (string, error)
	ClearUserData(ctx context.Context, userID string) error
}

// ObjectStore persists the dataset archive.
type ObjectStore interface {
	Remove(ctx context.Context, key string) error
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// RecordStore associates an uploaded dataset with the user's run record.
type RecordStore interface {
	AttachDataset(ctx context.Context, userID, ref string) error
}

// Refresher re-reads job status after an action completes.
type Refresher interface {
	RefreshJob(ctx context.Context) error
}

// ActionRecord describes one dispatched action for the journal.
type ActionRecord struct {
	ID         string
	UserID     string
	Action     Action
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Detail     string
}

// Recorder receives a record for every dispatched action.
type Recorder interface {
	RecordAction(ctx context.Context, rec ActionRecord) error
}

// DatasetKey is the object key for a user's dataset archive.
func DatasetKey(userID string) string {
	return "public/" + userID
}

// Dispatcher executes user-triggered transitions against the remote
// services and the store.
type Dispatcher struct {
	store     *Store
	userID    string
	remote    RemoteService
	objects   ObjectStore
	records   RecordStore
	refresher Refresher
	recorder  Recorder
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// DispatcherDeps groups the collaborators a Dispatcher calls.
type DispatcherDeps struct {
	Remote    RemoteService
	Objects   ObjectStore
	Records   RecordStore
	Refresher Refresher
	Recorder  Recorder
	Logger    *slog.Logger
}

// NewDispatcher builds a dispatcher for one user. Recorder and Logger are optional.
func NewDispatcher(store *Store, userID string, deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{
		store:     store,
		userID:    userID,
		remote:    deps.Remote,
		objects:   deps.Objects,
		records:   deps.Records,
		refresher: deps.Refresher,
		recorder:  deps.Recorder,
		logger:    logging.NewComponentLogger(deps.Logger, "dispatcher"),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Upload packages files, stores the archive and links it to the run record.
// It is refused while a dataset is already recorded.
func (d *Dispatcher) Upload(ctx context.Context, files []dataset.File) error {
	_, err := d.run(ctx, ActionUpload, func() error {
		if len(files) == 0 {
			return services.Wrap(services.ErrPrecondition, "dispatcher", "upload", "no files selected", nil)
		}
		if d.store.State().Snapshot.Job.HasDataset() {
			return services.Wrap(services.ErrPrecondition, "dispatcher", "upload", "dataset already uploaded", nil)
		}
		return nil
	}, func(ctx context.Context, lease Lease) (string, error) {
		return d.upload(ctx, lease, files)
	})
	return err
}

func (d *Dispatcher) upload(ctx context.Context, lease Lease, files []dataset.File) (string, error) {
	logger := logging.WithContext(ctx, d.logger)
	key := DatasetKey(d.userID)

	if err := d.objects.Remove(ctx, key); err != nil {
		if services.Ignorable(err) {
			logger.Debug("no previous dataset archive", logging.Key(key))
		} else {
			logger.Info("previous dataset archive not removed", logging.Key(key), logging.Error(err))
		}
	}

	archive := dataset.Reader(ctx, files)
	defer archive.Close()
	ref, err := d.objects.Put(ctx, key, archive)
	if err != nil {
		return "", err
	}
	if !d.store.Held(lease) {
		return ref, services.Wrap(services.ErrPrecondition, "dispatcher", "upload", "workflow reset during upload", nil)
	}
	if err := d.records.AttachDataset(ctx, d.userID, ref); err != nil {
		return ref, err
	}
	d.refreshJob(ctx, logger)
	return ref, nil
}

// StartFineTuning asks the service to start a run for the uploaded dataset.
// It makes no external call unless a dataset exists, no run exists, no other
// request is queueing and instanceName is non-empty.
func (d *Dispatcher) StartFineTuning(ctx context.Context, instanceName string) (string, error) {
	instanceName = strings.TrimSpace(instanceName)
	var datasetRef string
	return d.run(ctx, ActionTune, func() error {
		st := d.store.State()
		if st.Flags.QueueingFinetune {
			return services.ErrBusy
		}
		if reason := TuneBlocker(st.Snapshot, st.Flags, instanceName); reason != "" {
			return services.Wrap(services.ErrPrecondition, "dispatcher", "tune", reason, nil)
		}
		datasetRef = st.Snapshot.Job.DatasetRef
		return nil
	}, func(ctx context.Context, lease Lease) (string, error) {
		runID, err := d.remote.FineTune(ctx, FineTuneRequest{
			DatasetRef:   datasetRef,
			InstanceName: instanceName,
			UserID:       d.userID,
		})
		if err != nil {
			return "", err
		}
		if d.store.Held(lease) {
			d.refreshJob(ctx, logging.WithContext(ctx, d.logger))
		}
		return runID, nil
	})
}

// QueryModel sends prompt to the tuned model and stores the returned image URL.
func (d *Dispatcher) QueryModel(ctx context.Context, prompt string) (string, error) {
	var runID string
	return d.run(ctx, ActionQuery, func() error {
		st := d.store.State()
		if !st.View("").QueryEnabled {
			return services.Wrap(services.ErrPrecondition, "dispatcher", "query", "model is not healthy", nil)
		}
		runID = st.Snapshot.Job.RunID
		return nil
	}, func(ctx context.Context, lease Lease) (string, error) {
		url, err := d.remote.CallModel(ctx, runID, prompt)
		if err != nil {
			return "", err
		}
		stored, err := d.store.SetImageHeld(lease, url)
		if err != nil {
			return url, err
		}
		if !stored {
			logging.WithContext(ctx, d.logger).Debug("image dropped after reset", logging.String("url", url))
		}
		return url, nil
	})
}

// Reset clears the user's run and dataset on the service and restores the
// default snapshot. The stored archive is left in place.
func (d *Dispatcher) Reset(ctx context.Context) error {
	_, err := d.run(ctx, ActionReset, nil, func(ctx context.Context, _ Lease) (string, error) {
		if err := d.remote.ClearUserData(ctx, d.userID); err != nil {
			return "", err
		}
		return "", d.store.Reset()
	})
	return err
}

// run applies the guard, takes the action's busy flag, executes the body and
// records the outcome. Guard failures never reach an external service.
func (d *Dispatcher) run(ctx context.Context, action Action, guard func() error, body func(context.Context, Lease) (string, error)) (string, error) {
	ctx = services.WithUserID(ctx, d.userID)
	ctx = services.WithAction(ctx, string(action))
	ctx = services.WithRequestID(ctx, d.newID())
	started := d.now()

	var (
		detail string
		err    error
	)
	if guard != nil {
		err = guard()
	}
	if err == nil {
		var lease Lease
		lease, err = d.store.TryBegin(action)
		if err == nil {
			detail, err = body(ctx, lease)
			d.store.End(lease)
		}
	}

	d.finish(ctx, action, started, detail, err)
	return detail, err
}

func (d *Dispatcher) finish(ctx context.Context, action Action, started time.Time, detail string, err error) {
	logger := logging.WithContext(ctx, d.logger)
	outcome := services.Outcome(err)
	switch {
	case err == nil:
		logger.Info("action completed", logging.String("detail", detail), logging.Elapsed(d.now().Sub(started)))
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrPrecondition):
		logger.Debug("action refused", logging.Outcome(outcome), logging.Error(err))
	default:
		logging.WarnWithContext(logger, "action failed", string(action)+"_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
	}

	if d.recorder == nil {
		return
	}
	recordDetail := detail
	if err != nil {
		recordDetail = err.Error()
	}
	rec := ActionRecord{
		ID:         requestID(ctx),
		UserID:     d.userID,
		Action:     action,
		StartedAt:  started,
		FinishedAt: d.now(),
		Outcome:    outcome,
		Detail:     recordDetail,
	}
	if jerr := d.recorder.RecordAction(context.WithoutCancel(ctx), rec); jerr != nil {
		logger.Info("journal write failed", logging.Error(jerr))
	}
}

func (d *Dispatcher) refreshJob(ctx context.Context, logger *slog.Logger) {
	if d.refresher == nil {
		return
	}
	if err := d.refresher.RefreshJob(ctx); err != nil {
		logger.Debug("post-action refresh failed", logging.Error(err))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrPackaging):
		return "check that every selected file is readable"
	case errors.Is(err, services.ErrStore):
		return "check storage.bucket_url and bucket permissions"
	case errors.Is(err, services.ErrTornDown):
		return "session closed before the action finished"
	default:
		return "check service.url and that the service is reachable"
	}
}

func requestID(ctx context.Context) string {
	if id, ok := services.RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}
