package workflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"tuner/internal/services"
)

type fakeService struct {
	mu sync.Mutex

	job   JobState
	model ModelState

	userErr  error
	modelErr error
	tuneErr  error
	callErr  error
	clearErr error

	// tuneGate blocks FineTune until closed when non-nil.
	tuneGate chan struct{}
	imageURL string
	lastTune FineTuneRequest
	calls    map[string]int
}

func newFakeService() *fakeService {
	return &fakeService{calls: make(map[string]int), imageURL: "https://img.example/out.png"}
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeService) setJob(job JobState) {
	f.mu.Lock()
	f.job = job
	f.mu.Unlock()
}

func (f *fakeService) setModel(model ModelState) {
	f.mu.Lock()
	f.model = model
	f.mu.Unlock()
}

func (f *fakeService) UserData(ctx context.Context, userID string) (JobState, error) {
	f.record("user_data")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return JobState{}, f.userErr
	}
	return f.job, nil
}

func (f *fakeService) ModelStatus(ctx context.Context, userID string) (ModelState, error) {
	f.record("model_status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modelErr != nil {
		return ModelState{}, f.modelErr
	}
	return f.model, nil
}

func (f *fakeService) FineTune(ctx context.Context, req FineTuneRequest) (string, error) {
	f.record("fine_tune_model")
	f.mu.Lock()
	gate := f.tuneGate
	f.lastTune = req
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tuneErr != nil {
		return "", f.tuneErr
	}
	f.job.RunID = "run-1"
	f.job.Status = RunPending
	return f.job.RunID, nil
}

func (f *fakeService) CallModel(ctx context.Context, runID, prompt string) (string, error) {
	f.record("call_model")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return "", f.callErr
	}
	return f.imageURL, nil
}

func (f *fakeService) ClearUserData(ctx context.Context, userID string) error {
	f.record("clear_user_data")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.job = JobState{}
	f.model = ModelState{Health: HealthUnhealthy}
	return nil
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	removeErr error
	removes   int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.objects[key]; !ok {
		return services.Wrap(services.ErrNotFound, "objects", "remove", key, nil)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", services.Wrap(services.ErrStore, "objects", "put", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = buf.Bytes()
	return key, nil
}

func (f *fakeObjects) removeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removes
}

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fakeRecords struct {
	svc *fakeService
	err error
}

func (f *fakeRecords) attaches() int {
	return f.svc.count("attach_dataset")
}

func (f *fakeRecords) AttachDataset(ctx context.Context, userID, ref string) error {
	f.svc.record("attach_dataset")
	if f.err != nil {
		return f.err
	}
	f.svc.mu.Lock()
	f.svc.job.DatasetRef = ref
	f.svc.mu.Unlock()
	return nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []ActionRecord
	err     error
}

func (m *memoryRecorder) RecordAction(ctx context.Context, rec ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *memoryRecorder) all() []ActionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ActionRecord(nil), m.records...)
}

var errBoom = errors.New("boom")

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
