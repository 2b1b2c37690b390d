package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tuner/internal/services"
)

func newTestSession(t *testing.T, svc *fakeService, lockPath string) *Session {
	t.Helper()
	session, err := NewSession(SessionConfig{
		UserID:        "u1",
		Service:       svc,
		Objects:       newFakeObjects(),
		Records:       &fakeRecords{svc: svc},
		JobInterval:   time.Hour,
		ModelInterval: time.Hour,
		LockPath:      lockPath,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func TestNewSessionValidation(t *testing.T) {
	svc := newFakeService()
	if _, err := NewSession(SessionConfig{UserID: "  ", Service: svc, Objects: newFakeObjects(), Records: &fakeRecords{svc: svc}}); err == nil {
		t.Fatal("expected error for blank user")
	}
	if _, err := NewSession(SessionConfig{UserID: "u1"}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestSessionRefreshMarksReady(t *testing.T) {
	svc := newFakeService()
	svc.setJob(JobState{DatasetRef: "public/u1", RunID: "r1", Status: RunSucceeded})
	svc.setModel(ModelState{ModelID: "m1", Health: HealthHealthy})
	session := newTestSession(t, svc, "")

	if session.Store().State().Flags.Ready {
		t.Fatal("fresh session should not be ready")
	}
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	view := session.Store().State().View("")
	if !view.Ready || view.Phase != PhaseComplete || !view.QueryEnabled {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSessionRefreshKeepsSuccessfulHalf(t *testing.T) {
	svc := newFakeService()
	svc.setJob(JobState{DatasetRef: "public/u1"})
	svc.modelErr = errBoom
	session := newTestSession(t, svc, "")

	err := session.Refresh(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected model error, got %v", err)
	}
	st := session.Store().State()
	if st.Snapshot.Job.DatasetRef != "public/u1" || !st.Flags.Ready {
		t.Fatalf("job half should have applied: %+v", st)
	}
}

func TestSessionLockIsExclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "locks", "u1.lock")
	svc := newFakeService()
	first := newTestSession(t, svc, lockPath)
	second := newTestSession(t, svc, lockPath)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second session should not acquire the lock")
	}
	first.Close()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("lock should be free after Close: %v", err)
	}
}

func TestSessionCloseTearsDown(t *testing.T) {
	svc := newFakeService()
	session := newTestSession(t, svc, "")
	if err := session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return session.Store().State().Flags.Ready })
	session.Close()
	session.Close()

	if err := session.Dispatcher().Reset(context.Background()); !errors.Is(err, services.ErrTornDown) {
		t.Fatalf("expected ErrTornDown after close, got %v", err)
	}
	if err := session.Start(context.Background()); err == nil {
		t.Fatal("Start after Close should fail")
	}
}
