package workflow_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tuner/internal/dataset"
	"tuner/internal/services/objectstore"
	"tuner/internal/services/records"
	"tuner/internal/services/remote"
	"tuner/internal/testsupport"
	"tuner/internal/workflow"
)

func TestWorkflowEndToEnd(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	cfg := testsupport.NewConfig(t, testsupport.WithFakeService(svc), testsupport.WithUser("u1"))
	journal := testsupport.MustOpenJournal(t, cfg)

	objects, err := objectstore.New(cfg.Storage.BucketURL)
	if err != nil {
		t.Fatal(err)
	}
	session, err := workflow.NewSession(workflow.SessionConfig{
		UserID:        cfg.User.ID,
		Service:       remote.NewClient(remote.Config{BaseURL: cfg.Service.URL, Timeout: cfg.RequestTimeout()}),
		Objects:       objects,
		Records:       records.NewClient(records.Config{BaseURL: cfg.Records.URL, Table: cfg.Records.Table}),
		Recorder:      journal,
		JobInterval:   time.Hour,
		ModelInterval: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()
	ctx := context.Background()
	view := func(name string) workflow.View { return session.Store().State().View(name) }

	// A: fresh user.
	if err := session.Refresh(ctx); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	if v := view(""); !v.Ready || v.Phase != workflow.PhaseAwaitingDataset || !v.UploadEnabled || v.TuneEnabled || v.QueryEnabled {
		t.Fatalf("scenario A: %+v", v)
	}

	// B: upload, then tune becomes available once a name is given.
	paths := testsupport.WriteDatasetFiles(t, filepath.Join(testsupport.BaseDir(cfg), "photos"), "a.png", "b.png")
	if err := session.Dispatcher().Upload(ctx, dataset.FromPaths(paths...)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if svc.Dataset() != "public/u1" {
		t.Fatalf("record not updated: %q", svc.Dataset())
	}
	if v := view("sks dog"); v.Phase != workflow.PhaseReadyToTune || v.UploadEnabled || !v.TuneEnabled {
		t.Fatalf("scenario B: %+v", v)
	}
	if v := view(""); v.TuneEnabled {
		t.Fatal("tune enabled without instance name")
	}
	if _, err := objects.Get(ctx, "public/u1"); err != nil {
		t.Fatalf("archive missing: %v", err)
	}

	// C: tuning in progress.
	if _, err := session.Dispatcher().StartFineTuning(ctx, "sks dog"); err != nil {
		t.Fatalf("tune: %v", err)
	}
	if svc.Calls("fine_tune_model") != 1 {
		t.Fatal("fine tune not called")
	}
	if v := view("sks dog"); v.Phase != workflow.PhaseTuning || v.Style != workflow.StylePulsing || v.TuneEnabled || v.QueryEnabled {
		t.Fatalf("scenario C: %+v", v)
	}

	// D: complete with a healthy model.
	svc.SetRun("run-u1", "SUCCEEDED")
	svc.SetModel("m1", true)
	if err := session.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if v := view(""); v.Phase != workflow.PhaseComplete || !v.QueryEnabled {
		t.Fatalf("scenario D: %+v", v)
	}
	url, err := session.Dispatcher().QueryModel(ctx, "a photo of sks dog")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if session.Store().State().ImageURL != url {
		t.Fatal("image not stored")
	}

	// E: failed run.
	svc.SetRun("run-u1", "FAILED")
	svc.SetModel("", false)
	if err := session.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if v := view(""); v.Phase != workflow.PhaseFailed || v.Style != workflow.StyleError || v.QueryEnabled {
		t.Fatalf("scenario E: %+v", v)
	}

	// Reset returns to awaiting dataset and leaves the archive.
	if err := session.Dispatcher().Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st := session.Store().State()
	if st.Snapshot != (workflow.Snapshot{}) || st.ImageURL != "" || !st.Flags.Ready {
		t.Fatalf("after reset: %+v", st)
	}
	if _, err := objects.Get(ctx, "public/u1"); err != nil {
		t.Fatalf("reset removed archive: %v", err)
	}

	history, err := journal.List(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 journaled actions, got %d", len(history))
	}
}

func TestFailedPollKeepsSnapshot(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	svc.SetDataset("public/u1")
	client := remote.NewClient(remote.Config{BaseURL: svc.URL()})
	store := workflow.NewStore()
	poller := workflow.NewPoller(store, client, "u1", nil, time.Hour, time.Hour)

	if err := poller.RefreshJob(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := store.State()
	svc.FailNext("user_data", 1)
	if err := poller.RefreshJob(context.Background()); err == nil {
		t.Fatal("expected injected failure")
	}
	if store.State() != before {
		t.Fatal("failed poll changed the snapshot")
	}
}
