package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tuner/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckService(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"bad request still reachable", http.StatusBadRequest, true},
		{"server error", http.StatusBadGateway, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			if got := CheckService(context.Background(), srv.URL).Passed; got != tc.want {
				t.Fatalf("Passed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckServiceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if CheckService(context.Background(), url).Passed {
		t.Fatal("expected failure for closed server")
	}
	if CheckService(context.Background(), "").Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestCheckRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/runs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckRecords(context.Background(), srv.URL, "runs", "good-key"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if CheckRecords(context.Background(), srv.URL, "runs", "bad-key").Passed {
		t.Fatal("expected failure for bad key")
	}
	if CheckRecords(context.Background(), srv.URL, "missing", "good-key").Passed {
		t.Fatal("expected failure for unknown table")
	}
}

type stubProber struct{ err error }

func (s stubProber) Probe(context.Context) error { return s.err }

func TestCheckBucket(t *testing.T) {
	if !CheckBucket(context.Background(), "mem://b", stubProber{}).Passed {
		t.Fatal("expected pass")
	}
	if CheckBucket(context.Background(), "mem://b", stubProber{err: errors.New("denied")}).Passed {
		t.Fatal("expected failure when probe fails")
	}
	if CheckBucket(context.Background(), "mem://b", nil).Passed {
		t.Fatal("expected failure without a bucket")
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Service.URL = srv.URL
	cfg.Records.URL = srv.URL

	results := RunAll(context.Background(), &cfg, stubProber{})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if Failed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
	if RunAll(context.Background(), nil, nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
