package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDoctorReportsEachCheck(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, name := range []string{"State directory", "Workflow service", "Run records", "Dataset bucket"} {
		requireContains(t, out, name)
	}
	requireContains(t, out, "[OK]")
}

func TestDoctorFailsForBrokenService(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Service.URL = "http://127.0.0.1:1"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out, "[ERROR]")
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.StateDir, "tuner.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
