package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"tuner/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStore, "objectstore", "put", "upload failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"objectstore", "put", "upload failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestOutcomeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{services.ErrBusy, "busy"},
		{fmt.Errorf("tune: %w", services.ErrPrecondition), "skipped"},
		{services.Wrap(services.ErrService, "remote", "call_model", "", nil), "failed"},
	}
	for _, tc := range tests {
		if got := services.Outcome(tc.err); got != tc.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIgnorable(t *testing.T) {
	if !services.Ignorable(nil) {
		t.Fatal("expected nil to be ignorable")
	}
	if !services.Ignorable(services.Wrap(services.ErrNotFound, "objectstore", "remove", "", nil)) {
		t.Fatal("expected not found to be ignorable")
	}
	if services.Ignorable(services.ErrStore) {
		t.Fatal("expected store error to be fatal for the caller")
	}
}
