package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPackaging    = errors.New("packaging error")
	ErrStore        = errors.New("store error")
	ErrService      = errors.New("service error")
	ErrNotFound     = errors.New("not found")
	ErrConfig       = errors.New("configuration error")
	ErrBusy         = errors.New("action already in progress")
	ErrPrecondition = errors.New("action not available")
	ErrTornDown     = errors.New("session torn down")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome maps an action error to the short label recorded in the journal.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrPrecondition):
		return "skipped"
	default:
		return "failed"
	}
}

// Ignorable reports whether err can be dropped by best-effort callers (a
// missing object on remove, for example).
func Ignorable(err error) bool {
	return err == nil || errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
