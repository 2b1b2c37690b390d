package testsupport

import (
	"testing"

	"tuner/internal/config"
	"tuner/internal/journal"
)

// MustOpenJournal opens the journal at cfg.JournalPath for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
