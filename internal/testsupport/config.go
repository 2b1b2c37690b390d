package testsupport

import (
	"path/filepath"
	"testing"

	"tuner/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The bucket is a file:// URL under the temp dir and polling runs every second.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.User.ID = "test-user"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Storage.BucketURL = "file://" + filepath.Join(base, "bucket")
	cfgVal.Records.URL = "http://127.0.0.1:1"
	cfgVal.Polling.JobInterval = 1
	cfgVal.Polling.ModelInterval = 1
	cfgVal.Service.RequestTimeout = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithUser overrides the configured user identifier.
func WithUser(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.User.ID = id
	}
}

// WithFakeService points both the workflow service and the records API at svc.
func WithFakeService(svc *FakeService) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.URL = svc.URL()
		b.cfg.Records.URL = svc.URL()
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
