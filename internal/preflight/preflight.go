package preflight

import (
	"context"

	"tuner/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Prober confirms a dataset bucket is writable.
type Prober interface {
	Probe(ctx context.Context) error
}

// RunAll executes every check for cfg. bucket may be nil when the bucket URL
// could not be opened; the bucket check then reports that failure.
func RunAll(ctx context.Context, cfg *config.Config, bucket Prober) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckService(ctx, cfg.Service.URL),
		CheckRecords(ctx, cfg.Records.URL, cfg.Records.Table, cfg.Records.APIKey),
		CheckBucket(ctx, cfg.Storage.BucketURL, bucket),
	}
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
