package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const checkTimeout = 5 * time.Second

// CheckService verifies the workflow service answers HTTP. Any response below
// 500 counts as reachable since the routes need query parameters.
func CheckService(ctx context.Context, baseURL string) Result {
	const name = "Workflow service"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	status, err := probeHTTP(ctx, base+"/model_status", nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if status >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("%s (server error %d)", base, status)}
	}
	return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
}

// CheckRecords verifies the run record API is reachable and accepts the key.
func CheckRecords(ctx context.Context, baseURL, table, apiKey string) Result {
	const name = "Run records"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	headers := map[string]string{}
	if key := strings.TrimSpace(apiKey); key != "" {
		headers["apikey"] = key
		headers["Authorization"] = "Bearer " + key
	}
	status, err := probeHTTP(ctx, base+"/rest/v1/"+table+"?limit=0", headers)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (check records.api_key)"}
	case status >= http.StatusBadRequest:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", status)}
	default:
		return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
	}
}

// CheckBucket verifies the dataset bucket accepts writes.
func CheckBucket(ctx context.Context, bucketURL string, bucket Prober) Result {
	const name = "Dataset bucket"
	if bucket == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not configured)", bucketURL)}
	}
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := bucket.Probe(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", bucketURL, err)}
	}
	return Result{Name: name, Passed: true, Detail: bucketURL + " (write ok)"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func probeHTTP(ctx context.Context, target string, headers map[string]string) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	client := &http.Client{Timeout: checkTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
