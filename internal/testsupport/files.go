package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteDatasetFiles creates small placeholder files named names under dir
// and returns their paths in order. Each file holds its own name.
func WriteDatasetFiles(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte(fmt.Sprintf("sample:%s", name)), 0o644); err != nil {
			t.Fatalf("write %s: %v", target, err)
		}
		paths = append(paths, target)
	}
	return paths
}
