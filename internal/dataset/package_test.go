package dataset_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuner/internal/dataset"
	"tuner/internal/services"
)

func memFile(name, body string) dataset.File {
	return dataset.File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string]string)
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(body)
	}
	return out
}

func TestWritePlacesFilesUnderFolder(t *testing.T) {
	var buf bytes.Buffer
	files := []dataset.File{memFile("a.png", "alpha"), memFile("nested/b.png", "beta")}
	if err := dataset.Write(context.Background(), &buf, files); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries := readArchive(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", entries)
	}
	if entries["dataset/object/a.png"] != "alpha" {
		t.Fatalf("unexpected a.png body %q", entries["dataset/object/a.png"])
	}
	if entries["dataset/object/b.png"] != "beta" {
		t.Fatalf("expected base name for nested file, got %v", entries)
	}
}

func TestWriteEmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	if err := dataset.Write(context.Background(), &buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("empty archive should be valid: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("expected no entries, got %d", len(zr.File))
	}
}

func TestWriteReportsUnreadableFile(t *testing.T) {
	bad := dataset.File{
		Name: "broken.png",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
	}
	err := dataset.Write(context.Background(), io.Discard, []dataset.File{memFile("ok.png", "x"), bad})
	if !errors.Is(err, services.ErrPackaging) {
		t.Fatalf("expected packaging error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.png") {
		t.Fatalf("expected file name in error, got %v", err)
	}
}

func TestReaderStreamsArchiveFromDisk(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "one.txt")
	second := filepath.Join(dir, "two.txt")
	if err := os.WriteFile(first, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc := dataset.Reader(context.Background(), dataset.FromPaths(first, second))
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	entries := readArchive(t, data)
	if entries["dataset/object/one.txt"] != "1" || entries["dataset/object/two.txt"] != "2" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestReaderSurfacesMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.txt")
	rc := dataset.Reader(context.Background(), dataset.FromPaths(missing))
	defer rc.Close()
	_, err := io.ReadAll(rc)
	if !errors.Is(err, services.ErrPackaging) {
		t.Fatalf("expected packaging error from stream, got %v", err)
	}
}

func TestEntryName(t *testing.T) {
	cases := map[string]string{
		"cat.jpg":             "dataset/object/cat.jpg",
		"/tmp/photos/dog.jpg": "dataset/object/dog.jpg",
		`C:\images\bird.png`:  "dataset/object/bird.png",
	}
	for in, want := range cases {
		if got := dataset.EntryName(in); got != want {
			t.Fatalf("EntryName(%q) = %q, want %q", in, got, want)
		}
	}
}
