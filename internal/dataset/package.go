package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"tuner/internal/services"
)

// Folder is the directory inside the archive that holds every packaged file.
const Folder = "dataset/object"

// File is one user-selected input. Open is called only when the file is
// written into the archive.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FromPaths builds File entries for local paths, keeping their order.
func FromPaths(paths ...string) []File {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		files = append(files, File{
			Name: filepath.Base(p),
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}
	return files
}

// EntryName returns the archive path for a source file name.
func EntryName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return path.Join(Folder, base)
}

// Write streams files into a zip archive on w, one at a time. An empty file
// list produces an empty but valid archive.
func Write(ctx context.Context, w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	if len(files) > 0 {
		for _, dir := range []string{"dataset/", Folder + "/"} {
			if _, err := zw.Create(dir); err != nil {
				return services.Wrap(services.ErrPackaging, "dataset", "create folder", dir, err)
			}
		}
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrPackaging, "dataset", "write", "cancelled", err)
		}
		if err := addFile(zw, file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return services.Wrap(services.ErrPackaging, "dataset", "finalize", "close archive", err)
	}
	return nil
}

// Reader exposes the archive as a stream. Packaging errors surface from Read.
func Reader(ctx context.Context, files []File) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(Write(ctx, pw, files))
	}()
	return pr
}

func addFile(zw *zip.Writer, file File) error {
	name := strings.TrimSpace(file.Name)
	if name == "" || file.Open == nil {
		return services.Wrap(services.ErrPackaging, "dataset", "add", fmt.Sprintf("invalid file %q", file.Name), nil)
	}
	src, err := file.Open()
	if err != nil {
		return services.Wrap(services.ErrPackaging, "dataset", "open", name, err)
	}
	defer src.Close()

	header := &zip.FileHeader{Name: EntryName(name), Method: zip.Deflate}
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return services.Wrap(services.ErrPackaging, "dataset", "add", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return services.Wrap(services.ErrPackaging, "dataset", "copy", name, err)
	}
	return nil
}
