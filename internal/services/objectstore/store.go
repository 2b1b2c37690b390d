package objectstore

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"tuner/internal/services"
)

const component = "objectstore"

// Store keeps dataset archives under a bucket base URL. Any scheme afs
// understands works (file://, mem://, s3://, gs://).
type Store struct {
	baseURL string
	fs      afs.Service
	mu      sync.Mutex
}

// Option customizes the store.
type Option func(*Store)

// WithService overrides the afs service.
func WithService(fs afs.Service) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// New returns a store rooted at baseURL.
func New(baseURL string, opts ...Option) (*Store, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfig, component, "new", "bucket url is required", nil)
	}
	s := &Store{baseURL: baseURL, fs: afs.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the absolute location of key.
func (s *Store) URL(key string) string {
	return url.Join(s.baseURL, strings.TrimLeft(key, "/"))
}

// Remove deletes key. A missing object yields an error wrapping ErrNotFound.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.URL(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return services.Wrap(services.ErrStore, component, "remove", location, err)
	}
	if !exists {
		return services.Wrap(services.ErrNotFound, component, "remove", location, nil)
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return services.Wrap(services.ErrStore, component, "remove", location, err)
	}
	return nil
}

// Put streams r into key and returns key as the stored reference.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.URL(key)
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, r); err != nil {
		return "", services.Wrap(services.ErrStore, component, "put", location, err)
	}
	return key, nil
}

// Get downloads the object stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.URL(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, component, "get", location, err)
	}
	if !exists {
		return nil, services.Wrap(services.ErrNotFound, component, "get", location, nil)
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, component, "get", location, err)
	}
	return data, nil
}

const probeKey = ".tuner-probe"

// Probe writes and removes a marker object to confirm the bucket accepts writes.
func (s *Store) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.URL(probeKey)
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, strings.NewReader("ok")); err != nil {
		return services.Wrap(services.ErrStore, component, "probe", location, err)
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return services.Wrap(services.ErrStore, component, "probe", location, err)
	}
	return nil
}
