package objectstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tuner/internal/services"
)

func TestPutGetRemove(t *testing.T) {
	ctx := context.Background()
	store, err := New("mem://localhost/bucket-put-get/")
	assert.NoError(t, err)

	ref, err := store.Put(ctx, "public/u1", strings.NewReader("archive-bytes"))
	assert.NoError(t, err)
	assert.Equal(t, "public/u1", ref)
	assert.Equal(t, "mem://localhost/bucket-put-get/public/u1", store.URL(ref))

	data, err := store.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	assert.NoError(t, store.Remove(ctx, ref))
	_, err = store.Get(ctx, ref)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestRemoveMissingIsIgnorable(t *testing.T) {
	store, err := New("mem://localhost/bucket-missing")
	assert.NoError(t, err)

	err = store.Remove(context.Background(), "public/nobody")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNotFound))
	assert.True(t, services.Ignorable(err))
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := New("mem://localhost/bucket-overwrite")
	assert.NoError(t, err)

	_, err = store.Put(ctx, "public/u1", bytes.NewReader([]byte("first")))
	assert.NoError(t, err)
	_, err = store.Put(ctx, "public/u1", bytes.NewReader([]byte("second")))
	assert.NoError(t, err)

	data, err := store.Get(ctx, "public/u1")
	assert.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileBucket(t *testing.T) {
	ctx := context.Background()
	store, err := New("file://" + t.TempDir())
	assert.NoError(t, err)

	_, err = store.Put(ctx, "public/u1", strings.NewReader("zip"))
	assert.NoError(t, err)
	data, err := store.Get(ctx, "public/u1")
	assert.NoError(t, err)
	assert.Equal(t, "zip", string(data))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("  ")
	assert.True(t, errors.Is(err, services.ErrConfig))
}

func TestProbeLeavesNoMarker(t *testing.T) {
	ctx := context.Background()
	store, err := New("mem://localhost/bucket-probe")
	assert.NoError(t, err)

	assert.NoError(t, store.Probe(ctx))
	_, err = store.Get(ctx, probeKey)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}
