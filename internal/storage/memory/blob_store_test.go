package memory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("%PDF-1.7 housing element")
	uri, err := store.PutObject(context.Background(), "documents/chnj.gov/abc123", "application/pdf", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://documents/chnj.gov/abc123", uri)

	payload[0] = 'X'
	obj, ok := store.Get("documents/chnj.gov/abc123")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, "%PDF-1.7 housing element", string(obj.Data))
}

func TestBlobStoreKeepsExistingObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	_, err := store.PutObject(ctx, "k", "text/html", strings.NewReader("first"))
	require.NoError(t, err)
	uri, err := store.PutObject(ctx, "k", "text/html", strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, "memory://k", uri)

	obj, _ := store.Get("k")
	assert.Equal(t, "first", string(obj.Data))
	assert.Equal(t, []string{"k"}, store.Keys())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestBlobStoreErrors(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "", "text/html", strings.NewReader("x"))
	require.Error(t, err)

	_, err = store.PutObject(context.Background(), "k", "text/html", failingReader{})
	require.ErrorContains(t, err, "boom")
	_, ok := store.Get("k")
	assert.False(t, ok)
}
