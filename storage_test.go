package magicimage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	files map[string][]byte
	types map[string]string
	err   error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.files[path] = data
	m.types[path] = contentType
	return "mem://" + path, nil
}

func TestDownloadFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)

	assert.Equal(t, "gemini-image-1700000000123.png", DownloadFilename("", ts))
	assert.Equal(t, "post-1700000000123.png", DownloadFilename("post", ts))
}

func TestSaveDataURL(t *testing.T) {
	ctx := context.Background()

	t.Run("saves decoded bytes", func(t *testing.T) {
		store := newMemoryStorage()
		res, err := SaveDataURL(ctx, store, EncodeDataURL("image/png", []byte("png")), "out/a.png")
		require.NoError(t, err)

		assert.Equal(t, "mem://out/a.png", res.URL)
		assert.Equal(t, 3, res.Size)
		assert.Equal(t, []byte("png"), store.files["out/a.png"])
		assert.Equal(t, "image/png", store.types["out/a.png"])
	})

	t.Run("no storage", func(t *testing.T) {
		_, err := SaveDataURL(ctx, nil, EncodeDataURL("image/png", []byte("png")), "a.png")
		assert.ErrorIs(t, err, ErrStorageNotConfigured)
	})

	t.Run("malformed result", func(t *testing.T) {
		_, err := SaveDataURL(ctx, newMemoryStorage(), "nope", "a.png")
		assert.ErrorIs(t, err, ErrMalformedDataURL)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := newMemoryStorage()
		store.err = errors.New("disk full")
		_, err := SaveDataURL(ctx, store, EncodeDataURL("image/png", []byte("png")), "a.png")
		assert.EqualError(t, err, "disk full")
	})
}

func TestGetMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", GetMIMEType("a.PNG"))
	assert.Equal(t, "image/jpeg", GetMIMEType("a.jpeg"))
	assert.Equal(t, "image/webp", GetMIMEType("dir/a.webp"))
	assert.Equal(t, "text/plain", GetMIMEType("notes.txt"))
	assert.Equal(t, "application/octet-stream", GetMIMEType("a.bin"))
}
