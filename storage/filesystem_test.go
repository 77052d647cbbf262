package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhpenta/magicimage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	_, err := NewFileStore("  ")
	require.Error(t, err)

	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.BasePath())
	assert.DirExists(t, dir)
}

func TestFileStore_SaveFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	url, err := store.SaveFile(context.Background(), []byte("png"), "2026/gemini-image-1.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), url)
	assert.True(t, strings.HasSuffix(url, "2026/gemini-image-1.png"), url)

	got, err := os.ReadFile(filepath.Join(dir, "2026", "gemini-image-1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
}

func TestFileStore_SaveDataURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	res, err := magicimage.SaveDataURL(context.Background(), store,
		magicimage.EncodeDataURL("image/png", []byte("result")), "a.png")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Size)
	assert.FileExists(t, filepath.Join(dir, "a.png"))
}

func TestFileStore_Errors(t *testing.T) {
	var nilStore *FileStore
	_, err := nilStore.SaveFile(context.Background(), nil, "a.png", "")
	assert.ErrorIs(t, err, ErrNoStore)

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.SaveFile(ctx, []byte("x"), "a.png", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "a.png", want: "a.png"},
		{in: "./dir/a.png", want: "dir/a.png"},
		{in: "/abs/a.png", want: "abs/a.png"},
		{in: `dir\a.png`, want: "dir/a.png"},
		{in: "dir/../a.png", want: "a.png"},
		{in: "", wantErr: ErrKeyMissing},
		{in: "../escape.png", wantErr: ErrInvalidKey},
		{in: "..", wantErr: ErrInvalidKey},
		{in: "/", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sanitizeKey(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
