package magicimage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultDownloadPrefix prefixes downloaded file names.
const DefaultDownloadPrefix = "gemini-image"

// Storage is an interface for persisting generated images.
// Implementations can wrap existing storage clients (filesystem, GCS, S3, etc.).
type Storage interface {
	// SaveFile saves image data and returns where it can be accessed.
	// The path is the full object path (e.g., "downloads/gemini-image-1700000000000.png").
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is where the image can be accessed
	URL string

	// Path is the storage path/key where the image was saved
	Path string

	// Size is the number of bytes saved
	Size int
}

// DownloadFilename returns <prefix>-<epoch-millis>.png.
func DownloadFilename(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultDownloadPrefix
	}
	return prefix + "-" + strconv.FormatInt(t.UnixMilli(), 10) + ".png"
}

// SaveDataURL decodes a generated image data string and saves it at path.
func SaveDataURL(ctx context.Context, storage Storage, dataURL string, path string) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}

	img, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
	if err != nil {
		return nil, err
	}

	return &StorageResult{
		URL:  url,
		Path: path,
		Size: len(img.Data),
	}, nil
}

// GetMIMEType guesses an image MIME type from a file extension.
func GetMIMEType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
