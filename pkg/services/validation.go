package services

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"media-portfolio/pkg/models"
)

const (
	// MaxVideoSize is the largest video accepted for upload
	MaxVideoSize int64 = 50 * 1024 * 1024
	// MaxPictureSize is the largest picture accepted for upload
	MaxPictureSize int64 = 10 * 1024 * 1024
)

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrEmptyFile         = errors.New("file is empty")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrInvalidKey        = errors.New("key is not a media object")
	ErrMediaNotFound     = errors.New("media not found")
	ErrMetadataConflict  = errors.New("metadata document changed concurrently")
)

var allowedTypes = map[models.Collection]map[string]bool{
	models.Videos: {
		"video/mp4":       true,
		"video/avi":       true,
		"video/mov":       true,
		"video/wmv":       true,
		"video/webm":      true,
		"video/quicktime": true,
		"video/x-msvideo": true,
		"video/x-ms-wmv":  true,
	},
	models.Pictures: {
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
}

// MaxSize returns the upload size limit of a collection
func MaxSize(c models.Collection) int64 {
	if c == models.Pictures {
		return MaxPictureSize
	}
	return MaxVideoSize
}

// ValidateUpload checks size and content type limits of a collection.
// A file exactly at the limit is accepted.
func ValidateUpload(c models.Collection, size int64, contentType string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, c)
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if limit := MaxSize(c); size > limit {
		return fmt.Errorf("%w: %s must be at most %s", ErrFileTooLarge, c, FormatFileSize(limit))
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedTypes[c][mediaType] {
		return fmt.Errorf("%w: %q is not allowed for %s", ErrUnsupportedType, contentType, c)
	}
	return nil
}

// validateFilename rejects names that would escape the collection prefix
func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// declaredSizeReader fails the read that takes the body past its declared size
type declaredSizeReader struct {
	r        io.Reader
	declared int64
	read     int64
}

func (d *declaredSizeReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.read += int64(n)
	if d.overflowed() {
		return n, ErrFileTooLarge
	}
	return n, err
}

func (d *declaredSizeReader) overflowed() bool {
	return d.read > d.declared
}

// FormatFileSize converts bytes to a human-readable format
func FormatFileSize(bytes int64) string {
	const (
		B  int64 = 1
		KB       = B * 1024
		MB       = KB * 1024
		GB       = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
