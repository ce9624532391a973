package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/storage"
)

const (
	// ThumbnailPrefix holds generated picture thumbnails. It sits outside the
	// media prefixes so thumbnails never show up in listings.
	ThumbnailPrefix = "thumbnails/"

	thumbnailWidth = 320
)

// ProgressCallback receives per-item progress of bulk operations
type ProgressCallback func(key string, done, total int)

// ThumbnailKey returns where the thumbnail of a picture is stored
func ThumbnailKey(pictureKey string) string {
	base := strings.TrimSuffix(pictureKey, path.Ext(pictureKey))
	return ThumbnailPrefix + base + ".jpg"
}

// GenerateThumbnail renders and stores the thumbnail of one picture
func (s *Service) GenerateThumbnail(ctx context.Context, pictureKey string) error {
	if c, ok := CollectionForKey(pictureKey); !ok || c != models.Pictures {
		return fmt.Errorf("%w: %q is not a picture", ErrInvalidKey, pictureKey)
	}
	data, _, err := s.store.Get(ctx, pictureKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMediaNotFound, pictureKey)
		}
		return fmt.Errorf("error downloading picture: %w", err)
	}
	if err := s.storeThumbnail(ctx, pictureKey, data); err != nil {
		return err
	}
	s.listCache.Flush()
	return nil
}

// ClearThumbnail removes the thumbnail of one picture
func (s *Service) ClearThumbnail(ctx context.Context, pictureKey string) error {
	if err := s.store.Delete(ctx, ThumbnailKey(pictureKey)); err != nil {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	s.listCache.Flush()
	return nil
}

// BulkGenerateThumbnails renders thumbnails for pictures that lack one, or for
// every picture when force is set. Failures are counted, not fatal.
func (s *Service) BulkGenerateThumbnails(ctx context.Context, force bool, progressCb ProgressCallback) (int, int, error) {
	pictures, err := s.listObjects(ctx, models.Pictures)
	if err != nil {
		return 0, 0, err
	}
	existing, err := s.store.List(ctx, ThumbnailPrefix)
	if err != nil {
		return 0, 0, fmt.Errorf("error listing thumbnails: %w", err)
	}
	thumbnails := make(map[string]bool, len(existing))
	for _, obj := range existing {
		thumbnails[obj.Key] = true
	}

	processed, failed := 0, 0
	for i, picture := range pictures {
		if !force && thumbnails[ThumbnailKey(picture.Key)] {
			continue
		}
		if err := s.GenerateThumbnail(ctx, picture.Key); err != nil {
			s.logger.Warnw("Thumbnail generation failed", "key", picture.Key, "error", err)
			failed++
		} else {
			processed++
		}
		if progressCb != nil {
			progressCb(picture.Key, i+1, len(pictures))
		}
	}
	return processed, failed, nil
}

// BulkClearThumbnails removes every stored thumbnail
func (s *Service) BulkClearThumbnails(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, ThumbnailPrefix)
	if err != nil {
		return 0, fmt.Errorf("error listing thumbnails: %w", err)
	}

	deleted := 0
	for _, obj := range objects {
		if err := s.store.Delete(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return deleted, fmt.Errorf("failed to delete thumbnail %s: %w", obj.Key, err)
		}
		deleted++
	}
	s.listCache.Flush()
	return deleted, nil
}

func (s *Service) storeThumbnail(ctx context.Context, pictureKey string, data []byte) error {
	thumb, err := renderThumbnail(data)
	if err != nil {
		return err
	}
	thumbKey := ThumbnailKey(pictureKey)
	if _, err := s.store.Put(ctx, thumbKey, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
		Size:        int64(len(thumb)),
	}); err != nil {
		return fmt.Errorf("error uploading thumbnail: %w", err)
	}
	s.logger.Debugw("Created thumbnail", "key", thumbKey)
	return nil
}

// renderThumbnail scales a picture down to thumbnailWidth and encodes it as JPEG
func renderThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode picture: %w", err)
	}
	if img.Bounds().Dx() > thumbnailWidth {
		img = imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
