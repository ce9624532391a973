package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/storage"
)

const (
	// DefaultURLTTL is how long signed access URLs stay valid
	DefaultURLTTL = time.Hour
	// DefaultCacheTTL is how long listings are served from memory
	DefaultCacheTTL = 5 * time.Minute

	// isoLayout matches the millisecond ISO-8601 form used in the metadata document
	isoLayout = "2006-01-02T15:04:05.000Z"

	// urlWorkers bounds concurrent signed URL requests
	urlWorkers = 8
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	URLTTL   time.Duration
	CacheTTL time.Duration
	Now      func() time.Time
}

// Service is the storage façade: it owns the key naming convention, the
// metadata document and the listing rules
type Service struct {
	store     storage.Store
	logger    *zap.SugaredLogger
	listCache *cache.Cache
	urlTTL    time.Duration
	now       func() time.Time
}

// NewService wraps store
func NewService(store storage.Store, logger *zap.SugaredLogger, opts Options) *Service {
	if opts.URLTTL <= 0 {
		opts.URLTTL = DefaultURLTTL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:     store,
		logger:    logger,
		listCache: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		urlTTL:    opts.URLTTL,
		now:       opts.Now,
	}
}

// UploadFile is a media file offered for upload
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult describes a stored upload
type UploadResult struct {
	Key   string               `json:"key"`
	Entry models.MetadataEntry `json:"entry"`
}

// UploadVideo stores a video and records it in the metadata document
func (s *Service) UploadVideo(ctx context.Context, file UploadFile, title, description string, onProgress storage.ProgressFunc) (*UploadResult, error) {
	return s.Upload(ctx, models.Videos, file, title, description, onProgress)
}

// UploadPicture stores a picture, records it in the metadata document and
// renders its thumbnail
func (s *Service) UploadPicture(ctx context.Context, file UploadFile, title, description string, onProgress storage.ProgressFunc) (*UploadResult, error) {
	return s.Upload(ctx, models.Pictures, file, title, description, onProgress)
}

// Upload stores file under a fresh timestamped key in collection c
func (s *Service) Upload(ctx context.Context, c models.Collection, file UploadFile, title, description string, onProgress storage.ProgressFunc) (*UploadResult, error) {
	if err := ValidateUpload(c, file.Size, file.ContentType); err != nil {
		return nil, err
	}
	if err := validateFilename(file.Name); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description = strings.TrimSpace(description)

	now := s.now()
	key := BuildKey(c, now, file.Name)
	uploadDate := now.UTC().Format(isoLayout)

	guard := &declaredSizeReader{r: io.LimitReader(file.Body, file.Size+1), declared: file.Size}
	var body io.Reader = guard
	var picture bytes.Buffer
	if c == models.Pictures {
		body = io.TeeReader(guard, &picture)
	}

	_, err := s.store.Put(ctx, key, body, storage.PutOptions{
		ContentType: file.ContentType,
		Size:        file.Size,
		Progress:    onProgress,
		Metadata: map[string]string{
			"title":        title,
			"description":  description,
			"originalName": file.Name,
			"uploadDate":   uploadDate,
		},
	})
	if guard.overflowed() {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warnw("Removing oversized upload failed", "key", key, "error", err)
		}
		return nil, fmt.Errorf("%w: body exceeds declared size of %d bytes", ErrFileTooLarge, file.Size)
	}
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Infow("Uploaded media", "key", key, "size", file.Size, "contentType", file.ContentType)

	entry := models.MetadataEntry{
		Key:         key,
		Title:       title,
		Description: description,
		Size:        file.Size,
		ContentType: file.ContentType,
		UploadDate:  uploadDate,
	}
	if _, err := s.AddEntry(ctx, c, entry); err != nil {
		s.listCache.Flush()
		return nil, fmt.Errorf("record metadata for %s: %w", key, err)
	}

	if c == models.Pictures {
		if err := s.storeThumbnail(ctx, key, picture.Bytes()); err != nil {
			s.logger.Warnw("Thumbnail generation failed", "key", key, "error", err)
		}
	}

	s.listCache.Flush()
	return &UploadResult{Key: key, Entry: entry}, nil
}

// ListVideos lists stored videos merged with their metadata
func (s *Service) ListVideos(ctx context.Context) ([]models.MediaItem, error) {
	return s.List(ctx, models.Videos)
}

// ListPictures lists stored pictures merged with their metadata
func (s *Service) ListPictures(ctx context.Context) ([]models.MediaItem, error) {
	return s.List(ctx, models.Pictures)
}

// List returns the display items of collection c without access URLs
func (s *Service) List(ctx context.Context, c models.Collection) ([]models.MediaItem, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, c)
	}
	if cached, found := s.listCache.Get(string(c)); found {
		s.logger.Debugw("Using cached listing", "collection", c)
		return cloneItems(cached.([]models.MediaItem)), nil
	}

	objects, err := s.listObjects(ctx, c)
	if err != nil {
		return nil, err
	}

	res := s.FetchMetadata(ctx)
	if res.Status == MetadataUnavailable {
		s.logger.Warnw("Listing without metadata", "collection", c, "error", res.Err)
	}
	doc := res.DocumentOrEmpty()

	entries := make(map[string]models.MetadataEntry, len(doc.Entries(c)))
	for _, e := range doc.Entries(c) {
		entries[e.Key] = e
	}

	items := make([]models.MediaItem, 0, len(objects))
	for _, obj := range objects {
		displayName := ExtractFilename(obj.Key)
		entry := entries[obj.Key]

		title := entry.Title
		if title == "" {
			title = GenerateTitle(displayName)
		}
		contentType := obj.ContentType
		if contentType == "" {
			contentType = entry.ContentType
		}

		items = append(items, models.MediaItem{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  contentType,
			LastModified: obj.LastModified,
			Title:        title,
			Description:  entry.Description,
			DisplayName:  displayName,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return naturalLess(items[i].Key, items[j].Key)
	})

	// derived titles from an outage must not outlive it
	if res.Status != MetadataUnavailable {
		s.listCache.Set(string(c), cloneItems(items), cache.DefaultExpiration)
	}
	return items, nil
}

// ListWithURLs lists collection c and resolves access URLs for every item
func (s *Service) ListWithURLs(ctx context.Context, c models.Collection) ([]models.MediaItem, error) {
	items, err := s.List(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.ResolveURLs(ctx, c, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ResolveURLs fills in signed URLs, and thumbnail URLs for pictures, issuing
// the requests concurrently
func (s *Service) ResolveURLs(ctx context.Context, c models.Collection, items []models.MediaItem) error {
	thumbnails := map[string]bool{}
	if c == models.Pictures {
		objects, err := s.store.List(ctx, ThumbnailPrefix)
		if err != nil {
			s.logger.Warnw("Listing thumbnails failed", "error", err)
		}
		for _, obj := range objects {
			thumbnails[obj.Key] = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(urlWorkers)
	for i := range items {
		g.Go(func() error {
			url, err := s.GetFileURL(gctx, items[i].Key)
			if err != nil {
				return err
			}
			items[i].URL = url

			if thumbKey := ThumbnailKey(items[i].Key); thumbnails[thumbKey] {
				thumbURL, err := s.GetFileURL(gctx, thumbKey)
				if err != nil {
					return err
				}
				items[i].ThumbnailURL = thumbURL
			}
			return nil
		})
	}
	return g.Wait()
}

// GetFileURL returns a temporary access URL for key. Callers should fetch a
// new one rather than keep it beyond its lifetime.
func (s *Service) GetFileURL(ctx context.Context, key string) (string, error) {
	url, err := s.store.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return "", fmt.Errorf("signed URL for %s: %w", key, err)
	}
	return url, nil
}

// DeleteFile removes the object only. The metadata document keeps any entry
// for key until the caller removes it.
func (s *Service) DeleteFile(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.listCache.Flush()
	s.logger.Infow("Deleted object", "key", key)
	return nil
}

// DeleteMedia deletes the object, then its metadata entry, then its thumbnail.
// The steps are not atomic: when the entry removal fails the error is
// returned and the entry is left dangling.
func (s *Service) DeleteMedia(ctx context.Context, key string) error {
	c, ok := CollectionForKey(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	if err := s.DeleteFile(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if _, err := s.RemoveEntry(ctx, c, key); err != nil {
		return fmt.Errorf("remove metadata for %s: %w", key, err)
	}
	if c == models.Pictures {
		if err := s.store.Delete(ctx, ThumbnailKey(key)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warnw("Thumbnail cleanup failed", "key", key, "error", err)
		}
	}
	return nil
}

// ScanAndCreateMetadata rebuilds the metadata document from the bucket
// contents, overwriting it. Hand-entered titles and descriptions are lost.
func (s *Service) ScanAndCreateMetadata(ctx context.Context) (*models.MetadataDocument, error) {
	doc, err := s.scanDocument(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateMediaMetadata(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Infow("Metadata document created", "videos", len(doc.Videos), "pictures", len(doc.Pictures))
	return doc, nil
}

// ScanAndMergeMetadata rebuilds the document from the bucket contents but
// keeps existing titles and descriptions. Entries whose objects are gone are
// dropped.
func (s *Service) ScanAndMergeMetadata(ctx context.Context) (*models.MetadataDocument, error) {
	scanned, err := s.scanDocument(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.mutateMetadata(ctx, func(doc *models.MetadataDocument) error {
		for _, c := range models.Collections {
			merged := make([]models.MetadataEntry, 0, len(scanned.Entries(c)))
			for _, entry := range scanned.Entries(c) {
				if old, ok := doc.Find(c, entry.Key); ok {
					if old.Title != "" {
						entry.Title = old.Title
					}
					entry.Description = old.Description
					if old.UploadDate != "" {
						entry.UploadDate = old.UploadDate
					}
				}
				merged = append(merged, entry)
			}
			doc.SetEntries(c, merged)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Metadata document merged", "videos", len(doc.Videos), "pictures", len(doc.Pictures))
	return doc, nil
}

// scanDocument lists both collections concurrently and derives fresh entries
func (s *Service) scanDocument(ctx context.Context) (*models.MetadataDocument, error) {
	var videos, pictures []storage.ObjectInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = s.listObjects(gctx, models.Videos)
		return err
	})
	g.Go(func() error {
		var err error
		pictures, err = s.listObjects(gctx, models.Pictures)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error scanning bucket: %w", err)
	}

	doc := models.NewMetadataDocument()
	for _, obj := range videos {
		doc.Videos = append(doc.Videos, s.derivedEntry(models.Videos, obj))
	}
	for _, obj := range pictures {
		doc.Pictures = append(doc.Pictures, s.derivedEntry(models.Pictures, obj))
	}
	return doc, nil
}

func (s *Service) derivedEntry(c models.Collection, obj storage.ObjectInfo) models.MetadataEntry {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "video/mp4"
		if c == models.Pictures {
			contentType = "image/jpeg"
		}
	}
	uploaded := obj.LastModified
	if uploaded.IsZero() {
		uploaded = s.now()
	}
	return models.MetadataEntry{
		Key:         obj.Key,
		Title:       GenerateTitle(ExtractFilename(obj.Key)),
		Description: "",
		Size:        obj.Size,
		ContentType: contentType,
		UploadDate:  uploaded.UTC().Format(isoLayout),
	}
}

// listObjects lists collection c, dropping pseudo-folders and empty objects
func (s *Service) listObjects(ctx context.Context, c models.Collection) ([]storage.ObjectInfo, error) {
	objects, err := s.store.List(ctx, c.Prefix())
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", c, err)
	}

	files := make([]storage.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		isFolder := strings.HasSuffix(obj.Key, "/")
		isEmpty := obj.Size == 0
		if isFolder || isEmpty {
			continue
		}
		files = append(files, obj)
	}
	return files, nil
}

// findObject looks up the listing record of a single key
func (s *Service) findObject(ctx context.Context, key string) (storage.ObjectInfo, error) {
	objects, err := s.store.List(ctx, key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	for _, obj := range objects {
		if obj.Key == key {
			return obj, nil
		}
	}
	return storage.ObjectInfo{}, fmt.Errorf("%w: %s", ErrMediaNotFound, key)
}

func cloneItems(items []models.MediaItem) []models.MediaItem {
	out := make([]models.MediaItem, len(items))
	copy(out, items)
	return out
}
