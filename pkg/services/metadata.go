package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/storage"
)

// MetadataKey is where the metadata document lives in the bucket
const MetadataKey = "metadata/media-metadata.json"

// maxMetadataAttempts bounds the read-modify-write retries of a conditional update
const maxMetadataAttempts = 5

// MetadataStatus tells apart the outcomes of reading the metadata document
type MetadataStatus int

const (
	// MetadataFound means the document was read and parsed
	MetadataFound MetadataStatus = iota
	// MetadataMissing means no document has been written yet
	MetadataMissing
	// MetadataUnavailable means the store could not be read or the document did not parse
	MetadataUnavailable
)

func (s MetadataStatus) String() string {
	switch s {
	case MetadataFound:
		return "found"
	case MetadataMissing:
		return "missing"
	default:
		return "unavailable"
	}
}

// MetadataResult is the typed outcome of FetchMetadata
type MetadataResult struct {
	Status   MetadataStatus
	Document *models.MetadataDocument
	// Version is the store's version token of the document when found
	Version string
	Err     error
}

// DocumentOrEmpty returns the document, or the canonical empty document when
// none could be read
func (r MetadataResult) DocumentOrEmpty() *models.MetadataDocument {
	if r.Status == MetadataFound && r.Document != nil {
		return r.Document
	}
	return models.NewMetadataDocument()
}

// FetchMetadata reads the metadata document and classifies the outcome
func (s *Service) FetchMetadata(ctx context.Context) MetadataResult {
	data, version, err := s.store.Get(ctx, MetadataKey)
	if errors.Is(err, storage.ErrNotFound) {
		return MetadataResult{Status: MetadataMissing}
	}
	if err != nil {
		return MetadataResult{Status: MetadataUnavailable, Err: err}
	}

	doc := models.NewMetadataDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return MetadataResult{
			Status: MetadataUnavailable,
			Err:    fmt.Errorf("parse metadata document: %w", err),
		}
	}
	doc.Normalize()
	return MetadataResult{Status: MetadataFound, Document: doc, Version: version}
}

// GetMediaMetadata returns the metadata document, or an empty one when it is
// missing or cannot be read. Use FetchMetadata to tell those cases apart.
func (s *Service) GetMediaMetadata(ctx context.Context) *models.MetadataDocument {
	res := s.FetchMetadata(ctx)
	if res.Status == MetadataUnavailable {
		s.logger.Warnw("Metadata document unreadable, using empty document", "error", res.Err)
	}
	return res.DocumentOrEmpty()
}

// UpdateMediaMetadata overwrites the stored document unconditionally. The last
// writer wins; use the entry operations for concurrent-safe changes.
func (s *Service) UpdateMediaMetadata(ctx context.Context, doc *models.MetadataDocument) error {
	data, err := encodeMetadata(doc)
	if err != nil {
		return err
	}
	if _, err := s.store.Put(ctx, MetadataKey, bytes.NewReader(data), storage.PutOptions{
		ContentType: "application/json",
		Size:        int64(len(data)),
	}); err != nil {
		return fmt.Errorf("write metadata document: %w", err)
	}
	s.listCache.Flush()
	return nil
}

// AddEntry appends entry to collection c, replacing any entry with the same key
func (s *Service) AddEntry(ctx context.Context, c models.Collection, entry models.MetadataEntry) (*models.MetadataDocument, error) {
	return s.mutateMetadata(ctx, func(doc *models.MetadataDocument) error {
		entries := removeKey(doc.Entries(c), entry.Key)
		doc.SetEntries(c, append(entries, entry))
		return nil
	})
}

// RemoveEntry drops the entry for key from collection c. It reports whether an
// entry was present.
func (s *Service) RemoveEntry(ctx context.Context, c models.Collection, key string) (bool, error) {
	removed := false
	_, err := s.mutateMetadata(ctx, func(doc *models.MetadataDocument) error {
		entries := doc.Entries(c)
		kept := removeKey(entries, key)
		removed = len(kept) != len(entries)
		doc.SetEntries(c, kept)
		return nil
	})
	return removed, err
}

// UpdateEntry sets the title and description of key, creating the entry from
// the object's listing when the document has none
func (s *Service) UpdateEntry(ctx context.Context, key, title, description string) (models.MetadataEntry, error) {
	c, ok := CollectionForKey(key)
	if !ok {
		return models.MetadataEntry{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.MetadataEntry{}, ErrTitleRequired
	}
	obj, err := s.findObject(ctx, key)
	if err != nil {
		return models.MetadataEntry{}, err
	}

	var updated models.MetadataEntry
	_, err = s.mutateMetadata(ctx, func(doc *models.MetadataDocument) error {
		entry, found := doc.Find(c, key)
		if !found {
			entry = s.derivedEntry(c, obj)
		}
		entry.Title = title
		entry.Description = strings.TrimSpace(description)
		updated = entry

		entries := doc.Entries(c)
		for i := range entries {
			if entries[i].Key == key {
				entries[i] = entry
				return nil
			}
		}
		doc.SetEntries(c, append(entries, entry))
		return nil
	})
	if err != nil {
		return models.MetadataEntry{}, err
	}
	return updated, nil
}

// mutateMetadata applies fn to the current document and writes it back only if
// nobody else wrote in between, retrying on conflicts
func (s *Service) mutateMetadata(ctx context.Context, fn func(doc *models.MetadataDocument) error) (*models.MetadataDocument, error) {
	for attempt := 1; attempt <= maxMetadataAttempts; attempt++ {
		res := s.FetchMetadata(ctx)
		if res.Status == MetadataUnavailable {
			return nil, fmt.Errorf("read metadata document: %w", res.Err)
		}

		doc := res.DocumentOrEmpty()
		if err := fn(doc); err != nil {
			return nil, err
		}
		data, err := encodeMetadata(doc)
		if err != nil {
			return nil, err
		}

		opts := storage.PutOptions{
			ContentType: "application/json",
			Size:        int64(len(data)),
		}
		if res.Status == MetadataFound {
			opts.IfMatch = res.Version
		} else {
			opts.IfNoneMatch = true
		}

		_, err = s.store.Put(ctx, MetadataKey, bytes.NewReader(data), opts)
		if errors.Is(err, storage.ErrPreconditionFailed) {
			s.logger.Infow("Metadata document changed concurrently, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("write metadata document: %w", err)
		}
		s.listCache.Flush()
		return doc, nil
	}
	return nil, ErrMetadataConflict
}

func encodeMetadata(doc *models.MetadataDocument) ([]byte, error) {
	if doc == nil {
		doc = models.NewMetadataDocument()
	}
	out := *doc
	out.Normalize()
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata document: %w", err)
	}
	return data, nil
}

func removeKey(entries []models.MetadataEntry, key string) []models.MetadataEntry {
	kept := make([]models.MetadataEntry, 0, len(entries))
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	return kept
}
