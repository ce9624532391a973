package models

import "time"

// Collection is a logical partition of the bucket holding one kind of media
type Collection string

const (
	Videos   Collection = "videos"
	Pictures Collection = "pictures"
)

// Collections lists every media collection in display order
var Collections = []Collection{Videos, Pictures}

// Prefix returns the key prefix of the collection, including the trailing delimiter
func (c Collection) Prefix() string {
	return string(c) + "/"
}

// Valid reports whether c is a known collection
func (c Collection) Valid() bool {
	return c == Videos || c == Pictures
}

// MetadataEntry pairs a human-entered title and description with an object key
type MetadataEntry struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	UploadDate  string `json:"uploadDate"`
}

// MetadataDocument is the single JSON side-file describing all uploaded media
type MetadataDocument struct {
	Videos   []MetadataEntry `json:"videos"`
	Pictures []MetadataEntry `json:"pictures"`
}

// NewMetadataDocument returns the canonical empty document
func NewMetadataDocument() *MetadataDocument {
	return &MetadataDocument{
		Videos:   []MetadataEntry{},
		Pictures: []MetadataEntry{},
	}
}

// Normalize replaces nil sequences with empty ones so the document always
// serializes as arrays
func (d *MetadataDocument) Normalize() {
	if d.Videos == nil {
		d.Videos = []MetadataEntry{}
	}
	if d.Pictures == nil {
		d.Pictures = []MetadataEntry{}
	}
}

// Entries returns the sequence for the given collection
func (d *MetadataDocument) Entries(c Collection) []MetadataEntry {
	if c == Pictures {
		return d.Pictures
	}
	return d.Videos
}

// SetEntries replaces the sequence for the given collection
func (d *MetadataDocument) SetEntries(c Collection, entries []MetadataEntry) {
	if c == Pictures {
		d.Pictures = entries
		return
	}
	d.Videos = entries
}

// Find returns the entry with the given key, if present
func (d *MetadataDocument) Find(c Collection, key string) (MetadataEntry, bool) {
	for _, e := range d.Entries(c) {
		if e.Key == key {
			return e, true
		}
	}
	return MetadataEntry{}, false
}

// MediaItem is a stored object merged with its metadata entry, ready for rendering
type MediaItem struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DisplayName  string    `json:"displayName"`
	URL          string    `json:"url,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// Page is the data handed to the media page templates
type Page struct {
	Title string
	Items []MediaItem
	Error string
}

// Admin is the data handed to the admin page template
type Admin struct {
	Videos   []MediaItem
	Pictures []MediaItem
}
