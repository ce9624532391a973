package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
	generation  int64
}

// MemoryStore keeps objects in process memory. It backs local development
// and the test suites.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string]memoryObject
	generation int64
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

// NewMemoryStore returns an empty store whose signed URLs point at baseURL.
// URLs are signed with a key drawn per store, so they stop working when the
// process restarts.
func NewMemoryStore(baseURL string) *MemoryStore {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("memory store signing key: %v", err))
	}
	return &MemoryStore{
		objects:    make(map[string]memoryObject),
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: key,
		now:        time.Now,
	}
}

// Put stores the body under key
func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(newProgressReader(body, opts.Size, opts.Progress))
	if err != nil {
		return "", fmt.Errorf("read body for %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.objects[key]
	if opts.IfNoneMatch && exists {
		return "", fmt.Errorf("put %q: %w", key, ErrPreconditionFailed)
	}
	if opts.IfMatch != "" && (!exists || strconv.FormatInt(current.generation, 10) != opts.IfMatch) {
		return "", fmt.Errorf("put %q: %w", key, ErrPreconditionFailed)
	}

	m.generation++
	meta := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	m.objects[key] = memoryObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    meta,
		modified:    m.now(),
		generation:  m.generation,
	}
	return strconv.FormatInt(m.generation, 10), nil
}

// Get returns a copy of the object's bytes
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, strconv.FormatInt(obj.generation, 10), nil
}

// List returns objects under prefix in key order
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			LastModified: obj.modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// SignedURL fabricates an expiring URL under the configured base
func (m *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	expires := m.now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d&sig=%s", m.baseURL, url.PathEscape(key), expires, m.sign(key, expires)), nil
}

func (m *MemoryStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, m.signingKey)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// Delete removes key. Deleting a missing object reports ErrNotFound.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}
	delete(m.objects, key)
	return nil
}

// ObjectMetadata returns the object-level metadata recorded at upload time
func (m *MemoryStore) ObjectMetadata(key string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return obj.metadata, true
}

// ServeHTTP serves objects at the paths produced by SignedURL, so the memory
// backend can stand in for a bucket during local development. Requests need
// an unexpired signature issued by this store.
func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/"))
	if err != nil || key == "" {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query()
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil || !hmac.Equal([]byte(query.Get("sig")), []byte(m.sign(key, expires))) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	if m.now().Unix() > expires {
		http.Error(w, "URL expired", http.StatusForbidden)
		return
	}

	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	http.ServeContent(w, r, path.Base(key), obj.modified, bytes.NewReader(obj.data))
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
