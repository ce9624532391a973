package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/memory")

	version, err := s.Put(ctx, "videos/1_a.mp4", strings.NewReader("hello"), PutOptions{ContentType: "video/mp4", Size: 5})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, got, err := s.Get(ctx, "videos/1_a.mp4")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected 'hello', got %q", data)
	}
	if got != version {
		t.Errorf("expected version %s, got %s", version, got)
	}
}

func TestMemoryStoreMissingObject(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/memory")

	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Get, got %v", err)
	}
	if err := s.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Delete, got %v", err)
	}
}

func TestMemoryStoreConditionalPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/memory")
	key := "metadata/media-metadata.json"

	v1, err := s.Put(ctx, key, strings.NewReader("{}"), PutOptions{IfNoneMatch: true})
	if err != nil {
		t.Fatalf("create-only Put failed: %v", err)
	}

	if _, err := s.Put(ctx, key, strings.NewReader("{}"), PutOptions{IfNoneMatch: true}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed on existing object, got %v", err)
	}

	v2, err := s.Put(ctx, key, strings.NewReader(`{"a":1}`), PutOptions{IfMatch: v1})
	if err != nil {
		t.Fatalf("Put with current version failed: %v", err)
	}
	if v2 == v1 {
		t.Errorf("expected a new version after write")
	}

	if _, err := s.Put(ctx, key, strings.NewReader("{}"), PutOptions{IfMatch: v1}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed on stale version, got %v", err)
	}

	if _, err := s.Put(ctx, "missing", strings.NewReader("{}"), PutOptions{IfMatch: v2}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed on missing object, got %v", err)
	}

	data, _, _ := s.Get(ctx, key)
	if string(data) != `{"a":1}` {
		t.Errorf("failed writes must not change the object, got %q", data)
	}
}

func TestMemoryStoreListPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/memory")

	for _, key := range []string{"videos/b.mp4", "pictures/a.png", "videos/a.mp4"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	objects, err := s.List(ctx, "videos/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
	if objects[0].Key != "videos/a.mp4" || objects[1].Key != "videos/b.mp4" {
		t.Errorf("unexpected order: %s, %s", objects[0].Key, objects[1].Key)
	}
	if objects[0].Size != 1 {
		t.Errorf("expected size 1, got %d", objects[0].Size)
	}
}

func TestMemoryStoreSignedURL(t *testing.T) {
	s := NewMemoryStore("http://localhost:8080/memory/")
	s.signingKey = []byte("test-key")
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	url, err := s.SignedURL(context.Background(), "videos/my clip.mp4", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}
	mac := hmac.New(sha256.New, []byte("test-key"))
	mac.Write([]byte("videos/my clip.mp4\n1710507600"))
	want := "http://localhost:8080/memory/videos%2Fmy%20clip.mp4?expires=1710507600&sig=" + hex.EncodeToString(mac.Sum(nil))
	if url != want {
		t.Errorf("expected %s, got %s", want, url)
	}
}

func TestMemoryStoreReportsProgress(t *testing.T) {
	s := NewMemoryStore("http://localhost/memory")
	body := strings.Repeat("x", 100)

	var last, total int64
	calls := 0
	_, err := s.Put(context.Background(), "videos/p.mp4", strings.NewReader(body), PutOptions{
		Size: int64(len(body)),
		Progress: func(transferred, size int64) {
			calls++
			last, total = transferred, size
		},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected progress to be reported")
	}
	if last != 100 || total != 100 {
		t.Errorf("expected final progress 100/100, got %d/%d", last, total)
	}
}

func TestMemoryStoreKeepsObjectMetadata(t *testing.T) {
	s := NewMemoryStore("http://localhost/memory")
	meta := map[string]string{"title": "Launch"}
	if _, err := s.Put(context.Background(), "videos/1_a.mp4", strings.NewReader("x"), PutOptions{Metadata: meta}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	meta["title"] = "changed"

	got, ok := s.ObjectMetadata("videos/1_a.mp4")
	if !ok {
		t.Fatal("expected object metadata")
	}
	if got["title"] != "Launch" {
		t.Errorf("expected stored title 'Launch', got %q", got["title"])
	}
}

func TestMemoryStoreServesSignedURLs(t *testing.T) {
	s := NewMemoryStore("http://localhost/memory")
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	if _, err := s.Put(context.Background(), "pictures/1_a b.png", strings.NewReader("png"), PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	signed, err := s.SignedURL(context.Background(), "pictures/1_a b.png", time.Minute)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}
	handler := http.StripPrefix("/memory", s)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "png" || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("unexpected response %q %s", body, rec.Header().Get("Content-Type"))
	}

	now = now.Add(2 * time.Minute)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed, nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected expired URL to be refused, got %d", rec.Code)
	}
}

func TestMemoryStoreRefusesForgedURLs(t *testing.T) {
	s := NewMemoryStore("http://localhost/memory")
	if _, err := s.Put(context.Background(), "metadata/media-metadata.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	signed, err := s.SignedURL(context.Background(), "metadata/media-metadata.json", time.Minute)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}
	handler := http.StripPrefix("/memory", s)

	for _, target := range []string{
		"http://localhost/memory/metadata%2Fmedia-metadata.json?expires=99999999999",
		strings.Replace(signed, "expires=", "expires=9", 1),
		strings.Replace(signed, "metadata%2Fmedia-metadata.json", "metadata%2Fother.json", 1),
		signedBy(t, NewMemoryStore("http://localhost/memory"), "metadata/media-metadata.json"),
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s: expected 403, got %d", target, rec.Code)
		}
	}
}

// signedBy returns a URL for key signed by another store
func signedBy(t *testing.T, m *MemoryStore, key string) string {
	t.Helper()
	signed, err := m.SignedURL(context.Background(), key, time.Minute)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}
	return signed
}
