package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-portfolio/pkg/auth"
	"media-portfolio/pkg/models"
	"media-portfolio/pkg/services"
	"media-portfolio/pkg/storage"
)

const testPasscode = "123456"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryStore("http://localhost/memory")
	svc := services.NewService(store, nil, services.Options{})
	authn := auth.NewAuthenticator(testPasscode, "test-secret", time.Hour)
	views, err := filepath.Abs("../../views")
	if err != nil {
		t.Fatalf("resolve views: %v", err)
	}
	h := New(svc, authn, nil, views)

	srv := httptest.NewServer(h.Routes(""))
	t.Cleanup(srv.Close)
	return srv
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doRequest(t *testing.T, method, url, token string, body []byte, contentType string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, env
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/login", "", []byte(`{"passcode":"`+testPasscode+`"}`), "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with %d: %s", resp.StatusCode, env.Error)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("expected a token in %s", env.Data)
	}
	return data.Token
}

func uploadForm(t *testing.T, filename, contentType, title string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)

	w.WriteField("title", title)
	w.WriteField("description", "shot on film")
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

func TestListEmptyCollection(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/videos", "", nil, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, env.Error)
	}
	if string(env.Data) != "[]" {
		t.Errorf("expected empty list, got %s", env.Data)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/login", "", []byte(`{"passcode":"000000"}`), "application/json")
	if resp.StatusCode != http.StatusUnauthorized || env.Success {
		t.Errorf("expected 401 for a wrong passcode, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/login", "", []byte(`{"passcode":"`+testPasscode+`"}`), "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Errorf("expected an http-only session cookie, got %+v", cookie)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/metadata"},
		{http.MethodPost, "/api/videos"},
		{http.MethodDelete, "/api/media?key=videos/1_a.mp4"},
		{http.MethodPost, "/api/admin/scan"},
	} {
		resp, _ := doRequest(t, route.method, srv.URL+route.path, "", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, resp.StatusCode)
		}
		resp, _ = doRequest(t, route.method, srv.URL+route.path, "not-a-token", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", route.method, route.path, resp.StatusCode)
		}
	}
}

func TestAdminPageRedirectsWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/admin", "", nil, "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestUploadListAndDelete(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	body, ct := uploadForm(t, "my_clip.mp4", "video/mp4", "Launch", []byte("fake video"))
	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/videos", token, body, ct)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, env.Error)
	}
	var result services.UploadResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode upload result: %v", err)
	}
	if result.Entry.Title != "Launch" || result.Entry.Description != "shot on film" {
		t.Errorf("unexpected entry %+v", result.Entry)
	}

	resp, env = doRequest(t, http.MethodGet, srv.URL+"/api/videos", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var items []models.MediaItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 1 || items[0].Key != result.Key || items[0].URL == "" {
		t.Fatalf("unexpected items %+v", items)
	}

	resp, env = doRequest(t, http.MethodGet, srv.URL+"/api/metadata", token, nil, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), `"status":"found"`) {
		t.Errorf("expected found metadata, got %d %s", resp.StatusCode, env.Data)
	}

	resp, env = doRequest(t, http.MethodDelete, srv.URL+"/api/media?key="+result.Key, token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d: %s", resp.StatusCode, env.Error)
	}

	_, env = doRequest(t, http.MethodGet, srv.URL+"/api/videos", "", nil, "")
	if string(env.Data) != "[]" {
		t.Errorf("expected empty list after delete, got %s", env.Data)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	body, ct := uploadForm(t, "notes.txt", "text/plain", "Notes", []byte("hello"))
	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/pictures", token, body, ct)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(env.Error, "unsupported file type") {
		t.Errorf("unexpected error %q", env.Error)
	}

	body, ct = uploadForm(t, "clip.mp4", "video/mp4", "", []byte("x"))
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/videos", token, body, ct)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without title, got %d", resp.StatusCode)
	}
}

func TestUpdateMissingEntry(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	payload := []byte(`{"key":"videos/1_missing.mp4","title":"X"}`)
	resp, _ := doRequest(t, http.MethodPatch, srv.URL+"/api/media", token, payload, "application/json")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestScanWithEmptyBody(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/admin/scan", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, env.Error)
	}
	var doc models.MetadataDocument
	if err := json.Unmarshal(env.Data, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Videos == nil || doc.Pictures == nil {
		t.Errorf("expected empty arrays, got %+v", doc)
	}
}

func TestURLHandler(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/url?key=metadata/media-metadata.json", "", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-media key, got %d", resp.StatusCode)
	}

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/url?key=videos/1_a.mp4", "", nil, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(env.Data), "http://localhost/memory/") {
		t.Errorf("expected a signed URL, got %d %s", resp.StatusCode, env.Data)
	}
}

func getPage(t *testing.T, url, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	return resp.StatusCode, body.String()
}

func TestPagesRender(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	body, ct := uploadForm(t, "my_clip.mp4", "video/mp4", "Launch Day", []byte("fake video"))
	if resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/videos", token, body, ct); resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", resp.StatusCode, env.Error)
	}

	for _, tc := range []struct {
		path  string
		token string
		want  []string
	}{
		{"/", "", []string{"Portfolio | About", "Welcome to my portfolio"}},
		{"/login", "", []string{"Admin Login", `id="passcode"`}},
		{"/videos", "", []string{"Launch Day", "shot on film", "<video"}},
		{"/pictures", "", []string{"No pictures yet."}},
		{"/admin", token, []string{"Launch Day", `data-key="videos/`, "merge"}},
	} {
		status, html := getPage(t, srv.URL+tc.path, tc.token)
		if status != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d: %s", tc.path, status, html)
			continue
		}
		for _, want := range tc.want {
			if !strings.Contains(html, want) {
				t.Errorf("GET %s: expected %q in page", tc.path, want)
			}
		}
	}
}

func TestPicturesPageShowsItems(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	body, ct := uploadForm(t, "sunset.png", "image/png", "Sunset", []byte("not really a png"))
	if resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/pictures", token, body, ct); resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", resp.StatusCode, env.Error)
	}

	status, html := getPage(t, srv.URL+"/pictures", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, html)
	}
	if !strings.Contains(html, "Sunset") || !strings.Contains(html, "<img") {
		t.Errorf("expected the picture card in page, got %s", html)
	}
}

func TestNewResolvesRelativeViewsDir(t *testing.T) {
	store := storage.NewMemoryStore("http://localhost/memory")
	svc := services.NewService(store, nil, services.Options{})
	h := New(svc, auth.NewAuthenticator(testPasscode, "test-secret", time.Hour), nil, "../../views")

	srv := httptest.NewServer(h.Routes(""))
	defer srv.Close()

	if status, html := getPage(t, srv.URL+"/", ""); status != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", status, html)
	}
}
