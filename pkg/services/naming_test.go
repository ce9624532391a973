package services

import (
	"sort"
	"testing"
	"time"

	"media-portfolio/pkg/models"
)

func TestBuildKey(t *testing.T) {
	at := time.UnixMilli(1678901234567)
	if got := BuildKey(models.Videos, at, "clip.mp4"); got != "videos/1678901234567_clip.mp4" {
		t.Errorf("unexpected key %q", got)
	}
	if got := BuildKey(models.Pictures, at, "me.png"); got != "pictures/1678901234567_me.png" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestExtractFilename(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"videos/1678901234567_my_video.mp4", "my video.mp4"},
		{"pictures/photo.png", "photo.png"},
		{"videos/2024_trip.mp4", "trip.mp4"},
		{"plain_name.mp4", "plain name.mp4"},
	}
	for _, tt := range tests {
		if got := ExtractFilename(tt.key); got != tt.want {
			t.Errorf("ExtractFilename(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"my-video-file.mp4", "My Video File"},
		{"holiday_snaps.2023.jpg", "Holiday Snaps.2023"},
		{"already Titled", "Already Titled"},
		{"my video.mp4", "My Video"},
	}
	for _, tt := range tests {
		if got := GenerateTitle(tt.filename); got != tt.want {
			t.Errorf("GenerateTitle(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestCollectionForKey(t *testing.T) {
	if c, ok := CollectionForKey("videos/1_a.mp4"); !ok || c != models.Videos {
		t.Errorf("expected videos, got %q %v", c, ok)
	}
	if c, ok := CollectionForKey("pictures/1_a.png"); !ok || c != models.Pictures {
		t.Errorf("expected pictures, got %q %v", c, ok)
	}
	for _, key := range []string{"videos/", "metadata/media-metadata.json", "thumbnails/pictures/1_a.jpg", ""} {
		if _, ok := CollectionForKey(key); ok {
			t.Errorf("expected %q to belong to no collection", key)
		}
	}
}

func TestNaturalLess(t *testing.T) {
	keys := []string{"clip10.mp4", "clip2.mp4", "clip1.mp4", "alpha.mp4"}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })

	want := []string{"alpha.mp4", "clip1.mp4", "clip2.mp4", "clip10.mp4"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected order %v", keys)
		}
	}
}
