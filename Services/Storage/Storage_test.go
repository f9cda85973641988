package storage

import "testing"

func TestObjectKeyFromURL(t *testing.T) {
	original := PublicBaseURL
	PublicBaseURL = "https://cdn.example.com/fanhub"
	defer func() { PublicBaseURL = original }()

	key, ok := ObjectKeyFromURL("https://cdn.example.com/fanhub/media/posts/abc123")
	if !ok || key != "media/posts/abc123" {
		t.Errorf("expected key media/posts/abc123, got %q (ok=%v)", key, ok)
	}

	// Round trip with PublicURL
	key, ok = ObjectKeyFromURL(PublicURL("images/profiles/u1.jpg"))
	if !ok || key != "images/profiles/u1.jpg" {
		t.Errorf("expected round-tripped key, got %q (ok=%v)", key, ok)
	}

	// External media is not ours to manage
	if _, ok := ObjectKeyFromURL("https://elsewhere.example.com/media/posts/abc123"); ok {
		t.Error("expected external URL to be rejected")
	}
	if _, ok := ObjectKeyFromURL("https://cdn.example.com/fanhub/"); ok {
		t.Error("expected bare base URL to be rejected")
	}
}

func TestObjectKeyFromURLUnconfigured(t *testing.T) {
	original := PublicBaseURL
	PublicBaseURL = ""
	defer func() { PublicBaseURL = original }()

	if _, ok := ObjectKeyFromURL("/media/posts/abc123"); ok {
		t.Error("expected rejection when no public base is configured")
	}
}
