package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// memBackend is an in-memory ObjectStorage.
type memBackend struct {
	objects map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (b *memBackend) EnsureBucket(_ context.Context) error { return nil }

func (b *memBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memBackend) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *memBackend) URL(key string) string {
	return "http://assets.test/" + key
}

func TestAvatarStore_Upload(t *testing.T) {
	backend := newMemBackend()
	store := NewAvatarStore(backend)
	id := uuid.New()

	url, err := store.Upload(context.Background(), id, bytes.NewReader([]byte("img")), 3, "image/png")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	wantKey := "avatars/" + id.String() + ".png"
	if url != "http://assets.test/"+wantKey {
		t.Errorf("url = %q", url)
	}
	if string(backend.objects[wantKey]) != "img" {
		t.Error("object not stored under the identity key")
	}

	// A re-upload with the same content type replaces the old object.
	if _, err := store.Upload(context.Background(), id, bytes.NewReader([]byte("img2")), 4, "image/png"); err != nil {
		t.Fatalf("re-upload error = %v", err)
	}
	if len(backend.objects) != 1 {
		t.Errorf("object count = %d after re-upload, want 1", len(backend.objects))
	}
}

func TestAvatarStore_UploadRemovesStaleExtension(t *testing.T) {
	backend := newMemBackend()
	store := NewAvatarStore(backend)
	id := uuid.New()

	if _, err := store.Upload(context.Background(), id, bytes.NewReader([]byte("old")), 3, "image/jpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := store.Upload(context.Background(), id, bytes.NewReader([]byte("new")), 3, "image/png"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(backend.objects) != 1 {
		t.Fatalf("object count = %d after changing extension, want 1", len(backend.objects))
	}
	wantKey := "avatars/" + id.String() + ".png"
	if string(backend.objects[wantKey]) != "new" {
		t.Errorf("surviving object is not the latest upload")
	}
}

func TestAvatarStore_UnsupportedContentType(t *testing.T) {
	store := NewAvatarStore(newMemBackend())

	_, err := store.Upload(context.Background(), uuid.New(), strings.NewReader("x"), 1, "application/pdf")
	if err == nil {
		t.Fatal("Upload() accepted an unsupported content type")
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{contentType: "image/jpeg", want: ".jpg"},
		{contentType: "image/jpg", want: ".jpg"},
		{contentType: "IMAGE/PNG", want: ".png"},
		{contentType: "image/gif", want: ".gif"},
		{contentType: "image/webp", want: ".webp"},
		{contentType: "text/html", want: ""},
		{contentType: "", want: ""},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
