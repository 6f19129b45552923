package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ObjectStorage is the asset-host collaborator. The core treats the
// returned URL as an opaque string.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// AvatarStore uploads profile avatars to an object storage backend.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// Upload stores an avatar image for the identity and returns its URL.
// The key embeds the identity ID so a re-upload replaces the old
// object; keys left behind under a different extension (a jpg replaced
// by a png) are deleted so each identity holds at most one avatar.
func (s *AvatarStore) Upload(ctx context.Context, identityID uuid.UUID, r io.Reader, size int64, contentType string) (string, error) {
	ext := extensionFor(contentType)
	if ext == "" {
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}

	key := path.Join("avatars", identityID.String()+ext)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}

	for _, stale := range avatarExtensions {
		if stale == ext {
			continue
		}
		staleKey := path.Join("avatars", identityID.String()+stale)
		if err := s.backend.Delete(ctx, staleKey); err != nil {
			return "", err
		}
	}
	return s.backend.URL(key), nil
}

var avatarExtensions = []string{".jpg", ".png", ".gif", ".webp"}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
