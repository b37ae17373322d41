package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestPublicURLEscapesSegments(t *testing.T) {
	got := PublicURL("https://cdn.example.com/avatars/", "/0f1e/my photo.png")
	want := "https://cdn.example.com/avatars/0f1e/my%20photo.png"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), config.StorageConfig{AvatarBucket: "avatars"}, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
