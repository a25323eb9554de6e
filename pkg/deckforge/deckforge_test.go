package deckforge

import (
	"context"
	"testing"

	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/backend/mock"
)

func TestManager_UnknownJobReturnsNotFound(t *testing.T) {
	m := NewManager(nil, func(ctx context.Context, opts SubmitOptions) (backend.Backend, error) {
		return &mock.Client{}, nil
	})
	if _, err := m.Status("nope"); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
