package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/deckforge/deckforge/internal/backend"
)

func TestClient_TranslateEchoesByID(t *testing.T) {
	c := &Client{Translations: map[int]string{1: "Bonjour"}, Prefix: "[", Suffix: "]"}
	resp, err := c.Translate(context.Background(), backend.TranslateRequest{
		Target: []backend.Segment{{ID: 1, Text: "Hello"}, {ID: 2, Text: "World"}},
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if resp.Translations[0].Text != "Bonjour" {
		t.Fatalf("expected scripted translation, got %q", resp.Translations[0].Text)
	}
	if resp.Translations[1].Text != "[World]" {
		t.Fatalf("expected fallback wrap, got %q", resp.Translations[1].Text)
	}
}

func TestClient_TranslatePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	c := &Client{Err: wantErr}
	if _, err := c.Translate(context.Background(), backend.TranslateRequest{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected propagated error, got %v", err)
	}
}

func TestClient_EmbedDeterministic(t *testing.T) {
	c := &Client{}
	v1, err := c.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	v2, err := c.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(v1[0]) == 0 || len(v1[0]) != len(v2[0]) {
		t.Fatalf("expected non-empty equal-length vectors")
	}
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("expected deterministic embedding, mismatch at %d", i)
		}
	}
}

func TestClient_SetSystemInstruction(t *testing.T) {
	c := &Client{}
	c.SetSystemInstruction("translate carefully")
	if c.LastSystemInstruction != "translate carefully" {
		t.Fatalf("expected instruction recorded")
	}
}
