package semantic

import (
	"context"
	"testing"

	"github.com/deckforge/deckforge/internal/backend/mock"
	"github.com/deckforge/deckforge/internal/deck"
)

func TestAlign_ByteExactCoverage(t *testing.T) {
	bold := true
	runs := []deck.Run{
		{Text: "Hello ", Formatting: deck.Formatting{}},
		{Text: "World", Formatting: deck.Formatting{Bold: &bold}},
	}
	be := &mock.Client{}
	a := New(be, nil, Config{})

	out, err := a.Align(context.Background(), "Hello World", runs, "Bonjour le monde")
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	var joined string
	for _, r := range out {
		joined += r.Text
	}
	if joined != "Bonjour le monde" {
		t.Fatalf("expected byte-exact coverage, got %q", joined)
	}
}

func TestAlign_EmptyTargetPassesThroughSource(t *testing.T) {
	a := New(&mock.Client{}, nil, Config{})
	out, err := a.Align(context.Background(), "Hello", []deck.Run{{Text: "Hello"}}, "")
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if len(out) != 1 || out[0].Text != "Hello" {
		t.Fatalf("expected single base run preserving source text, got %+v", out)
	}
}

func TestNgrams_RespectsGraphemeBoundaries(t *testing.T) {
	cands := ngrams("ab", 2)
	if len(cands) == 0 {
		t.Fatalf("expected candidates for short text")
	}
	for _, c := range cands {
		if c.end > len("ab") || c.start < 0 {
			t.Fatalf("candidate out of bounds: %+v", c)
		}
	}
}

func TestCharacterOverlap_IdenticalText(t *testing.T) {
	if v := characterOverlap("hello", "hello"); v != 1.0 {
		t.Fatalf("expected overlap 1.0 for identical text, got %v", v)
	}
}

func TestCosineSimilarity_OrthogonalVectors(t *testing.T) {
	if v := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); v != 0 {
		t.Fatalf("expected 0 similarity for orthogonal vectors, got %v", v)
	}
}
