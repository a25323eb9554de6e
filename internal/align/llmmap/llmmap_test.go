package llmmap

import (
	"context"
	"testing"

	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/deck"
)

type scriptedBackend struct {
	reply string
}

func (b scriptedBackend) Translate(ctx context.Context, req backend.TranslateRequest) (*backend.TranslateResponse, error) {
	return &backend.TranslateResponse{Translations: []backend.TranslatedSegment{{ID: req.Target[0].ID, Text: b.reply}}}, nil
}

func (b scriptedBackend) SetSystemInstruction(string) {}

func TestAlign_AppliesMatchedSpanFormatting(t *testing.T) {
	bold := true
	runs := []deck.Run{
		{Text: "Hello "},
		{Text: "World", Formatting: deck.Formatting{Bold: &bold}},
	}
	be := scriptedBackend{reply: "monde"}
	a := New(be)

	out, err := a.Align(context.Background(), "Hello World", runs, "Bonjour monde")
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	var joined string
	for _, r := range out {
		joined += r.Text
	}
	if joined != "Bonjour monde" {
		t.Fatalf("expected byte-exact coverage, got %q", joined)
	}
	found := false
	for _, r := range out {
		if r.Text == "monde" && r.Formatting.Bold != nil && *r.Formatting.Bold {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected matched span to carry source run's bold formatting, got %+v", out)
	}
}

func TestAlign_UnmatchedSpanContributesNothing(t *testing.T) {
	bold := true
	runs := []deck.Run{
		{Text: "Hello "},
		{Text: "World", Formatting: deck.Formatting{Bold: &bold}},
	}
	be := scriptedBackend{reply: "not present anywhere"}
	a := New(be)

	out, err := a.Align(context.Background(), "Hello World", runs, "Bonjour")
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	var joined string
	for _, r := range out {
		joined += r.Text
	}
	if joined != "Bonjour" {
		t.Fatalf("expected full base-format fallback coverage, got %q", joined)
	}
}

func TestDetectFormattedSpans_ExcludesWhitespaceOnly(t *testing.T) {
	bold := true
	runs := []deck.Run{
		{Text: "  ", Formatting: deck.Formatting{Bold: &bold}},
		{Text: "text"},
	}
	spans := detectFormattedSpans(runs, deck.Formatting{})
	if len(spans) != 0 {
		t.Fatalf("expected whitespace-only formatted run excluded, got %+v", spans)
	}
}
