package common

import (
	"testing"

	"github.com/deckforge/deckforge/internal/deck"
)

func TestProjectAndFill_FullCoverageByteExact(t *testing.T) {
	bold := true
	target := "Bonjour le monde"
	spans := []Span{
		{Start: 0, End: 7, Formatting: deck.Formatting{Bold: &bold}},
	}
	runs, degenerate := ProjectAndFill(target, deck.Formatting{}, spans)
	if degenerate {
		t.Fatalf("expected non-degenerate result")
	}
	var joined string
	for _, r := range runs {
		joined += r.Text
	}
	if joined != target {
		t.Fatalf("expected byte-exact coverage, got %q", joined)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run (trailing gap inherits the preceding bold span and coalesces with it), got %d", len(runs))
	}
}

func TestProjectAndFill_DegenerateFallback(t *testing.T) {
	runs, degenerate := ProjectAndFill("hello", deck.Formatting{}, nil)
	if !degenerate {
		t.Fatalf("expected degenerate fallback when no spans provided")
	}
	if len(runs) != 1 || runs[0].Text != "hello" {
		t.Fatalf("expected single base run spanning target, got %+v", runs)
	}
}

func TestProjectAndFill_CoalescesAdjacentIdenticalFormatting(t *testing.T) {
	bold := true
	spans := []Span{
		{Start: 0, End: 3, Formatting: deck.Formatting{Bold: &bold}},
		{Start: 3, End: 6, Formatting: deck.Formatting{Bold: &bold}},
	}
	runs, _ := ProjectAndFill("foobar", deck.Formatting{}, spans)
	if len(runs) != 1 {
		t.Fatalf("expected adjacent identical-formatting spans to coalesce, got %d runs", len(runs))
	}
	if runs[0].Text != "foobar" {
		t.Fatalf("unexpected coalesced text: %q", runs[0].Text)
	}
}

func TestProjectAndFill_OverlappingSpanDropped(t *testing.T) {
	bold := true
	italic := true
	spans := []Span{
		{Start: 0, End: 5, Formatting: deck.Formatting{Bold: &bold}},
		{Start: 2, End: 8, Formatting: deck.Formatting{Italic: &italic}},
	}
	runs, _ := ProjectAndFill("abcdefgh", deck.Formatting{}, spans)
	var joined string
	for _, r := range runs {
		joined += r.Text
	}
	if joined != "abcdefgh" {
		t.Fatalf("expected full coverage despite dropped overlap, got %q", joined)
	}
}
