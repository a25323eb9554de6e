package slidecontext

import (
	"strings"
	"testing"

	"github.com/deckforge/deckforge/internal/deck"
)

func TestBuild_GroupsBySlideSkipsFailures(t *testing.T) {
	paras := []deck.Paragraph{
		{ID: deck.Identity{SlideIndex: 0}, Runs: []deck.Run{{Text: "Hello"}}, TargetText: "Bonjour"},
		{ID: deck.Identity{SlideIndex: 0}, Runs: []deck.Run{{Text: "Hi"}}, Failure: &deck.RecordFailure{}},
		{ID: deck.Identity{SlideIndex: 1}, Runs: []deck.Run{{Text: "Bye"}}, TargetText: "Au revoir"},
	}
	b := New(nil, 4000)
	ctxs := b.Build(paras)
	if len(ctxs) != 2 {
		t.Fatalf("expected 2 slide contexts, got %d", len(ctxs))
	}
	if len(ctxs[0].Phrases) != 1 {
		t.Fatalf("expected failed paragraph excluded, got %d phrases", len(ctxs[0].Phrases))
	}
}

func TestRender_BoundedByMaxRunes(t *testing.T) {
	var paras []deck.Paragraph
	for i := 0; i < 200; i++ {
		paras = append(paras, deck.Paragraph{
			ID:         deck.Identity{SlideIndex: 0},
			Runs:       []deck.Run{{Text: strings.Repeat("x", 50)}},
			TargetText: strings.Repeat("y", 50),
		})
	}
	b := New(nil, 200)
	ctxs := b.Build(paras)
	if got := len([]rune(ctxs[0].Render())); got > 200 {
		t.Fatalf("expected rendered context bounded to 200 runes, got %d", got)
	}
}
