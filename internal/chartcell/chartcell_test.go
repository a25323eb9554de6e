package chartcell

import (
	"context"
	"testing"

	"github.com/deckforge/deckforge/internal/align/llmmap"
	"github.com/deckforge/deckforge/internal/backend/mock"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/paratranslate"
)

func TestTranslateLabels_AttachesTargetText(t *testing.T) {
	be := &mock.Client{Prefix: "[fr] "}
	tr := New(nil, nil, be)
	labels := []deck.ChartLabel{{SourceText: "Revenue"}}
	out := tr.TranslateLabels(context.Background(), labels, nil)
	if out[0].TargetText != "[fr] Revenue" {
		t.Fatalf("unexpected label target text: %q", out[0].TargetText)
	}
}

func TestTranslateCellText_SkipsAnchoredCells(t *testing.T) {
	be := &mock.Client{Prefix: "[fr] "}
	para := paratranslate.New(be, nil, paratranslate.Config{MaxAttempts: 1})
	aligner := llmmap.New(be)
	tr := New(para, aligner, be)

	anchor := deck.Identity{Row: 0, Col: 0}
	cells := []deck.TableCell{
		{ID: anchor, Paragraphs: []deck.Paragraph{{Runs: []deck.Run{{Text: "Q1"}}}}},
		{ID: deck.Identity{Row: 0, Col: 1}, AnchorOf: &anchor},
	}
	out := tr.TranslateCellText(context.Background(), cells, nil)
	if out[0].Paragraphs[0].TargetText != "[fr] Q1" {
		t.Fatalf("expected anchor cell translated, got %+v", out[0].Paragraphs[0])
	}
	if out[1].Paragraphs != nil {
		t.Fatalf("expected merged cell left untouched, got %+v", out[1])
	}

	aligned := tr.AlignCellRuns(context.Background(), out)
	if aligned[0].Paragraphs[0].AlignedRuns == nil {
		t.Fatalf("expected aligned runs on translated cell, got %+v", aligned[0].Paragraphs[0])
	}
}
