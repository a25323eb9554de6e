// Package llmmap implements the LLM-mapping run aligner (spec.md
// §4.5.b): detects the paragraph's base format and its formatted
// spans, asks the translation backend to locate each span's
// counterpart substring in the target text, validates the response is
// a contiguous substring, and defers to internal/align/common for
// gap-fill/coalesce — the same step 6-7 contract semantic uses.
//
// Grounded on original_source/llm_formatting_aligner.py's
// span-round-trip approach.
package llmmap

import (
	"context"
	"fmt"
	"strings"

	"github.com/deckforge/deckforge/internal/align/common"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/deck"
)

// Aligner implements common.Aligner by round-tripping each formatted
// span through the backend.
type Aligner struct {
	be backend.Translator
}

var _ common.Aligner = (*Aligner)(nil)

// New builds an llmmap Aligner against be.
func New(be backend.Translator) *Aligner {
	return &Aligner{be: be}
}

type formattedSpan struct {
	start, end int
	text       string
	formatting deck.Formatting
}

// Align implements common.Aligner.
func (a *Aligner) Align(ctx context.Context, source string, runs []deck.Run, target string) ([]deck.Run, error) {
	baseParagraph := deck.Paragraph{Runs: runs}
	base := baseParagraph.BaseFormat()

	if target == "" {
		return []deck.Run{{Text: source, Formatting: base}}, nil
	}

	spans := detectFormattedSpans(runs, base)
	var projected []common.Span
	for i, fs := range spans {
		if ctx.Err() != nil {
			break
		}
		matchedStart, matchedEnd, ok := a.resolveSpan(ctx, source, target, fs, i)
		if !ok {
			continue // unmatched span contributes nothing (spec.md §4.5.b step 4)
		}
		projected = append(projected, common.Span{Start: matchedStart, End: matchedEnd, Formatting: fs.formatting})
	}

	out, _ := common.ProjectAndFill(target, base, projected)
	return out, nil
}

// detectFormattedSpans walks runs in source-text order and returns
// every run whose formatting differs from base, or which carries a
// hyperlink, excluding whitespace-only runs (spec.md §4.5.b step 2).
func detectFormattedSpans(runs []deck.Run, base deck.Formatting) []formattedSpan {
	var spans []formattedSpan
	pos := 0
	for _, r := range runs {
		start, end := pos, pos+len(r.Text)
		pos = end
		if r.IsWhitespaceOnly() {
			continue
		}
		if r.Formatting.DiffersFrom(base) || r.Formatting.HasHyperlink() {
			spans = append(spans, formattedSpan{start: start, end: end, text: r.Text, formatting: r.Formatting})
		}
	}
	return spans
}

// resolveSpan asks the backend for the target substring corresponding
// to fs.text within source/target, then validates the response is an
// exact, contiguous substring of target (spec.md §4.5.b step 3).
func (a *Aligner) resolveSpan(ctx context.Context, source, target string, fs formattedSpan, id int) (start, end int, ok bool) {
	prompt := spanLocatePrompt(source, target, fs.text)
	resp, err := a.be.Translate(ctx, backend.TranslateRequest{
		Target: []backend.Segment{{ID: id, Text: prompt}},
	})
	if err != nil || len(resp.Translations) == 0 {
		return 0, 0, false
	}
	candidate := strings.TrimSpace(resp.Translations[0].Text)
	if candidate == "" {
		return 0, 0, false
	}
	idx := strings.Index(target, candidate)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(candidate), true
}

func spanLocatePrompt(source, target, span string) string {
	return fmt.Sprintf(
		"Source text: %q\nTranslated text: %q\nIdentify the exact contiguous substring of the translated text that corresponds to this source span: %q\nReturn only that substring, with no extra commentary.",
		source, target, span,
	)
}
