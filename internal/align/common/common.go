// Package common implements the alignment steps shared by both run
// aligner strategies (spec.md §4.5 steps 6-7): projecting scored
// candidate spans onto the target text, filling uncovered gaps with
// the nearest preceding span's formatting (the paragraph's base
// formatting before the first span), coalescing adjacent runs that carry
// identical formatting, and the AlignmentDegenerate defensive
// fallback. Kept as one shared package so "siblings, not subclasses"
// (DESIGN NOTES §9) never duplicates byte-exact-coverage logic.
package common

import (
	"context"
	"sort"

	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/logger"
)

// Aligner is the contract both internal/align/semantic and
// internal/align/llmmap implement.
type Aligner interface {
	Align(ctx context.Context, source string, runs []deck.Run, target string) ([]deck.Run, error)
}

// Span is one formatted candidate span projected onto byte offsets of
// the target text, produced by a strategy's scoring/matching step.
type Span struct {
	Start, End int
	Formatting deck.Formatting
}

// ProjectAndFill walks target left to right, emitting spans' formatting
// where they cover bytes; an uncovered gap takes the formatting of the
// nearest preceding span, or base when no span precedes it. It then
// coalesces adjacent identically-formatted runs. spans are sorted by
// start here; an overlapping or out-of-range span is dropped, so of two
// overlapping spans the earlier-starting one is kept. The returned slice's concatenated Text always
// equals target byte-for-byte (spec.md §4.5 invariant 1).
//
// degenerate reports whether the caller's spans covered nothing at
// all for a non-empty target, in which case a single base-formatted
// run spanning all of target is returned instead (spec.md §4.5's
// AlignmentDegenerate fallback).
func ProjectAndFill(target string, base deck.Formatting, spans []Span) (runs []deck.Run, degenerate bool) {
	if target == "" {
		return nil, false
	}

	sorted := make([]Span, 0, len(spans))
	sorted = append(sorted, spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var accepted []Span
	cursor := 0
	for _, s := range sorted {
		if s.Start < cursor || s.Start >= s.End || s.End > len(target) {
			continue
		}
		accepted = append(accepted, s)
		cursor = s.End
	}

	if len(accepted) == 0 {
		logger.Warn("alignment produced no formatted spans; falling back to base-format run", "target_len", len(target))
		return []deck.Run{{Text: target, Formatting: base}}, true
	}

	// Gaps inherit the nearest preceding matched run's formatting; a gap
	// before the first match has no preceding run and falls back to the
	// paragraph base format (spec.md §4.5 step 6).
	var raw []deck.Run
	pos := 0
	gapFormat := base
	for _, s := range accepted {
		if s.Start > pos {
			raw = append(raw, deck.Run{Text: target[pos:s.Start], Formatting: gapFormat})
		}
		raw = append(raw, deck.Run{Text: target[s.Start:s.End], Formatting: s.Formatting})
		pos = s.End
		gapFormat = s.Formatting
	}
	if pos < len(target) {
		raw = append(raw, deck.Run{Text: target[pos:], Formatting: gapFormat})
	}

	return coalesce(raw), false
}

// coalesce merges adjacent runs with identical formatting (spec.md
// §4.5 step 7, "adjacency-only": non-adjacent identically-formatted
// runs are never merged across a differently-formatted run).
func coalesce(runs []deck.Run) []deck.Run {
	if len(runs) == 0 {
		return runs
	}
	out := make([]deck.Run, 0, len(runs))
	out = append(out, runs[0])
	for _, r := range runs[1:] {
		last := &out[len(out)-1]
		if sameFormatting(last.Formatting, r.Formatting) {
			last.Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// sameFormatting reports whether a and b agree on every DiffersFrom
// attribute (theme-background colours count as equal) and also on
// hyperlink target, superscript and subscript.
func sameFormatting(a, b deck.Formatting) bool {
	flag := func(p *bool) bool { return p != nil && *p }
	link := func(f deck.Formatting) string {
		if f.HasHyperlink() {
			return *f.HyperlinkURL
		}
		return ""
	}
	if link(a) != link(b) || flag(a.Superscript) != flag(b.Superscript) || flag(a.Subscript) != flag(b.Subscript) {
		return false
	}
	a.HyperlinkURL, b.HyperlinkURL = nil, nil
	return !a.DiffersFrom(b)
}
