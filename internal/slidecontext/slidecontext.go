// Package slidecontext builds the per-slide context passed alongside
// chart-label and table-cell translation requests (spec.md §4.6).
//
// Grounded on original_source/build_slide_context.py: group already-
// translated paragraphs by slide, fold in glossary hits, and bound
// the rendered phrase list by rune count. The bound covers the
// rendered context alone; the chart label or table cell text sent
// with it is not counted against it.
package slidecontext

import (
	"fmt"
	"strings"

	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/logger"
)

// Phrase is one (source, target) pair carried as slide context.
type Phrase struct {
	Source, Target string
}

// Context is the bounded per-slide phrase list handed to C7.
type Context struct {
	SlideIndex int
	Phrases    []Phrase
}

// Builder groups translated paragraphs into per-slide contexts.
type Builder struct {
	gl          *glossary.Glossary
	maxRunes    int
}

// New builds a Builder. maxInputRunes (4000 when <= 0) is the most
// runes a rendered Context from Build may hold; the label or cell text
// a caller sends alongside it is not counted.
func New(gl *glossary.Glossary, maxInputRunes int) *Builder {
	if maxInputRunes <= 0 {
		maxInputRunes = 4000
	}
	return &Builder{gl: gl, maxRunes: maxInputRunes}
}

// Build groups paragraphs by ID.SlideIndex, keeping only paragraphs
// that were successfully translated (Failure == nil), and returns one
// Context per slide that had at least one such paragraph.
func (b *Builder) Build(paragraphs []deck.Paragraph) map[int]*Context {
	out := make(map[int]*Context)
	for _, p := range paragraphs {
		if p.Failure != nil || p.TargetText == "" {
			continue
		}
		ctx, ok := out[p.ID.SlideIndex]
		if !ok {
			ctx = &Context{SlideIndex: p.ID.SlideIndex}
			out[p.ID.SlideIndex] = ctx
		}
		ctx.Phrases = append(ctx.Phrases, Phrase{Source: p.SourceText(), Target: p.TargetText})
		if b.gl != nil {
			for _, m := range b.gl.LookupMatches(p.SourceText(), "") {
				ctx.Phrases = append(ctx.Phrases, Phrase{Source: m.Entry.Source, Target: m.Entry.Target})
			}
		}
	}
	for _, ctx := range out {
		b.trim(ctx)
	}
	return out
}

// Render formats a Context as a compact phrase list. For a Context
// returned by Build, the result is at most the Builder's maxRunes runes.
func (c *Context) Render() string {
	if len(c.Phrases) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Slide phrases already translated:\n")
	for _, p := range c.Phrases {
		fmt.Fprintf(&b, "- %s -> %s\n", p.Source, p.Target)
	}
	return b.String()
}

// trim drops entries from the tail of the slice (the most recently
// discovered, since Build appends in discovery order) until the
// rendered fragment fits within maxRunes, logging how many were
// dropped rather than silently truncating (the "no silent caps"
// convention).
func (b *Builder) trim(ctx *Context) {
	dropped := 0
	for len([]rune(ctx.Render())) > b.maxRunes && len(ctx.Phrases) > 0 {
		ctx.Phrases = ctx.Phrases[:len(ctx.Phrases)-1]
		dropped++
	}
	if dropped > 0 {
		logger.Debug("trimmed slide context to fit input budget", "slide", ctx.SlideIndex, "dropped_phrases", dropped, "max_runes", b.maxRunes)
	}
}
