// Package chartcell translates chart labels and table cells (spec.md
// §4.7), both keyed off a slide's slidecontext.Context.
//
// Chart labels are single-format, so each is one backend.Translate
// call with no run alignment. Table cells go through the same two
// steps as paragraphs (C4 then C5); cells flagged AnchorOf are merged
// into another cell and are skipped entirely, per spec.md §4.7 — the
// Open Question about whether that assumption always holds is carried
// forward unresolved: AnchorOf is trusted as extracted, and no check or
// log is made of whether the extractor determined anchor status
// correctly.
package chartcell

import (
	"context"

	"github.com/deckforge/deckforge/internal/align/common"
	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/paratranslate"
	"github.com/deckforge/deckforge/internal/slidecontext"
)

// Translator drives C7's two independent paths.
type Translator struct {
	para    *paratranslate.Translator
	aligner common.Aligner
	be      backend.Translator
}

// New builds a chartcell Translator from the already-constructed C4/C5 components.
func New(para *paratranslate.Translator, aligner common.Aligner, be backend.Translator) *Translator {
	return &Translator{para: para, aligner: aligner, be: be}
}

// TranslateLabels translates chart labels one at a time, attaching
// TargetText or a RecordFailure (never aligned; labels are one
// styled unit per spec.md §3).
func (t *Translator) TranslateLabels(ctx context.Context, labels []deck.ChartLabel, slideCtx *slidecontext.Context) []deck.ChartLabel {
	out := make([]deck.ChartLabel, len(labels))
	copy(out, labels)
	for i := range out {
		if ctx.Err() != nil {
			out[i].Failure = &deck.RecordFailure{Kind: apperrors.KindCancelled, Message: "job cancelled"}
			continue
		}
		if out[i].SourceText == "" {
			continue
		}
		var hint string
		if slideCtx != nil {
			hint = slideCtx.Render()
		}
		resp, err := t.be.Translate(ctx, backend.TranslateRequest{
			Target:       []backend.Segment{{ID: i, Text: out[i].SourceText}},
			SlideContext: hint,
		})
		if err != nil || len(resp.Translations) == 0 {
			out[i].Failure = &deck.RecordFailure{Kind: kindOf(err), Message: safeMessage(err)}
			out[i].TargetText = out[i].SourceText
			continue
		}
		out[i].TargetText = resp.Translations[0].Text
	}
	return out
}

// TranslateCellText translates every non-anchored table cell's
// paragraphs (cells with AnchorOf set are skipped — they are merged
// into another cell's span). Alignment is a separate milestone; see
// AlignCellRuns.
func (t *Translator) TranslateCellText(ctx context.Context, cells []deck.TableCell, slideCtxOf func(cell deck.TableCell) *slidecontext.Context) []deck.TableCell {
	out := make([]deck.TableCell, len(cells))
	copy(out, cells)
	for i := range out {
		if out[i].AnchorOf != nil {
			continue
		}
		if ctx.Err() != nil {
			for j := range out[i].Paragraphs {
				out[i].Paragraphs[j].Failure = &deck.RecordFailure{Kind: apperrors.KindCancelled, Message: "job cancelled"}
			}
			continue
		}
		var slideCtx *slidecontext.Context
		if slideCtxOf != nil {
			slideCtx = slideCtxOf(out[i])
		}
		var hint string
		if slideCtx != nil {
			hint = slideCtx.Render()
		}
		out[i].Paragraphs = t.para.TranslateAll(ctx, out[i].Paragraphs, func(int) string { return hint })
	}
	return out
}

// AlignCellRuns runs the configured aligner over every translated,
// non-anchored cell's paragraphs.
func (t *Translator) AlignCellRuns(ctx context.Context, cells []deck.TableCell) []deck.TableCell {
	out := make([]deck.TableCell, len(cells))
	copy(out, cells)
	for i := range out {
		if out[i].AnchorOf != nil {
			continue
		}
		for j := range out[i].Paragraphs {
			p := &out[i].Paragraphs[j]
			if ctx.Err() != nil {
				p.Failure = &deck.RecordFailure{Kind: apperrors.KindCancelled, Message: "job cancelled"}
				continue
			}
			if p.Failure != nil || p.TargetText == "" {
				continue
			}
			aligned, err := t.aligner.Align(ctx, p.SourceText(), p.Runs, p.TargetText)
			if err != nil {
				p.Failure = &deck.RecordFailure{Kind: kindOf(err), Message: safeMessage(err)}
				continue
			}
			p.AlignedRuns = aligned
		}
	}
	return out
}

func kindOf(err error) apperrors.Kind {
	if k, ok := apperrors.KindOf(err); ok {
		return k
	}
	return apperrors.KindTransient
}

func safeMessage(err error) string {
	if err == nil {
		return "empty response from backend"
	}
	return apperrors.PublicMessage(err)
}
