// Package paratranslate translates deck.Paragraph records one at a
// time against a backend.Backend, attaching TargetText (spec.md §4.4).
//
// Ported from original_source/translate_paragraphs.py's per-paragraph
// shape and the teacher's internal/translator retry loop: same
// jittered-exponential-backoff formula, same maxAttempts default, same
// retryable-kind gate via apperrors.IsRetryable.
package paratranslate

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/logger"
)

// Config tunes one Translate call.
type Config struct {
	SourceLang, TargetLang string
	ContextWindow          int // paragraphs of slide context before/after, like the teacher's chunker context
	MaxAttempts            int // default 3

	// Usage, when non-nil, accumulates token usage across every
	// successful call for CLI/metrics reporting.
	Usage *backend.UsageAccumulator
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Translator drives per-paragraph translation against one backend.
type Translator struct {
	be  backend.Translator
	gl  *glossary.Glossary
	cfg Config
}

// New builds a Translator. gl may be nil (no glossary hints).
func New(be backend.Translator, gl *glossary.Glossary, cfg Config) *Translator {
	return &Translator{be: be, gl: gl, cfg: cfg.withDefaults()}
}

// TranslateAll translates every paragraph in place, attaching
// TargetText on success or RecordFailure + source-text fallback on
// exhausted retries (spec.md §4.4, §7 per-record propagation policy).
// Paragraphs whose source text is empty are left untouched.
func (t *Translator) TranslateAll(ctx context.Context, paragraphs []deck.Paragraph, slideContextOf func(i int) string) []deck.Paragraph {
	out := make([]deck.Paragraph, len(paragraphs))
	copy(out, paragraphs)

	for i := range out {
		if ctx.Err() != nil {
			out[i].Failure = &deck.RecordFailure{Kind: apperrors.KindCancelled, Message: "job cancelled"}
			continue
		}
		src := out[i].SourceText()
		if src == "" {
			continue
		}
		var slideCtx string
		if slideContextOf != nil {
			slideCtx = slideContextOf(i)
		}
		target, err := t.translateOne(ctx, i, src, slideCtx)
		if err != nil {
			out[i].Failure = &deck.RecordFailure{Kind: kindOf(err), Message: err.Error()}
			out[i].TargetText = src
			continue
		}
		// Normalized once here so every downstream byte offset (the run
		// aligner, then the writer's XML re-encoding) operates on the
		// same stable form; re-normalizing later would shift offsets.
		out[i].TargetText = norm.NFC.String(target)
	}
	return out
}

func kindOf(err error) apperrors.Kind {
	if k, ok := apperrors.KindOf(err); ok {
		return k
	}
	return apperrors.KindTransient
}

func (t *Translator) translateOne(ctx context.Context, id int, source, slideContext string) (string, error) {
	var hint string
	if t.gl != nil {
		hint = t.gl.PromptFragment(source, "")
	}
	req := backend.TranslateRequest{
		Target:       []backend.Segment{{ID: id, Text: source}},
		SourceLang:   t.cfg.SourceLang,
		TargetLang:   t.cfg.TargetLang,
		GlossaryHint: hint,
		SlideContext: slideContext,
	}

	var lastErr error
	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		resp, err := t.be.Translate(ctx, req)
		if err == nil {
			if len(resp.Translations) == 0 {
				lastErr = apperrors.Validation(errors.New("backend returned no translations for paragraph"))
			} else {
				t.cfg.Usage.Add(resp.Usage)
				return resp.Translations[0].Text, nil
			}
		} else {
			lastErr = err
		}

		retry, backoff := retryDecision(ctx, lastErr, attempt, t.cfg.MaxAttempts)
		if !retry {
			break
		}
		logger.Debug("retrying paragraph translation", "id", id, "attempt", attempt, "backoff", backoff, "error", lastErr)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}

// retryDecision mirrors the teacher's translator.retryDecision:
// exponential backoff doubling per attempt, doubled again on rate
// limit, capped, plus jitter; only retryable kinds retry.
func retryDecision(ctx context.Context, err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil || attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	const (
		base       = 1 * time.Second
		maxBackoff = 20 * time.Second
		jitterMax  = 1 * time.Second
	)
	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}
