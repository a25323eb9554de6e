// Package backend defines the pluggable translation/embedding provider
// boundary (spec §4.2): paratranslate and the semantic aligner depend
// only on this interface, never on a concrete provider.
//
// Grounded on the teacher's internal/gemini.Translator interface,
// generalized from subtitle-segment batches to slide paragraphs and
// extended with an optional Embedder capability for the semantic
// run-aligner (spec §4.5.a).
package backend

import (
	"context"
	"sync"
)

// Segment is one unit of text to translate, keyed by an opaque ID so
// responses can be matched back to requests out of order.
type Segment struct {
	ID   int
	Text string
}

// TranslateRequest carries the target segments for one call plus
// surrounding slide context, mirroring the teacher's context_before/
// context_after framing (spec §4.4, §4.6).
type TranslateRequest struct {
	ContextBefore []Segment
	Target        []Segment
	ContextAfter  []Segment
	SourceLang    string
	TargetLang    string
	GlossaryHint  string // rendered via glossary.PromptFragment
	SlideContext  string // rendered by internal/slidecontext
}

// TranslatedSegment is one translated result, matched back to a
// request Segment by ID.
type TranslatedSegment struct {
	ID   int
	Text string
}

// Usage reports token accounting for logging/metrics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TranslateResponse is the full result of one Translate call.
type TranslateResponse struct {
	Translations []TranslatedSegment
	Usage        Usage
}

// Translator is the minimal capability every backend provides.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	SetSystemInstruction(prompt string)
}

// Embedder is an optional capability: backends that can produce text
// embeddings implement it so the semantic aligner (spec §4.5.a) can
// score candidate spans by cosine similarity. Backends that cannot
// (e.g. openai in its current Responses-API-only form) simply do not
// implement this interface; callers type-assert for it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend is the capability every job's backend provides: Translator
// only. Embedder is not part of it; a concrete backend need not
// implement Embedder to satisfy paratranslate, but must implement it
// to be usable by the semantic aligner.
type Backend interface {
	Translator
}

// UsageAccumulator sums token usage across concurrent Translate calls
// from a per-job worker pool, for CLI/metrics reporting.
type UsageAccumulator struct {
	mu    sync.Mutex
	total Usage
}

// Add folds one call's usage into the running total.
func (a *UsageAccumulator) Add(u Usage) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.PromptTokens += u.PromptTokens
	a.total.CompletionTokens += u.CompletionTokens
	a.total.TotalTokens += u.TotalTokens
}

// Total returns the accumulated usage so far.
func (a *UsageAccumulator) Total() Usage {
	if a == nil {
		return Usage{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
