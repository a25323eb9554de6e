package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/backend/gemini"
	"github.com/deckforge/deckforge/internal/backend/openai"
	"github.com/deckforge/deckforge/internal/glossary"
)

// AlignmentStrategy selects which internal/align package fills runs
// back onto translated text (spec.md §4.5).
type AlignmentStrategy string

const (
	AlignmentSemantic AlignmentStrategy = "semantic"
	AlignmentLLM      AlignmentStrategy = "llm"
)

// BackendKind selects the translation provider (spec.md §6 "backend
// selection"). Grounded on the REDESIGN FLAGS note that backends are a
// capability set chosen by configuration, not an inheritance hierarchy.
type BackendKind string

const (
	BackendGemini BackendKind = "gemini"
	BackendOpenAI BackendKind = "openai"
	BackendMock   BackendKind = "mock"
)

const (
	MinWorkers              = 1
	MaxWorkers              = 20
	DefaultWorkers          = 4
	DefaultPerRecordTimeout = 30 * time.Second
)

// ClampWorkers mirrors the teacher's ClampConcurrency.
func ClampWorkers(value int) (int, bool) {
	if value < MinWorkers {
		return MinWorkers, true
	}
	if value > MaxWorkers {
		return MaxWorkers, true
	}
	return value, false
}

// SubmitOptions is the submit(deck_bytes, options) options bag of
// spec.md §6: source/target language, glossary reference or inline,
// alignment strategy, backend selection, worker count, per-record
// timeout.
type SubmitOptions struct {
	SourceLang, TargetLang string

	// Glossary, when non-nil, is used verbatim (the "inline" form).
	// Otherwise GlossaryPath/GlossaryFormat select the "reference" form,
	// loaded once at submit time via glossary.Load.
	Glossary       *glossary.Glossary
	GlossaryPath   string
	GlossaryFormat glossary.Format

	AlignmentStrategy AlignmentStrategy
	Backend           BackendKind
	APIKey            string
	Model             string
	EmbeddingModel    string

	WorkerCount      int
	PerRecordTimeout time.Duration

	// ArtifactDir, when non-empty, spills intermediate stage records to
	// line-delimited JSON under this directory (spec.md §6). Empty
	// disables artifact persistence entirely.
	ArtifactDir string
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	if o.WorkerCount <= 0 {
		o.WorkerCount = DefaultWorkers
	}
	o.WorkerCount, _ = ClampWorkers(o.WorkerCount)
	if o.PerRecordTimeout <= 0 {
		o.PerRecordTimeout = DefaultPerRecordTimeout
	}
	if o.AlignmentStrategy == "" {
		o.AlignmentStrategy = AlignmentSemantic
	}
	if o.Backend == "" {
		o.Backend = BackendGemini
	}
	return o
}

func (o SubmitOptions) validate() error {
	if o.SourceLang == "" || o.TargetLang == "" {
		return apperrors.Validation(fmt.Errorf("source and target language are required"))
	}
	if o.AlignmentStrategy != AlignmentSemantic && o.AlignmentStrategy != AlignmentLLM {
		return apperrors.Validation(fmt.Errorf("unknown alignment strategy %q", o.AlignmentStrategy))
	}
	if o.Backend != BackendGemini && o.Backend != BackendOpenAI && o.Backend != BackendMock {
		return apperrors.Validation(fmt.Errorf("unknown backend %q", o.Backend))
	}
	if o.Glossary != nil && o.GlossaryPath != "" {
		return apperrors.Validation(fmt.Errorf("specify either an inline glossary or a glossary path, not both"))
	}
	return nil
}

// BackendFactory constructs the translator (and, when the job's
// AlignmentStrategy is semantic, embedder) pair for one job. Injected
// on Manager so tests can substitute backend/mock without an API key;
// DefaultBackendFactory wires the real providers.
type BackendFactory func(ctx context.Context, opts SubmitOptions) (backend.Backend, error)

// DefaultBackendFactory dispatches on opts.Backend, mirroring the
// teacher's translate.go client construction.
func DefaultBackendFactory(ctx context.Context, opts SubmitOptions) (backend.Backend, error) {
	switch opts.Backend {
	case BackendGemini, "":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:         opts.APIKey,
			Model:          opts.Model,
			EmbeddingModel: opts.EmbeddingModel,
		})
	case BackendOpenAI:
		return openai.NewClient(opts.APIKey, opts.Model), nil
	default:
		return nil, apperrors.Validation(fmt.Errorf("no default factory for backend %q", opts.Backend))
	}
}

// loadGlossaryFile loads a glossary reference at submit time. Failures
// are GlossaryLoadError — fatal to the job that referenced it (spec.md
// §7).
func loadGlossaryFile(path string, format glossary.Format) (*glossary.Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("opening glossary %s: %w", path, err))
	}
	defer f.Close()
	gl, err := glossary.Load(f, format)
	if err != nil {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("loading glossary %s: %w", path, err))
	}
	return gl, nil
}
