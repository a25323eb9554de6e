// Package deckforge is the public API surface of the deck translation
// job orchestrator: submit a deck, poll its status, cancel it, and
// fetch its result once complete, all backed by internal/pipeline.
package deckforge

import (
	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/pipeline"
)

// Re-exported value types so callers never need to import internal/pipeline.
type (
	JobState          = pipeline.JobState
	JobStatus         = pipeline.JobStatus
	SubmitOptions     = pipeline.SubmitOptions
	AlignmentStrategy = pipeline.AlignmentStrategy
	BackendKind       = pipeline.BackendKind
	BackendFactory    = pipeline.BackendFactory
	GlossaryFormat    = glossary.Format
)

const (
	JobPending   = pipeline.JobPending
	JobRunning   = pipeline.JobRunning
	JobCompleted = pipeline.JobCompleted
	JobFailed    = pipeline.JobFailed
	JobCancelled = pipeline.JobCancelled

	AlignmentSemantic = pipeline.AlignmentSemantic
	AlignmentLLM      = pipeline.AlignmentLLM

	BackendGemini = pipeline.BackendGemini
	BackendOpenAI = pipeline.BackendOpenAI
	BackendMock   = pipeline.BackendMock
)

var (
	ErrJobNotFound     = pipeline.ErrJobNotFound
	ErrAlreadyTerminal = pipeline.ErrAlreadyTerminal
	ErrJobNotCompleted = pipeline.ErrJobNotCompleted

	DefaultBackendFactory = pipeline.DefaultBackendFactory
)

// Manager is the deck-translation job orchestrator: submit a deck,
// poll its progress, cancel it cooperatively, and retrieve its
// translated bytes once it completes.
type Manager struct {
	inner *pipeline.Manager
}

// NewManager builds a Manager. defaultGlossary is used for any job
// that does not supply its own inline or referenced glossary; it may
// be nil. factory, when nil, dispatches to DefaultBackendFactory based
// on SubmitOptions.Backend.
func NewManager(defaultGlossary *glossary.Glossary, factory BackendFactory) *Manager {
	return &Manager{inner: pipeline.NewManager(defaultGlossary, factory)}
}

// Submit starts translating deckBytes asynchronously and returns its
// job ID immediately.
func (m *Manager) Submit(deckBytes []byte, opts SubmitOptions) (string, error) {
	return m.inner.Submit(deckBytes, opts)
}

// Status reports a job's current state, progress percentage,
// milestone name, and terminal error (if any).
func (m *Manager) Status(jobID string) (JobStatus, error) {
	return m.inner.Status(jobID)
}

// Cancel requests cooperative cancellation of a running job. Returns
// ErrAlreadyTerminal if the job has already finished.
func (m *Manager) Cancel(jobID string) error {
	return m.inner.Cancel(jobID)
}

// Result returns the translated deck bytes for a completed job.
// Returns ErrJobNotCompleted otherwise.
func (m *Manager) Result(jobID string) ([]byte, error) {
	return m.inner.Result(jobID)
}

// GlossaryEntries returns the Manager's default glossary's entries.
func (m *Manager) GlossaryEntries() []glossary.Entry {
	return m.inner.GlossaryEntries()
}
