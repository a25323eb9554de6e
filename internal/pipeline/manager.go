package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/logger"
)

// jobEntry is the runtime counterpart to Job: the exported fields plus
// everything runJob needs that must never leak into Status output
// (input bytes, cancel func, result bytes). Guarded by its own mutex
// so Manager's table lock is only ever held for map lookups (spec.md
// §5 "guarded by a single lock or per-job lock").
type jobEntry struct {
	mu     sync.Mutex
	job    Job
	cancel context.CancelFunc
	deckIn []byte
	opts   SubmitOptions
	result []byte
}

func (e *jobEntry) snapshot() JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return JobStatus{State: e.job.State, Progress: e.job.Progress, Milestone: e.job.Milestone, Err: e.job.Err, Usage: e.job.Usage}
}

func (e *jobEntry) setUsage(u backend.Usage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.Usage = u
}

func (e *jobEntry) setState(s JobState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.State = s
	e.job.UpdatedAt = time.Now()
}

func (e *jobEntry) setProgress(milestone string, percent int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.Milestone = milestone
	if percent > e.job.Progress {
		e.job.Progress = percent
	}
	e.job.UpdatedAt = time.Now()
}

func (e *jobEntry) finishFailed(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.State = JobFailed
	e.job.Err = err
	e.job.UpdatedAt = time.Now()
}

func (e *jobEntry) finishCancelled(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.State = JobCancelled
	e.job.Err = err
	e.job.UpdatedAt = time.Now()
}

func (e *jobEntry) finishCompleted(result []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.State = JobCompleted
	e.job.Progress = 100
	e.job.Milestone = milestones[len(milestones)-1]
	e.result = result
	e.job.UpdatedAt = time.Now()
}

// Manager owns the job table and drives each submitted job to
// completion on its own goroutine with its own worker pool and
// cancellation scope (spec.md §4.9, §5). The table itself is guarded
// by a single sync.RWMutex; the backend/embedding-model handles for a
// job are created by the factory inside that job's runJob call and held
// in its local variables, never in a Manager field.
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*jobEntry
	factory BackendFactory

	defaultGlossary *glossary.Glossary
}

// NewManager builds a Manager. defaultGlossary may be nil. factory,
// when nil, defaults to DefaultBackendFactory.
func NewManager(defaultGlossary *glossary.Glossary, factory BackendFactory) *Manager {
	if factory == nil {
		factory = DefaultBackendFactory
	}
	return &Manager{
		jobs:            make(map[string]*jobEntry),
		factory:         factory,
		defaultGlossary: defaultGlossary,
	}
}

// Submit validates opts, resolves the job's glossary, and starts the
// job running asynchronously, returning immediately with its job_id
// (spec.md §6 "submit(deck_bytes, options) -> job_id").
func (m *Manager) Submit(deckBytes []byte, opts SubmitOptions) (string, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return "", err
	}
	gl, err := resolveGlossary(opts, m.defaultGlossary)
	if err != nil {
		return "", err
	}
	opts.Glossary = gl

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	entry := &jobEntry{
		job: Job{
			ID:        id,
			State:     JobPending,
			Milestone: "queued",
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
		deckIn: deckBytes,
		opts:   opts,
	}

	m.mu.Lock()
	m.jobs[id] = entry
	m.mu.Unlock()

	go m.run(ctx, entry)
	return id, nil
}

func (m *Manager) run(ctx context.Context, entry *jobEntry) {
	entry.setState(JobRunning)
	result, err := runJob(ctx, m.factory, entry)
	switch {
	case err == nil:
		entry.finishCompleted(result)
	case ctx.Err() != nil:
		entry.finishCancelled(err)
	default:
		logger.Warn("job failed", "job_id", entry.job.ID, "error", err)
		entry.finishFailed(err)
	}
}

// Status returns the current state/progress/milestone/error (spec.md
// §6 "status(job_id) -> {state, progress percent, milestone, error}").
func (m *Manager) Status(jobID string) (JobStatus, error) {
	entry, ok := m.lookup(jobID)
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	return entry.snapshot(), nil
}

// Cancel requests cancellation of a running job (spec.md §6
// "cancel(job_id) -> ok | already_terminal").
func (m *Manager) Cancel(jobID string) error {
	entry, ok := m.lookup(jobID)
	if !ok {
		return ErrJobNotFound
	}
	entry.mu.Lock()
	terminal := entry.job.State.terminal()
	entry.mu.Unlock()
	if terminal {
		return ErrAlreadyTerminal
	}
	entry.cancel()
	return nil
}

// Result returns the translated deck bytes once a job has completed
// (spec.md §6 "result(job_id) -> deck_bytes when state is completed").
func (m *Manager) Result(jobID string) ([]byte, error) {
	entry, ok := m.lookup(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.job.State != JobCompleted {
		return nil, ErrJobNotCompleted
	}
	return entry.result, nil
}

// GlossaryEntries returns the Manager's default glossary's entries for
// inspection (spec.md §6 "glossary_entries() -> list").
func (m *Manager) GlossaryEntries() []glossary.Entry {
	if m.defaultGlossary == nil {
		return nil
	}
	return m.defaultGlossary.Entries()
}

func (m *Manager) lookup(jobID string) (*jobEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.jobs[jobID]
	return entry, ok
}

func resolveGlossary(opts SubmitOptions, fallback *glossary.Glossary) (*glossary.Glossary, error) {
	if opts.Glossary != nil {
		return opts.Glossary, nil
	}
	if opts.GlossaryPath == "" {
		return fallback, nil
	}
	return loadGlossaryFile(opts.GlossaryPath, opts.GlossaryFormat)
}
