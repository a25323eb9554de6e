package pipeline

import (
	"errors"
	"time"

	"github.com/deckforge/deckforge/internal/backend"
)

// JobState is the state machine of spec.md §3: pending -> running ->
// {completed | failed | cancelled}. Transitions are monotone except
// running -> cancelled, which may occur at any cooperative checkpoint.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

func (s JobState) terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job is the persisted record of spec.md §3's Job type, grounded on
// other_examples/raphi011-knowhow__job.go's field shape.
type Job struct {
	ID        string
	State     JobState
	Progress  int
	Milestone string
	CreatedAt time.Time
	UpdatedAt time.Time
	Err       error
	Usage     backend.Usage
}

// JobStatus is the status(job_id) return shape of spec.md §6.
type JobStatus struct {
	State     JobState
	Progress  int
	Milestone string
	Err       error
	Usage     backend.Usage
}

// ErrJobNotFound is returned by Status/Cancel/Result for an unknown job_id.
var ErrJobNotFound = errors.New("job not found")

// ErrAlreadyTerminal is returned by Cancel when the job has already
// reached a terminal state, per spec.md §6's "ok | already_terminal".
var ErrAlreadyTerminal = errors.New("job already in a terminal state")

// ErrJobNotCompleted is returned by Result before a job has completed.
var ErrJobNotCompleted = errors.New("job has not completed")

// milestones lists the nine named checkpoints of spec.md §3/§4.9, in
// order. Each owns a consecutive percentage band (0–11, 11–22, …,
// 88–100; adjacent bands share their edge value) so overall progress
// is non-decreasing across milestone boundaries.
var milestones = []string{
	"extract paragraphs",
	"translate paragraphs",
	"align paragraphs",
	"build context",
	"translate charts",
	"translate tables",
	"align table cells",
	"merge",
	"write",
}

// milestoneBand returns the [start, end] percentage band owned by the
// milestone at index i.
func milestoneBand(i int) (start, end int) {
	n := len(milestones)
	start = i * 100 / n
	end = (i + 1) * 100 / n
	return start, end
}

// bandProgress maps a fractional completion within milestone i to an
// overall percentage within that milestone's band.
func bandProgress(i int, completed, total int) int {
	start, end := milestoneBand(i)
	if total <= 0 {
		return end
	}
	frac := float64(completed) / float64(total)
	if frac > 1 {
		frac = 1
	}
	return start + int(frac*float64(end-start))
}
