// Package artifact persists intermediate pipeline records as
// line-delimited JSON (spec.md §6), one file per job per stage under a
// per-job scratch directory.
//
// Grounded on the teacher's recovery.SaveSessionLog: marshal the full
// record set once and write it with files.AtomicWriteExclusive, so a
// crash mid-write either leaves the previous complete file in place or
// no file at all. Reader additionally discards a trailing line that
// fails to unmarshal, so a partial write at the OS level is still safe
// to resume from.
package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/files"
	"github.com/deckforge/deckforge/internal/logger"
)

// Kind tags which record shape a line carries (spec.md §6).
type Kind string

const (
	KindParagraph  Kind = "paragraph"
	KindCell       Kind = "cell"
	KindChartLabel Kind = "chart_label"
)

// Record is one self-describing line of an intermediate artifact.
type Record struct {
	Kind     Kind          `json:"kind"`
	Stage    string        `json:"stage"`
	Identity deck.Identity `json:"identity"`

	Source      string     `json:"source,omitempty"`
	Target      string     `json:"target,omitempty"`
	Runs        []deck.Run `json:"runs,omitempty"`
	AlignedRuns []deck.Run `json:"aligned_runs,omitempty"`

	FailureKind    apperrors.Kind `json:"failure_kind,omitempty"`
	FailureMessage string         `json:"failure_message,omitempty"`
}

// FromParagraph captures a deck.Paragraph's current translate/align
// state at a named stage.
func FromParagraph(stage string, p deck.Paragraph) Record {
	r := Record{Kind: KindParagraph, Stage: stage, Identity: p.ID, Source: p.SourceText(), Target: p.TargetText, Runs: p.Runs, AlignedRuns: p.AlignedRuns}
	if p.Failure != nil {
		r.FailureKind = p.Failure.Kind
		r.FailureMessage = p.Failure.Message
	}
	return r
}

// FromCellParagraph captures one paragraph of a table cell, identified
// by the cell's own identity (cells may carry several paragraphs).
func FromCellParagraph(stage string, cellID deck.Identity, p deck.Paragraph) Record {
	r := FromParagraph(stage, p)
	r.Kind = KindCell
	r.Identity = cellID
	return r
}

// FromChartLabel captures a deck.ChartLabel's current translate state.
func FromChartLabel(stage string, l deck.ChartLabel) Record {
	r := Record{Kind: KindChartLabel, Stage: stage, Identity: l.ID, Source: l.SourceText, Target: l.TargetText}
	if l.Failure != nil {
		r.FailureKind = l.Failure.Kind
		r.FailureMessage = l.Failure.Message
	}
	return r
}

// Path returns the scratch-file path for one job's stage under dir.
func Path(dir, jobID, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.jsonl", jobID, stage))
}

// Write marshals records one per line and persists them atomically
// under dir/<jobID>_<stage>.jsonl.
func Write(dir, jobID, stage string, records []Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling artifact record: %w", err)
		}
	}
	return files.AtomicWriteExclusive(Path(dir, jobID, stage), buf.Bytes(), 0o644)
}

// Reader streams records line by line, discarding a trailing line that
// fails to unmarshal (a crash mid-write leaves at most one partial
// trailing line per spec.md §6).
type Reader struct {
	sc *bufio.Scanner
}

// Open opens dir/<jobID>_<stage>.jsonl for reading.
func Open(dir, jobID, stage string) (*Reader, error) {
	f, err := os.Open(Path(dir, jobID, stage))
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{sc: sc}, nil
}

// ReadAll reads every well-formed line, dropping any line (in practice
// only ever the last, truncated one) that fails to unmarshal.
func ReadAll(dir, jobID, stage string) ([]Record, error) {
	r, err := Open(dir, jobID, stage)
	if err != nil {
		return nil, err
	}
	var out []Record
	for r.sc.Scan() {
		var rec Record
		if err := json.Unmarshal(r.sc.Bytes(), &rec); err != nil {
			logger.Debug("discarding malformed artifact line on resume", "job_id", jobID, "stage", stage, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, r.sc.Err()
}
