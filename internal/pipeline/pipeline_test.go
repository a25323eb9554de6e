package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/backend/mock"
	"github.com/deckforge/deckforge/internal/glossary"
)

func buildDeckBytes(t *testing.T, paragraphCount int) []byte {
	t.Helper()
	var paras strings.Builder
	for i := 0; i < paragraphCount; i++ {
		fmt.Fprintf(&paras, `<a:p><a:r><a:rPr b="true"/><a:t>Hello %d</a:t></a:r></a:p>`, i)
	}
	slideXML := `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:txBody>` + paras.String() + `</p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := w.Write([]byte(slideXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func mockFactory(client *mock.Client) BackendFactory {
	return func(ctx context.Context, opts SubmitOptions) (backend.Backend, error) {
		return client, nil
	}
}

func waitForTerminal(t *testing.T, m *Manager, jobID string, timeout time.Duration) JobStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last JobStatus
	for time.Now().Before(deadline) {
		status, err := m.Status(jobID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.State == JobCompleted || status.State == JobFailed || status.State == JobCancelled {
			return status
		}
		last = status
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state within %v, last status %+v", jobID, timeout, last)
	return last
}

func TestSubmit_CompletesAndProducesTranslatedResult(t *testing.T) {
	client := &mock.Client{Prefix: "[fr] "}
	m := NewManager(nil, mockFactory(client))

	jobID, err := m.Submit(buildDeckBytes(t, 3), SubmitOptions{
		SourceLang:        "English",
		TargetLang:        "French",
		AlignmentStrategy: AlignmentSemantic,
		WorkerCount:       2,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	status := waitForTerminal(t, m, jobID, 5*time.Second)
	if status.State != JobCompleted {
		t.Fatalf("expected job completed, got %+v", status)
	}
	if status.Progress != 100 {
		t.Fatalf("expected 100%% progress on completion, got %d", status.Progress)
	}

	result, err := m.Result(jobID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(result), int64(len(result)))
	if err != nil {
		t.Fatalf("result is not a valid zip: %v", err)
	}
	f, err := zr.Open("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("missing slide part in result: %v", err)
	}
	defer f.Close()
	buf := &bytes.Buffer{}
	buf.ReadFrom(f)
	if !strings.Contains(buf.String(), "[fr] Hello 0") {
		t.Fatalf("expected translated text in result, got %s", buf.String())
	}
}

func TestSubmit_ValidatesRequiredOptions(t *testing.T) {
	m := NewManager(nil, mockFactory(&mock.Client{}))
	if _, err := m.Submit(buildDeckBytes(t, 1), SubmitOptions{}); err == nil {
		t.Fatalf("expected validation error for missing languages")
	}
}

func TestCancel_TransitionsToCancelledPromptly(t *testing.T) {
	client := &mock.Client{Delay: 150 * time.Millisecond}
	m := NewManager(nil, mockFactory(client))

	jobID, err := m.Submit(buildDeckBytes(t, 40), SubmitOptions{
		SourceLang:        "English",
		TargetLang:        "French",
		AlignmentStrategy: AlignmentSemantic,
		WorkerCount:       4,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if err := m.Cancel(jobID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	status := waitForTerminal(t, m, jobID, 2*time.Second)
	if status.State != JobCancelled {
		t.Fatalf("expected job cancelled, got %+v", status)
	}

	if _, err := m.Result(jobID); err != ErrJobNotCompleted {
		t.Fatalf("expected result unavailable for cancelled job, got %v", err)
	}
}

func TestCancel_AlreadyTerminalAfterCompletion(t *testing.T) {
	client := &mock.Client{}
	m := NewManager(nil, mockFactory(client))

	jobID, err := m.Submit(buildDeckBytes(t, 1), SubmitOptions{
		SourceLang: "English",
		TargetLang: "French",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForTerminal(t, m, jobID, 5*time.Second)

	if err := m.Cancel(jobID); err != ErrAlreadyTerminal {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestStatus_UnknownJobIsNotFound(t *testing.T) {
	m := NewManager(nil, mockFactory(&mock.Client{}))
	if _, err := m.Status("does-not-exist"); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGlossaryEntries_ReturnsManagerDefault(t *testing.T) {
	gl, err := glossary.FromEntries([]glossary.Entry{{Source: "revenue", Target: "chiffre d'affaires"}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	m := NewManager(gl, mockFactory(&mock.Client{}))
	entries := m.GlossaryEntries()
	if len(entries) != 1 || entries[0].Source != "revenue" {
		t.Fatalf("unexpected glossary entries: %+v", entries)
	}
}
