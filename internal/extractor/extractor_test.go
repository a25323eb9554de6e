package extractor

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/deckforge/deckforge/internal/deck"
)

func buildFixtureZip(t *testing.T, entries map[string]string) *bytes.Reader {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

const slideXML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:txBody>
          <a:p>
            <a:pPr algn="ctr" lvl="1"/>
            <a:r><a:rPr b="true" sz="2400"><a:latin typeface="Calibri"/></a:rPr><a:t>Hello </a:t></a:r>
            <a:r><a:rPr b="false"/><a:t>World</a:t></a:r>
          </a:p>
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`

func TestExtract_ParsesParagraphsAndRuns(t *testing.T) {
	r := buildFixtureZip(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML,
	})
	result, err := Extract(r, r.Size())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(result.Paragraphs))
	}
	p := result.Paragraphs[0]
	if p.Alignment != "ctr" || p.IndentLvl != 1 {
		t.Fatalf("unexpected paragraph props: %+v", p)
	}
	if len(p.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(p.Runs))
	}
	if p.Runs[0].Text != "Hello " || p.Runs[1].Text != "World" {
		t.Fatalf("unexpected run text: %+v", p.Runs)
	}
	if p.Runs[0].Formatting.Bold == nil || !*p.Runs[0].Formatting.Bold {
		t.Fatalf("expected bold=true on first run")
	}
	if p.SourceText() != "Hello World" {
		t.Fatalf("expected concatenated source text, got %q", p.SourceText())
	}
}

func TestExtract_MalformedZipIsFatal(t *testing.T) {
	bad := bytes.NewReader([]byte("not a zip"))
	if _, err := Extract(bad, bad.Size()); err == nil {
		t.Fatalf("expected error for malformed container")
	}
}

func TestExtract_MalformedSlidePartIsSkipped(t *testing.T) {
	r := buildFixtureZip(t, map[string]string{
		"ppt/slides/slide1.xml": "<p:sld><<<not xml",
		"ppt/slides/slide2.xml": slideXML,
	})
	result, err := Extract(r, r.Size())
	if err != nil {
		t.Fatalf("Extract should skip malformed parts, not fail: %v", err)
	}
	if len(result.Paragraphs) != 1 {
		t.Fatalf("expected only slide2's paragraph to survive, got %d", len(result.Paragraphs))
	}
}

func TestNormalize_DropsWhitespaceOnlyRuns(t *testing.T) {
	paras := []deck.Paragraph{
		{Runs: []deck.Run{{Text: "Hello"}, {Text: "   "}, {Text: "World"}}},
	}
	out := Normalize(paras)
	if len(out[0].Runs) != 2 {
		t.Fatalf("expected whitespace-only run dropped, got %d runs", len(out[0].Runs))
	}
}
