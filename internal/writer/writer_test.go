package writer

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/extractor"
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

const fixtureSlideXML = `<?xml version="1.0"?>
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

func extractFixture(t *testing.T, slides map[string]string) *extractor.Extracted {
	t.Helper()
	r := buildFixtureZip(t, slides)
	result, err := extractor.Extract(r, r.Size())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return result
}

func TestBuild_RewritesTouchedParagraphAndCopiesOtherEntries(t *testing.T) {
	extracted := extractFixture(t, map[string]string{
		"ppt/slides/slide1.xml": fixtureSlideXML,
		"ppt/presentation.xml":  `<p:presentation/>`,
	})

	para := extracted.Paragraphs[0]
	para.TargetText = "Bonjour Monde"
	para.AlignedRuns = []deck.Run{
		{Text: "Bonjour ", Formatting: para.Runs[0].Formatting},
		{Text: "Monde", Formatting: para.Runs[1].Formatting},
	}

	out, err := Build(Input{Raw: extracted.Raw, Paragraphs: []deck.Paragraph{para}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}

	var slideData, presData []byte
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data := readAll(t, rc)
		rc.Close()
		switch f.Name {
		case "ppt/slides/slide1.xml":
			slideData = data
		case "ppt/presentation.xml":
			presData = data
		}
	}

	if string(presData) != `<p:presentation/>` {
		t.Fatalf("untouched entry was modified, got %q", presData)
	}
	if !bytes.Contains(slideData, []byte("Bonjour ")) || !bytes.Contains(slideData, []byte("Monde")) {
		t.Fatalf("expected translated text in rewritten slide, got %s", slideData)
	}
	if bytes.Contains(slideData, []byte("Hello")) {
		t.Fatalf("expected source text replaced, still found it in %s", slideData)
	}
	if !bytes.Contains(slideData, []byte(`typeface="Calibri"`)) {
		t.Fatalf("expected formatting preserved in rewritten run, got %s", slideData)
	}
}

func TestBuild_UntouchedSlideCopiedByteForByte(t *testing.T) {
	extracted := extractFixture(t, map[string]string{
		"ppt/slides/slide1.xml": fixtureSlideXML,
	})

	out, err := Build(Input{Raw: extracted.Raw})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "ppt/slides/slide1.xml" {
			continue
		}
		rc, _ := f.Open()
		data := readAll(t, rc)
		rc.Close()
		if string(data) != fixtureSlideXML {
			t.Fatalf("expected byte-identical passthrough, got %s", data)
		}
	}
}

func TestBuild_NilRawContainerIsWriterIO(t *testing.T) {
	if _, err := Build(Input{}); err == nil {
		t.Fatalf("expected error for nil raw container")
	}
}

func readAll(t *testing.T, r interface{ Read([]byte) (int, error) }) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			break
		}
	}
	return buf.Bytes()
}
