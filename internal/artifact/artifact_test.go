package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deckforge/deckforge/internal/deck"
)

func TestWriteReadAll_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	records := []Record{
		FromParagraph("translate paragraphs", deck.Paragraph{
			ID:         deck.Identity{SlideIndex: 0, ShapeIndex: 1, ParaIndex: 2},
			Runs:       []deck.Run{{Text: "Hello"}},
			TargetText: "Bonjour",
		}),
		FromChartLabel("translate charts", deck.ChartLabel{
			ID:         deck.Identity{SlideIndex: 1, LabelKind: "title"},
			SourceText: "Revenue",
			TargetText: "Revenus",
		}),
	}

	if err := Write(dir, "job-1", "translate paragraphs", records); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := ReadAll(dir, "job-1", "translate paragraphs")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Target != "Bonjour" || got[1].Target != "Revenus" {
		t.Fatalf("unexpected round-tripped records: %+v", got)
	}
}

func TestReadAll_DiscardsTrailingPartialLine(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "job-2", "align paragraphs")
	good := `{"kind":"paragraph","stage":"align paragraphs","identity":{"SlideIndex":0,"ShapeIndex":0,"ParaIndex":0,"Row":0,"Col":0,"LabelKind":""},"target":"Bonjour"}`
	truncated := `{"kind":"paragraph","stage":"align paragraphs","ident`
	if err := os.WriteFile(path, []byte(good+"\n"+truncated), 0o644); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}

	got, err := ReadAll(dir, "job-2", "align paragraphs")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the truncated trailing line discarded, got %d records", len(got))
	}
	if got[0].Target != "Bonjour" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
}

func TestPath_IncludesJobIDAndStage(t *testing.T) {
	got := Path("/tmp/artifacts", "job-xyz", "merge")
	want := filepath.Join("/tmp/artifacts", "job-xyz_merge.jsonl")
	if got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}
