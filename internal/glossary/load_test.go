package glossary

import (
	"strings"
	"testing"
)

func TestLoad_JSON(t *testing.T) {
	data := `{"entries":[{"source":"Senate","target":"Sénat","case_sensitive":true,"priority":10}]}`
	g, err := Load(strings.NewReader(data), FormatJSON)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(g.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(g.Entries()))
	}
}

func TestLoad_YAML(t *testing.T) {
	data := "entries:\n  - source: Senate\n    target: Sénat\n    priority: 10\n"
	g, err := Load(strings.NewReader(data), FormatYAML)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(g.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(g.Entries()))
	}
}

func TestLoad_CSV(t *testing.T) {
	data := "source,target,priority,case_sensitive\nSenate,Sénat,10,true\n"
	g, err := Load(strings.NewReader(data), FormatCSV)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entries := g.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].CaseSensitive || entries[0].Priority != 10 {
		t.Fatalf("expected parsed priority/case_sensitive, got %+v", entries[0])
	}
}

func TestLoad_CSV_MissingColumn(t *testing.T) {
	data := "source\nSenate\n"
	if _, err := Load(strings.NewReader(data), FormatCSV); err == nil {
		t.Fatalf("expected error for missing target column")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	if _, err := Load(strings.NewReader("{not json"), FormatJSON); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestLoad_UnknownFieldsIgnored(t *testing.T) {
	data := `{"entries":[{"source":"Senate","target":"Sénat","unexpected_field":"x"}]}`
	if _, err := Load(strings.NewReader(data), FormatJSON); err != nil {
		t.Fatalf("expected unknown fields to be ignored, got error: %v", err)
	}
}
