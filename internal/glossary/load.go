package glossary

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/deckforge/deckforge/internal/apperrors"
	"gopkg.in/yaml.v3"
)

// Format selects the glossary file format to decode (spec §6).
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

type fileSchema struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Load reads entries from r in the given format and compiles them.
// Unknown fields/columns are ignored (spec §4.1, §6); malformed
// records fail with apperrors.KindGlossaryLoad.
func Load(r io.Reader, format Format) (*Glossary, error) {
	entries, err := decode(r, format)
	if err != nil {
		return nil, err
	}
	return FromEntries(entries)
}

func decode(r io.Reader, format Format) ([]Entry, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatYAML:
		return decodeYAML(r)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, apperrors.GlossaryLoad(fmt.Errorf("unknown glossary format %q", format))
	}
}

func decodeJSON(r io.Reader) ([]Entry, error) {
	var schema fileSchema
	dec := json.NewDecoder(r)
	if err := dec.Decode(&schema); err != nil {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("decoding JSON glossary: %w", err))
	}
	return schema.Entries, nil
}

func decodeYAML(r io.Reader) ([]Entry, error) {
	var schema fileSchema
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&schema); err != nil {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("decoding YAML glossary: %w", err))
	}
	return schema.Entries, nil
}

// decodeCSV accepts the column set {source,target,context,case_sensitive,priority,note}
// in any order, identified by header row (spec §6 "CSV variant carrying the same columns").
func decodeCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, apperrors.GlossaryLoad(fmt.Errorf("reading CSV header: %w", err))
	}
	col := make(map[string]int)
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["source"]; !ok {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("CSV glossary missing required column %q", "source"))
	}
	if _, ok := col["target"]; !ok {
		return nil, apperrors.GlossaryLoad(fmt.Errorf("CSV glossary missing required column %q", "target"))
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.GlossaryLoad(fmt.Errorf("reading CSV row: %w", err))
		}
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}
		e := Entry{
			Source:  get("source"),
			Target:  get("target"),
			Context: get("context"),
			Note:    get("note"),
		}
		if cs := get("case_sensitive"); cs != "" {
			e.CaseSensitive, _ = strconv.ParseBool(cs)
		}
		if p := get("priority"); p != "" {
			e.Priority, _ = strconv.Atoi(p)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
