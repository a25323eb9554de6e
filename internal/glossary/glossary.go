// Package glossary implements case/context-aware source→target term
// mapping (spec §4.1): compiled lookup, prompt-fragment rendering for
// translator prompts, phrase pairs for the run aligner, and post-hoc
// compliance verification.
//
// Grounded on original_source/glossary.py's GlossaryEntry/
// TerminologyGlossary shape, loaded the way the teacher's
// internal/names package loads its character-name dictionary.
package glossary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/deckforge/deckforge/internal/apperrors"
)

// Entry is one glossary mapping (spec §3 "Glossary entry").
type Entry struct {
	Source        string `json:"source" yaml:"source"`
	Target        string `json:"target" yaml:"target"`
	Context       string `json:"context,omitempty" yaml:"context,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
	Priority      int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Note          string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Match is one lookup hit, with the byte offsets it occupies in
// the text that was searched.
type Match struct {
	Entry      Entry
	Start, End int // byte offsets in the searched text
}

// VerifyResult is the outcome of checking a translation against glossary hits.
type VerifyResult struct {
	Compliant  bool
	Violations []string
}

// compiledEntry pairs an Entry with its pre-built matcher.
type compiledEntry struct {
	entry Entry
	re    *regexp.Regexp
}

// Glossary is a compiled, read-only-after-load term table (spec §3,
// §9 "Glossary compile step").
type Glossary struct {
	compiled []compiledEntry
}

// New returns an empty, already-compiled glossary.
func New() *Glossary {
	return &Glossary{}
}

// FromEntries compiles a Glossary from raw entries, sorted by
// (priority desc, source length desc) so overlapping source terms
// resolve deterministically (spec §3, §9).
func FromEntries(entries []Entry) (*Glossary, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return len(sorted[i].Source) > len(sorted[j].Source)
	})

	g := &Glossary{compiled: make([]compiledEntry, 0, len(sorted))}
	for _, e := range sorted {
		if strings.TrimSpace(e.Source) == "" || strings.TrimSpace(e.Target) == "" {
			return nil, apperrors.GlossaryLoad(fmt.Errorf("entry with empty source or target"))
		}
		re, err := compileWordBoundary(e.Source, e.CaseSensitive)
		if err != nil {
			return nil, apperrors.GlossaryLoad(fmt.Errorf("compiling entry %q: %w", e.Source, err))
		}
		g.compiled = append(g.compiled, compiledEntry{entry: e, re: re})
	}
	return g, nil
}

func compileWordBoundary(term string, caseSensitive bool) (*regexp.Regexp, error) {
	pattern := `\b` + regexp.QuoteMeta(term) + `\b`
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// LookupMatches returns non-overlapping matches in order of appearance.
// Overlapping candidates are resolved by the compile-time priority/
// length ordering: earlier entries in g.compiled win ties (spec §4.1).
func (g *Glossary) LookupMatches(text, context string) []Match {
	if g == nil || text == "" {
		return nil
	}
	type candidate struct {
		start, end int
		entry      Entry
	}
	var candidates []candidate
	for _, ce := range g.compiled {
		if ce.entry.Context != "" && context != "" && !strings.EqualFold(ce.entry.Context, context) {
			continue
		}
		for _, loc := range ce.re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, candidate{start: loc[0], end: loc[1], entry: ce.entry})
		}
	}
	// candidates are already ordered by priority/length via g.compiled's
	// outer loop order for same start position; select non-overlapping
	// greedily by that priority, then sort the final set by position.
	taken := make([]bool, len(text)+1)
	var selected []Match
	for _, c := range candidates {
		overlap := false
		for i := c.start; i < c.end; i++ {
			if taken[i] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for i := c.start; i < c.end; i++ {
			taken[i] = true
		}
		selected = append(selected, Match{Entry: c.entry, Start: c.start, End: c.end})
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Start < selected[j].Start })
	return selected
}

// PromptFragment renders a compact "use these exact translations" hint
// for every glossary term that appears in text (spec §4.1).
func (g *Glossary) PromptFragment(text, context string) string {
	matches := g.LookupMatches(text, context)
	if len(matches) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	var b strings.Builder
	b.WriteString("Use these exact translations:\n")
	for _, m := range matches {
		key := m.Entry.Source + "\x00" + m.Entry.Target
		if seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(&b, "- %s -> %s\n", m.Entry.Source, m.Entry.Target)
	}
	return b.String()
}

// PhrasePairs returns source→[target] for every entry, feeding the
// aligner's glossary-pair bonus term (spec §4.5.a step 3).
func (g *Glossary) PhrasePairs() map[string][]string {
	out := make(map[string][]string)
	for _, ce := range g.compiled {
		out[ce.entry.Source] = appendUnique(out[ce.entry.Source], ce.entry.Target)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Entries returns the compiled entries in their compile-time order,
// exposed to the host via the "glossary_entries" operation (spec §6).
func (g *Glossary) Entries() []Entry {
	out := make([]Entry, 0, len(g.compiled))
	for _, ce := range g.compiled {
		out = append(out, ce.entry)
	}
	return out
}

// Verify checks, for every source term matched in source, whether
// translated contains the expected target (case-folded per entry) —
// spec §4.1, exercised by invariant 6 in spec §8.
func (g *Glossary) Verify(source, translated string) VerifyResult {
	matches := g.LookupMatches(source, "")
	result := VerifyResult{Compliant: true}
	for _, m := range matches {
		found := false
		if m.Entry.CaseSensitive {
			found = strings.Contains(translated, m.Entry.Target)
		} else {
			found = strings.Contains(strings.ToLower(translated), strings.ToLower(m.Entry.Target))
		}
		if !found {
			result.Compliant = false
			result.Violations = append(result.Violations, fmt.Sprintf("expected %q for source term %q", m.Entry.Target, m.Entry.Source))
		}
	}
	return result
}
