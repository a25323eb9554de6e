package glossary

import "testing"

func TestLookupMatches_PriorityAndLengthOrdering(t *testing.T) {
	g, err := FromEntries([]Entry{
		{Source: "Senate", Target: "Sénat", CaseSensitive: true, Priority: 10},
		{Source: "Senate convened", Target: "Sénat en session", Priority: 1},
	})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	matches := g.LookupMatches("The Senate convened.", "")
	if len(matches) != 1 {
		t.Fatalf("expected 1 non-overlapping match, got %d", len(matches))
	}
	if matches[0].Entry.Target != "Sénat" {
		t.Fatalf("expected higher-priority entry to win, got %q", matches[0].Entry.Target)
	}
}

func TestLookupMatches_CaseSensitivity(t *testing.T) {
	g, err := FromEntries([]Entry{{Source: "Senate", Target: "Sénat", CaseSensitive: true}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	if len(g.LookupMatches("the senate convened", "")) != 0 {
		t.Fatalf("expected no match for case-sensitive entry against lowercase text")
	}

	g2, err := FromEntries([]Entry{{Source: "Senate", Target: "Sénat", CaseSensitive: false}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	if len(g2.LookupMatches("the senate convened", "")) != 1 {
		t.Fatalf("expected case-insensitive match")
	}
}

func TestVerify_CompliantAndViolation(t *testing.T) {
	g, err := FromEntries([]Entry{{Source: "Senate", Target: "Sénat", CaseSensitive: true, Priority: 10}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	result := g.Verify("The Senate convened.", "Le Sénat s'est réuni.")
	if !result.Compliant {
		t.Fatalf("expected compliant, got violations: %v", result.Violations)
	}
	result = g.Verify("The Senate convened.", "Le Parlement s'est réuni.")
	if result.Compliant {
		t.Fatalf("expected non-compliant translation to be flagged")
	}
}

func TestPhrasePairs(t *testing.T) {
	g, err := FromEntries([]Entry{
		{Source: "Senate", Target: "Sénat"},
		{Source: "Senate", Target: "Chambre"},
	})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	pairs := g.PhrasePairs()
	if len(pairs["Senate"]) != 2 {
		t.Fatalf("expected 2 target variants for Senate, got %v", pairs["Senate"])
	}
}

func TestFromEntries_RejectsEmptyTerm(t *testing.T) {
	if _, err := FromEntries([]Entry{{Source: "", Target: "x"}}); err == nil {
		t.Fatalf("expected error for empty source term")
	}
}

func TestPromptFragment(t *testing.T) {
	g, err := FromEntries([]Entry{{Source: "Senate", Target: "Sénat", Priority: 10}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	frag := g.PromptFragment("The Senate convened.", "")
	if frag == "" {
		t.Fatalf("expected non-empty prompt fragment")
	}
	if empty := g.PromptFragment("No relevant terms here.", ""); empty != "" {
		t.Fatalf("expected empty fragment when no terms match, got %q", empty)
	}
}
