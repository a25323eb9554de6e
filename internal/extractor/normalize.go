package extractor

import "github.com/deckforge/deckforge/internal/deck"

// Normalize returns a copy of paragraphs with whitespace-only runs
// dropped (spec.md §4.3). The writer rebuilds every <a:r> of a touched
// paragraph from that record's runs, so a run dropped here does not
// reappear in the output document for a paragraph that is written back.
func Normalize(paragraphs []deck.Paragraph) []deck.Paragraph {
	out := make([]deck.Paragraph, len(paragraphs))
	for i, p := range paragraphs {
		np := p
		np.Runs = make([]deck.Run, 0, len(p.Runs))
		for _, r := range p.Runs {
			if r.IsWhitespaceOnly() {
				continue
			}
			np.Runs = append(np.Runs, r)
		}
		out[i] = np
	}
	return out
}
