// Package semantic implements the embedding-based run aligner
// (spec.md §4.5.a): n-gram candidate generation over both source and
// target text, multilingual embedding via the job's shared
// backend.Embedder, weighted scoring, greedy non-overlapping
// matching, formatting projection, and gap-fill/coalesce via
// internal/align/common.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rivo/uniseg"

	"github.com/deckforge/deckforge/internal/align/common"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/glossary"
)

// Weights are the default scoring weights from spec.md §4.5.a step 3:
// cosine similarity, glossary-pair bonus, length-ratio similarity,
// character overlap, in that order.
const (
	weightCosine   = 0.30
	weightGlossary = 0.40
	weightLength   = 0.15
	weightOverlap  = 0.15

	defaultMaxNGram  = 4
	defaultThreshold = 0.3
)

// Config tunes one Align call.
type Config struct {
	MaxNGram  int
	Threshold float64
}

func (c Config) withDefaults() Config {
	if c.MaxNGram <= 0 {
		c.MaxNGram = defaultMaxNGram
	}
	if c.Threshold <= 0 {
		c.Threshold = defaultThreshold
	}
	return c
}

// Aligner implements common.Aligner using a shared embedding backend.
type Aligner struct {
	embedder backend.Embedder
	glossary *glossary.Glossary
	cfg      Config
}

var _ common.Aligner = (*Aligner)(nil)

// New builds a semantic Aligner. gl may be nil (disables the
// glossary-pair scoring term, which then always contributes 0).
func New(embedder backend.Embedder, gl *glossary.Glossary, cfg Config) *Aligner {
	return &Aligner{embedder: embedder, glossary: gl, cfg: cfg.withDefaults()}
}

type candidate struct {
	start, end int // byte offsets
	text       string
}

// Align partitions target into runs whose formatting derives from the
// source runs best corresponding to each target span.
func (a *Aligner) Align(ctx context.Context, source string, runs []deck.Run, target string) ([]deck.Run, error) {
	baseParagraph := deck.Paragraph{Runs: runs}
	base := baseParagraph.BaseFormat()

	if target == "" {
		return []deck.Run{{Text: source, Formatting: base}}, nil
	}
	if source == "" {
		return []deck.Run{{Text: target, Formatting: base}}, nil
	}

	srcCands := ngrams(source, a.cfg.MaxNGram)
	tgtCands := ngrams(target, a.cfg.MaxNGram)

	vectors, err := a.embedAll(ctx, srcCands, tgtCands)
	if err != nil {
		return nil, err
	}

	phrasePairs := map[string][]string{}
	if a.glossary != nil {
		phrasePairs = a.glossary.PhrasePairs()
	}

	type scoredPair struct {
		src, tgt candidate
		score    float64
	}
	var pairs []scoredPair
	for _, sc := range srcCands {
		for _, tc := range tgtCands {
			score := a.score(sc, tc, vectors, phrasePairs)
			if score >= a.cfg.Threshold {
				pairs = append(pairs, scoredPair{src: sc, tgt: tc, score: score})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	srcTaken := make([]bool, len(source)+1)
	tgtTaken := make([]bool, len(target)+1)
	overlaps := func(taken []bool, start, end int) bool {
		for i := start; i < end; i++ {
			if taken[i] {
				return true
			}
		}
		return false
	}
	mark := func(taken []bool, start, end int) {
		for i := start; i < end; i++ {
			taken[i] = true
		}
	}

	var spans []common.Span
	for _, p := range pairs {
		if overlaps(srcTaken, p.src.start, p.src.end) || overlaps(tgtTaken, p.tgt.start, p.tgt.end) {
			continue
		}
		mark(srcTaken, p.src.start, p.src.end)
		mark(tgtTaken, p.tgt.start, p.tgt.end)
		spans = append(spans, common.Span{
			Start:      p.tgt.start,
			End:        p.tgt.end,
			Formatting: projectFormatting(runs, p.src.start, p.src.end),
		})
	}

	out, _ := common.ProjectAndFill(target, base, spans)
	return out, nil
}

func (a *Aligner) embedAll(ctx context.Context, a1, a2 []candidate) (map[string][]float32, error) {
	seen := map[string]bool{}
	var texts []string
	for _, c := range append(append([]candidate{}, a1...), a2...) {
		if !seen[c.text] {
			seen[c.text] = true
			texts = append(texts, c.text)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding alignment candidates: %w", err)
	}
	out := make(map[string][]float32, len(texts))
	for i, t := range texts {
		if i < len(vecs) {
			out[t] = vecs[i]
		}
	}
	return out, nil
}

func (a *Aligner) score(sc, tc candidate, vectors map[string][]float32, phrasePairs map[string][]string) float64 {
	cos := cosineSimilarity(vectors[sc.text], vectors[tc.text])
	glossaryBonus := 0.0
	for _, target := range phrasePairs[sc.text] {
		if target == tc.text {
			glossaryBonus = 1.0
			break
		}
	}
	lengthSim := lengthRatioSimilarity(sc.text, tc.text)
	overlap := characterOverlap(sc.text, tc.text)
	return weightCosine*cos + weightGlossary*glossaryBonus + weightLength*lengthSim + weightOverlap*overlap
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func lengthRatioSimilarity(s, t string) float64 {
	ls, lt := uniseg.GraphemeClusterCount(s), uniseg.GraphemeClusterCount(t)
	if ls == 0 || lt == 0 {
		return 0
	}
	longer, shorter := float64(ls), float64(lt)
	if shorter > longer {
		longer, shorter = shorter, longer
	}
	return shorter / longer
}

// characterOverlap is a Jaccard index over the rune sets of the two
// candidates, a cheap cross-lingual stand-in for shared vocabulary
// (e.g. shared digits, punctuation, proper nouns) that the embedding
// score alone can under-weight for very short candidates.
func characterOverlap(s, t string) float64 {
	setOf := func(str string) map[rune]bool {
		m := make(map[rune]bool)
		for _, r := range str {
			m[r] = true
		}
		return m
	}
	a, b := setOf(s), setOf(t)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for r := range a {
		if b[r] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ngrams produces all grapheme-cluster n-grams of length 1..maxN from
// text, grapheme-aware via uniseg so multi-byte clusters (combining
// marks, emoji) are never split mid-cluster.
func ngrams(text string, maxN int) []candidate {
	var boundaries []int
	boundaries = append(boundaries, 0)
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		_, to := gr.Positions()
		boundaries = append(boundaries, to)
	}

	var out []candidate
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n < len(boundaries); i++ {
			start, end := boundaries[i], boundaries[i+n]
			out = append(out, candidate{start: start, end: end, text: text[start:end]})
		}
	}
	return out
}

// projectFormatting assigns the formatting of the source run covering
// the majority of [start,end), tie-broken by earliest run index
// (spec.md §4.5.a step 5).
func projectFormatting(runs []deck.Run, start, end int) deck.Formatting {
	pos := 0
	bestIdx := -1
	bestOverlap := -1
	for i, r := range runs {
		runStart, runEnd := pos, pos+len(r.Text)
		pos = runEnd
		overlapStart, overlapEnd := max(start, runStart), min(end, runEnd)
		overlap := overlapEnd - overlapStart
		if overlap > bestOverlap {
			bestOverlap = overlap
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return deck.Formatting{}
	}
	return runs[bestIdx].Formatting
}
