// Package deck defines the normalized in-memory representation of a
// slide-deck document: paragraphs, table cells, chart labels, and the
// per-character formatting records the alignment pipeline redistributes.
package deck

import "github.com/deckforge/deckforge/internal/apperrors"

// RGB is an explicit color value captured verbatim from the source run.
type RGB struct {
	R, G, B uint8
}

// Color represents either an explicit RGB value or a theme color token.
// A Color with Theme set and RGB nil is a "theme-background" sentinel:
// the aligner treats it as inherited formatting, never as a distinguishing
// attribute (spec §4.5, §9 "Whitespace and theme-background handling").
type Color struct {
	RGB   *RGB
	Theme string
}

// IsThemeBackground reports whether c represents an inherited theme
// background color rather than an explicit, visually distinguishing color.
func (c *Color) IsThemeBackground() bool {
	if c == nil {
		return true
	}
	return c.RGB == nil && c.Theme != ""
}

// Equal reports whether two colors describe the same value, treating
// theme-background sentinels as equal to any other theme-background
// sentinel regardless of token.
func (c *Color) Equal(o *Color) bool {
	if c == nil || o == nil {
		return c == nil && o == nil
	}
	if c.IsThemeBackground() && o.IsThemeBackground() {
		return true
	}
	if c.RGB != nil && o.RGB != nil {
		return *c.RGB == *o.RGB
	}
	return c.RGB == nil && o.RGB == nil && c.Theme == o.Theme
}

// Formatting captures a run's style attributes. A nil field means
// "inherit from paragraph/shape/theme" — the extractor's sentinel for
// attributes it could not resolve to an explicit value (spec §4.3).
type Formatting struct {
	FontFamily   *string
	FontSize     *float64
	Bold         *bool
	Italic       *bool
	Underline    *bool
	Superscript  *bool
	Subscript    *bool
	Color        *Color
	HyperlinkURL *string
}

// HasHyperlink reports whether the formatting carries a hyperlink target.
func (f Formatting) HasHyperlink() bool {
	return f.HyperlinkURL != nil && *f.HyperlinkURL != ""
}

// DiffersFrom reports whether f differs from base in any of the
// attributes spec §4.5.b lists as span-detection criteria: bold,
// italic, underline, color (excluding theme background), size, or
// font. A hyperlink on f always counts as a difference, whatever base
// carries; a hyperlink on base alone does not.
func (f Formatting) DiffersFrom(base Formatting) bool {
	if boolDiffers(f.Bold, base.Bold) || boolDiffers(f.Italic, base.Italic) || boolDiffers(f.Underline, base.Underline) {
		return true
	}
	if f.HasHyperlink() {
		return true
	}
	if !floatPtrEqual(f.FontSize, base.FontSize) {
		return true
	}
	if !strPtrEqual(f.FontFamily, base.FontFamily) {
		return true
	}
	if !colorsEqualIgnoringTheme(f.Color, base.Color) {
		return true
	}
	return false
}

func colorsEqualIgnoringTheme(a, b *Color) bool {
	aSpecial := a != nil && !a.IsThemeBackground()
	bSpecial := b != nil && !b.IsThemeBackground()
	if !aSpecial && !bSpecial {
		return true
	}
	return a.Equal(b)
}

func boolDiffers(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av != bv
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Run is the smallest unit of styled text inside a paragraph.
type Run struct {
	Text       string
	Formatting Formatting
}

// IsWhitespaceOnly reports whether the run's text contains no
// non-whitespace characters. Whitespace-only runs are excluded from
// formatted-span detection (spec §4.5.a step 1, §4.5.b step 2, §9).
func (r Run) IsWhitespaceOnly() bool {
	for _, c := range r.Text {
		switch c {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			return false
		}
	}
	return true
}

// Identity routes a record back to its location in the source container
// during merge (spec §3 "Carries a stable identity").
type Identity struct {
	SlideIndex int
	ShapeIndex int
	ParaIndex  int
	Row        int // table cells only; 0 otherwise
	Col        int // table cells only; 0 otherwise
	LabelKind  string
}

// RecordFailure attaches a record-level translation/alignment failure
// without failing the enclosing job (spec §7 propagation policy).
type RecordFailure struct {
	Kind    apperrors.Kind
	Message string
}

// Paragraph is an ordered list of runs plus paragraph-level attributes.
type Paragraph struct {
	ID         Identity
	Runs       []Run
	Alignment  string
	IndentLvl  int
	Bullet     bool
	TargetText string
	AlignedRuns []Run
	Failure    *RecordFailure
}

// SourceText returns the concatenation of the paragraph's run texts.
// Source runs are a contiguous partition of this string (spec §3
// invariant).
func (p *Paragraph) SourceText() string {
	var total int
	for _, r := range p.Runs {
		total += len(r.Text)
	}
	buf := make([]byte, 0, total)
	for _, r := range p.Runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// BaseFormat returns the most common (font family, size) pair across
// the paragraph's non-whitespace runs — the "paragraph base format"
// used for gap-fill and empty-target cases (spec §4.5.b step 1).
func (p *Paragraph) BaseFormat() Formatting {
	type key struct {
		family string
		size   float64
	}
	counts := make(map[key]int)
	first := make(map[key]Formatting)
	order := make(map[key]int)
	n := 0
	for _, r := range p.Runs {
		if r.IsWhitespaceOnly() {
			continue
		}
		k := key{}
		if r.Formatting.FontFamily != nil {
			k.family = *r.Formatting.FontFamily
		}
		if r.Formatting.FontSize != nil {
			k.size = *r.Formatting.FontSize
		}
		if _, ok := first[k]; !ok {
			first[k] = r.Formatting
			order[k] = n
			n++
		}
		counts[k]++
	}
	var best key
	bestCount := -1
	bestOrder := -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && order[k] < bestOrder) {
			best = k
			bestCount = c
			bestOrder = order[k]
		}
	}
	if bestCount < 0 {
		return Formatting{}
	}
	return first[best]
}

// TableCell is a list of paragraphs inheriting slide/shape/row/column identity.
type TableCell struct {
	ID         Identity
	Paragraphs []Paragraph
	// AnchorOf points at the anchor cell's identity when this cell is
	// merged into another; nil for anchor and non-merged cells.
	AnchorOf *Identity
}

// ChartLabelKind enumerates the single-style label categories spec §3 lists.
type ChartLabelKind string

const (
	LabelTitle       ChartLabelKind = "title"
	LabelAxisTitle   ChartLabelKind = "axis_title"
	LabelLegendEntry ChartLabelKind = "legend_entry"
	LabelCategory    ChartLabelKind = "category_label"
	LabelSeriesName  ChartLabelKind = "series_name"
)

// ChartLabel is one string carrying no per-character formatting.
type ChartLabel struct {
	ID         Identity
	Kind       ChartLabelKind
	SourceText string
	TargetText string
	Failure    *RecordFailure
}
