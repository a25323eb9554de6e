// Package extractor reads an OOXML slide-deck container (.pptx) into
// the normalized deck.* model.
//
// No library in the retrieval pack handles OOXML containers —
// go-astisub is subtitle-format-specific and cannot be repurposed (see
// DESIGN.md) — so this package is deliberately built on archive/zip
// and encoding/xml, the way the teacher's own internal/srt built a
// format reader directly on encoding/* primitives before reaching for
// a library.
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/logger"
)

// RawContainer retains every zip entry's raw bytes so the writer (C8)
// can copy untouched parts byte-for-byte and only rewrite the slide/
// chart XML parts that carry translated text.
type RawContainer struct {
	Entries map[string][]byte // zip entry name -> raw contents
	Order   []string          // original zip entry order, preserved on write
}

// Extracted is the full yield of one Extract call.
type Extracted struct {
	Paragraphs []deck.Paragraph
	Cells      []deck.TableCell
	Labels     []deck.ChartLabel
	Raw        *RawContainer
}

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
var chartPartRe = regexp.MustCompile(`^ppt/charts/chart(\d+)\.xml$`)

// Extract opens the zip container and parses every slide and chart
// part into deck.* records. A failure to open the zip itself is
// DeckMalformed (fatal, per spec.md §7); a slide or chart part whose
// XML fails to parse is logged and skipped as a whole, so one unreadable
// shape drops every shape of its slide.
func Extract(r io.ReaderAt, size int64) (*Extracted, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.DeckMalformed(fmt.Errorf("opening deck container: %w", err))
	}

	raw := &RawContainer{Entries: make(map[string][]byte, len(zr.File))}
	result := &Extracted{Raw: raw}

	type slideEntry struct {
		index int
		name  string
	}
	var slides []slideEntry
	type chartEntry struct {
		index int
		name  string
	}
	var charts []chartEntry

	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, apperrors.DeckMalformed(fmt.Errorf("reading zip entry %q: %w", f.Name, err))
		}
		raw.Entries[f.Name] = data
		raw.Order = append(raw.Order, f.Name)

		if m := slidePartRe.FindStringSubmatch(f.Name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			slides = append(slides, slideEntry{index: idx, name: f.Name})
		}
		if m := chartPartRe.FindStringSubmatch(f.Name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			charts = append(charts, chartEntry{index: idx, name: f.Name})
		}
	}

	sort.Slice(slides, func(i, j int) bool { return slides[i].index < slides[j].index })
	sort.Slice(charts, func(i, j int) bool { return charts[i].index < charts[j].index })

	for slidePos, s := range slides {
		tree, err := parseShapeTree(raw.Entries[s.name])
		if err != nil {
			logger.Warn("skipping malformed slide part", "part", s.name, "error", err)
			continue
		}
		paras, cells := flattenShapeTree(tree, slidePos)
		result.Paragraphs = append(result.Paragraphs, paras...)
		result.Cells = append(result.Cells, cells...)
	}

	for _, c := range charts {
		labels, err := parseChartLabels(raw.Entries[c.name], c.index)
		if err != nil {
			logger.Warn("skipping malformed chart part", "part", c.name, "error", err)
			continue
		}
		result.Labels = append(result.Labels, labels...)
	}

	return result, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func parseShapeTree(data []byte) (*xmlShapeTree, error) {
	var tree xmlShapeTree
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func flattenShapeTree(tree *xmlShapeTree, slideIndex int) ([]deck.Paragraph, []deck.TableCell) {
	var paras []deck.Paragraph
	var cells []deck.TableCell

	for shapeIdx, sp := range tree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		for paraIdx, xp := range sp.TxBody.Paragraphs {
			id := deck.Identity{SlideIndex: slideIndex, ShapeIndex: shapeIdx, ParaIndex: paraIdx}
			paras = append(paras, convertParagraph(id, xp))
		}
	}

	for shapeIdx, gf := range tree.Graphic {
		if gf.Table == nil {
			continue
		}
		// colAnchors holds, per column, the anchor of the last cell seen
		// in that column, so a vMerge cell points at the cell above it.
		colAnchors := map[int]*deck.Identity{}
		for rowIdx, row := range gf.Table.Rows {
			var rowAnchor *deck.Identity
			for colIdx, cell := range row.Cells {
				id := deck.Identity{SlideIndex: slideIndex, ShapeIndex: shapeIdx, Row: rowIdx, Col: colIdx}
				if cell.VMerge {
					rowAnchor = colAnchors[colIdx]
					cells = append(cells, deck.TableCell{ID: id, AnchorOf: rowAnchor})
					continue
				}
				if cell.HMerge {
					cells = append(cells, deck.TableCell{ID: id, AnchorOf: rowAnchor})
					colAnchors[colIdx] = rowAnchor
					continue
				}
				anchor := id
				rowAnchor = &anchor
				colAnchors[colIdx] = rowAnchor
				var cellParas []deck.Paragraph
				if cell.TxBody != nil {
					for paraIdx, xp := range cell.TxBody.Paragraphs {
						paraID := id
						paraID.ParaIndex = paraIdx
						cellParas = append(cellParas, convertParagraph(paraID, xp))
					}
				}
				cells = append(cells, deck.TableCell{ID: id, Paragraphs: cellParas})
			}
		}
	}

	return paras, cells
}

func convertParagraph(id deck.Identity, xp xmlParagraph) deck.Paragraph {
	p := deck.Paragraph{ID: id}
	if xp.Props != nil {
		p.Alignment = xp.Props.Algn
		p.IndentLvl = xp.Props.Lvl
		p.Bullet = xp.Props.Bullet != nil
	}
	for _, xr := range xp.Runs {
		p.Runs = append(p.Runs, convertRun(xr))
	}
	return p
}

func convertRun(xr xmlRun) deck.Run {
	run := deck.Run{Text: xr.Text}
	if xr.Props == nil {
		return run
	}
	rp := xr.Props
	f := deck.Formatting{}
	if rp.Latin != nil && rp.Latin.Typeface != "" {
		f.FontFamily = &rp.Latin.Typeface
	}
	if rp.Size != nil {
		pts := float64(*rp.Size) / 100.0
		f.FontSize = &pts
	}
	if rp.Bold != nil {
		f.Bold = rp.Bold
	}
	if rp.Italic != nil {
		f.Italic = rp.Italic
	}
	if rp.Underline != "" {
		underlined := rp.Underline != "none"
		f.Underline = &underlined
	}
	if rp.Baseline != nil {
		super := *rp.Baseline > 0
		sub := *rp.Baseline < 0
		f.Superscript = &super
		f.Subscript = &sub
	}
	if rp.SolidFill != nil {
		f.Color = convertColor(rp.SolidFill)
	}
	if rp.Hyperlink != nil {
		url := rp.Hyperlink.RID
		f.HyperlinkURL = &url
	}
	run.Formatting = f
	return run
}

func convertColor(fill *xmlSolidFill) *deck.Color {
	if fill.SRGBClr != nil && fill.SRGBClr.Val != "" {
		rgb := parseHexColor(fill.SRGBClr.Val)
		if rgb == nil {
			return nil
		}
		return &deck.Color{RGB: rgb}
	}
	if fill.SchemeClr != nil && fill.SchemeClr.Val != "" {
		return &deck.Color{Theme: fill.SchemeClr.Val}
	}
	return nil
}

func parseHexColor(hex string) *deck.RGB {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return nil
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil
	}
	return &deck.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

func parseChartLabels(data []byte, chartIndex int) ([]deck.ChartLabel, error) {
	var cs xmlChartSpace
	if err := xml.Unmarshal(data, &cs); err != nil {
		return nil, err
	}

	var labels []deck.ChartLabel
	if cs.Chart.Title != nil && cs.Chart.Title.Tx != nil && cs.Chart.Title.Tx.Rich != nil {
		text := richTextOf(cs.Chart.Title.Tx.Rich)
		if strings.TrimSpace(text) != "" {
			labels = append(labels, deck.ChartLabel{
				ID:         deck.Identity{SlideIndex: chartIndex, LabelKind: string(deck.LabelTitle)},
				Kind:       deck.LabelTitle,
				SourceText: text,
			})
		}
	}

	for seriesIdx, ser := range cs.Chart.PlotArea.Series {
		if ser.Tx != nil && ser.Tx.V != "" {
			labels = append(labels, deck.ChartLabel{
				ID:         deck.Identity{SlideIndex: chartIndex, ShapeIndex: seriesIdx, LabelKind: string(deck.LabelSeriesName)},
				Kind:       deck.LabelSeriesName,
				SourceText: ser.Tx.V,
			})
		}
		if ser.Cat != nil {
			for ptIdx, pt := range ser.Cat.Pt {
				if strings.TrimSpace(pt.V) == "" {
					continue
				}
				labels = append(labels, deck.ChartLabel{
					ID:         deck.Identity{SlideIndex: chartIndex, ShapeIndex: seriesIdx, ParaIndex: ptIdx, LabelKind: string(deck.LabelCategory)},
					Kind:       deck.LabelCategory,
					SourceText: pt.V,
				})
			}
		}
	}

	return labels, nil
}

func richTextOf(tx *xmlTxBody) string {
	var b strings.Builder
	for _, p := range tx.Paragraphs {
		for _, r := range p.Runs {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}
