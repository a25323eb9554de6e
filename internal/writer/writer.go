// Package writer merges translated/aligned deck.* records back into
// the original OOXML container (spec.md §4.8).
//
// Ported from original_source/update_pptx.py's per-record update
// shape and the teacher's AtomicWrite-based save path (srt.Save ->
// files.AtomicWrite): re-open the original zip as extractor.RawContainer,
// rewrite only the slide/chart XML parts a translated record touched,
// copy every other entry byte-for-byte, and write the result via
// files.AtomicWrite so a crash mid-write never corrupts the original.
package writer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/extractor"
	"github.com/deckforge/deckforge/internal/files"
)

// slidePartPositions maps each slide part's zip entry name to its
// 0-based position among slide parts sorted by filename number,
// matching extractor.Extract's slidePos.
func slidePartPositions(order []string) map[string]int {
	type entry struct {
		num  int
		name string
	}
	var entries []entry
	for _, name := range order {
		if m := slidePartRe.FindStringSubmatch(name); m != nil {
			num, _ := strconv.Atoi(m[1])
			entries = append(entries, entry{num: num, name: name})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].num < entries[j].num })
	out := make(map[string]int, len(entries))
	for pos, e := range entries {
		out[e.name] = pos
	}
	return out
}

// chartPartIndices maps each chart part's zip entry name to the
// literal number in its filename, matching extractor.Extract's
// c.index (unlike slides, charts are not renumbered by sort position).
func chartPartIndices(order []string) map[string]int {
	out := map[string]int{}
	for _, name := range order {
		if m := chartPartRe.FindStringSubmatch(name); m != nil {
			num, _ := strconv.Atoi(m[1])
			out[name] = num
		}
	}
	return out
}

// Input bundles everything the writer needs to produce the translated container.
type Input struct {
	Raw        *extractor.RawContainer
	Paragraphs []deck.Paragraph
	Cells      []deck.TableCell
	Labels     []deck.ChartLabel
}

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
var chartPartRe = regexp.MustCompile(`^ppt/charts/chart(\d+)\.xml$`)

// Build renders the translated container as zip bytes, ready for
// files.AtomicWrite. Parts that carry no touched records are copied
// from Raw byte-for-byte.
func Build(in Input) ([]byte, error) {
	if in.Raw == nil {
		return nil, apperrors.WriterIO(fmt.Errorf("nil raw container"))
	}

	parasBySlide := map[int][]deck.Paragraph{}
	for _, p := range in.Paragraphs {
		parasBySlide[p.ID.SlideIndex] = append(parasBySlide[p.ID.SlideIndex], p)
	}
	cellsBySlide := map[int][]deck.TableCell{}
	for _, c := range in.Cells {
		cellsBySlide[c.ID.SlideIndex] = append(cellsBySlide[c.ID.SlideIndex], c)
	}
	labelsByChart := map[int][]deck.ChartLabel{}
	for _, l := range in.Labels {
		labelsByChart[l.ID.SlideIndex] = append(labelsByChart[l.ID.SlideIndex], l)
	}

	// extractor.Extract numbers slides by their position among sorted
	// slide parts (slidePos), but numbers charts by the literal number
	// in the chart's filename (c.index) — mirror both exactly so the
	// lookups above land on the part deck.Identity actually points at.
	slidePositions := slidePartPositions(in.Raw.Order)
	chartPositions := chartPartIndices(in.Raw.Order)

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for _, name := range in.Raw.Order {
		data := in.Raw.Entries[name]

		if pos, isSlide := slidePositions[name]; isSlide {
			paras, hasParas := parasBySlide[pos]
			cells, hasCells := cellsBySlide[pos]
			if hasParas || hasCells {
				rewritten, err := rewriteSlide(data, paras, cells)
				if err != nil {
					return nil, apperrors.WriterIO(fmt.Errorf("rewriting slide %q: %w", name, err))
				}
				data = rewritten
			}
		} else if pos, isChart := chartPositions[name]; isChart {
			if labels, ok := labelsByChart[pos]; ok {
				rewritten, err := rewriteChart(data, labels)
				if err != nil {
					return nil, apperrors.WriterIO(fmt.Errorf("rewriting chart %q: %w", name, err))
				}
				data = rewritten
			}
		}

		w, err := zw.Create(name)
		if err != nil {
			return nil, apperrors.WriterIO(fmt.Errorf("creating zip entry %q: %w", name, err))
		}
		if _, err := w.Write(data); err != nil {
			return nil, apperrors.WriterIO(fmt.Errorf("writing zip entry %q: %w", name, err))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.WriterIO(fmt.Errorf("closing deck container: %w", err))
	}
	return buf.Bytes(), nil
}

// WriteFile renders the container and writes it atomically to path.
func WriteFile(path string, in Input) error {
	data, err := Build(in)
	if err != nil {
		return err
	}
	if err := files.AtomicWrite(path, data, 0o644); err != nil {
		return apperrors.WriterIO(fmt.Errorf("writing deck container: %w", err))
	}
	return nil
}

// rewriteSlide replaces each touched paragraph's/cell's <a:r> runs
// with the aligner's output (or source runs, if alignment never ran),
// leaving untouched shapes and every XML attribute the extractor
// didn't understand exactly as it was.
func rewriteSlide(raw []byte, paras []deck.Paragraph, cells []deck.TableCell) ([]byte, error) {
	doc, err := parseGenericXML(raw)
	if err != nil {
		return nil, err
	}

	byParaIdentity := indexParagraphs(paras)
	byCellIdentity := indexCells(cells)

	// spTree holds shapes/graphicFrames as direct children only — the
	// same "cSld>spTree>sp" path the extractor's xmlShapeTree tags use,
	// so shape/graphicFrame indices line up exactly with deck.Identity.
	spTree := childPath(doc.root, "cSld", "spTree")
	if spTree == nil {
		return renderXML(doc)
	}

	shapeIdx := 0
	walkElements(spTree, "sp", func(sp *xmlNode) {
		txBody := findChild(sp, "txBody")
		if txBody == nil {
			shapeIdx++
			return
		}
		paraIdx := 0
		walkElements(txBody, "p", func(p *xmlNode) {
			id := deck.Identity{ShapeIndex: shapeIdx, ParaIndex: paraIdx}
			if rec, ok := byParaIdentity[id]; ok {
				replaceRuns(p, rec)
			}
			paraIdx++
		})
		shapeIdx++
	})

	graphicIdx := 0
	walkElements(spTree, "graphicFrame", func(gf *xmlNode) {
		tbl := findNestedTable(gf)
		if tbl == nil {
			graphicIdx++
			return
		}
		rowIdx := 0
		walkElements(tbl, "tr", func(tr *xmlNode) {
			colIdx := 0
			walkElements(tr, "tc", func(tc *xmlNode) {
				id := deck.Identity{ShapeIndex: graphicIdx, Row: rowIdx, Col: colIdx}
				if cell, ok := byCellIdentity[id]; ok {
					txBody := findChild(tc, "txBody")
					if txBody != nil {
						applyCellParagraphs(txBody, cell)
					}
				}
				colIdx++
			})
			rowIdx++
		})
		graphicIdx++
	})

	return renderXML(doc)
}

func indexParagraphs(paras []deck.Paragraph) map[deck.Identity]deck.Paragraph {
	out := make(map[deck.Identity]deck.Paragraph, len(paras))
	for _, p := range paras {
		key := p.ID
		key.SlideIndex = 0
		out[key] = p
	}
	return out
}

func indexCells(cells []deck.TableCell) map[deck.Identity]deck.TableCell {
	out := make(map[deck.Identity]deck.TableCell, len(cells))
	for _, c := range cells {
		key := c.ID
		key.SlideIndex = 0
		out[key] = c
	}
	return out
}

func applyCellParagraphs(txBody *xmlNode, cell deck.TableCell) {
	paraIdx := 0
	walkElements(txBody, "p", func(p *xmlNode) {
		if paraIdx < len(cell.Paragraphs) {
			replaceRuns(p, cell.Paragraphs[paraIdx])
		}
		paraIdx++
	})
}

// replaceRuns drops every existing <a:r> child of p and appends one
// per aligned run (or per source run, if this record was never
// aligned — e.g. it failed translation and passed through untouched).
func replaceRuns(p *xmlNode, rec deck.Paragraph) {
	runs := rec.AlignedRuns
	if runs == nil {
		runs = rec.Runs
	}
	p.children = filterOutRuns(p.children)
	for _, r := range runs {
		p.children = append(p.children, buildRunNode(r))
	}
}

func filterOutRuns(children []*xmlNode) []*xmlNode {
	out := make([]*xmlNode, 0, len(children))
	for _, c := range children {
		if c.name == "r" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// drawingMLNS is the "a:" prefix every run/text/fill node the writer
// synthesizes is given, matching the prefix the fixture decks in this
// module (and real OOXML decks) declare for the drawingml namespace.
const drawingMLNS = "a"

func buildRunNode(r deck.Run) *xmlNode {
	run := &xmlNode{name: "r", ns: drawingMLNS}
	run.children = append(run.children, buildRunPropsNode(r.Formatting))
	run.children = append(run.children, &xmlNode{name: "t", ns: drawingMLNS, text: r.Text})
	return run
}

func buildRunPropsNode(f deck.Formatting) *xmlNode {
	rPr := &xmlNode{name: "rPr", ns: drawingMLNS}
	if f.Bold != nil {
		rPr.attrs = append(rPr.attrs, xmlAttr{name: "b", value: boolStr(*f.Bold)})
	}
	if f.Italic != nil {
		rPr.attrs = append(rPr.attrs, xmlAttr{name: "i", value: boolStr(*f.Italic)})
	}
	if f.Underline != nil {
		val := "none"
		if *f.Underline {
			val = "sng"
		}
		rPr.attrs = append(rPr.attrs, xmlAttr{name: "u", value: val})
	}
	if f.FontSize != nil {
		rPr.attrs = append(rPr.attrs, xmlAttr{name: "sz", value: strconv.Itoa(int(*f.FontSize * 100))})
	}
	if f.FontFamily != nil {
		rPr.children = append(rPr.children, &xmlNode{name: "latin", ns: drawingMLNS, attrs: []xmlAttr{{name: "typeface", value: *f.FontFamily}}})
	}
	if f.Color != nil {
		rPr.children = append(rPr.children, buildSolidFillNode(f.Color))
	}
	// Missing attrs are never written: absent XML attribute is the
	// "inherit" sentinel (spec.md §4.3), matching what the extractor read.
	return rPr
}

func buildSolidFillNode(c *deck.Color) *xmlNode {
	fill := &xmlNode{name: "solidFill", ns: drawingMLNS}
	if c.RGB != nil {
		hex := fmt.Sprintf("%02X%02X%02X", c.RGB.R, c.RGB.G, c.RGB.B)
		fill.children = append(fill.children, &xmlNode{name: "srgbClr", ns: drawingMLNS, attrs: []xmlAttr{{name: "val", value: hex}}})
		return fill
	}
	fill.children = append(fill.children, &xmlNode{name: "schemeClr", ns: drawingMLNS, attrs: []xmlAttr{{name: "val", value: c.Theme}}})
	return fill
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func rewriteChart(raw []byte, labels []deck.ChartLabel) ([]byte, error) {
	doc, err := parseGenericXML(raw)
	if err != nil {
		return nil, err
	}
	byKind := map[string][]deck.ChartLabel{}
	for _, l := range labels {
		byKind[string(l.Kind)] = append(byKind[string(l.Kind)], l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].ID.ParaIndex < labels[j].ID.ParaIndex })

	// Chart XML nests <c:title> and <c:ser>/<c:cat> at depths that vary
	// by chart type (bar vs. pie vs. combo), the same reason
	// xmlPlotArea needed a custom UnmarshalXML instead of a path tag —
	// so these are found by descendant search rather than a fixed path.
	titleQueue := byKind[string(deck.LabelTitle)]
	for _, title := range collectAll(doc.root, "title") {
		if len(titleQueue) == 0 {
			break
		}
		replaceRichText(title, titleQueue[0].TargetText)
		titleQueue = titleQueue[1:]
	}

	catQueue := byKind[string(deck.LabelCategory)]
	for _, cat := range collectAll(doc.root, "cat") {
		for _, pt := range collectAll(cat, "pt") {
			if len(catQueue) == 0 {
				break
			}
			setChildText(pt, "v", catQueue[0].TargetText)
			catQueue = catQueue[1:]
		}
	}

	seriesNames := map[int]string{}
	for _, l := range byKind[string(deck.LabelSeriesName)] {
		seriesNames[l.ID.ShapeIndex] = l.TargetText
	}
	for serIdx, ser := range collectAll(doc.root, "ser") {
		name, ok := seriesNames[serIdx]
		tx := findChild(ser, "tx")
		if !ok || tx == nil {
			continue
		}
		if v := findDescendant(tx, "v"); v != nil {
			v.text = name
		}
	}

	return renderXML(doc)
}

func replaceRichText(title *xmlNode, text string) {
	rich := findDescendant(title, "rich")
	if rich == nil {
		return
	}
	walkElements(rich, "p", func(p *xmlNode) {
		p.children = filterOutRuns(p.children)
		p.children = append(p.children, buildRunNode(deck.Run{Text: text}))
	})
}

func setChildText(parent *xmlNode, name, text string) {
	child := findChild(parent, name)
	if child == nil {
		child = &xmlNode{name: name}
		parent.children = append(parent.children, child)
	}
	child.text = text
	child.children = nil
}

func findNestedTable(gf *xmlNode) *xmlNode {
	return findDescendant(gf, "tbl")
}

// --- minimal attribute-preserving XML tree, since encoding/xml's
// struct-based decoding discards attributes it doesn't model and
// would silently drop anything the extractor's read-side types don't
// name. The writer instead walks a generic node tree so every
// existing attribute survives untouched unless this file explicitly
// rewrites it. ---

type xmlAttr struct {
	name, value string
	ns          string
}

type xmlNode struct {
	name     string
	ns       string
	attrs    []xmlAttr
	children []*xmlNode
	text     string
}

type genericDoc struct {
	root *xmlNode
}

// parseGenericXML uses RawToken rather than Token: RawToken leaves
// namespace prefixes (e.g. "p", "a") exactly as written instead of
// resolving them to URIs, which is what lets writeNode reproduce the
// same "p:sld", "a:r" tags OOXML expects on the way back out.
func parseGenericXML(data []byte) (*genericDoc, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*xmlNode
	var root *xmlNode
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local, ns: t.Name.Space}
			for _, a := range t.Attr {
				n.attrs = append(n.attrs, xmlAttr{name: a.Name.Local, ns: a.Name.Space, value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}
	return &genericDoc{root: root}, nil
}

func renderXML(doc *genericDoc) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	writeNode(buf, doc.root)
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *xmlNode) {
	tag := qualifiedName(n.ns, n.name)
	buf.WriteByte('<')
	buf.WriteString(tag)
	for _, a := range n.attrs {
		fmt.Fprintf(buf, ` %s="%s"`, qualifiedName(a.ns, a.name), escapeAttr(a.value))
	}
	if len(n.children) == 0 && n.text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if n.text != "" {
		_ = xml.EscapeText(buf, []byte(n.text))
	}
	for _, c := range n.children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
}

func qualifiedName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + ":" + name
}

func escapeAttr(s string) string {
	buf := &bytes.Buffer{}
	_ = xml.EscapeText(buf, []byte(s))
	return strings.ReplaceAll(buf.String(), "\n", "&#xA;")
}

func findChild(n *xmlNode, name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childPath walks a fixed chain of direct-child tag names, mirroring
// an encoding/xml ">"-joined path tag (e.g. "cSld>spTree").
func childPath(n *xmlNode, names ...string) *xmlNode {
	cur := n
	for _, name := range names {
		cur = findChild(cur, name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// collectAll gathers every descendant named name, at any depth,
// stopping recursion inside a match (chart XML never nests <c:title>
// inside another <c:title>, so this is safe for the tags it's used on).
func collectAll(n *xmlNode, name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
			continue
		}
		out = append(out, collectAll(c, name)...)
	}
	return out
}

func findDescendant(n *xmlNode, name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if found := findDescendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

func walkElements(n *xmlNode, name string, fn func(*xmlNode)) {
	for _, c := range n.children {
		if c.name == name {
			fn(c)
		}
	}
}
