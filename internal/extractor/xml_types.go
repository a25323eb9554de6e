package extractor

import (
	"encoding/xml"
	"io"
)

// The OOXML element names we care about, DrawingML/PresentationML
// namespaces included so zero-value Go structs round-trip attributes
// that carry no semantic meaning for translation (spec.md §4.3).

// xmlShapeTree models the slide root <p:sld>; field tags walk the
// fixed cSld>spTree nesting directly since encoding/xml.Decode does
// not match on the outer element's own tag name.
type xmlShapeTree struct {
	Shapes  []xmlShape        `xml:"cSld>spTree>sp"`
	Graphic []xmlGraphicFrame `xml:"cSld>spTree>graphicFrame"`
}

type xmlShape struct {
	TxBody *xmlTxBody `xml:"txBody"`
}

type xmlGraphicFrame struct {
	Table *xmlTable `xml:"graphic>graphicData>tbl"`
}

type xmlTxBody struct {
	Paragraphs []xmlParagraph `xml:"p"`
}

type xmlParagraph struct {
	Props *xmlParaProps `xml:"pPr"`
	Runs  []xmlRun      `xml:"r"`
}

type xmlParaProps struct {
	Algn   string `xml:"algn,attr"`
	Lvl    int    `xml:"lvl,attr"`
	Bullet *struct {
		XMLName xml.Name
	} `xml:"buChar"`
}

type xmlRun struct {
	Props *xmlRunProps `xml:"rPr"`
	Text  string       `xml:"t"`
}

type xmlRunProps struct {
	Bold          *bool       `xml:"b,attr"`
	Italic        *bool       `xml:"i,attr"`
	Underline     string      `xml:"u,attr"`
	Baseline      *int        `xml:"baseline,attr"`
	Size          *int        `xml:"sz,attr"` // hundredths of a point
	Latin         *xmlFont    `xml:"latin"`
	SolidFill     *xmlSolidFill `xml:"solidFill"`
	Hyperlink     *xmlHyperlink `xml:"hlinkClick"`
}

type xmlFont struct {
	Typeface string `xml:"typeface,attr"`
}

type xmlSolidFill struct {
	SRGBClr *xmlSRGBClr `xml:"srgbClr"`
	SchemeClr *xmlSchemeClr `xml:"schemeClr"`
}

type xmlSRGBClr struct {
	Val string `xml:"val,attr"`
}

type xmlSchemeClr struct {
	Val string `xml:"val,attr"`
}

type xmlHyperlink struct {
	RID string `xml:"id,attr"`
}

type xmlTable struct {
	Rows []xmlTableRow `xml:"tr"`
}

type xmlTableRow struct {
	Cells []xmlTableCell `xml:"tc"`
}

type xmlTableCell struct {
	TxBody *xmlTxBody `xml:"txBody"`
	HMerge bool       `xml:"hMerge,attr"`
	VMerge bool       `xml:"vMerge,attr"`
}

// Chart XML (c: namespace). Only the label-bearing elements are modeled.
type xmlChartSpace struct {
	XMLName xml.Name  `xml:"chartSpace"`
	Chart   xmlChart  `xml:"chart"`
}

type xmlChart struct {
	Title       *xmlChartTitle `xml:"title"`
	PlotArea    xmlPlotArea    `xml:"plotArea"`
	Legend      *xmlLegend     `xml:"legend"`
}

type xmlChartTitle struct {
	Tx *xmlChartText `xml:"tx"`
}

type xmlChartText struct {
	Rich *xmlTxBody `xml:"rich"`
}

// xmlPlotArea holds the per-series label sources. Series live under a
// chart-type-specific element (barChart, lineChart, pieChart, ...)
// whose name varies, so a manual UnmarshalXML walks the token stream
// for <ser> elements at any depth instead of a fixed path tag.
type xmlPlotArea struct {
	Series []xmlSeries
}

func (pa *xmlPlotArea) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "ser" {
				var s xmlSeries
				if err := d.DecodeElement(&s, &se); err != nil {
					return err
				}
				pa.Series = append(pa.Series, s)
			}
		case xml.EndElement:
			if se.Name == start.Name {
				return nil
			}
		}
	}
}

type xmlSeries struct {
	Tx   *xmlSeriesText `xml:"tx"`
	Cat  *xmlCat        `xml:"cat"`
}

type xmlSeriesText struct {
	V string `xml:"strRef>strCache>pt>v"`
}

type xmlCat struct {
	Pt []xmlCatPoint `xml:"strRef>strCache>pt"`
}

type xmlCatPoint struct {
	V string `xml:"v"`
}

type xmlLegend struct {
}
