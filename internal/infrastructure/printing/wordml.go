package printing

import (
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// WordprocessingML namespaces used by inserted elements
const (
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
)

const (
	invoiceFont = "Courier New"
	// half-points
	invoiceFontSize = 20
)

// Child element order of the property containers we touch. Word rejects
// documents whose property children are out of schema order.
var (
	tcPrOrder = []string{
		"cnfStyle", "tcW", "gridSpan", "hMerge", "vMerge", "tcBorders", "shd",
		"noWrap", "tcMar", "textDirection", "tcFitText", "vAlign", "hideMark",
	}
	tcBordersOrder = []string{
		"top", "start", "left", "bottom", "end", "right",
		"insideH", "insideV", "tl2br", "tr2bl",
	}
	rPrOrder = []string{
		"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike",
		"dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
		"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz",
		"szCs", "highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
		"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish", "oMath",
	}
	pPrOrder = []string{
		"pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr",
		"widowControl", "numPr", "suppressLineNumbers", "pBdr", "shd", "tabs",
		"suppressAutoHyphens", "kinsoku", "wordWrap", "overflowPunct",
		"topLinePunct", "autoSpaceDE", "autoSpaceDN", "bidi", "adjustRightInd",
		"snapToGrid", "spacing", "ind", "contextualSpacing", "mirrorIndents",
		"suppressOverlap", "jc", "textDirection", "textAlignment",
		"textboxTightWrap", "outlineLvl", "divId", "cnfStyle", "rPr", "sectPr",
		"pPrChange",
	}
)

// wChild returns the w:tag child of parent, creating it at its schema
// position when missing
func wChild(parent *etree.Element, tag string, order []string) *etree.Element {
	if el := parent.SelectElement("w:" + tag); el != nil {
		return el
	}
	el := etree.NewElement("w:" + tag)
	pos := slices.Index(order, tag)
	for i, tok := range parent.Child {
		c, ok := tok.(*etree.Element)
		if !ok || c.Space != "w" {
			continue
		}
		if slices.Index(order, c.Tag) > pos {
			parent.InsertChildAt(i, el)
			return el
		}
	}
	parent.AddChild(el)
	return el
}

// wProps returns the leading property element (w:pPr, w:rPr, w:tcPr) of
// parent, creating it as the first child when missing
func wProps(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement("w:" + tag); el != nil {
		return el
	}
	el := etree.NewElement("w:" + tag)
	parent.InsertChildAt(0, el)
	return el
}

// runs returns the text runs of a paragraph, including runs nested in
// hyperlinks, smart tags and tracked insertions
func runs(p *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range p.ChildElements() {
		if c.Space != "w" {
			continue
		}
		switch c.Tag {
		case "r":
			out = append(out, c)
		case "hyperlink", "smartTag", "ins", "customXml", "fldSimple":
			out = append(out, runs(c)...)
		}
	}
	return out
}

// textNodes returns the w:t elements of a paragraph in document order
func textNodes(p *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, r := range runs(p) {
		out = append(out, r.SelectElements("w:t")...)
	}
	return out
}

// paragraphText joins the text of a paragraph's runs
func paragraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, t := range textNodes(p) {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// cellText joins the paragraphs of a table cell with newlines
func cellText(tc *etree.Element) string {
	paras := tc.SelectElements("w:p")
	texts := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = paragraphText(p)
	}
	return strings.Join(texts, "\n")
}

func setText(t *etree.Element, text string) {
	t.SetText(text)
	if strings.TrimSpace(text) != text {
		t.CreateAttr("xml:space", "preserve")
	}
}

// replaceInParagraph replaces every occurrence of token in the joined
// text of the paragraph. A token spanning several runs is written into
// the run where it starts; the runs it covers keep only their remainder.
func replaceInParagraph(p *etree.Element, token, value string) bool {
	if token == "" {
		return false
	}
	nodes := textNodes(p)
	replaced := false
	from := 0

	for {
		texts := make([]string, len(nodes))
		starts := make([]int, len(nodes))
		var sb strings.Builder
		for i, n := range nodes {
			texts[i] = n.Text()
			starts[i] = sb.Len()
			sb.WriteString(texts[i])
		}
		joined := sb.String()
		if from > len(joined) {
			return replaced
		}

		idx := strings.Index(joined[from:], token)
		if idx < 0 {
			return replaced
		}
		idx += from
		end := idx + len(token)

		si, ei := -1, -1
		for i := range nodes {
			if si < 0 && idx >= starts[i] && idx < starts[i]+len(texts[i]) {
				si = i
			}
			if si >= 0 && end <= starts[i]+len(texts[i]) {
				ei = i
				break
			}
		}

		startOff := idx - starts[si]
		endOff := end - starts[ei]
		if si == ei {
			setText(nodes[si], texts[si][:startOff]+value+texts[si][endOff:])
		} else {
			setText(nodes[si], texts[si][:startOff]+value)
			for k := si + 1; k < ei; k++ {
				nodes[k].SetText("")
			}
			setText(nodes[ei], texts[ei][endOff:])
		}

		from = idx + len(value)
		replaced = true
	}
}

// setRunFont sets the font faces of a run, optionally with size and color
func setRunFont(r *etree.Element, size int, color string) {
	rPr := wProps(r, "rPr")
	fonts := wChild(rPr, "rFonts", rPrOrder)
	fonts.CreateAttr("w:ascii", invoiceFont)
	fonts.CreateAttr("w:hAnsi", invoiceFont)
	fonts.CreateAttr("w:eastAsia", invoiceFont)
	if color != "" {
		wChild(rPr, "color", rPrOrder).CreateAttr("w:val", color)
	}
	if size > 0 {
		wChild(rPr, "sz", rPrOrder).CreateAttr("w:val", strconv.Itoa(size))
	}
}

// setCellFont applies the invoice font and size to every run of a cell
func setCellFont(tc *etree.Element) {
	for _, p := range tc.SelectElements("w:p") {
		for _, r := range runs(p) {
			setRunFont(r, invoiceFontSize, "")
		}
	}
}

// setWhiteBorders gives a cell single white borders of size sz (eighths of a point)
func setWhiteBorders(tc *etree.Element, sz int) {
	tcPr := wProps(tc, "tcPr")
	borders := wChild(tcPr, "tcBorders", tcPrOrder)
	for _, side := range []string{"top", "left", "bottom", "right"} {
		b := wChild(borders, side, tcBordersOrder)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", strconv.Itoa(sz))
		b.CreateAttr("w:space", "0")
		b.CreateAttr("w:color", "FFFFFF")
	}
}

// setCellShading sets a solid background fill on a cell
func setCellShading(tc *etree.Element, fill string) {
	shd := wChild(wProps(tc, "tcPr"), "shd", tcPrOrder)
	shd.CreateAttr("w:val", "clear")
	shd.CreateAttr("w:color", "auto")
	shd.CreateAttr("w:fill", fill)
}

// setAlignment sets the horizontal alignment of every paragraph in a cell
func setAlignment(tc *etree.Element, jc string) {
	for _, p := range tc.SelectElements("w:p") {
		wChild(wProps(p, "pPr"), "jc", pPrOrder).CreateAttr("w:val", jc)
	}
}

// setCellText replaces the content of a cell with a single paragraph
// holding one run. Newlines become line breaks.
func setCellText(tc *etree.Element, text string) *etree.Element {
	for _, c := range tc.ChildElements() {
		if c.Space == "w" && c.Tag == "tcPr" {
			continue
		}
		tc.RemoveChild(c)
	}
	r := tc.CreateElement("w:p").CreateElement("w:r")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.CreateElement("w:br")
		}
		setText(r.CreateElement("w:t"), line)
	}
	return r
}
