package printing

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/invoicegen/backend/internal/domain/invoice"
)

const (
	itemsTableIndex     = 0
	financialTableIndex = 1
	itemColumns         = 4

	itemCellFill       = "DDEFD5"
	itemBorderSize     = 6
	financialBorder    = 4
	lateFeeRowIndex    = 3
	lateFeeLabelColor  = "D95132"
	financialValueCol  = 1
	itemPlaceholderRow = 1
)

// item column alignments: description, unit price, quantity, total
var itemAlignments = [itemColumns]string{"left", "right", "center", "right"}

// invoiceDocument is a template loaded for one render
type invoiceDocument struct {
	pkg  *docxPackage
	doc  *etree.Document
	body *etree.Element
}

func openInvoiceDocument(data []byte) (*invoiceDocument, error) {
	pkg, err := readPackage(data)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "template is not a docx package", err)
	}
	doc, err := pkg.xmlPart(partDocument)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "template document is not valid XML", err)
	}
	body := doc.FindElement("./w:document/w:body")
	if body == nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "template document has no body", nil)
	}
	return &invoiceDocument{pkg: pkg, doc: doc, body: body}, nil
}

// replacePlaceholders substitutes the tokens in every paragraph of the
// document, table cells included
func (d *invoiceDocument) replacePlaceholders(placeholders []invoice.Placeholder) int {
	count := 0
	for _, p := range d.body.FindElements(".//w:p") {
		for _, ph := range placeholders {
			if replaceInParagraph(p, ph.Token, ph.Value) {
				count++
			}
		}
	}
	return count
}

func (d *invoiceDocument) table(index int) (*etree.Element, error) {
	tables := d.body.SelectElements("w:tbl")
	if len(tables) <= index {
		return nil, NewRenderError(ErrCodeInvalidTemplate,
			"template needs an items table and a financial table", nil)
	}
	return tables[index], nil
}

// fillItemsTable keeps the header row, drops the sample rows and appends
// one styled row per item
func (d *invoiceDocument) fillItemsTable(items []invoice.Item) error {
	tbl, err := d.table(itemsTableIndex)
	if err != nil {
		return err
	}

	rows := tbl.SelectElements("w:tr")
	if len(rows) <= itemPlaceholderRow {
		return NewRenderError(ErrCodeInvalidTemplate, "items table needs a header and a placeholder row", nil)
	}
	gridCols := tbl.FindElements("./w:tblGrid/w:gridCol")
	if len(gridCols) < itemColumns {
		return NewRenderError(ErrCodeInvalidTemplate, "items table needs four columns", nil)
	}

	for _, tr := range rows {
		for _, tc := range tr.SelectElements("w:tc") {
			setWhiteBorders(tc, itemBorderSize)
		}
	}
	for _, tr := range rows[itemPlaceholderRow+1:] {
		tbl.RemoveChild(tr)
	}

	for _, item := range items {
		values := [itemColumns]string{
			item.Description,
			invoice.FormatCurrency(item.UnitPrice),
			invoice.FormatQuantity(item.Quantity),
			invoice.FormatCurrency(item.Total),
		}

		tr := tbl.CreateElement("w:tr")
		for i, col := range gridCols {
			tc := tr.CreateElement("w:tc")
			tcW := wChild(wProps(tc, "tcPr"), "tcW", tcPrOrder)
			tcW.CreateAttr("w:w", col.SelectAttrValue("w:w", "0"))
			tcW.CreateAttr("w:type", "dxa")

			text, align := "", "left"
			if i < itemColumns {
				text, align = values[i], itemAlignments[i]
			}
			setCellText(tc, text)
			setCellShading(tc, itemCellFill)
			setWhiteBorders(tc, itemBorderSize)
			setCellFont(tc)
			setAlignment(tc, align)
		}
	}

	tbl.RemoveChild(rows[itemPlaceholderRow])
	return nil
}

// styleFinancialTable styles the summary table and highlights the late
// fee label when the fee applies
func (d *invoiceDocument) styleFinancialTable(applyLateFee bool) error {
	tbl, err := d.table(financialTableIndex)
	if err != nil {
		return err
	}

	rows := tbl.SelectElements("w:tr")
	for _, tr := range rows {
		cells := tr.SelectElements("w:tc")
		for _, tc := range cells {
			setWhiteBorders(tc, financialBorder)
			setCellFont(tc)
		}
		if len(cells) > financialValueCol {
			setAlignment(cells[financialValueCol], "right")
		}
	}

	if !applyLateFee || len(rows) <= lateFeeRowIndex {
		return nil
	}
	cells := rows[lateFeeRowIndex].SelectElements("w:tc")
	if len(cells) == 0 {
		return nil
	}
	label := cells[0]
	if text := cellText(label); strings.Contains(text, invoice.LateFeeLabel) {
		r := setCellText(label, text)
		setRunFont(r, 0, lateFeeLabelColor)
	}
	return nil
}

// applyBodyFont sets the invoice font on every run of the top-level
// body paragraphs
func (d *invoiceDocument) applyBodyFont() {
	for _, p := range d.body.SelectElements("w:p") {
		for _, r := range runs(p) {
			setRunFont(r, 0, "")
		}
	}
}

// appendParagraph adds a paragraph at the end of the body, ahead of the
// final section properties
func (d *invoiceDocument) appendParagraph(p *etree.Element) {
	if sectPr := d.body.SelectElement("w:sectPr"); sectPr != nil {
		d.body.InsertChildAt(sectPr.Index(), p)
		return
	}
	d.body.AddChild(p)
}

// docx serializes the edited document back into a package
func (d *invoiceDocument) docx() ([]byte, error) {
	if err := d.pkg.setXMLPart(partDocument, d.doc); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to serialize document", err)
	}
	data, err := d.pkg.zipBytes()
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write docx package", err)
	}
	return data, nil
}
