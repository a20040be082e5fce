package printing

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/beevik/etree"
	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/></Relationships>`

func cell(text string) string {
	return `<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr><w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p></w:tc>`
}

func row(cells ...string) string {
	out := "<w:tr>"
	for _, c := range cells {
		out += cell(c)
	}
	return out + "</w:tr>"
}

// templateBody mirrors the layout of the production template: header
// paragraphs with tokens, the items table and the financial table
const templateBody = `<w:p><w:r><w:t xml:space="preserve">Bill to: {{client_</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>name}}</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>{{client_phone}} / {{client_email}}</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>{{client_address}}</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Invoice {{invoice_number}} issued {{invoice_date}} due {{due_date}}</w:t></w:r></w:p>`

func itemsTable() string {
	return `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="4000"/><w:gridCol w:w="2000"/><w:gridCol w:w="1000"/><w:gridCol w:w="2000"/></w:tblGrid>` +
		row("DESCRIPTION", "PRICE", "QTY", "TOTAL") +
		row("[description]", "[price]", "[qty]", "[total]") +
		row("sample", "1", "1", "1") +
		`</w:tbl>`
}

func financialTable() string {
	return `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="3000"/><w:gridCol w:w="3000"/></w:tblGrid>` +
		row("SUBTOTAL:", "[subtotal]") +
		row("TAX:", "[tax]") +
		row("DISCOUNT:", "[discount]") +
		row("{{LATE FEE:}}", "[latefee]") +
		row("GRAND TOTAL:", "[grandtotal]") +
		`</w:tbl>`
}

const sectPr = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>` + body + `</w:body></w:document>`
}

// buildDocx zips a package holding the given main document
func buildDocx(t *testing.T, document string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, content string }{
		{partContentTypes, contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{partDocument, document},
		{partDocumentRels, documentRelsXML},
	} {
		w, err := zw.Create(part.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(part.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// writeTemplate writes the standard invoice template and returns its path
func writeTemplate(t *testing.T) string {
	t.Helper()
	body := templateBody + itemsTable() + `<w:p/>` + financialTable() + `<w:p><w:r><w:t>Thank you</w:t></w:r></w:p>` + sectPr
	path := filepath.Join(t.TempDir(), "template.docx")
	require.NoError(t, os.WriteFile(path, buildDocx(t, documentXML(body)), 0o644))
	return path
}

// parseDocument extracts the main document of a rendered package
func parseDocument(t *testing.T, data []byte) (*docxPackage, *etree.Element) {
	t.Helper()
	pkg, err := readPackage(data)
	require.NoError(t, err)
	doc, err := pkg.xmlPart(partDocument)
	require.NoError(t, err)
	body := doc.FindElement("./w:document/w:body")
	require.NotNil(t, body)
	return pkg, body
}

func sampleRecord() *invoice.Record {
	items := []invoice.Item{
		invoice.NewItem("Website design", decimal.NewFromInt(1500000), decimal.NewFromInt(1)),
		invoice.NewItem("Hosting", decimal.RequireFromString("250000.5"), decimal.RequireFromString("2.5")),
	}
	totals := invoice.ComputeTotals(items, decimal.NewFromInt(11), decimal.NewFromInt(100000), false)
	return &invoice.Record{
		ClientInfo:    invoice.ClientInfo{Name: "Acme Corp", Phone: "0812", Email: "billing@acme.test", Address: "Jl. Sudirman 1"},
		Details:       invoice.Details{Number: "INV2025007", IssueDate: "01.05.2025", DueDate: "08.05.2025"},
		Items:         items,
		Financials:    totals.Financials(),
		InvoiceNumber: "INV2025007",
	}
}

// pngBytes returns a small solid PNG
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeImages struct {
	data    map[string][]byte
	err     error
	fetched []string
}

func (f *fakeImages) Fetch(_ context.Context, url string) ([]byte, error) {
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.data[url], nil
}

type fakeConverter struct {
	err    error
	inputs []string
}

func (f *fakeConverter) Name() string { return "fake" }

func (f *fakeConverter) Convert(_ context.Context, docxPath, pdfPath string) error {
	f.inputs = append(f.inputs, docxPath)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o600)
}

// writeScript writes an executable shell script standing in for a converter binary
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}
