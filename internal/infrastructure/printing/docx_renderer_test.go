package printing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stampURL     = "https://assets.test/stamp"
	signatureURL = "https://assets.test/signature"
)

func newTestRenderer(t *testing.T, images ImageSource, converter DocumentConverter) (*DocxRenderer, string) {
	t.Helper()
	tempDir := t.TempDir()
	r, err := NewDocxRenderer(&DocxRendererConfig{
		TemplatePath: writeTemplate(t),
		Converter:    converter,
		Images:       images,
		StampURL:     stampURL,
		SignatureURL: signatureURL,
		TempDir:      tempDir,
	})
	require.NoError(t, err)
	return r, tempDir
}

func rowTexts(tbl *etree.Element) [][]string {
	var out [][]string
	for _, tr := range tbl.SelectElements("w:tr") {
		var cells []string
		for _, tc := range tr.SelectElements("w:tc") {
			cells = append(cells, cellText(tc))
		}
		out = append(out, cells)
	}
	return out
}

func TestDocxRenderer_BuildDOCX(t *testing.T) {
	r, _ := newTestRenderer(t, nil, &fakeConverter{})
	record := sampleRecord()

	data, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)

	_, body := parseDocument(t, data)
	paragraphs := body.SelectElements("w:p")
	assert.Equal(t, "Bill to: Acme Corp", paragraphText(paragraphs[0]))
	assert.Equal(t, "0812 / billing@acme.test", paragraphText(paragraphs[1]))
	assert.Equal(t, "Invoice INV2025007 issued 01.05.2025 due 08.05.2025", paragraphText(paragraphs[3]))

	tables := body.SelectElements("w:tbl")
	require.Len(t, tables, 2)

	t.Run("items table", func(t *testing.T) {
		rows := rowTexts(tables[0])
		assert.Equal(t, [][]string{
			{"DESCRIPTION", "PRICE", "QTY", "TOTAL"},
			{"Website design", "Rp 1,500,000", "1", "Rp 1,500,000"},
			{"Hosting", "Rp 250,000.50", "2.5", "Rp 625,001.25"},
		}, rows)

		itemRow := tables[0].SelectElements("w:tr")[1]
		cells := itemRow.SelectElements("w:tc")
		for i, want := range []string{"left", "right", "center", "right"} {
			tc := cells[i]
			assert.Equal(t, want, tc.FindElement("./w:p/w:pPr/w:jc").SelectAttrValue("w:val", ""))
			assert.Equal(t, itemCellFill, tc.FindElement("./w:tcPr/w:shd").SelectAttrValue("w:fill", ""))
			assert.Equal(t, "6", tc.FindElement("./w:tcPr/w:tcBorders/w:top").SelectAttrValue("w:sz", ""))
			assert.Equal(t, "FFFFFF", tc.FindElement("./w:tcPr/w:tcBorders/w:right").SelectAttrValue("w:color", ""))
			assert.Equal(t, "20", tc.FindElement("./w:p/w:r/w:rPr/w:sz").SelectAttrValue("w:val", ""))
		}

		header := tables[0].SelectElements("w:tr")[0].SelectElements("w:tc")[0]
		assert.Equal(t, "6", header.FindElement("./w:tcPr/w:tcBorders/w:bottom").SelectAttrValue("w:sz", ""))
	})

	t.Run("financial table", func(t *testing.T) {
		rows := rowTexts(tables[1])
		require.Len(t, rows, 5)
		assert.Equal(t, []string{"SUBTOTAL:", record.Financials.Subtotal}, rows[0])
		assert.Equal(t, []string{"", ""}, rows[3], "late fee label and amount are blanked")
		assert.Equal(t, []string{"GRAND TOTAL:", record.Financials.GrandTotal}, rows[4])

		value := tables[1].SelectElements("w:tr")[0].SelectElements("w:tc")[1]
		assert.Equal(t, "right", value.FindElement("./w:p/w:pPr/w:jc").SelectAttrValue("w:val", ""))
		assert.Equal(t, "4", value.FindElement("./w:tcPr/w:tcBorders/w:left").SelectAttrValue("w:sz", ""))
		assert.Nil(t, tables[1].FindElement(".//w:color"))
	})

	t.Run("body font", func(t *testing.T) {
		fonts := paragraphs[0].FindElement("./w:r/w:rPr/w:rFonts")
		require.NotNil(t, fonts)
		assert.Equal(t, invoiceFont, fonts.SelectAttrValue("w:eastAsia", ""))
	})

	t.Run("no overlay for unpaid invoices", func(t *testing.T) {
		assert.Nil(t, body.FindElement(".//w:drawing"))
	})
}

func TestDocxRenderer_LateFee(t *testing.T) {
	r, _ := newTestRenderer(t, nil, &fakeConverter{})
	record := sampleRecord()
	record.ApplyLateFee = true
	record.Financials.LateFee = "Rp 30,000"

	data, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)

	_, body := parseDocument(t, data)
	tbl := body.SelectElements("w:tbl")[1]
	lateFeeRow := tbl.SelectElements("w:tr")[3]
	label := lateFeeRow.SelectElements("w:tc")[0]

	assert.Equal(t, []string{"LATE FEE", "Rp 30,000"}, rowTexts(tbl)[3])
	assert.Len(t, label.FindElements(".//w:r"), 1)
	assert.Equal(t, lateFeeLabelColor, label.FindElement("./w:p/w:r/w:rPr/w:color").SelectAttrValue("w:val", ""))
}

func TestDocxRenderer_EmptyItems(t *testing.T) {
	r, _ := newTestRenderer(t, nil, &fakeConverter{})
	record := sampleRecord()
	record.Items = nil

	data, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)

	_, body := parseDocument(t, data)
	rows := rowTexts(body.SelectElements("w:tbl")[0])
	assert.Equal(t, [][]string{{"DESCRIPTION", "PRICE", "QTY", "TOTAL"}}, rows)
}

func TestDocxRenderer_IdempotentFinancials(t *testing.T) {
	r, _ := newTestRenderer(t, nil, &fakeConverter{})
	record := sampleRecord()

	first, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)
	second, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)

	_, b1 := parseDocument(t, first)
	_, b2 := parseDocument(t, second)
	assert.Equal(t, rowTexts(b1.SelectElements("w:tbl")[1]), rowTexts(b2.SelectElements("w:tbl")[1]))
}

func TestDocxRenderer_PaidOverlay(t *testing.T) {
	images := &fakeImages{data: map[string][]byte{
		stampURL:     pngBytes(t),
		signatureURL: pngBytes(t),
	}}
	r, tempDir := newTestRenderer(t, images, &fakeConverter{})
	record := sampleRecord()
	record.MarkAsPaid = true

	data, err := r.BuildDOCX(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, []string{stampURL, signatureURL}, images.fetched)

	pkg, body := parseDocument(t, data)

	anchors := body.FindElements(".//wp:anchor")
	require.Len(t, anchors, 2)

	tests := []struct {
		relativeHeight string
		docPrID        string
		x, y, size     string
	}{
		{"251", "1", "4654296", "6071616", "1984248"},
		{"252", "2", "5157216", "7415784", "1755648"},
	}
	for i, tt := range tests {
		a := anchors[i]
		assert.Equal(t, tt.relativeHeight, a.SelectAttrValue("relativeHeight", ""))
		assert.Equal(t, "0", a.SelectAttrValue("behindDoc", ""))
		assert.Equal(t, "1", a.SelectAttrValue("allowOverlap", ""))
		assert.Equal(t, "page", a.SelectElement("wp:positionH").SelectAttrValue("relativeFrom", ""))
		assert.Equal(t, tt.x, a.FindElement("./wp:positionH/wp:posOffset").Text())
		assert.Equal(t, tt.y, a.FindElement("./wp:positionV/wp:posOffset").Text())
		assert.Equal(t, tt.size, a.SelectElement("wp:extent").SelectAttrValue("cx", ""))
		assert.NotNil(t, a.SelectElement("wp:wrapTopAndBottom"))
		assert.Equal(t, tt.docPrID, a.SelectElement("wp:docPr").SelectAttrValue("id", ""))
	}

	// pictures sit after the last paragraph and before the section properties
	children := body.ChildElements()
	assert.Equal(t, "sectPr", children[len(children)-1].Tag)
	assert.NotNil(t, children[len(children)-2].FindElement(".//wp:anchor"))

	blip := anchors[0].FindElement(".//a:blip")
	relID := blip.SelectAttrValue("r:embed", "")
	assert.Equal(t, "rId8", relID)

	rels, err := pkg.xmlPart(partDocumentRels)
	require.NoError(t, err)
	var target string
	for _, rel := range rels.Root().SelectElements("Relationship") {
		if rel.SelectAttrValue("Id", "") == relID {
			target = rel.SelectAttrValue("Target", "")
			assert.Equal(t, relTypeImage, rel.SelectAttrValue("Type", ""))
		}
	}
	assert.Equal(t, "media/image1.png", target)

	_, ok := pkg.part("word/media/image1.png")
	assert.True(t, ok)
	_, ok = pkg.part("word/media/image2.png")
	assert.True(t, ok)

	types, _ := pkg.part(partContentTypes)
	assert.Contains(t, string(types), `Extension="png"`)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged images are removed")
}

func TestDocxRenderer_OverlayFailure(t *testing.T) {
	images := &fakeImages{err: errors.New("error fetching image from https://assets.test/stamp: status 404")}
	r, tempDir := newTestRenderer(t, images, &fakeConverter{})
	record := sampleRecord()
	record.MarkAsPaid = true

	_, err := r.Render(context.Background(), record)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeOverlayFailed, renderErr.Code)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to add stamp and signature: error fetching image"))

	entries, _ := os.ReadDir(tempDir)
	assert.Empty(t, entries)
}

func TestDocxRenderer_OverlayRejectsNonImage(t *testing.T) {
	images := &fakeImages{data: map[string][]byte{
		stampURL:     []byte("<html>not an image</html>"),
		signatureURL: pngBytes(t),
	}}
	r, tempDir := newTestRenderer(t, images, &fakeConverter{})
	record := sampleRecord()
	record.MarkAsPaid = true

	_, err := r.BuildDOCX(context.Background(), record)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeOverlayFailed, renderErr.Code)
	assert.Contains(t, err.Error(), "decode stamp image")

	entries, _ := os.ReadDir(tempDir)
	assert.Empty(t, entries)
}

func TestDocxRenderer_Render(t *testing.T) {
	converter := &fakeConverter{}
	r, tempDir := newTestRenderer(t, nil, converter)
	record := sampleRecord()

	result, err := r.Render(context.Background(), record)
	require.NoError(t, err)

	assert.Equal(t, "Invoice_INV2025007_Acme_Corp.docx", result.DOCXName)
	assert.Equal(t, "Invoice_INV2025007_Acme_Corp.pdf", result.PDFName)
	assert.Equal(t, "%PDF-1.4 fake", string(result.PDF))
	assert.NotEmpty(t, result.DOCX)

	require.Len(t, converter.inputs, 1)
	assert.Equal(t, "temp_INV2025007.docx", filepath.Base(converter.inputs[0]))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directory is removed")
}

func TestDocxRenderer_ConverterFailure(t *testing.T) {
	t.Run("plain error is wrapped", func(t *testing.T) {
		r, tempDir := newTestRenderer(t, nil, &fakeConverter{err: errors.New("boom")})

		_, err := r.Render(context.Background(), sampleRecord())

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeRenderFailed, renderErr.Code)

		entries, _ := os.ReadDir(tempDir)
		assert.Empty(t, entries)
	})

	t.Run("render error passes through", func(t *testing.T) {
		timeout := NewRenderError(ErrCodeRenderTimeout, "pandoc conversion timed out", nil)
		r, _ := newTestRenderer(t, nil, &fakeConverter{err: timeout})

		_, err := r.Render(context.Background(), sampleRecord())
		assert.Same(t, timeout, err)
	})
}

func TestDocxRenderer_InvalidTemplate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"single table", templateBody + itemsTable() + sectPr},
		{"items table without placeholder row", `<w:tbl><w:tblGrid><w:gridCol/><w:gridCol/><w:gridCol/><w:gridCol/></w:tblGrid>` + row("a", "b", "c", "d") + `</w:tbl>` + financialTable()},
		{"items table with three columns", `<w:tbl><w:tblGrid><w:gridCol/><w:gridCol/><w:gridCol/></w:tblGrid>` + row("a", "b", "c") + row("a", "b", "c") + `</w:tbl>` + financialTable()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "template.docx")
			require.NoError(t, os.WriteFile(path, buildDocx(t, documentXML(tt.body)), 0o644))

			r, err := NewDocxRenderer(&DocxRendererConfig{TemplatePath: path, Converter: &fakeConverter{}})
			require.NoError(t, err)

			_, err = r.BuildDOCX(context.Background(), sampleRecord())
			var renderErr *RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Equal(t, ErrCodeInvalidTemplate, renderErr.Code)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		r, err := NewDocxRenderer(&DocxRendererConfig{
			TemplatePath: filepath.Join(t.TempDir(), "missing.docx"),
			Converter:    &fakeConverter{},
		})
		require.NoError(t, err)

		_, err = r.Render(context.Background(), sampleRecord())
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidTemplate, renderErr.Code)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := openInvoiceDocument([]byte("plain text"))
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeInvalidTemplate, renderErr.Code)
	})
}

func TestNewDocxRenderer_Validation(t *testing.T) {
	_, err := NewDocxRenderer(nil)
	assert.Error(t, err)

	_, err = NewDocxRenderer(&DocxRendererConfig{TemplatePath: "t.docx"})
	assert.Error(t, err)
}

func TestEMU(t *testing.T) {
	assert.Equal(t, int64(914400), emu(100))
	assert.Equal(t, int64(1984248), emu(stampAnchor.size))
}
