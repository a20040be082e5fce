package printing

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseParagraph(t *testing.T, inner string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<w:p xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`+inner+`</w:p>`))
	return doc.Root()
}

func TestReplaceInParagraph(t *testing.T) {
	tests := []struct {
		name     string
		inner    string
		token    string
		value    string
		want     string
		replaced bool
	}{
		{
			name:     "single run",
			inner:    `<w:r><w:t>Hello {{client_name}}!</w:t></w:r>`,
			token:    "{{client_name}}",
			value:    "Acme",
			want:     "Hello Acme!",
			replaced: true,
		},
		{
			name:     "token split across three runs",
			inner:    `<w:r><w:t>A {{cli</w:t></w:r><w:r><w:t>ent_na</w:t></w:r><w:r><w:t>me}} B</w:t></w:r>`,
			token:    "{{client_name}}",
			value:    "Acme",
			want:     "A Acme B",
			replaced: true,
		},
		{
			name:     "every occurrence",
			inner:    `<w:r><w:t>[tax] and [tax]</w:t></w:r>`,
			token:    "[tax]",
			value:    "Rp 10",
			want:     "Rp 10 and Rp 10",
			replaced: true,
		},
		{
			name:     "value containing the token",
			inner:    `<w:r><w:t>[x]</w:t></w:r>`,
			token:    "[x]",
			value:    "[x][x]",
			want:     "[x][x]",
			replaced: true,
		},
		{
			name:     "blank value",
			inner:    `<w:r><w:t>{{LATE FEE:}}</w:t></w:r>`,
			token:    "{{LATE FEE:}}",
			value:    "",
			want:     "",
			replaced: true,
		},
		{
			name:  "missing token is ignored",
			inner: `<w:r><w:t>nothing here</w:t></w:r>`,
			token: "[subtotal]",
			value: "Rp 1",
			want:  "nothing here",
		},
		{
			name:     "runs inside hyperlinks",
			inner:    `<w:hyperlink><w:r><w:t>{{client_email}}</w:t></w:r></w:hyperlink>`,
			token:    "{{client_email}}",
			value:    "a@b.c",
			want:     "a@b.c",
			replaced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseParagraph(t, tt.inner)
			assert.Equal(t, tt.replaced, replaceInParagraph(p, tt.token, tt.value))
			assert.Equal(t, tt.want, paragraphText(p))
		})
	}
}

func TestReplaceInParagraph_KeepsRunFormatting(t *testing.T) {
	p := parseParagraph(t, `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Total: </w:t></w:r><w:r><w:t>[grand</w:t></w:r><w:r><w:rPr><w:i/></w:rPr><w:t>total] due</w:t></w:r>`)

	require.True(t, replaceInParagraph(p, "[grandtotal]", "Rp 5"))

	texts := textNodes(p)
	require.Len(t, texts, 3)
	assert.Equal(t, "Total: ", texts[0].Text())
	assert.Equal(t, "Rp 5", texts[1].Text())
	assert.Equal(t, " due", texts[2].Text())
	assert.Equal(t, "preserve", texts[2].SelectAttrValue("xml:space", ""))
	assert.NotNil(t, p.FindElement("./w:r/w:rPr/w:b"))
}

func TestWChild_SchemaOrder(t *testing.T) {
	p := parseParagraph(t, `<w:r><w:rPr><w:b/><w:sz w:val="24"/></w:rPr><w:t>x</w:t></w:r>`)
	r := p.SelectElement("w:r")

	setRunFont(r, invoiceFontSize, lateFeeLabelColor)

	var tags []string
	for _, c := range r.SelectElement("w:rPr").ChildElements() {
		tags = append(tags, c.Tag)
	}
	assert.Equal(t, []string{"rFonts", "b", "color", "sz"}, tags)

	fonts := r.FindElement("./w:rPr/w:rFonts")
	assert.Equal(t, invoiceFont, fonts.SelectAttrValue("w:ascii", ""))
	assert.Equal(t, invoiceFont, fonts.SelectAttrValue("w:hAnsi", ""))
	assert.Equal(t, invoiceFont, fonts.SelectAttrValue("w:eastAsia", ""))
	assert.Equal(t, "20", r.FindElement("./w:rPr/w:sz").SelectAttrValue("w:val", ""))
}

func TestSetCellText(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<w:tc xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:tcPr/><w:p><w:r><w:t>a</w:t></w:r></w:p><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc>`))
	tc := doc.Root()

	setCellText(tc, "LATE FEE\nnote")

	assert.Len(t, tc.SelectElements("w:p"), 1)
	assert.NotNil(t, tc.SelectElement("w:tcPr"))
	assert.NotNil(t, tc.FindElement("./w:p/w:r/w:br"))
	assert.Equal(t, "LATE FEEnote", cellText(tc))
}
