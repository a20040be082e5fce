// Package printing renders invoice records into documents.
//
// A DocxRenderer loads the WordprocessingML template from disk on every
// call, fills its placeholders, rebuilds the items table, styles the
// financial table and, for paid invoices, anchors a stamp and a signature
// image onto the page. The resulting DOCX is handed to a DocumentConverter
// to obtain the PDF:
//
//   - PandocConverter runs pandoc directly
//   - SofficeConverter runs LibreOffice in headless mode
//   - ChromedpConverter has pandoc emit HTML and prints it with headless Chrome
//
// Example usage:
//
//	converter, err := NewPandocConverter(&PandocConfig{PDFEngine: "xelatex"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	renderer := NewDocxRenderer(&DocxRendererConfig{
//	    TemplatePath: "Invoice_Template_MarketixLab.docx",
//	    Converter:    converter,
//	    Images:       fetcher,
//	})
//	result, err := renderer.Render(ctx, record)
package printing
