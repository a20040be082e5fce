package printing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DocxRendererConfig contains configuration for the DOCX template renderer
type DocxRendererConfig struct {
	// TemplatePath is read on every render
	TemplatePath string
	Converter    DocumentConverter
	// Images provides the stamp and signature of paid invoices
	Images       ImageSource
	StampURL     string
	SignatureURL string
	// TempDir holds staged images and per-call conversion directories
	TempDir string
	Logger  *zap.Logger
}

// DocxRenderer fills the invoice template and converts the result to PDF
type DocxRenderer struct {
	config  *DocxRendererConfig
	overlay *paidOverlay
	logger  *zap.Logger
}

// NewDocxRenderer creates a template renderer
func NewDocxRenderer(config *DocxRendererConfig) (*DocxRenderer, error) {
	if config == nil || config.TemplatePath == "" {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "template path is required", nil)
	}
	if config.Converter == nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "document converter is required", nil)
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("renderer")

	return &DocxRenderer{
		config: config,
		overlay: &paidOverlay{
			images:       config.Images,
			stampURL:     config.StampURL,
			signatureURL: config.SignatureURL,
			tempDir:      config.TempDir,
			logger:       logger,
		},
		logger: logger,
	}, nil
}

// Render implements InvoiceRenderer
func (r *DocxRenderer) Render(ctx context.Context, record *invoice.Record) (*RenderResult, error) {
	if record == nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "invoice record is nil", nil)
	}
	start := time.Now()

	buildCtx, buildSpan := telemetry.StartSpan(ctx, "docx.build",
		telemetry.WithAttribute(telemetry.SpanAttrFormat, "docx"),
		telemetry.WithAttribute(telemetry.SpanAttrItemsCount, len(record.Items)))
	docx, err := r.BuildDOCX(buildCtx, record)
	telemetry.RecordError(buildSpan, err)
	buildSpan.End()
	if err != nil {
		return nil, err
	}

	converter := r.config.Converter.Name()
	convertCtx, convertSpan := telemetry.StartSpan(ctx, "pdf.convert",
		telemetry.WithAttribute(telemetry.SpanAttrConverter, converter),
		telemetry.WithAttribute(telemetry.SpanAttrFormat, "pdf"),
		telemetry.WithAttribute(telemetry.SpanAttrBytes, len(docx)))
	var pdf []byte
	telemetry.WithProfilingLabels(convertCtx, telemetry.RenderLabels(converter), func(ctx context.Context) {
		pdf, err = r.convert(ctx, record.InvoiceNumber, docx)
	})
	telemetry.RecordError(convertSpan, err)
	convertSpan.End()
	if err != nil {
		return nil, err
	}

	base := record.FileBaseName()
	result := &RenderResult{
		DOCX:      docx,
		DOCXName:  base + ".docx",
		PDF:       pdf,
		PDFName:   base + ".pdf",
		Converter: converter,
		Duration:  time.Since(start),
	}

	r.logger.Info("invoice rendered",
		zap.String("invoice_number", record.InvoiceNumber),
		zap.Bool("paid", record.MarkAsPaid),
		zap.String("converter", converter),
		zap.Int("docx_bytes", len(docx)),
		zap.Int("pdf_bytes", len(pdf)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// BuildDOCX fills a fresh copy of the template for the record
func (r *DocxRenderer) BuildDOCX(ctx context.Context, record *invoice.Record) ([]byte, error) {
	if record == nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "invoice record is nil", nil)
	}

	data, err := os.ReadFile(r.config.TemplatePath)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate,
			fmt.Sprintf("failed to read template %s", r.config.TemplatePath), err)
	}

	doc, err := openInvoiceDocument(data)
	if err != nil {
		return nil, err
	}

	replaced := doc.replacePlaceholders(record.Placeholders())
	r.logger.Debug("placeholders replaced",
		zap.String("invoice_number", record.InvoiceNumber),
		zap.Int("count", replaced))

	if err := doc.fillItemsTable(record.Items); err != nil {
		return nil, err
	}
	if err := doc.styleFinancialTable(record.ApplyLateFee); err != nil {
		return nil, err
	}
	if record.MarkAsPaid {
		if err := r.overlay.apply(ctx, doc); err != nil {
			return nil, err
		}
	}
	doc.applyBodyFont()

	return doc.docx()
}

// convert writes the DOCX into a per-call work directory, runs the
// converter and reads the PDF back. The work directory is always removed.
func (r *DocxRenderer) convert(ctx context.Context, number string, docx []byte) ([]byte, error) {
	workDir, err := os.MkdirTemp(r.config.TempDir, "invoice-*")
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	name := "temp_" + invoice.SanitizeFilename(number)
	docxPath := filepath.Join(workDir, name+".docx")
	pdfPath := filepath.Join(workDir, name+".pdf")

	if err := os.WriteFile(docxPath, docx, 0o600); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write temporary docx", err)
	}

	if err := r.config.Converter.Convert(ctx, docxPath, pdfPath); err != nil {
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}
		return nil, NewRenderError(ErrCodeRenderFailed, "PDF conversion failed", err)
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to read generated PDF", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}
	return pdf, nil
}

var _ InvoiceRenderer = (*DocxRenderer)(nil)
