package printing

import (
	"context"
	"time"

	"github.com/invoicegen/backend/internal/domain/invoice"
)

// Content types of the produced documents
const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
)

// RenderResult contains both documents produced for one invoice
type RenderResult struct {
	DOCX     []byte
	DOCXName string
	PDF      []byte
	PDFName  string

	// Converter names the converter that produced the PDF
	Converter string
	// Duration is the wall time of the whole render, conversion included
	Duration time.Duration
}

// InvoiceRenderer produces the editable and the fixed-layout document for a record
type InvoiceRenderer interface {
	Render(ctx context.Context, record *invoice.Record) (*RenderResult, error)
}

// DocumentConverter turns a DOCX file on disk into a PDF file on disk
type DocumentConverter interface {
	Convert(ctx context.Context, docxPath, pdfPath string) error
	Name() string
}

// ImageSource provides the raw bytes of a remote image
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RenderError represents an error during invoice rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeBinaryNotFound  = "BINARY_NOT_FOUND"
	ErrCodeInvalidTemplate = "INVALID_TEMPLATE"
	ErrCodeOverlayFailed   = "OVERLAY_FAILED"
	ErrCodeStorageFailed   = "STORAGE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
