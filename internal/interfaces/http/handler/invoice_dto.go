package handler

import (
	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"github.com/invoicegen/backend/internal/domain/invoice"
)

// Document formats accepted by the download endpoint
const (
	FormatDOCX = "docx"
	FormatPDF  = "pdf"
)

// ListInvoicesQuery filters the invoice list
type ListInvoicesQuery struct {
	Status string `form:"status" binding:"max=16"`
}

// DownloadQuery selects the document to download
type DownloadQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=docx pdf"`
}

// InvoiceResponse is a stored invoice with its display status
// @name InvoiceResponse
type InvoiceResponse struct {
	*invoice.Record
	Status string `json:"status" example:"Not Paid"`
}

// DocumentResponse is one generated file; data is base64 encoded
// @name DocumentResponse
type DocumentResponse struct {
	Name        string `json:"name" example:"Invoice_INV2025001_Acme_Corp.pdf"`
	ContentType string `json:"content_type" example:"application/pdf"`
	Size        int    `json:"size"`
	Data        []byte `json:"data" swaggertype:"string" format:"base64"`
}

// GenerateResponse is returned after an invoice has been generated
// @name GenerateInvoiceResponse
type GenerateResponse struct {
	Invoice      InvoiceResponse    `json:"invoice"`
	AutoNumbered bool               `json:"auto_numbered"`
	Documents    []DocumentResponse `json:"documents"`
	Archived     []string           `json:"archived,omitempty"`
}

func toInvoiceResponse(r *invoice.Record) InvoiceResponse {
	return InvoiceResponse{Record: r, Status: r.StatusLabel()}
}

func toGenerateResponse(result *invoiceapp.GenerateResult) GenerateResponse {
	docs := result.Documents()
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentResponse{
			Name:        d.Name,
			ContentType: d.ContentType,
			Size:        len(d.Data),
			Data:        d.Data,
		})
	}
	return GenerateResponse{
		Invoice:      toInvoiceResponse(result.Record),
		AutoNumbered: result.AutoNumbered,
		Documents:    out,
		Archived:     result.Archived,
	}
}
