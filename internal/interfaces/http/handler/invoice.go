package handler

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoiceapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoiceapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// NextNumber godoc
// @ID           getInvoiceNextNumber
// @Summary      Get the next invoice number
// @Description  Returns the number a generation without an explicit number will use. The counter is not advanced.
// @Tags         invoices
// @Produce      json
// @Success      200 {object} APIResponse[invoiceapp.NumberResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /invoices/next-number [get]
func (h *InvoiceHandler) NextNumber(c *gin.Context) {
	next, err := h.invoiceService.NextNumber(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, next)
}

// Generate godoc
// @ID           createInvoice
// @Summary      Generate an invoice
// @Description  Validates the request, stores the invoice and renders it as DOCX and PDF.
// @Description  Both documents are returned base64 encoded.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoiceapp.GenerateRequest true "Invoice generation request"
// @Success      201 {object} APIResponse[GenerateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Failure      504 {object} ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req invoiceapp.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.invoiceService.Generate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toGenerateResponse(result))
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Description  Returns every stored invoice ordered by number, optionally filtered by paid status
// @Tags         invoices
// @Produce      json
// @Param        status query string false "Paid status filter" Enums(all, paid, unpaid)
// @Success      200 {object} APIResponse[[]invoiceapp.Summary]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var query ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	filter, ok := invoice.ParseStatusFilter(query.Status)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat,
			"status must be one of all, paid, unpaid")
		return
	}

	summaries, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, summaries, len(summaries))
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Description  Returns a stored invoice by number
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice number" example(INV2025001)
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices/{number} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	number, ok := h.bindNumber(c)
	if !ok {
		return
	}

	record, err := h.invoiceService.Get(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(record))
}

// MarkPaid godoc
// @ID           markInvoicePaid
// @Summary      Mark an invoice as paid
// @Description  Sets the paid flag of a stored invoice. Documents are not regenerated.
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice number" example(INV2025001)
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices/{number}/paid [post]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	number, ok := h.bindNumber(c)
	if !ok {
		return
	}

	record, err := h.invoiceService.MarkPaid(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(record))
}

// Download godoc
// @ID           downloadInvoice
// @Summary      Download an invoice document
// @Description  Renders a stored invoice again from its stored values and returns one document
// @Tags         invoices
// @Produce      application/pdf
// @Produce      application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param        number path string true "Invoice number" example(INV2025001)
// @Param        format query string false "Document format" Enums(pdf, docx) default(pdf)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /invoices/{number}/download [get]
func (h *InvoiceHandler) Download(c *gin.Context) {
	number, ok := h.bindNumber(c)
	if !ok {
		return
	}
	var query DownloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.invoiceService.Render(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc := result.PDF
	if strings.EqualFold(query.Format, FormatDOCX) {
		doc = result.DOCX
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func (h *InvoiceHandler) bindNumber(c *gin.Context) (string, bool) {
	var uri dto.InvoiceNumberRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return "", false
	}
	return strings.TrimSpace(uri.Number), true
}
