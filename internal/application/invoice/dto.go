package invoice

import (
	domain "github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Request DTOs
// =============================================================================

// ClientRequest holds the billed client's contact details
type ClientRequest struct {
	Name    string `json:"name" yaml:"name" binding:"max=200"`
	Phone   string `json:"phone" yaml:"phone" binding:"max=50"`
	Email   string `json:"email" yaml:"email" binding:"max=200"`
	Address string `json:"address" yaml:"address" binding:"max=500"`
}

// ItemRequest is one line as entered by the user
type ItemRequest struct {
	Description string          `json:"description" yaml:"description" binding:"max=500"`
	UnitPrice   decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity" yaml:"quantity"`
}

// GenerateRequest represents a request to generate an invoice.
// Field presence and formats are checked by the domain so that the
// messages are the same for every shell.
type GenerateRequest struct {
	Client ClientRequest `json:"client" yaml:"client"`

	// InvoiceNumber defaults to the next number in sequence
	InvoiceNumber string `json:"invoice_number" yaml:"invoice_number" binding:"max=64"`
	// InvoiceDate and DueDate use dd.mm.yyyy and default to today
	InvoiceDate string `json:"invoice_date" yaml:"invoice_date"`
	DueDate     string `json:"due_date" yaml:"due_date"`

	Items        []ItemRequest   `json:"items" yaml:"items" binding:"max=200,dive"`
	TaxRate      decimal.Decimal `json:"tax_rate" yaml:"tax_rate"`
	Discount     decimal.Decimal `json:"discount" yaml:"discount"`
	ApplyLateFee bool            `json:"apply_late_fee" yaml:"apply_late_fee"`
	MarkAsPaid   bool            `json:"mark_as_paid" yaml:"mark_as_paid"`
	Signature    string          `json:"signature" yaml:"signature" binding:"max=200"`

	// Replace allows overwriting an existing invoice with the same number
	Replace bool `json:"replace" yaml:"replace"`
}

func (r GenerateRequest) toDraft(number, issueDate, dueDate string) domain.Draft {
	items := make([]domain.DraftItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.DraftItem{
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	return domain.Draft{
		Client: domain.ClientInfo{
			Name:    r.Client.Name,
			Phone:   r.Client.Phone,
			Email:   r.Client.Email,
			Address: r.Client.Address,
		},
		Details: domain.Details{
			Number:    number,
			IssueDate: issueDate,
			DueDate:   dueDate,
		},
		Items:        items,
		TaxRate:      r.TaxRate,
		Discount:     r.Discount,
		ApplyLateFee: r.ApplyLateFee,
		MarkAsPaid:   r.MarkAsPaid,
		Signature:    r.Signature,
	}
}

// =============================================================================
// Response DTOs
// =============================================================================

// NumberResponse is the next invoice number in sequence
type NumberResponse struct {
	Number   string `json:"number"`
	Sequence int    `json:"sequence"`
	Prefix   string `json:"prefix"`
}

// Document is one generated file
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// GenerateResult holds a record and both of its documents
type GenerateResult struct {
	Record *domain.Record
	DOCX   Document
	PDF    Document
	// AutoNumbered is set when the record used the next number in sequence
	AutoNumbered bool
	// Archived lists where copies of the documents were stored
	Archived []string
}

// Documents returns the DOCX and the PDF
func (r *GenerateResult) Documents() []Document {
	return []Document{r.DOCX, r.PDF}
}

// Summary is one row of the invoice list
type Summary struct {
	InvoiceNumber string `json:"invoice_number"`
	ClientName    string `json:"client_name"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	GrandTotal    string `json:"grand_total"`
	Paid          bool   `json:"paid"`
	Status        string `json:"status"`
}

// ToSummary converts a record to its list row
func ToSummary(r *domain.Record) Summary {
	return Summary{
		InvoiceNumber: r.InvoiceNumber,
		ClientName:    r.ClientInfo.Name,
		InvoiceDate:   r.Details.IssueDate,
		DueDate:       r.Details.DueDate,
		GrandTotal:    r.Financials.GrandTotal,
		Paid:          r.MarkAsPaid,
		Status:        r.StatusLabel(),
	}
}
