package models

import (
	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// Amount is a decimal written as a bare JSON number
type Amount decimal.Decimal

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).String()), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Amount(d)
	return nil
}

// ItemDocument is one persisted invoice line
type ItemDocument struct {
	Description string `json:"description"`
	UnitPrice   Amount `json:"unit_price"`
	Quantity    Amount `json:"quantity"`
	Total       Amount `json:"total"`
}

// RecordDocument is the persisted form of an invoice record
type RecordDocument struct {
	ClientInfo     map[string]string `json:"client_info"`
	InvoiceDetails map[string]string `json:"invoice_details"`
	Items          []ItemDocument    `json:"items"`
	Financials     map[string]string `json:"financials"`
	ApplyLateFee   bool              `json:"apply_late_fee"`
	MarkAsPaid     bool              `json:"mark_as_paid"`
	InvoiceNumber  string            `json:"invoice_number"`
	Signature      string            `json:"signature"`
}

func placeholderMap(placeholders []invoice.Placeholder) map[string]string {
	m := make(map[string]string, len(placeholders))
	for _, p := range placeholders {
		m[p.Token] = p.Value
	}
	return m
}

// NewRecordDocument converts a domain record to its persisted form
func NewRecordDocument(r *invoice.Record) *RecordDocument {
	items := make([]ItemDocument, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, ItemDocument{
			Description: item.Description,
			UnitPrice:   Amount(item.UnitPrice),
			Quantity:    Amount(item.Quantity),
			Total:       Amount(item.Total),
		})
	}

	return &RecordDocument{
		ClientInfo:     placeholderMap(r.ClientInfo.Placeholders()),
		InvoiceDetails: placeholderMap(r.Details.Placeholders()),
		Items:          items,
		Financials:     placeholderMap(r.Financials.Placeholders()),
		ApplyLateFee:   r.ApplyLateFee,
		MarkAsPaid:     r.MarkAsPaid,
		InvoiceNumber:  r.InvoiceNumber,
		Signature:      r.Signature,
	}
}

// ToDomain converts the document back to a record. key is the store key and
// fills the invoice number when the document lacks one.
func (d *RecordDocument) ToDomain(key string) *invoice.Record {
	items := make([]invoice.Item, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, invoice.Item{
			Description: item.Description,
			UnitPrice:   decimal.Decimal(item.UnitPrice),
			Quantity:    decimal.Decimal(item.Quantity),
			Total:       decimal.Decimal(item.Total),
		})
	}

	number := d.InvoiceNumber
	if number == "" {
		number = key
	}

	return &invoice.Record{
		ClientInfo: invoice.ClientInfo{
			Name:    d.ClientInfo[invoice.TokenClientName],
			Phone:   d.ClientInfo[invoice.TokenClientPhone],
			Email:   d.ClientInfo[invoice.TokenClientEmail],
			Address: d.ClientInfo[invoice.TokenClientAddress],
		},
		Details: invoice.Details{
			Number:    d.InvoiceDetails[invoice.TokenInvoiceNumber],
			IssueDate: d.InvoiceDetails[invoice.TokenInvoiceDate],
			DueDate:   d.InvoiceDetails[invoice.TokenDueDate],
		},
		Items: items,
		Financials: invoice.Financials{
			Subtotal:   d.Financials[invoice.TokenSubtotal],
			Tax:        d.Financials[invoice.TokenTax],
			Discount:   d.Financials[invoice.TokenDiscount],
			LateFee:    d.Financials[invoice.TokenLateFee],
			GrandTotal: d.Financials[invoice.TokenGrandTotal],
		},
		ApplyLateFee:  d.ApplyLateFee,
		MarkAsPaid:    d.MarkAsPaid,
		InvoiceNumber: number,
		Signature:     d.Signature,
	}
}
