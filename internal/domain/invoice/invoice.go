package invoice

import (
	"fmt"

	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Placeholder tokens known to the invoice template
const (
	TokenClientName    = "{{client_name}}"
	TokenClientPhone   = "{{client_phone}}"
	TokenClientEmail   = "{{client_email}}"
	TokenClientAddress = "{{client_address}}"

	TokenInvoiceNumber = "{{invoice_number}}"
	TokenInvoiceDate   = "{{invoice_date}}"
	TokenDueDate       = "{{due_date}}"

	TokenSubtotal   = "[subtotal]"
	TokenTax        = "[tax]"
	TokenDiscount   = "[discount]"
	TokenLateFee    = "[latefee]"
	TokenGrandTotal = "[grandtotal]"

	// TokenLateFeeLabel marks the label cell of the late fee row
	TokenLateFeeLabel = "{{LATE FEE:}}"
	// LateFeeLabel is written into the label cell when the fee applies
	LateFeeLabel = "LATE FEE"
)

// Placeholder is a literal template token and its replacement value
type Placeholder struct {
	Token string
	Value string
}

// ClientInfo holds the billed client's contact details
type ClientInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Placeholders returns the client tokens in template order
func (c ClientInfo) Placeholders() []Placeholder {
	return []Placeholder{
		{TokenClientName, c.Name},
		{TokenClientPhone, c.Phone},
		{TokenClientEmail, c.Email},
		{TokenClientAddress, c.Address},
	}
}

// Details holds the invoice metadata. Dates use the dd.mm.yyyy layout.
type Details struct {
	Number    string `json:"number"`
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`
}

// Placeholders returns the detail tokens in template order
func (d Details) Placeholders() []Placeholder {
	return []Placeholder{
		{TokenInvoiceNumber, d.Number},
		{TokenInvoiceDate, d.IssueDate},
		{TokenDueDate, d.DueDate},
	}
}

// Item is one invoice line. Total is fixed when the record is created.
type Item struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// NewItem creates an item and computes its total
func NewItem(description string, unitPrice, quantity decimal.Decimal) Item {
	return Item{
		Description: description,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		Total:       unitPrice.Mul(quantity),
	}
}

// Financials holds the preformatted summary strings written into the
// financial table. They are stored as display strings so a re-render
// never recomputes them.
type Financials struct {
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Discount   string `json:"discount"`
	LateFee    string `json:"late_fee"`
	GrandTotal string `json:"grand_total"`
}

// Placeholders returns the financial tokens in template order
func (f Financials) Placeholders() []Placeholder {
	return []Placeholder{
		{TokenSubtotal, f.Subtotal},
		{TokenTax, f.Tax},
		{TokenDiscount, f.Discount},
		{TokenLateFee, f.LateFee},
		{TokenGrandTotal, f.GrandTotal},
	}
}

// Record is a generated invoice as persisted by number
type Record struct {
	ClientInfo    ClientInfo `json:"client_info"`
	Details       Details    `json:"invoice_details"`
	Items         []Item     `json:"items"`
	Financials    Financials `json:"financials"`
	ApplyLateFee  bool       `json:"apply_late_fee"`
	MarkAsPaid    bool       `json:"mark_as_paid"`
	InvoiceNumber string     `json:"invoice_number"`
	Signature     string     `json:"signature"`
}

// Placeholders returns every token → value pair for the template.
// The late fee label is filled only when the fee applies; otherwise both
// the label and the amount tokens are blanked.
func (r *Record) Placeholders() []Placeholder {
	var out []Placeholder
	out = append(out, r.ClientInfo.Placeholders()...)
	out = append(out, r.Details.Placeholders()...)
	out = append(out, r.Financials.Placeholders()...)

	if r.ApplyLateFee {
		out = append(out, Placeholder{TokenLateFeeLabel, LateFeeLabel})
	} else {
		out = append(out,
			Placeholder{TokenLateFeeLabel, ""},
			Placeholder{TokenLateFee, ""},
		)
	}
	return out
}

// Subtotal sums the stored item totals
func (r *Record) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}

// MarkPaid flags the invoice as paid
func (r *Record) MarkPaid() error {
	if r.MarkAsPaid {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Invoice %s is already marked as paid", r.InvoiceNumber))
	}
	r.MarkAsPaid = true
	return nil
}

// StatusLabel returns the display status of the invoice
func (r *Record) StatusLabel() string {
	if r.MarkAsPaid {
		return "Paid"
	}
	return "Not Paid"
}
