package invoice

import (
	"strings"
	"time"

	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DateLayout is the textual date format used on invoices (dd.mm.yyyy)
const DateLayout = "02.01.2006"

// DraftItem is a line as entered by the user, before totals are fixed
type DraftItem struct {
	Description string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
}

// Draft is the user input a record is built from
type Draft struct {
	Client       ClientInfo
	Details      Details
	Items        []DraftItem
	TaxRate      decimal.Decimal // percent
	Discount     decimal.Decimal
	ApplyLateFee bool
	MarkAsPaid   bool
	Signature    string
}

// Validation errors, checked in this order
var (
	ErrClientInfoRequired = shared.NewDomainError(shared.CodeValidationRequired, "All client info fields are required")
	ErrDetailsRequired    = shared.NewDomainError(shared.CodeValidationRequired, "All invoice details are required")
	ErrInvalidIssueDate   = shared.NewDomainError(shared.CodeValidationFormat, "Invoice date must be in the format dd.mm.yyyy (e.g., 21.04.2025)")
	ErrInvalidDueDate     = shared.NewDomainError(shared.CodeValidationFormat, "Due date must be in the format dd.mm.yyyy (e.g., 28.04.2025)")
	ErrNoBillableItems    = shared.NewDomainError(shared.CodeValidationRequired, "At least one valid item is required")
	ErrNegativeAmount     = shared.NewDomainError(shared.CodeValidationRange, "Prices, quantities, tax rate and discount cannot be negative")
)

// ValidDate reports whether s is a valid dd.mm.yyyy date
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate renders t in the invoice date layout
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Validate checks the draft against the numbering rules. It does no I/O.
func (d Draft) Validate(numbering Numbering) error {
	if blank(d.Client.Name) || blank(d.Client.Phone) || blank(d.Client.Email) || blank(d.Client.Address) {
		return ErrClientInfoRequired
	}
	if blank(d.Details.Number) || blank(d.Details.IssueDate) || blank(d.Details.DueDate) {
		return ErrDetailsRequired
	}
	if !numbering.Valid(d.Details.Number) {
		return shared.NewDomainError(shared.CodeValidationFormat,
			"Invoice number must start with '"+numbering.Prefix()+"'")
	}
	if !ValidDate(d.Details.IssueDate) {
		return ErrInvalidIssueDate
	}
	if !ValidDate(d.Details.DueDate) {
		return ErrInvalidDueDate
	}
	if d.TaxRate.IsNegative() || d.Discount.IsNegative() {
		return ErrNegativeAmount
	}

	billable := false
	for _, it := range d.Items {
		if it.UnitPrice.IsNegative() || it.Quantity.IsNegative() {
			return ErrNegativeAmount
		}
		if it.billable() {
			billable = true
		}
	}
	if !billable {
		return ErrNoBillableItems
	}
	return nil
}

func (it DraftItem) billable() bool {
	return !blank(it.Description) && it.UnitPrice.IsPositive() && it.Quantity.IsPositive()
}

// NewRecord validates the draft and builds a record. Non-billable lines
// are dropped, item totals are fixed and financials are formatted.
func NewRecord(d Draft, numbering Numbering) (*Record, error) {
	if err := d.Validate(numbering); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(d.Items))
	for _, it := range d.Items {
		if !it.billable() {
			continue
		}
		items = append(items, NewItem(it.Description, it.UnitPrice, it.Quantity))
	}

	totals := ComputeTotals(items, d.TaxRate, d.Discount, d.ApplyLateFee)

	return &Record{
		ClientInfo:    d.Client,
		Details:       d.Details,
		Items:         items,
		Financials:    totals.Financials(),
		ApplyLateFee:  d.ApplyLateFee,
		MarkAsPaid:    d.MarkAsPaid,
		InvoiceNumber: d.Details.Number,
		Signature:     d.Signature,
	}, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
