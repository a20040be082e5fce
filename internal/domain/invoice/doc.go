// Package invoice contains the Invoice bounded context.
// It owns the invoice record, its validation rules, the financial
// computation (subtotal, tax, discount, late fee, grand total), invoice
// numbering and the display formatting used when the record is written
// into a document template.
package invoice
