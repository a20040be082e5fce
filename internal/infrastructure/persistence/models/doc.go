// Package models contains the persisted shapes of invoice records.
//
// RecordDocument is the on-disk JSON layout shared by the JSON file store and
// the payload column of the SQLite store. Its maps are keyed by the template
// placeholder tokens so existing invoices.json files stay readable.
//
// InvoiceModel and CounterModel are the GORM table mappings.
package models
