package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invoicegen/backend/internal/domain/invoice"
)

// InvoiceModel is one invoice row. Payload holds the RecordDocument JSON.
type InvoiceModel struct {
	Number    string    `gorm:"primaryKey;size:64"`
	Paid      bool      `gorm:"not null;default:false;index"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// FromDomain populates the model from a record
func (m *InvoiceModel) FromDomain(r *invoice.Record) error {
	payload, err := json.Marshal(NewRecordDocument(r))
	if err != nil {
		return fmt.Errorf("encode invoice %s: %w", r.InvoiceNumber, err)
	}
	m.Number = r.InvoiceNumber
	m.Paid = r.MarkAsPaid
	m.Payload = string(payload)
	return nil
}

// ToDomain decodes the payload into a record
func (m *InvoiceModel) ToDomain() (*invoice.Record, error) {
	var doc RecordDocument
	if err := json.Unmarshal([]byte(m.Payload), &doc); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", m.Number, err)
	}
	return doc.ToDomain(m.Number), nil
}

// CounterModel is the single-row sequence table
type CounterModel struct {
	ID        uint      `gorm:"primaryKey"`
	Value     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CounterModel) TableName() string {
	return "invoice_counters"
}
