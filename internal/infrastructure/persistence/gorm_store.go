package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/invoicegen/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordStore implements invoice.Repository on a SQL database
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore creates a new GormRecordStore
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// FindAll implements invoice.Repository
func (s *GormRecordStore) FindAll(ctx context.Context) (map[string]*invoice.Record, error) {
	var rows []models.InvoiceModel
	if err := s.db.WithContext(ctx).Order("number").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	records := make(map[string]*invoice.Record, len(rows))
	for i := range rows {
		record, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		records[rows[i].Number] = record
	}
	return records, nil
}

// FindByNumber implements invoice.Repository
func (s *GormRecordStore) FindByNumber(ctx context.Context, number string) (*invoice.Record, error) {
	var row models.InvoiceModel
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("Invoice %s not found", number))
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice %s: %w", number, err)
	}
	return row.ToDomain()
}

// Save implements invoice.Repository
func (s *GormRecordStore) Save(ctx context.Context, record *invoice.Record) error {
	if record == nil || record.InvoiceNumber == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "invoice number is required")
	}

	var row models.InvoiceModel
	if err := row.FromDomain(record); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"paid", "payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save invoice %s: %w", record.InvoiceNumber, err)
	}
	return nil
}

const counterRowID = 1

// GormCounter implements invoice.Counter as a single-row table
type GormCounter struct {
	db *gorm.DB
}

// NewGormCounter creates a new GormCounter
func NewGormCounter(db *gorm.DB) *GormCounter {
	return &GormCounter{db: db}
}

// Current implements invoice.Counter. A missing row reads as 0.
func (c *GormCounter) Current(ctx context.Context) (int, error) {
	var row models.CounterModel
	err := c.db.WithContext(ctx).Where("id = ?", counterRowID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read invoice counter: %w", err)
	}
	return row.Value, nil
}

// Store implements invoice.Counter
func (c *GormCounter) Store(ctx context.Context, n int) error {
	row := models.CounterModel{ID: counterRowID, Value: n}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store invoice counter: %w", err)
	}
	return nil
}

var (
	_ invoice.Repository = (*GormRecordStore)(nil)
	_ invoice.Counter    = (*GormCounter)(nil)
)
