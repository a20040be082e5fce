package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/invoicegen/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

// JSONRecordStore keeps every record in one JSON object keyed by invoice number.
// Each save reads the whole file, updates one key and rewrites the file.
type JSONRecordStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewJSONRecordStore creates a store backed by the file at path
func NewJSONRecordStore(path string, logger *zap.Logger) *JSONRecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONRecordStore{
		path:   path,
		logger: logger.Named("json_store"),
	}
}

// Path returns the backing file
func (s *JSONRecordStore) Path() string {
	return s.path
}

// FindAll implements invoice.Repository
func (s *JSONRecordStore) FindAll(ctx context.Context) (map[string]*invoice.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}

	records := make(map[string]*invoice.Record, len(docs))
	for key, doc := range docs {
		records[key] = doc.ToDomain(key)
	}
	return records, nil
}

// FindByNumber implements invoice.Repository
func (s *JSONRecordStore) FindByNumber(ctx context.Context, number string) (*invoice.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[number]
	if !ok {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, fmt.Sprintf("Invoice %s not found", number))
	}
	return doc.ToDomain(number), nil
}

// Save implements invoice.Repository
func (s *JSONRecordStore) Save(ctx context.Context, record *invoice.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil || record.InvoiceNumber == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "invoice number is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return err
	}
	docs[record.InvoiceNumber] = models.NewRecordDocument(record)

	if err := s.write(docs); err != nil {
		return err
	}
	s.logger.Debug("invoice saved",
		zap.String("invoice_number", record.InvoiceNumber),
		zap.Int("records", len(docs)))
	return nil
}

func (s *JSONRecordStore) load() (map[string]*models.RecordDocument, error) {
	docs := make(map[string]*models.RecordDocument)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return docs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read invoice store %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return docs, nil
	}

	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse invoice store %s: %w", s.path, err)
	}
	return docs, nil
}

func (s *JSONRecordStore) write(docs map[string]*models.RecordDocument) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode invoice store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create invoice store directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".invoices-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("set invoice store mode: %w", err)
	}

	if _, err := tmp.Write(bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		tmp.Close()
		return fmt.Errorf("write invoice store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write invoice store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace invoice store %s: %w", s.path, err)
	}
	return nil
}

var _ invoice.Repository = (*JSONRecordStore)(nil)
