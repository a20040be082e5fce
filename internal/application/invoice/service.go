package invoice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/invoicegen/backend/internal/domain/invoice"
	"github.com/invoicegen/backend/internal/domain/shared"
	"github.com/invoicegen/backend/internal/infrastructure/printing"
	"github.com/invoicegen/backend/internal/infrastructure/storage"
	"github.com/invoicegen/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InvoiceService handles invoice generation and the invoice ledger
type InvoiceService struct {
	records   domain.Repository
	counter   domain.Counter
	renderer  printing.InvoiceRenderer
	numbering domain.Numbering

	archive storage.DocumentArchive
	metrics *telemetry.InvoiceMetrics
	now     func() time.Time
	logger  *zap.Logger
}

// Option is a functional option for configuring InvoiceService
type Option func(*InvoiceService)

// WithArchive stores a copy of every generated document
func WithArchive(archive storage.DocumentArchive) Option {
	return func(s *InvoiceService) {
		s.archive = archive
	}
}

// WithMetrics records invoice metrics
func WithMetrics(metrics *telemetry.InvoiceMetrics) Option {
	return func(s *InvoiceService) {
		s.metrics = metrics
	}
}

// WithLogger sets a custom logger for InvoiceService
func WithLogger(logger *zap.Logger) Option {
	return func(s *InvoiceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the source of today's date
func WithClock(now func() time.Time) Option {
	return func(s *InvoiceService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	records domain.Repository,
	counter domain.Counter,
	renderer printing.InvoiceRenderer,
	numbering domain.Numbering,
	opts ...Option,
) *InvoiceService {
	s := &InvoiceService{
		records:   records,
		counter:   counter,
		renderer:  renderer,
		numbering: numbering,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextNumber returns the number the next generation will default to
func (s *InvoiceService) NextNumber(ctx context.Context) (*NumberResponse, error) {
	current, err := s.counter.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice counter: %w", err)
	}
	number, seq := s.numbering.Next(current)
	return &NumberResponse{
		Number:   number,
		Sequence: seq,
		Prefix:   s.numbering.Prefix(),
	}, nil
}

// Generate validates the request, renders both documents and persists the
// record. Nothing is stored when rendering fails; the counter advances only
// once the record carrying the counter's next number is saved.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrReplace, req.Replace),
		telemetry.WithAttribute(telemetry.SpanAttrItemsCount, len(req.Items)))
	defer span.End()

	result, err := s.generate(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceNumber, result.Record.InvoiceNumber,
		telemetry.SpanAttrPaid, result.Record.MarkAsPaid)
	return result, nil
}

func (s *InvoiceService) generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	number := strings.TrimSpace(req.InvoiceNumber)
	today := domain.FormatDate(s.now())
	issueDate := strings.TrimSpace(req.InvoiceDate)
	if issueDate == "" {
		issueDate = today
	}
	dueDate := strings.TrimSpace(req.DueDate)
	if dueDate == "" {
		dueDate = today
	}

	// validate before touching the counter file; a blank number stands in
	// for the one the counter will issue
	candidate := number
	if candidate == "" {
		candidate = s.numbering.Format(1)
	}
	if err := req.toDraft(candidate, issueDate, dueDate).Validate(s.numbering); err != nil {
		return nil, err
	}

	next, err := s.NextNumber(ctx)
	if err != nil {
		return nil, err
	}
	if number == "" {
		number = next.Number
	}

	record, err := domain.NewRecord(req.toDraft(number, issueDate, dueDate), s.numbering)
	if err != nil {
		return nil, err
	}

	if !req.Replace {
		_, err := s.records.FindByNumber(ctx, number)
		if err == nil {
			return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
				fmt.Sprintf("Invoice %s already exists", number))
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to check invoice %s: %w", number, err)
		}
	}

	result, err := s.render(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := s.records.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save invoice %s: %w", number, err)
	}

	if number == next.Number {
		if err := s.counter.Store(ctx, next.Sequence); err != nil {
			return nil, fmt.Errorf("failed to store invoice counter: %w", err)
		}
		result.AutoNumbered = true
	}

	result.Archived = s.archiveDocuments(ctx, result)
	s.metrics.RecordGenerated(ctx, record.MarkAsPaid)

	s.logger.Info("invoice generated",
		zap.String("invoice_number", number),
		zap.Bool("paid", record.MarkAsPaid),
		zap.Bool("auto_numbered", result.AutoNumbered),
		zap.Int("items", len(record.Items)),
		zap.String("grand_total", record.Financials.GrandTotal))

	return result, nil
}

// List returns the invoices matching filter, ordered by number
func (s *InvoiceService) List(ctx context.Context, filter domain.StatusFilter) ([]Summary, error) {
	records, err := s.records.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	summaries := make([]Summary, 0, len(records))
	for _, record := range records {
		if filter.Matches(record) {
			summaries = append(summaries, ToSummary(record))
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].InvoiceNumber < summaries[j].InvoiceNumber
	})
	return summaries, nil
}

// Get returns a stored invoice
func (s *InvoiceService) Get(ctx context.Context, number string) (*domain.Record, error) {
	return s.records.FindByNumber(ctx, number)
}

// MarkPaid flags a stored invoice as paid and saves the whole record again
func (s *InvoiceService) MarkPaid(ctx context.Context, number string) (*domain.Record, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "mark_paid",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceNumber, number))
	defer span.End()

	record, err := s.records.FindByNumber(ctx, number)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := record.MarkPaid(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.records.Save(ctx, record); err != nil {
		err = fmt.Errorf("failed to save invoice %s: %w", number, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceStatus, "paid")
	s.metrics.RecordMarkedPaid(ctx)
	s.logger.Info("invoice marked as paid", zap.String("invoice_number", number))
	return record, nil
}

// Render renders a stored invoice again from its stored values
func (s *InvoiceService) Render(ctx context.Context, number string) (*GenerateResult, error) {
	record, err := s.records.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, record)
}

func (s *InvoiceService) render(ctx context.Context, record *domain.Record) (*GenerateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "render",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceNumber, record.InvoiceNumber),
		telemetry.WithAttribute(telemetry.SpanAttrPaid, record.MarkAsPaid))
	defer span.End()

	var rendered *printing.RenderResult
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("render"), func(ctx context.Context) {
		rendered, err = s.renderer.Render(ctx, record)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		code := printing.ErrCodeRenderFailed
		var renderErr *printing.RenderError
		if errors.As(err, &renderErr) {
			code = renderErr.Code
		}
		s.metrics.RecordRenderFailure(ctx, code)
		s.logger.Error("invoice render failed",
			zap.String("invoice_number", record.InvoiceNumber),
			zap.String("code", code),
			zap.Error(err))
		return nil, err
	}
	s.metrics.RecordRenderDuration(ctx, rendered.Converter, rendered.Duration)
	telemetry.SetAttributes(span, telemetry.SpanAttrConverter, rendered.Converter)

	return &GenerateResult{
		Record: record,
		DOCX: Document{
			Name:        rendered.DOCXName,
			ContentType: printing.ContentTypeDOCX,
			Data:        rendered.DOCX,
		},
		PDF: Document{
			Name:        rendered.PDFName,
			ContentType: printing.ContentTypePDF,
			Data:        rendered.PDF,
		},
	}, nil
}

// archiveDocuments stores copies of the documents. Failures are logged only.
func (s *InvoiceService) archiveDocuments(ctx context.Context, result *GenerateResult) []string {
	if s.archive == nil {
		return nil
	}

	var locations []string
	for _, doc := range result.Documents() {
		key := storage.DocumentKey(result.Record.InvoiceNumber, doc.Name)
		location, err := s.archive.Put(ctx, key, doc.Data, doc.ContentType)
		if err != nil {
			s.logger.Warn("failed to archive document",
				zap.String("invoice_number", result.Record.InvoiceNumber),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		locations = append(locations, location)
	}
	return locations
}
