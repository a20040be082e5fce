package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// InvoiceMetrics records invoice generation activity
type InvoiceMetrics struct {
	logger *zap.Logger

	generatedTotal      *Counter
	markedPaidTotal     *Counter
	renderFailuresTotal *Counter
	renderDuration      *Histogram
}

// InvoiceMetricsConfig holds configuration for invoice metrics.
type InvoiceMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewInvoiceMetrics creates the invoice instruments on the given meter
func NewInvoiceMetrics(cfg InvoiceMetricsConfig) (*InvoiceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &InvoiceMetrics{logger: logger}

	var err error
	im.generatedTotal, err = NewCounter(
		cfg.Meter,
		"invoice_generated_total",
		"Total number of invoices generated",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	im.markedPaidTotal, err = NewCounter(
		cfg.Meter,
		"invoice_marked_paid_total",
		"Total number of invoices marked as paid",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	im.renderFailuresTotal, err = NewCounter(
		cfg.Meter,
		"invoice_render_failures_total",
		"Total number of failed invoice renders by error code",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	im.renderDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "invoice_render_duration_seconds",
		Description: "Time to build and convert an invoice document",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return im, nil
}

// RecordGenerated counts a generated invoice
func (m *InvoiceMetrics) RecordGenerated(ctx context.Context, paid bool) {
	if m == nil {
		return
	}
	m.generatedTotal.Inc(ctx, AttrPaid.String(strconv.FormatBool(paid)))
}

// RecordMarkedPaid counts a paid toggle
func (m *InvoiceMetrics) RecordMarkedPaid(ctx context.Context) {
	if m == nil {
		return
	}
	m.markedPaidTotal.Inc(ctx)
}

// RecordRenderFailure counts a failed render by error code
func (m *InvoiceMetrics) RecordRenderFailure(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.renderFailuresTotal.Inc(ctx, AttrErrorCode.String(code))
	m.logger.Debug("render failure recorded", zap.String("code", code))
}

// RecordRenderDuration records how long a successful render took
func (m *InvoiceMetrics) RecordRenderDuration(ctx context.Context, converter string, d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.RecordDuration(ctx, d, AttrConverter.String(converter))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewInvoiceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
