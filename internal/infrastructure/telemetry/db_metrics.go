package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBDurationBuckets are bucket boundaries for query latency (seconds).
var DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Database metric attribute keys
var (
	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBStatus    = attribute.Key("status")
	AttrPoolState   = attribute.Key("state")
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	// SlowQueryThreshold defaults to 200ms
	SlowQueryThreshold time.Duration
}

// DBMetrics holds the query and connection pool instruments.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter

	config       DBMetricsConfig
	logger       *zap.Logger
	registration metric.Registration
	stopOnce     sync.Once
}

// NewDBMetrics creates the query instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, &MetricsError{Op: "NewDBMetrics", Err: "meter cannot be nil"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	m := &DBMetrics{config: cfg, logger: logger}

	var err error
	m.queryTotal, err = NewCounter(meter,
		"db_query_total",
		"Total number of database queries by operation type",
		"{query}",
	)
	if err != nil {
		return nil, err
	}

	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.slowQueryTotal, err = NewCounter(meter,
		"db_slow_query_total",
		"Total number of queries slower than the configured threshold",
		"{query}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObservePool reports sql.DB pool statistics on every collection cycle.
func (m *DBMetrics) ObservePool(meter metric.Meter, sqlDB *sql.DB) error {
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrPoolState.String("in_use")))
		o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
		return nil
	}, connections, maxConnections)
	return err
}

// Stop unregisters the pool callback. It is safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		if m.registration != nil {
			if err := m.registration.Unregister(); err != nil {
				m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
			}
		}
	})
}

// RecordQuery records one completed query.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	if operation == "" {
		operation = "UNKNOWN"
	}
	if table == "" {
		table = "unknown"
	}
	status := "success"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
	}

	attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(table)}
	m.queryTotal.Inc(ctx, append(attrs, AttrDBStatus.String(status))...)
	m.queryDuration.RecordDuration(ctx, duration, attrs...)

	if duration > m.config.SlowQueryThreshold {
		m.slowQueryTotal.Inc(ctx, attrs...)
		m.logger.Warn("Slow query",
			zap.String("operation", operation),
			zap.String("table", table),
			zap.Duration("duration", duration))
	}
}

// DBMetricsPlugin is a gorm.Plugin that feeds DBMetrics from query callbacks.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin creates the plugin for metrics.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name implements gorm.Plugin.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return registerQueryCallbacks(db, "db_metrics", markStart(dbMetricsStartTimeKey), p.record)
}

func (p *DBMetricsPlugin) record(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var duration time.Duration
	if start, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(start)
	}
	p.metrics.RecordQuery(ctx, detectOperationType(db), db.Statement.Table, duration, db.Error)
}

// detectOperationType names the statement, falling back to the SQL text for raw queries.
func detectOperationType(db *gorm.DB) string {
	sqlText := strings.TrimSpace(strings.ToUpper(db.Statement.SQL.String()))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sqlText, op) {
			return op
		}
	}
	if sqlText == "" {
		return "UNKNOWN"
	}
	return "OTHER"
}

type dbContextKey string

const (
	dbMetricsStartTimeKey dbContextKey = "db_metrics_start_time"
	queryStartTimeKey     dbContextKey = "otel_query_start_time"
)

func markStart(key dbContextKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

// registerQueryCallbacks installs before and after hooks on every gorm processor.
func registerQueryCallbacks(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register(prefix+":before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register(prefix+":after_create", after)
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register(prefix+":before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register(prefix+":after_query", after)
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register(prefix+":before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register(prefix+":after_update", after)
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register(prefix+":after_delete", after)
		}},
		{"row", func() error {
			if err := cb.Row().Before("gorm:row").Register(prefix+":before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register(prefix+":after_row", after)
		}},
		{"raw", func() error {
			if err := cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register(prefix+":after_raw", after)
		}},
	}
	for _, h := range hooks {
		if err := h.register(); err != nil {
			return fmt.Errorf("register %s callbacks: %w", h.name, err)
		}
	}
	return nil
}

// RegisterDBMetrics installs query metrics and pool gauges on db.
// Call Stop on the result at shutdown.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	metrics, err := NewDBMetrics(meter, cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := metrics.ObservePool(meter, sqlDB); err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics)); err != nil {
		metrics.Stop()
		return nil, err
	}

	metrics.logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", metrics.config.SlowQueryThreshold))
	return metrics, nil
}
