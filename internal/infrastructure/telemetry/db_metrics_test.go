package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testInvoiceRow struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"size:32;uniqueIndex"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testInvoiceRow{}))
	return db
}

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumByOperation(t *testing.T, data metricdata.Aggregation) map[string]int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		out[op.AsString()] += dp.Value
	}
	return out
}

func TestNewDBMetrics(t *testing.T) {
	_, err := NewDBMetrics(nil, DBMetricsConfig{}, nil)
	require.Error(t, err)

	_, mp := newTestMeter(t)
	m, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{SlowQueryThreshold: 100 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "SELECT", "invoices", 5*time.Millisecond, nil)
	m.RecordQuery(ctx, "SELECT", "invoices", time.Millisecond, gorm.ErrRecordNotFound)
	m.RecordQuery(ctx, "INSERT", "invoices", 300*time.Millisecond, errors.New("constraint failed"))
	m.RecordQuery(ctx, "", "", time.Millisecond, nil)

	data := collect(t, reader)
	assert.Equal(t, map[string]int64{"SELECT": 2, "INSERT": 1, "UNKNOWN": 1}, sumByOperation(t, data["db_query_total"]))
	assert.Equal(t, map[string]int64{"INSERT": 1}, sumByOperation(t, data["db_slow_query_total"]))

	total := data["db_query_total"].(metricdata.Sum[int64])
	statuses := map[string]int64{}
	for _, dp := range total.DataPoints {
		s, _ := dp.Attributes.Value(AttrDBStatus)
		statuses[s.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 3, "error": 1}, statuses)

	hist, ok := data["db_query_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(4), count)
}

func TestRegisterDBMetrics(t *testing.T) {
	reader, mp := newTestMeter(t)
	db := setupTestDB(t)

	metrics, err := RegisterDBMetrics(db, mp.Meter("invoicegen/db"), DBMetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer metrics.Stop()

	require.NoError(t, db.Create(&testInvoiceRow{Number: "INV2025001"}).Error)
	var row testInvoiceRow
	require.NoError(t, db.First(&row, "number = ?", "INV2025001").Error)
	require.NoError(t, db.Model(&row).Update("number", "INV2025002").Error)
	require.NoError(t, db.Delete(&row).Error)

	data := collect(t, reader)
	ops := sumByOperation(t, data["db_query_total"])
	assert.Equal(t, int64(1), ops["INSERT"])
	assert.Equal(t, int64(1), ops["SELECT"])
	assert.Equal(t, int64(1), ops["UPDATE"])
	assert.Equal(t, int64(1), ops["DELETE"])

	gauge, ok := data["db_pool_connections_max"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)

	metrics.Stop()
	metrics.Stop()
}

func TestDetectOperationType(t *testing.T) {
	db := setupTestDB(t)
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "select * from invoices", want: "SELECT"},
		{sql: "  INSERT INTO invoices", want: "INSERT"},
		{sql: "update invoices set", want: "UPDATE"},
		{sql: "DELETE FROM invoices", want: "DELETE"},
		{sql: "PRAGMA journal_mode", want: "OTHER"},
		{sql: "", want: "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.sql, func(t *testing.T) {
			tx := db.Session(&gorm.Session{NewDB: true})
			tx.Statement.SQL.Reset()
			tx.Statement.SQL.WriteString(tt.sql)
			assert.Equal(t, tt.want, detectOperationType(tx))
		})
	}
}
