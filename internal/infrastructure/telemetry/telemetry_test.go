package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{Enabled: false, ServiceName: "order-reconciliation"}

	tp, err := NewTracerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, config.TelemetryConfig{Enabled: true, LogsEnabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestReconciliationMetrics(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := NewReconciliationMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	org := uuid.New()
	m.RecordProposalDecision(ctx, org, "change_order", "accepted", 40*time.Millisecond)
	m.RecordProposalDecision(ctx, org, "new_order", "rejected", 10*time.Millisecond)
	m.RecordLinesApplied(ctx, org, 1, 0, 2)
	m.RecordConflictRetry(ctx, org)

	metrics := collect(t, reader)

	decisions := sumByAttr(t, metrics["recon_proposal_decisions_total"], AttrOutcome)
	assert.Equal(t, map[string]int64{"accepted": 1, "rejected": 1}, decisions)

	lines := sumByAttr(t, metrics["recon_lines_applied_total"], AttrChangeKind)
	assert.Equal(t, map[string]int64{"add": 1, "modify": 2}, lines, "zero counts are not recorded")

	retries := sumByAttr(t, metrics["recon_conflict_retries_total"], AttrOrganizationID)
	assert.Equal(t, int64(1), retries[org.String()])

	hist, ok := metrics["recon_proposal_decision_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestNewReconciliationMetrics_NilMeter(t *testing.T) {
	_, err := NewReconciliationMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

type widget struct {
	ID   uint
	Name string
}

func TestInstrumentDB(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))

	reader, provider := newManualMeter(t)
	_, err = InstrumentDB(db, config.TelemetryConfig{
		DBTraceEnabled:    true,
		DBSlowQueryThresh: time.Nanosecond,
	}, provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx, span := StartServiceSpan(context.Background(), "reconciliation", "accept_proposal")
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "Davenport"}).Error)
	var got widget
	err = db.WithContext(ctx).First(&got, "name = ?", "missing").Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	span.End()

	metrics := collect(t, reader)
	latency, ok := metrics["recon_db_statement_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	ops := map[string]bool{}
	for _, dp := range latency.DataPoints {
		v, _ := dp.Attributes.Value("operation")
		ops[v.AsString()] = true
		failed, _ := dp.Attributes.Value("error")
		assert.False(t, failed.AsBool(), "record not found is not a failure")
	}
	assert.True(t, ops["create"])
	assert.True(t, ops["select"])
	assert.Contains(t, metrics, "recon_db_pool_open_connections")

	var dbSpans int
	for _, s := range recorder.Ended() {
		if s.Name() == "reconciliation.accept_proposal" {
			continue
		}
		dbSpans++
		var slow bool
		for _, kv := range s.Attributes() {
			if kv.Key == "db.slow_query" {
				slow = kv.Value.AsBool()
			}
		}
		assert.True(t, slow, "every statement exceeds a 1ns threshold")
		assert.NotEqual(t, codes.Error, s.Status().Code)
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartServiceSpan(context.Background(), "reconciliation", "reject_proposal")
	SetAttributes(span, SpanAttrProposalID, "p-1", SpanAttrLinesAdded, 3, 42, "ignored")
	AddEvent(span, "stale_proposal", SpanAttrOrderVersion, int64(4))
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "reconciliation.reject_proposal", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Len(t, s.Attributes(), 2)
	require.Len(t, s.Events(), 2, "stale_proposal plus the recorded exception")
	assert.Equal(t, "stale_proposal", s.Events()[0].Name)
}
