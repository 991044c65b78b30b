package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBInstrumentation traces GORM statements through otelgorm, flags slow
// ones on their span, and records statement latency and pool usage.
type DBInstrumentation struct {
	slowThreshold time.Duration
	latency       *Histogram
	logger        *zap.Logger
}

// InstrumentDB registers tracing and metrics callbacks on db. Tracing is
// skipped unless cfg.DBTraceEnabled; metrics go to meter either way.
func InstrumentDB(db *gorm.DB, cfg config.TelemetryConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	latency, err := NewHistogram(meter,
		"recon_db_statement_duration_seconds",
		"Latency of database statements",
		"s",
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
	)
	if err != nil {
		return nil, err
	}

	inst := &DBInstrumentation{
		slowThreshold: cfg.DBSlowQueryThresh,
		latency:       latency,
		logger:        logger,
	}
	if inst.slowThreshold <= 0 {
		inst.slowThreshold = 200 * time.Millisecond
	}

	// Registered ahead of otelgorm so the after hooks see the span before it ends
	if err := inst.registerCallbacks(db); err != nil {
		return nil, err
	}
	if cfg.DBTraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !cfg.DBLogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}
	if err := inst.observePool(db, meter); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.DBTraceEnabled),
		zap.Duration("slow_query_threshold", inst.slowThreshold),
	)
	return inst, nil
}

func (d *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	type register func(name string, fn func(*gorm.DB)) error
	cb := db.Callback()
	processors := []struct {
		operation     string
		before, after register
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, p := range processors {
		if err := p.before("recon_db:before_"+p.operation, d.before); err != nil {
			return err
		}
		if err := p.after("recon_db:after_"+p.operation, d.afterFunc(p.operation)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBInstrumentation) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (d *DBInstrumentation) afterFunc(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
		d.latency.RecordDuration(ctx, elapsed,
			attribute.String("operation", operation),
			attribute.String("table", db.Statement.Table),
			attribute.Bool("error", failed),
		)

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if failed {
			span.SetStatus(codes.Error, db.Error.Error())
		}
		if elapsed > d.slowThreshold {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", d.slowThreshold.Milliseconds()),
			))
		}
	}
}

// observePool reports connection pool usage on each metrics collection
func (d *DBInstrumentation) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	open, err := meter.Int64ObservableGauge("recon_db_pool_open_connections",
		metric.WithDescription("Open database connections"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("recon_db_pool_in_use_connections",
		metric.WithDescription("Database connections in use"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("recon_db_pool_wait_total",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(open, int64(stats.OpenConnections))
		o.ObserveInt64(inUse, int64(stats.InUse))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, open, inUse, waits)
	return err
}
