package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in db.statement (dev only)
	SlowQueryThresh time.Duration // queries slower than this are flagged on their span
	DBSystem        string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingConfigFrom derives the database tracing settings from the telemetry section
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	out := DefaultDBTracingConfig()
	out.Enabled = cfg.Enabled && cfg.DBTraceEnabled
	return out
}

// DBTracingPlugin wraps otelgorm with slow query detection and tenant attributes.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// RegisterOtelGorm installs otelgorm and the timing callbacks on db.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerer is satisfied by the callback handles returned by gorm's processors.
// The after hooks run ahead of otelgorm's "after:*" hooks, which end the span.
type registerer interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op            string
		before, after registerer
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("after:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("after:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("after:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("after:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("after:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("after:raw")},
	}
	for _, st := range steps {
		if err := st.before.Register("otel_timing:before_"+st.op, p.before); err != nil {
			return err
		}
		if err := st.after.Register("otel_timing:after_"+st.op, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// after decorates the otelgorm span with tenant, table, error and latency details
func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if id, ok, _ := tenant.FromContext(ctx); ok {
		span.SetAttributes(attribute.String(SpanAttrTenantID, id.String()))
	}
	if tenant.IsSystemScope(ctx) {
		span.SetAttributes(attribute.Bool("tenant.system_scope", true))
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
