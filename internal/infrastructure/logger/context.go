package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	TenantIDKey  contextKey = "tenant_id"
	UserIDKey    contextKey = "user_id"
)

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns the enriched logger
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, l, RequestIDKey, requestID)
}

// WithTenantID stores the tenant id used for row isolation and returns the enriched logger
func WithTenantID(ctx context.Context, l *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return withField(ctx, l, TenantIDKey, tenantID)
}

// WithUserID stores the acting user id and returns the enriched logger
func WithUserID(ctx context.Context, l *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return withField(ctx, l, UserIDKey, userID)
}

func withField(ctx context.Context, l *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	if l == nil {
		l = FromContext(ctx)
	}
	ctx = context.WithValue(ctx, key, value)
	enriched := l.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

func GetRequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }
func GetTenantID(ctx context.Context) string  { return stringValue(ctx, TenantIDKey) }
func GetUserID(ctx context.Context) string    { return stringValue(ctx, UserIDKey) }

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// L returns the context logger enriched with trace, request, tenant and user fields.
// Usage: logger.L(ctx).Info("sale completed", zap.String("sale_id", id))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	// Fields already added by WithXxx are on the attached logger; only add the
	// ones present in ctx but missing from a logger attached elsewhere.
	if _, ok := ctx.Value(LoggerKey).(*zap.Logger); !ok {
		for _, key := range []contextKey{RequestIDKey, TenantIDKey, UserIDKey} {
			if v := stringValue(ctx, key); v != "" {
				l = l.With(zap.String(string(key), v))
			}
		}
	}
	return l
}
