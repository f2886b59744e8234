package telemetry_test

import (
	"context"
	"testing"

	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "petshop-erp-test",
	}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping collector test in short mode")
	}
	ctx := context.Background()
	cfg := config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "petshop-erp-test",
		Insecure:          true,
	}

	// the gRPC exporter connects lazily, so no collector is needed to build it
	tp, err := telemetry.NewTracerProvider(ctx, cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	_ = tp.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := telemetry.Sampler(tt.ratio).Description()
		assert.Contains(t, got, "ParentBased")
		assert.Contains(t, got, tt.want)
	}
	var _ sdktrace.Sampler = telemetry.Sampler(1)
}
