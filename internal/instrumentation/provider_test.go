package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(ctx))

	// Recording on a disabled provider is a no-op
	provider.Metrics().RecordExportRun(ctx, OutcomeSuccess)
}

func TestNewProvider_Prometheus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	assert.True(t, provider.Enabled())
	assert.True(t, provider.PrometheusEnabled())
	require.NotNil(t, provider.Metrics())

	_, span := provider.Tracer("test").Start(ctx, "noop")
	span.End()
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TraceSamplingRate: 2,
	})
	assert.Error(t, err)
}
