package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("INSTRUMENTATION_ENABLED", "")
	t.Setenv("METRICS_EXPORTER", "")
	t.Setenv("TRACING_EXPORTER", "")
	t.Setenv("AUDIT_LOGGING_INCLUDE_SQL", "")

	config := DefaultConfig()

	assert.Equal(t, "queryexport", config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.Equal(t, 0.1, config.TraceSamplingRate)
	assert.True(t, config.AuditLogging.Enabled)
	assert.False(t, config.AuditLogging.IncludeSQL)
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "exporter-prod")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("METRICS_DETAILED_LABELS", "notabool")

	config := DefaultConfig()

	assert.Equal(t, "exporter-prod", config.ServiceName)
	assert.False(t, config.Enabled)
	assert.Equal(t, 0.5, config.TraceSamplingRate)
	assert.False(t, config.DetailedLabels)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid prometheus",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1},
		},
		{
			name:    "sampling rate out of range",
			config:  Config{MetricsExporter: ExporterPrometheus, TraceSamplingRate: 1.5},
			wantErr: true,
		},
		{
			name:    "unknown metrics exporter",
			config:  Config{MetricsExporter: "statsd"},
			wantErr: true,
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{MetricsExporter: ExporterPrometheus, TracingExporter: "zipkin"},
			wantErr: true,
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: true,
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
