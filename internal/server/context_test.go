package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/queryexport/internal/export"
	"github.com/teemow/queryexport/internal/instrumentation"
)

type stubExporter struct {
	report export.Report
	calls  int
}

func (s *stubExporter) Execute(context.Context, string, string) export.Report {
	s.calls++
	return s.report
}

func TestNewServerContext(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil)
	assert.Error(t, err)

	exp := &stubExporter{}
	sc, err := NewServerContext(context.Background(), exp)
	require.NoError(t, err)
	assert.Same(t, exp, sc.Exporter())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
}

func TestServerContext_Instrumentation(t *testing.T) {
	sc, err := NewServerContext(context.Background(), &stubExporter{})
	require.NoError(t, err)

	m := &instrumentation.Metrics{}
	al := instrumentation.NewAuditLogger(nil)
	sc.SetMetrics(m)
	sc.SetAuditLogger(al)

	assert.Same(t, m, sc.Metrics())
	assert.Same(t, al, sc.AuditLogger())
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), &stubExporter{})
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	// Idempotent
	assert.NoError(t, sc.Shutdown())
}
