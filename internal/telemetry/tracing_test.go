package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerProvider(t *testing.T) {
	ctx := context.Background()

	tp, err := InitTracerProvider(ctx, Config{ServiceName: "ltd-dasher-test", Version: "0.0.0"})
	require.NoError(t, err)
	require.NotNil(t, tp)
	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(ctx))
	})

	_, span := otel.Tracer("test").Start(ctx, "span")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracerProvider_StdoutExportsSpans(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	tp, err := InitTracerProvider(ctx, Config{
		ServiceName: "ltd-dasher-test",
		Version:     "0.0.0",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "build dashboard")
	span.End()

	// Shutdown flushes the batcher.
	require.NoError(t, tp.Shutdown(ctx))
	assert.Contains(t, buf.String(), "build dashboard")
	assert.Contains(t, buf.String(), "ltd-dasher-test")
}

func TestInitTracerProvider_UnknownExporter(t *testing.T) {
	_, err := InitTracerProvider(context.Background(), Config{ServiceName: "x", Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}
