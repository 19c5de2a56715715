package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), "svc", "test", "")
	require.NoError(t, err)
	assert.Nil(t, tel.TracerProvider)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := StartSpan(context.Background(), "ok", attribute.Int("items", 2))
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "failed")
	EndSpan(failed, errors.New("insufficient stock"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("items", 2))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "insufficient stock", spans[1].Status().Description)
}

func TestTrimScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", trimScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", trimScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", trimScheme("collector:4318"))
}
