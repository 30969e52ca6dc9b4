package events

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestPublishOrderEventInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	writer := &fakeWriter{}
	require.NoError(t, newKafkaPublisher(writer).PublishOrderEvent(ctx, EventOrderCancelled, OrderEvent{OrderID: 9, UserID: 1}))
	require.Len(t, writer.messages, 1)

	carrier := headerCarrier{headers: &writer.messages[0].Headers}
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))
	assert.Equal(t, string(EventOrderCancelled), carrier.Get("event_type"))
}

func TestHeaderCarrierSetReplaces(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	carrier := headerCarrier{headers: &headers}
	carrier.Set("a", "2")
	carrier.Set("b", "3")

	assert.Equal(t, "2", carrier.Get("a"))
	assert.Equal(t, []string{"a", "b"}, carrier.Keys())
	assert.Empty(t, carrier.Get("missing"))
}
