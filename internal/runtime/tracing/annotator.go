// Package tracing stamps CloudEvents attributes onto the active span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
)

// Annotator decorates the span carried by ctx with event attributes. It is
// fire-and-forget: failures are never reported.
type Annotator interface {
	AnnotateCurrent(ctx context.Context, evt *ce.Event)
}

// SpanAnnotator writes OpenTelemetry CloudEvents and messaging attributes.
type SpanAnnotator struct{}

func (SpanAnnotator) AnnotateCurrent(ctx context.Context, evt *ce.Event) {
	if evt == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(EventAttributes(evt)...)
}

// EventAttributes returns the span attributes describing evt.
func EventAttributes(evt *ce.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.MessagingMessageID(evt.ID),
		semconv.CloudeventsEventID(evt.ID),
		semconv.CloudeventsEventSource(evt.Source),
		semconv.CloudeventsEventSpecVersion(evt.SpecVersion),
		semconv.CloudeventsEventType(evt.Type),
	}
	if evt.Subject != nil {
		attrs = append(attrs, semconv.CloudeventsEventSubject(*evt.Subject))
	}
	return attrs
}

// NopAnnotator does nothing.
type NopAnnotator struct{}

func (NopAnnotator) AnnotateCurrent(context.Context, *ce.Event) {}
