package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanConnect       = "session.connect"
	SpanSync          = "session.sync"
	SpanPrefixCommand = "command."
)

// Attribute keys.
const (
	AttrHost         = "server.host"
	AttrPort         = "server.port"
	AttrAttempt      = "session.attempt"
	AttrMethod       = "message.method"
	AttrParams       = "message.params"
	AttrFieldsFailed = "sync.fields_failed"
	AttrChanges      = "sync.changes"
)

// Event names.
const (
	EventFieldRejected = "field.rejected"
	EventRetryArmed    = "retry.armed"
)

// StartConnect opens the span covering one connection attempt. The caller
// ends it when the attempt connects or fails.
func StartConnect(tracer trace.Tracer, host string, port int, attempt string) trace.Span {
	_, span := tracer.Start(context.Background(), SpanConnect,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrHost, host),
			attribute.Int(AttrPort, port),
			attribute.String(AttrAttempt, attempt),
		),
	)
	return span
}

// EndConnect ends a connect span with err as its outcome.
func EndConnect(span trace.Span, err error) {
	if span == nil {
		return
	}
	End(span, err)
}

// RecordSync records one applied inbound sync. Each field that failed to
// decode becomes an event; the span is marked as an error only when every
// field failed.
func RecordSync(tracer trace.Tracer, attempt, method string, changes int, rejected []string, cause error) {
	_, span := tracer.Start(context.Background(), SpanSync,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String(AttrAttempt, attempt),
			attribute.String(AttrMethod, method),
			attribute.Int(AttrChanges, changes),
			attribute.Int(AttrFieldsFailed, len(rejected)),
		),
	)
	defer span.End()

	for _, f := range rejected {
		span.AddEvent(EventFieldRejected, trace.WithAttributes(attribute.String("field", f)))
	}
	if cause != nil && changes == 0 {
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// RecordCommand records one outbound command.
func RecordCommand(tracer trace.Tracer, attempt, method string, params []string) {
	_, span := tracer.Start(context.Background(), SpanPrefixCommand+method,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String(AttrAttempt, attempt),
			attribute.String(AttrMethod, method),
			attribute.StringSlice(AttrParams, params),
		),
	)
	span.End()
}

// End sets span's status from err and ends it.
func End(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, context.Canceled):
		span.SetStatus(codes.Unset, "cancelled")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
