package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ErrorTypeKey = "flowforge.error.type"

// SetError fails span with err. The concrete error type (e.g.
// *workflow.GraphCycleError) is recorded next to the message.
func SetError(span trace.Span, err error) {
	span.RecordError(err, trace.WithAttributes(
		attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err)),
	))
	span.SetStatus(codes.Error, err.Error())
}
