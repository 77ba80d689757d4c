package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by hub spans.
const (
	AttrSessionSource = "session.source"
	AttrSessionUserID = "session.user_id"

	AttrCalendarAccount    = "calendar.account"
	AttrCalendarExternalID = "calendar.external_id"
	AttrCalendarChurchID   = "calendar.church_id"
)

// StartSpan starts a span on the named tracer.
//
//	ctx, span := telemetry.StartSpan(ctx, "hubapi/services/calendar", "calendar.SyncAccount",
//	    attribute.String(telemetry.AttrCalendarAccount, conn.AccountEmail),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a business event, such as an event parked as unmatched.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
