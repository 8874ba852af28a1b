package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys stamped on dispatch and broadcast spans.
const (
	AttrOperation   = "chat.operation"    // REG, PRV, CON, DIS, NIC
	AttrFrameType   = "chat.frame_type"   // Full frame type: REQ_REG, SIG_NIC, ...
	AttrNick        = "chat.nick"         // Display name on the frame
	AttrPayloadSize = "chat.payload_size" // Payload bytes
	AttrRecipients  = "chat.recipients"   // Broadcast fan-out
	AttrSessionID   = "chat.session_id"   // Session UUID
)

// SpanBroadcast names the roster fan-out span. Dispatch spans are named
// per operation as "chat.<OP>".
const SpanBroadcast = "server.broadcast"

// Operation returns an attribute for the chat operation name
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// FrameType returns an attribute for the full frame type string
func FrameType(t string) attribute.KeyValue {
	return attribute.String(AttrFrameType, t)
}

// Nick returns an attribute for a display name
func Nick(name string) attribute.KeyValue {
	return attribute.String(AttrNick, name)
}

// PayloadSize returns an attribute for payload length in bytes
func PayloadSize(n int) attribute.KeyValue {
	return attribute.Int(AttrPayloadSize, n)
}

// Recipients returns an attribute for broadcast fan-out size
func Recipients(n int) attribute.KeyValue {
	return attribute.Int(AttrRecipients, n)
}

// SessionIDAttr returns an attribute for session identifier
func SessionIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// StartDispatchSpan starts a span for dispatching a chat frame.
// This is a convenience function that sets common attributes.
func StartDispatchSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(op),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "chat."+op, trace.WithAttributes(allAttrs...))
}

// StartBroadcastSpan starts a span for a roster broadcast.
func StartBroadcastSpan(ctx context.Context, frameType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FrameType(frameType),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanBroadcast, trace.WithAttributes(allAttrs...))
}
