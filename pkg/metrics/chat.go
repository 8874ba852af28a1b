package metrics

import (
	"time"
)

// ChatMetrics provides observability for chat server operations.
//
// Implementations can collect metrics about connection lifecycle, frame
// traffic, broadcast fan-out, and dispatch latency. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewChatMetrics()
//	srv := server.New(cfg, m)
//
//	// Without metrics (pass nil for zero overhead)
//	srv := server.New(cfg, nil)
type ChatMetrics interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionRefused increments the counter of connections closed
	// immediately because the roster was at capacity.
	RecordConnectionRefused()

	// SetActiveSessions updates the current roster size gauge.
	SetActiveSessions(count int)

	// RecordFrameReceived records an inbound frame by operation name
	// (REG, PRV, CON, DIS, NIC) with its payload size in bytes.
	RecordFrameReceived(op string, payloadBytes int)

	// RecordFrameDropped records a frame that was discarded without
	// dispatch, labelled with the reason (e.g. "empty_after_sanitize",
	// "name_mismatch", "unknown_op").
	RecordFrameDropped(op string, reason string)

	// RecordBroadcast records a roster broadcast with its frame type
	// (e.g. "SIG_REG") and the number of sessions it reached.
	RecordBroadcast(frameType string, recipients int)

	// RecordSendFailure increments the counter of frame writes that failed
	// or timed out, causing the recipient to be disconnected.
	RecordSendFailure()

	// RecordDispatch records a completed frame dispatch with its operation
	// name and processing duration.
	RecordDispatch(op string, duration time.Duration)
}
