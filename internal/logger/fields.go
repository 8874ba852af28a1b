package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Operation
	// ========================================================================
	KeyOp        = "op"         // Chat operation: REG, PRV, CON, DIS, NIC
	KeyFrameType = "frame_type" // Full frame type string, e.g. REQ_REG, SIG_NIC
	KeyStatus    = "status"     // Response status: SUCCESS, FAILURE
	KeyReason    = "reason"     // Drop/refusal reason

	// ========================================================================
	// Frame Contents
	// ========================================================================
	KeyNick        = "nick"         // Display name carried in the frame name field
	KeyOldNick     = "old_nick"     // Previous name in a rename
	KeyNewNick     = "new_nick"     // New name in a rename
	KeyTarget      = "target"       // Whisper target name
	KeyPayloadSize = "payload_size" // Payload length in bytes

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyRemoteAddr = "remote_addr" // Full remote address (ip:port)

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID  = "session_id"  // Session identifier (UUID)
	KeySessions   = "sessions"    // Current roster size
	KeyMaxClients = "max_clients" // Configured capacity

	// ========================================================================
	// Delivery
	// ========================================================================
	KeyRecipients = "recipients" // Number of sessions a broadcast reached

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message

	// ========================================================================
	// Server
	// ========================================================================
	KeyBindAddr = "bind_addr" // Listener bind address
	KeyPort     = "port"      // Listener port
	KeyNetwork  = "network"   // Listener network: tcp4, tcp6
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Op returns a slog.Attr for the chat operation name
func Op(name string) slog.Attr {
	return slog.String(KeyOp, name)
}

// FrameType returns a slog.Attr for the full frame type string
func FrameType(t string) slog.Attr {
	return slog.String(KeyFrameType, t)
}

// Status returns a slog.Attr for response status
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// Reason returns a slog.Attr for a drop or refusal reason
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Nick returns a slog.Attr for a display name
func Nick(name string) slog.Attr {
	return slog.String(KeyNick, name)
}

// OldNick returns a slog.Attr for the previous name in a rename
func OldNick(name string) slog.Attr {
	return slog.String(KeyOldNick, name)
}

// NewNick returns a slog.Attr for the new name in a rename
func NewNick(name string) slog.Attr {
	return slog.String(KeyNewNick, name)
}

// Target returns a slog.Attr for a whisper target
func Target(name string) slog.Attr {
	return slog.String(KeyTarget, name)
}

// PayloadSize returns a slog.Attr for payload length in bytes
func PayloadSize(n int) slog.Attr {
	return slog.Int(KeyPayloadSize, n)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// RemoteAddr returns a slog.Attr for the full remote address
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// SessionID returns a slog.Attr for session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Sessions returns a slog.Attr for the current roster size
func Sessions(n int) slog.Attr {
	return slog.Int(KeySessions, n)
}

// MaxClients returns a slog.Attr for configured capacity
func MaxClients(n int) slog.Attr {
	return slog.Int(KeyMaxClients, n)
}

// Recipients returns a slog.Attr for broadcast fan-out size
func Recipients(n int) slog.Attr {
	return slog.Int(KeyRecipients, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// BindAddr returns a slog.Attr for listener bind address
func BindAddr(addr string) slog.Attr {
	return slog.String(KeyBindAddr, addr)
}

// Port returns a slog.Attr for listener port
func Port(p int) slog.Attr {
	return slog.Int(KeyPort, p)
}

// Network returns a slog.Attr for listener network
func Network(n string) slog.Attr {
	return slog.String(KeyNetwork, n)
}
