package prometheus

import (
	"time"

	"github.com/marmos91/parley/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// chatMetrics is the Prometheus implementation of metrics.ChatMetrics.
type chatMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsRefused  prometheus.Counter
	activeSessions      prometheus.Gauge
	framesReceived      *prometheus.CounterVec
	framePayloadBytes   *prometheus.HistogramVec
	framesDropped       *prometheus.CounterVec
	broadcasts          *prometheus.CounterVec
	broadcastRecipients *prometheus.HistogramVec
	sendFailures        prometheus.Counter
	dispatchDuration    *prometheus.HistogramVec
}

// NewChatMetrics creates a new Prometheus-backed ChatMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewChatMetrics() metrics.ChatMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &chatMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "parley_connections_accepted_total",
				Help: "Total number of accepted client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "parley_connections_closed_total",
				Help: "Total number of closed client connections",
			},
		),
		connectionsRefused: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "parley_connections_refused_total",
				Help: "Total number of connections closed immediately because the roster was full",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_active_sessions",
				Help: "Current number of connected sessions",
			},
		),
		framesReceived: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_frames_received_total",
				Help: "Total number of inbound frames by operation",
			},
			[]string{"op"}, // REG, PRV, CON, DIS, NIC
		),
		framePayloadBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "parley_frame_payload_bytes",
				Help: "Distribution of inbound frame payload sizes",
				Buckets: []float64{
					0,    // bare signals
					16,   // short lines
					64,   //
					256,  //
					1024, // payload ceiling
				},
			},
			[]string{"op"},
		),
		framesDropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_frames_dropped_total",
				Help: "Total number of frames discarded without dispatch by operation and reason",
			},
			[]string{"op", "reason"}, // reason: "empty_after_sanitize", "name_mismatch", "unknown_op"
		),
		broadcasts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_broadcasts_total",
				Help: "Total number of roster broadcasts by frame type",
			},
			[]string{"frame_type"}, // SIG_REG, SIG_CON, SIG_DIS, SIG_NIC, ...
		),
		broadcastRecipients: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "parley_broadcast_recipients",
				Help: "Distribution of broadcast fan-out sizes",
				Buckets: []float64{
					0, 1, 2, 5, 10, 50, 100, 256,
				},
			},
			[]string{"frame_type"},
		),
		sendFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "parley_send_failures_total",
				Help: "Total number of frame writes that failed or timed out",
			},
		),
		dispatchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "parley_dispatch_duration_milliseconds",
				Help: "Duration of frame dispatch in milliseconds",
				Buckets: []float64{
					0.01, // 10us - drops and single replies
					0.05, // 50us
					0.1,  // 100us
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms - large fan-out
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms - slow consumers
				},
			},
			[]string{"op"},
		),
	}
}

func (m *chatMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *chatMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *chatMetrics) RecordConnectionRefused() {
	if m == nil {
		return
	}
	m.connectionsRefused.Inc()
}

func (m *chatMetrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(count))
}

func (m *chatMetrics) RecordFrameReceived(op string, payloadBytes int) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(op).Inc()
	m.framePayloadBytes.WithLabelValues(op).Observe(float64(payloadBytes))
}

func (m *chatMetrics) RecordFrameDropped(op string, reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(op, reason).Inc()
}

func (m *chatMetrics) RecordBroadcast(frameType string, recipients int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(frameType).Inc()
	m.broadcastRecipients.WithLabelValues(frameType).Observe(float64(recipients))
}

func (m *chatMetrics) RecordSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *chatMetrics) RecordDispatch(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(op).Observe(duration.Seconds() * 1000)
}
