package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_created_total",
		Help: "The total number of interview sessions created.",
	})

	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_received_total",
		Help: "The total number of frames received from clients.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_messages_sent_total",
		Help: "The total number of envelopes sent to clients.",
	})

	// Admission metrics
	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "The total number of denied admissions, per limiter category.",
	}, []string{"category"})

	// Document pipeline metrics
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_processed_total",
		Help: "The total number of successfully extracted uploads, per format.",
	}, []string{"format"})
)
