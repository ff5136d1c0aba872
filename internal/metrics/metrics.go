// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)

	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_api_rpc_requests_total",
			Help: "Gateway RPC requests by method and outcome code",
		},
		[]string{"method", "code"},
	)

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_api_tool_invocations_total",
			Help: "Tool invocations by tool name and status",
		},
		[]string{"tool", "status"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_api_auth_failures_total",
			Help: "Failed credential authentications by surface",
		},
		[]string{"surface"},
	)

	ActivePushChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compass_api_active_push_channels",
			Help: "Currently open push channels",
		},
	)

	Heartbeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compass_api_push_heartbeats_total",
			Help: "Heartbeat events written to push channels",
		},
	)

	StreamChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_api_stream_chunks_total",
			Help: "Chunks emitted to streaming clients",
		},
		[]string{"endpoint"},
	)

	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compass_api_model_request_duration_seconds",
			Help:    "Total time taken for model requests in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100},
		},
		[]string{"endpoint"},
	)
)
