package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistryOperations counts connection registry calls by operation and result (ok|error|rejected).
	RegistryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryhub_connection_registry_operations_total",
			Help: "Total number of connection registry operations",
		},
		[]string{"operation", "result"},
	)

	// PayloadFailures counts connection payloads that could not be normalised (decrypt|parse).
	PayloadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryhub_connection_payload_failures_total",
			Help: "Connection payloads left unparsed during decipher",
		},
		[]string{"reason"},
	)

	// ListedConnections reports how many connections the last listing returned per source.
	ListedConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queryhub_connections_listed",
			Help: "Connections returned by the most recent listing",
		},
		[]string{"source"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queryhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
