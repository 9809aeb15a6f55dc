package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method and path prefix.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privacycore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "privacycore_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// OperationsTotal counts cryptographic core operations (encrypt, decrypt, key create, etc.).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privacycore_operations_total",
			Help: "Total number of cryptographic core operations",
		},
		[]string{"operation", "status"},
	)
	// AuditEventsTotal counts every entry written to the audit trail, by
	// its action and status — the taxonomy spec.md §4.6/§3 enumerates.
	// Unlike OperationsTotal (one counter per transport-level call), this
	// fires for every audit write regardless of source: registry/engine
	// success and failure, guard denials, backup import/export, the
	// anomaly detector's own ANOMALY_DETECTED entries, and ALERTS_CLEARED
	// acknowledgements.
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privacycore_audit_events_total",
			Help: "Total number of audit log entries written, by action and status",
		},
		[]string{"action", "status"},
	)
	// CryptoOperationsTotal counts encrypt/decrypt calls by algorithm, so
	// an operator can see which key families dominate load or failures —
	// a dimension the HTTP-route-shaped OperationsTotal can't express.
	CryptoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privacycore_crypto_operations_total",
			Help: "Total number of crypto engine operations, by algorithm, action, and status",
		},
		[]string{"algorithm", "action", "status"},
	)
)
